package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/cuemby/burrow/pkg/duration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStackAdd(t *testing.T) {
	stack := NewStack("shop")
	err := stack.Add(
		&Volume{Name: "data"},
		&Network{Name: "backend"},
		&Service{
			Name:   "db",
			Image:  "postgres:16.2",
			Ports:  []PortMapping{{ContainerPort: 5432}},
			Mounts: []Mount{VolumeMount("data", "/var/lib/postgresql/data"), TmpfsMount("/tmp")},
		},
		&Service{Name: "api", Image: "shop/api:1.4.0", DependsOn: []string{"db"}},
	)
	require.NoError(t, err)

	require.Len(t, stack.Services, 2)
	assert.Equal(t, "db", stack.Services[0].Name)
	assert.Equal(t, "api", stack.Services[1].Name)
	assert.Equal(t, "db/mount-0", stack.Services[0].Mounts[0].ID)
	assert.Equal(t, "db/mount-1", stack.Services[0].Mounts[1].ID)
	assert.Equal(t, ProtocolTCP, stack.Services[0].Ports[0].Protocol)

	_, ok := stack.Volume("data")
	assert.True(t, ok)
	_, ok = stack.Network("backend")
	assert.True(t, ok)
}

func TestStackAddDuplicate(t *testing.T) {
	tests := []struct {
		name     string
		resource Resource
	}{
		{"service", &Service{Name: "db", Image: "postgres:16.2"}},
		{"volume", &Volume{Name: "data"}},
		{"network", &Network{Name: "backend"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := NewStack("shop")
			require.NoError(t, stack.Add(
				&Service{Name: "db", Image: "postgres:16.2"},
				&Volume{Name: "data"},
				&Network{Name: "backend"},
			))
			err := stack.Add(tt.resource)
			assert.ErrorIs(t, err, ErrDuplicateName)
		})
	}
}

func TestContainerNameSafe(t *testing.T) {
	assert.Equal(t, "db", (&Service{Name: "db"}).ContainerNameSafe())
	assert.Equal(t, "shop-db", (&Service{Name: "db", ContainerName: "shop-db"}).ContainerNameSafe())
}

func TestStackValidate(t *testing.T) {
	tests := []struct {
		name    string
		service *Service
		wantErr bool
	}{
		{
			name:    "valid",
			service: &Service{Name: "db", Image: "postgres:16.2", HealthCheck: ShellHealthCheck("pg_isready", HealthCheckOptions{Interval: "2s"})},
		},
		{
			name:    "missing image",
			service: &Service{Name: "db"},
			wantErr: true,
		},
		{
			name:    "bad protocol",
			service: &Service{Name: "db", Image: "postgres:16.2", Ports: []PortMapping{{ContainerPort: 5432, Protocol: "icmp"}}},
			wantErr: true,
		},
		{
			name:    "bind without source",
			service: &Service{Name: "db", Image: "postgres:16.2", Mounts: []Mount{{Type: MountTypeBind, Target: "/data"}}},
			wantErr: true,
		},
		{
			name:    "malformed health duration",
			service: &Service{Name: "db", Image: "postgres:16.2", HealthCheck: CommandHealthCheck([]string{"true"}, HealthCheckOptions{Timeout: "ten seconds"})},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := NewStack("shop")
			require.NoError(t, stack.Add(tt.service))
			err := stack.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStackValidateDurationError(t *testing.T) {
	stack := NewStack("shop")
	require.NoError(t, stack.Add(&Service{
		Name:        "db",
		Image:       "postgres:16.2",
		HealthCheck: CommandHealthCheck([]string{"true"}, HealthCheckOptions{Interval: "5x"}),
	}))

	err := stack.Validate()
	var perr *duration.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "5x", perr.Value)
	assert.ErrorIs(t, err, duration.ErrUnknownUnit)
}

func TestResolveOptions(t *testing.T) {
	hc := CommandHealthCheck([]string{"curl", "-f", "localhost"}, HealthCheckOptions{
		Interval:    "2s",
		Timeout:     "500ms",
		Retries:     5,
		StartPeriod: "1m",
	})

	opts, err := hc.ResolveOptions()
	require.NoError(t, err)
	assert.Equal(t, ResolvedOptions{
		Interval:    2e9,
		Timeout:     5e8,
		Retries:     5,
		StartPeriod: 6e10,
	}, opts)

	opts, err = NoHealthCheck().ResolveOptions()
	require.NoError(t, err)
	assert.Equal(t, ResolvedOptions{}, opts)

	_, err = InheritHealthCheck(HealthCheckOptions{Interval: "10us"}).ResolveOptions()
	assert.ErrorIs(t, err, ErrDurationTooShort)

	_, err = InheritHealthCheck(HealthCheckOptions{Retries: -1}).ResolveOptions()
	assert.Error(t, err)
}

func TestHealthCheckSummary(t *testing.T) {
	tests := []struct {
		name string
		hc   *HealthCheck
		want string
	}{
		{"nil", nil, "None"},
		{"inherit", InheritHealthCheck(HealthCheckOptions{}), "Inherited"},
		{"none", NoHealthCheck(), "None"},
		{"exec", CommandHealthCheck([]string{"pg_isready", "-U", "app"}, HealthCheckOptions{}), "(exec) pg_isready -U app"},
		{"shell", ShellHealthCheck("curl -f http://localhost/ || exit 1", HealthCheckOptions{}), "(shell) curl -f http://localhost/ || exit 1"},
		{
			"truncated",
			ShellHealthCheck("wget --quiet --tries=1 --spider http://localhost:8080/healthz", HealthCheckOptions{}),
			"(shell) wget --quiet --tries=1 --spider http://...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.hc.Summary()
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), 50)
		})
	}
}

func TestWaitable(t *testing.T) {
	var nilCheck *HealthCheck
	assert.False(t, nilCheck.Waitable())
	assert.False(t, NoHealthCheck().Waitable())
	assert.True(t, InheritHealthCheck(HealthCheckOptions{}).Waitable())
	assert.True(t, ShellHealthCheck("true", HealthCheckOptions{}).Waitable())
}

func TestSecretRedaction(t *testing.T) {
	secret := NewSecret("db password", "hunter2")

	assert.Equal(t, "<Secret: db password>", secret.String())
	assert.Equal(t, "<Secret: db password>", fmt.Sprintf("%v", secret))
	assert.Equal(t, "<Secret: db password>", fmt.Sprintf("%+v", secret))
	assert.Equal(t, "<Secret: db password>", fmt.Sprintf("%#v", secret))
	assert.Equal(t, "<Secret: db password>", fmt.Sprintf("%s", secret))
	assert.Equal(t, "hunter2", secret.Reveal())

	_, err := json.Marshal(secret)
	assert.ErrorIs(t, err, ErrSecretNotSerializable)

	_, err = yaml.Marshal(secret)
	assert.Error(t, err)

	_, err = secret.MarshalText()
	assert.ErrorIs(t, err, ErrSecretNotSerializable)
}

func TestEnvValue(t *testing.T) {
	plain := Env("PGDATA", "/data")
	assert.False(t, plain.Value.IsSecret())
	assert.Equal(t, "/data", plain.Value.String())
	assert.Equal(t, "/data", plain.Value.PlainValue())

	secret := SecretEnv("POSTGRES_PASSWORD", NewSecret("db password", "hunter2"))
	assert.True(t, secret.Value.IsSecret())
	assert.Equal(t, "<Secret: db password>", secret.Value.String())
	assert.Empty(t, secret.Value.PlainValue())
	assert.Equal(t, "hunter2", secret.Value.Secret().Reveal())
}

func TestPortMappingString(t *testing.T) {
	assert.Equal(t, "8080:80/tcp", PortMapping{ContainerPort: 80, HostPort: 8080, Protocol: ProtocolTCP}.String())
	assert.Equal(t, "53/udp", PortMapping{ContainerPort: 53, Protocol: ProtocolUDP}.String())
}

func TestParseRestartPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    *RestartPolicy
		wantErr bool
	}{
		{"no", &RestartPolicy{Name: RestartNo}, false},
		{"always", &RestartPolicy{Name: RestartAlways}, false},
		{"unless-stopped", &RestartPolicy{Name: RestartUnlessStopped}, false},
		{"on-failure", &RestartPolicy{Name: RestartOnFailure}, false},
		{"on-failure:5", &RestartPolicy{Name: RestartOnFailure, MaximumRetryCount: 5}, false},
		{"on-failure:-1", nil, true},
		{"always:2", nil, true},
		{"never", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRestartPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
