package runtime

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "postgres:16.2", want: "docker.io/library/postgres:16.2"},
		{ref: "nginx", want: "docker.io/library/nginx:latest"},
		{ref: "ghcr.io/acme/api:1.4.0", want: "ghcr.io/acme/api:1.4.0"},
		{ref: "Invalid:Ref", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := NormalizeImage(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortSpecs(t *testing.T) {
	exposed, bindings, err := portSpecs([]types.PortMapping{
		{ContainerPort: 80, HostPort: 8080, Protocol: types.ProtocolTCP},
		{ContainerPort: 80, HostPort: 8081, HostIP: "127.0.0.1", Protocol: types.ProtocolTCP},
		{ContainerPort: 53, Protocol: types.ProtocolUDP},
	})
	require.NoError(t, err)

	assert.Len(t, exposed, 2)
	assert.Equal(t, []nat.PortBinding{
		{HostPort: "8080"},
		{HostIP: "127.0.0.1", HostPort: "8081"},
	}, bindings["80/tcp"])
	assert.Equal(t, []nat.PortBinding{{HostPort: "53"}}, bindings["53/udp"])
}

func TestMountSpecs(t *testing.T) {
	ro := true
	mounts, err := mountSpecs([]types.Mount{
		{ID: "web/mount-0", Type: types.MountTypeBind, Source: "conf", Target: "/etc/nginx", ReadOnly: &ro, Propagation: "rprivate"},
		{ID: "web/mount-1", Type: types.MountTypeVolume, Source: "data", Target: "/data", NoCopy: true},
		{ID: "web/mount-2", Type: types.MountTypeTmpfs, Target: "/tmp", TmpfsSize: "64m", TmpfsMode: 0o1777},
	})
	require.NoError(t, err)
	require.Len(t, mounts, 3)

	wd, _ := os.Getwd()
	assert.Equal(t, mount.TypeBind, mounts[0].Type)
	assert.Equal(t, filepath.Join(wd, "conf"), mounts[0].Source)
	assert.True(t, mounts[0].ReadOnly)
	assert.Equal(t, mount.Propagation("rprivate"), mounts[0].BindOptions.Propagation)

	assert.Equal(t, mount.TypeVolume, mounts[1].Type)
	assert.Equal(t, "data", mounts[1].Source)
	assert.False(t, mounts[1].ReadOnly)
	assert.True(t, mounts[1].VolumeOptions.NoCopy)

	assert.Equal(t, mount.TypeTmpfs, mounts[2].Type)
	assert.Equal(t, int64(64*1024*1024), mounts[2].TmpfsOptions.SizeBytes)
	assert.Equal(t, os.FileMode(0o1777), mounts[2].TmpfsOptions.Mode)

	_, err = mountSpecs([]types.Mount{{ID: "x", Type: types.MountTypeTmpfs, Target: "/tmp", TmpfsSize: "lots"}})
	assert.Error(t, err)
}

func TestHealthSpec(t *testing.T) {
	opts := types.HealthCheckOptions{Interval: "5s", Timeout: "3s", Retries: 5}

	tests := []struct {
		name string
		hc   *types.HealthCheck
		want *container.HealthConfig
	}{
		{"nil", nil, nil},
		{
			"inherit",
			types.InheritHealthCheck(opts),
			&container.HealthConfig{Test: []string{}, Interval: 5 * time.Second, Timeout: 3 * time.Second, Retries: 5},
		},
		{
			"none ignores options",
			&types.HealthCheck{Kind: types.HealthCheckNone, Options: opts},
			&container.HealthConfig{Test: []string{"NONE"}},
		},
		{
			"cmd",
			types.CommandHealthCheck([]string{"pg_isready", "-U", "app"}, opts),
			&container.HealthConfig{Test: []string{"CMD", "pg_isready", "-U", "app"}, Interval: 5 * time.Second, Timeout: 3 * time.Second, Retries: 5},
		},
		{
			"shell",
			types.ShellHealthCheck("curl -f localhost || exit 1", types.HealthCheckOptions{StartPeriod: "10s", StartInterval: "1s"}),
			&container.HealthConfig{Test: []string{"CMD-SHELL", "curl -f localhost || exit 1"}, StartPeriod: 10 * time.Second, StartInterval: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := healthSpec(tt.hc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := healthSpec(types.CommandHealthCheck([]string{"true"}, types.HealthCheckOptions{Interval: "soon"}))
	assert.Error(t, err)
}

func TestBuildContainerSpec(t *testing.T) {
	svc := &types.Service{
		Name:        "api",
		Image:       "shop/api:1.4.0",
		Command:     []string{"serve", "--port", "8080"},
		Network:     "backend",
		Environment: []types.EnvVar{types.SecretEnv("TOKEN", types.NewSecret("api token", "s3cr3t"))},
		Restart:     &types.RestartPolicy{Name: types.RestartOnFailure, MaximumRetryCount: 3},
		Labels:      map[string]string{"tier": "web"},
	}

	cfg, hostCfg, netCfg, err := buildContainerSpec("shop", svc)
	require.NoError(t, err)

	assert.Equal(t, "shop/api:1.4.0", cfg.Image)
	assert.Equal(t, []string{"TOKEN=s3cr3t"}, cfg.Env)
	assert.Equal(t, "shop", cfg.Labels[LabelComposeProject])
	assert.Equal(t, "web", cfg.Labels["tier"])
	assert.Nil(t, cfg.Healthcheck)

	assert.Equal(t, container.NetworkMode("backend"), hostCfg.NetworkMode)
	assert.Equal(t, container.RestartPolicyMode("on-failure"), hostCfg.RestartPolicy.Name)
	assert.Equal(t, 3, hostCfg.RestartPolicy.MaximumRetryCount)

	require.NotNil(t, netCfg)
	assert.Equal(t, []string{"api"}, netCfg.EndpointsConfig["backend"].Aliases)
}
