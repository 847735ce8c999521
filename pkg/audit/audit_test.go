package audit

import (
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestLocation(t *testing.T) {
	loc := ServiceLocation("api").Environment("DB_PASSWORD")

	assert.Equal(t, Location{"service", "api", "environment", "DB_PASSWORD"}, loc)
	assert.Equal(t, "service.api.environment.DB_PASSWORD", loc.String())
	assert.True(t, loc.Equal(ServiceLocation("api").Environment("DB_PASSWORD")))
	assert.False(t, loc.Equal(ServiceLocation("api").Image()))

	// Children never share the parent's backing array
	root := make(Location, 2, 8)
	copy(root, ServiceLocation("db"))
	image := root.Image()
	health := root.HealthCheck()
	assert.Equal(t, Location{"service", "db", "image"}, image)
	assert.Equal(t, Location{"service", "db", "healthcheck"}, health)
}

func TestImageAlert(t *testing.T) {
	tests := []struct {
		image    string
		severity Severity
		message  string
	}{
		{"postgres:16.2", "", ""},
		{"ghcr.io/acme/api:v1.4.0", "", ""},
		{"nginx@sha256:0000000000000000000000000000000000000000000000000000000000000000", "", ""},
		{"nginx", SeverityCritical, "image has no explicit tag (defaults to :latest)"},
		{"localhost:5000/app", SeverityCritical, "image has no explicit tag (defaults to :latest)"},
		{"nginx:latest", SeverityCritical, "image uses tag :latest"},
		{"redis:beta", SeverityWarn, "image uses unstable tag :beta"},
		{"redis:nightly", SeverityWarn, "image uses unstable tag :nightly"},
		{"redis:stable", SeverityCritical, "image tag is vague :stable"},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			alert, ok := imageAlert("svc", tt.image)
			if tt.severity == "" {
				assert.False(t, ok, "unexpected alert: %+v", alert)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.severity, alert.Severity)
			assert.Equal(t, tt.message, alert.Message)
			assert.Equal(t, ServiceLocation("svc").Image(), alert.Location)
		})
	}
}

func TestImageAlertInvalidReference(t *testing.T) {
	alert, ok := imageAlert("svc", "UPPER/case:1")
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Message, "invalid image reference")
}

func TestSecretsInspector(t *testing.T) {
	stack := types.NewStack("shop")
	require.NoError(t, stack.Add(&types.Service{
		Name:  "api",
		Image: "shop/api:1.0",
		Environment: []types.EnvVar{
			types.Env("DB_PASSWORD", "hunter2"),
			types.SecretEnv("API_TOKEN", types.NewSecret("api-token", "abc")),
			types.Env("LOG_LEVEL", "debug"),
			types.Env("SIGNING_Key", "k"),
		},
	}))

	report := InspectWith(stack, secretsInspector{})

	require.Len(t, report.Alerts(), 2)
	assert.Len(t, report.Query(ServiceLocation("api").Environment("DB_PASSWORD")), 1)
	assert.Len(t, report.Query(ServiceLocation("api").Environment("SIGNING_Key")), 1)
	assert.Empty(t, report.Query(ServiceLocation("api").Environment("API_TOKEN")))
	assert.Equal(t, 2, report.Count(SeverityCritical))
}

func TestMountAlerts(t *testing.T) {
	svc := &types.Service{
		Name:  "web",
		Image: "nginx:1.27",
		Mounts: []types.Mount{
			{ID: "m0", Type: types.MountTypeBind, Source: "/etc/nginx", Target: "/etc/nginx", ReadOnly: boolPtr(true)},
			{ID: "m1", Type: types.MountTypeBind, Source: "./site", Target: "/usr/share/nginx/html"},
			{ID: "m2", Type: types.MountTypeVolume, Source: "cache", Target: "/usr/share/nginx/html/cache"},
			{ID: "m3", Type: types.MountTypeTmpfs, Target: "tmp"},
			{ID: "m4", Type: types.MountTypeBind, Source: "/etcetera", Target: "/srv", ReadOnly: boolPtr(false)},
		},
	}

	messages := func(m types.Mount) []string {
		var out []string
		for _, a := range mountAlerts(svc, m) {
			out = append(out, string(a.Severity)+": "+a.Message)
		}
		return out
	}

	assert.Equal(t, []string{"critical: sensitive host path"}, messages(svc.Mounts[0]))
	assert.Equal(t, []string{
		"warn: defaults to read-write, make it explicit",
		"critical: conflicting mount path with /usr/share/nginx/html/cache",
		"critical: relative source path",
	}, messages(svc.Mounts[1]))
	assert.Equal(t, []string{
		"critical: conflicting mount path with /usr/share/nginx/html",
	}, messages(svc.Mounts[2]))
	assert.Equal(t, []string{"critical: relative target path"}, messages(svc.Mounts[3]))
	assert.Empty(t, messages(svc.Mounts[4]))
}

func TestHealthAndDependencyInspectors(t *testing.T) {
	stack := types.NewStack("shop")
	require.NoError(t, stack.Add(
		&types.Service{Name: "db", Image: "postgres:16.2", HealthCheck: types.CommandHealthCheck([]string{"pg_isready"}, types.HealthCheckOptions{})},
		&types.Service{Name: "cache", Image: "redis:7.2"},
		&types.Service{Name: "worker", Image: "shop/worker:1.0", HealthCheck: types.NoHealthCheck()},
		&types.Service{Name: "api", Image: "shop/api:1.0", DependsOn: []string{"db", "cache", "worker"}},
	))

	report := Inspect(stack)

	assert.Empty(t, report.Query(ServiceLocation("db").HealthCheck()))
	assert.Len(t, report.Query(ServiceLocation("cache").HealthCheck()), 1)
	assert.Empty(t, report.Query(ServiceLocation("worker").HealthCheck()))

	assert.Empty(t, report.Query(ServiceLocation("api").DependsOn("db")))
	cache := report.Query(ServiceLocation("api").DependsOn("cache"))
	require.Len(t, cache, 1)
	assert.Equal(t, SeverityWarn, cache[0].Severity)
	assert.Equal(t, "cache has no healthcheck", cache[0].Message)
	assert.Len(t, report.Query(ServiceLocation("api").DependsOn("worker")), 1)
}

func TestNilReport(t *testing.T) {
	var report *Report
	assert.Nil(t, report.Alerts())
	assert.Nil(t, report.Query(ServiceLocation("x")))
	assert.Zero(t, report.Count(SeverityInfo))
}
