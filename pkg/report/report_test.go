package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cuemby/burrow/pkg/audit"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/state"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportStack(t *testing.T) *types.Stack {
	t.Helper()
	readOnly := true
	stack := types.NewStack("shop")
	require.NoError(t, stack.Add(
		&types.Volume{Name: "data", Driver: "local", Labels: map[string]string{"tier": "db"}},
		&types.Volume{Name: "cache"},
		&types.Network{Name: "backend"},
		&types.Service{
			Name:        "db",
			Image:       "postgres:latest",
			Network:     "backend",
			Mounts:      []types.Mount{types.VolumeMount("data", "/var/lib/postgresql/data")},
			Environment: []types.EnvVar{types.SecretEnv("POSTGRES_PASSWORD", types.NewSecret("db-password", "hunter2"))},
			HealthCheck: types.CommandHealthCheck([]string{"pg_isready"}, types.HealthCheckOptions{}),
		},
		&types.Service{
			Name:        "api",
			Image:       "shop/api:1.4.0",
			Ports:       []types.PortMapping{{ContainerPort: 80, HostPort: 8080}},
			Environment: []types.EnvVar{types.Env("API_TOKEN", "plain-token")},
			Mounts:      []types.Mount{{Type: types.MountTypeBind, Source: "/srv/config", Target: "/config", ReadOnly: &readOnly}},
			Command:     []string{"serve", "--port", "80"},
			DependsOn:   []string{"db"},
		},
	))
	return stack
}

func render(t *testing.T, in Input) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, in))
	return buf.String()
}

func TestRenderDryRun(t *testing.T) {
	stack := reportStack(t)
	rec := events.NewRecorder()
	rec.Record(events.KindVolume, events.ActionCreated, "data", "")
	rec.Record(events.KindContainer, events.ActionRun, "db", "postgres:latest")

	out := render(t, Input{
		Stack:    stack,
		Command:  "up",
		Mode:     "dry-run",
		Services: []string{"db", "api"},
		Events:   rec.Events(),
		State:    state.NewBuilder().Volume("cache", state.Exists).Build(),
		Audit:    audit.Inspect(stack),
	})

	assert.True(t, strings.HasPrefix(out, "Stack: shop (dry-run) up [db, api]\n"))
	assert.Contains(t, out, "  - data    : created tier=db driver=local\n")
	assert.Contains(t, out, "  - cache   : exists\n")
	assert.Contains(t, out, "  - backend : unknown\n")

	assert.Contains(t, out, "1. db (postgres:latest ✖ image uses tag :latest)\n")
	assert.Contains(t, out, "   Network    : backend\n")
	assert.Contains(t, out, "   Volumes    : /var/lib/postgresql/data → (volume) data (read-write)\n")
	assert.Contains(t, out, "   Environment: POSTGRES_PASSWORD=<Secret: db-password>\n")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "   Healthcheck: (exec) pg_isready\n")

	assert.Contains(t, out, "2. api (shop/api:1.4.0)\n")
	assert.Contains(t, out, "   Ports      : 8080:80/tcp\n")
	assert.Contains(t, out, "   Volumes    : /config → (bind) /srv/config read-only\n")
	assert.Contains(t, out, "   Environment: API_TOKEN=plain-token\n")
	assert.Contains(t, out, "✖ looks like a secret but is passed as plaintext")
	assert.Contains(t, out, "   Depends on : db\n")
	assert.Contains(t, out, "   Command    : serve --port 80\n")
	assert.Contains(t, out, "   Healthcheck: None\n")
	assert.Contains(t, out, "                ℹ no healthcheck\n")

	assert.Contains(t, out, "Execution\n")
	assert.Contains(t, out, "    1. volume data created\n")
	assert.Contains(t, out, "    2. container db run\n")
}

func TestRenderExistsTrail(t *testing.T) {
	stack := types.NewStack("web")
	require.NoError(t, stack.Add(&types.Volume{Name: "static"}))
	rec := events.NewRecorder()
	rec.RecordExists(events.KindVolume, "static", false)
	rec.Record(events.KindVolume, events.ActionCreated, "static", "")

	out := render(t, Input{Stack: stack, Command: "up", Mode: "dry-run", Events: rec.Events()})

	assert.Contains(t, out, "  - static : missing → created\n")
	assert.NotContains(t, out, "Networks")
}

func TestRenderColor(t *testing.T) {
	stack := types.NewStack("web")
	require.NoError(t, stack.Add(&types.Service{Name: "nginx", Image: "nginx:1.27"}))

	plain := render(t, Input{Stack: stack, Command: "check", Mode: "dry-run"})
	colored := render(t, Input{Stack: stack, Command: "check", Mode: "dry-run", Color: true})

	assert.NotContains(t, plain, "\x1b[")
	assert.Contains(t, colored, "\x1b[")
	assert.NotContains(t, plain, "Execution")
}
