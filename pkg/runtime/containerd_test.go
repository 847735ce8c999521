package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/containerd/containerd"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeLabels(t *testing.T) {
	tests := []struct {
		name        string
		hc          *types.HealthCheck
		wantArgv    []string
		wantTimeout time.Duration
		wantProbe   bool
	}{
		{name: "nil"},
		{name: "inherit", hc: types.InheritHealthCheck(types.HealthCheckOptions{})},
		{name: "none", hc: types.NoHealthCheck()},
		{
			name:        "cmd",
			hc:          types.CommandHealthCheck([]string{"pg_isready", "-U", "app"}, types.HealthCheckOptions{Timeout: "3s"}),
			wantArgv:    []string{"pg_isready", "-U", "app"},
			wantTimeout: 3 * time.Second,
			wantProbe:   true,
		},
		{
			name:        "shell with default timeout",
			hc:          types.ShellHealthCheck("wget -q -O- localhost", types.HealthCheckOptions{}),
			wantArgv:    []string{"/bin/sh", "-c", "wget -q -O- localhost"},
			wantTimeout: 30 * time.Second,
			wantProbe:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := map[string]string{}
			require.NoError(t, addProbeLabels(labels, tt.hc))

			argv, timeout, ok, err := decodeProbe(labels)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProbe, ok)
			if tt.wantProbe {
				assert.Equal(t, tt.wantArgv, argv)
				assert.Equal(t, tt.wantTimeout, timeout)
			}
		})
	}
}

func TestDecodeProbeInvalid(t *testing.T) {
	_, _, _, err := decodeProbe(map[string]string{labelProbe: "not json"})
	assert.Error(t, err)

	_, _, _, err = decodeProbe(map[string]string{labelProbe: `["true"]`, labelProbeTimeout: "later"})
	assert.Error(t, err)
}

func TestTaskStatus(t *testing.T) {
	assert.Equal(t, StatusRunning, taskStatus(containerd.Running))
	assert.Equal(t, StatusCreated, taskStatus(containerd.Created))
	assert.Equal(t, StatusExited, taskStatus(containerd.Stopped))
	assert.Equal(t, StatusPaused, taskStatus(containerd.Paused))
	assert.Equal(t, StatusUnknown, taskStatus(containerd.Unknown))
}

func TestTmpfsOptions(t *testing.T) {
	opts, err := tmpfsOptions(types.Mount{ID: "web/mount-0", TmpfsSize: "1g", TmpfsMode: 0o1777}, "rw")
	require.NoError(t, err)
	assert.Equal(t, []string{"nosuid", "nodev", "rw", "size=1073741824", "mode=1777"}, opts)

	opts, err = tmpfsOptions(types.Mount{ID: "web/mount-1"}, "ro")
	require.NoError(t, err)
	assert.Equal(t, []string{"nosuid", "nodev", "ro"}, opts)
}

// stubContainer implements only what discard calls
type stubContainer struct {
	containerd.Container
	calls      *[]string
	deleteOpts int
	err        error
}

func (c *stubContainer) ID() string { return "web" }

func (c *stubContainer) Delete(_ context.Context, opts ...containerd.DeleteOpts) error {
	*c.calls = append(*c.calls, "container-delete")
	c.deleteOpts = len(opts)
	return c.err
}

type stubTask struct {
	containerd.Task
	calls *[]string
}

func (t *stubTask) Delete(_ context.Context, _ ...containerd.ProcessDeleteOpts) (*containerd.ExitStatus, error) {
	*t.calls = append(*t.calls, "task-delete")
	return nil, errors.New("task already stopped")
}

func TestDiscardFailedStart(t *testing.T) {
	c := &Containerd{logger: zerolog.Nop()}

	tests := []struct {
		name      string
		withTask  bool
		deleteErr error
		want      []string
	}{
		{name: "task creation failed", want: []string{"container-delete"}},
		{name: "task start failed", withTask: true, want: []string{"task-delete", "container-delete"}},
		{name: "container already gone", deleteErr: cerrdefs.ErrNotFound, want: []string{"container-delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			container := &stubContainer{calls: &calls, err: tt.deleteErr}
			var task containerd.Task
			if tt.withTask {
				task = &stubTask{calls: &calls}
			}

			c.discard(context.Background(), container, task)

			assert.Equal(t, tt.want, calls)
			assert.Equal(t, 1, container.deleteOpts, "snapshot cleanup is requested")
		})
	}
}
