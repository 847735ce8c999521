package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/cuemby/burrow/pkg/volume"
	units "github.com/docker/go-units"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/rs/zerolog"
)

const (
	// DefaultNamespace is the containerd namespace for Burrow
	DefaultNamespace = "burrow"

	// DefaultSocketPath is the default containerd socket
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// Probe labels carry the health check into the container record
	labelProbe        = "io.burrow.healthcheck"
	labelProbeTimeout = "io.burrow.healthcheck.timeout"

	defaultProbeTimeout = 30 * time.Second
	stopTimeout         = 10 * time.Second

	kindNetwork = "network"
)

// ResourceStore keeps records for resources containerd has no object for
type ResourceStore interface {
	PutResource(rec *storage.ResourceRecord) error
	GetResource(kind, name string) (*storage.ResourceRecord, error)
}

// Containerd implements Operator on top of containerd. Containers share the
// host network namespace; named volumes are local directories and networks
// are bookkeeping records only.
type Containerd struct {
	client    *containerd.Client
	namespace string
	volumes   *volume.Manager
	store     ResourceStore
	logger    zerolog.Logger
}

// NewContainerd connects to the containerd socket
func NewContainerd(socketPath, namespace string, volumes *volume.Manager, store ResourceStore) (*Containerd, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to containerd: %w", err)
	}

	return &Containerd{
		client:    client,
		namespace: namespace,
		volumes:   volumes,
		store:     store,
		logger:    log.WithComponent("containerd"),
	}, nil
}

// Close closes the containerd client connection
func (c *Containerd) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Containerd) ns(ctx context.Context) context.Context {
	return namespaces.WithNamespace(ctx, c.namespace)
}

func (c *Containerd) ImageExists(ctx context.Context, ref string) (bool, error) {
	name, err := NormalizeImage(ref)
	if err != nil {
		return false, opError("inspect image", ref, err)
	}

	if _, err := c.client.GetImage(c.ns(ctx), name); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, opError("inspect image", ref, err)
	}
	return true, nil
}

func (c *Containerd) ImagePull(ctx context.Context, ref string) error {
	name, err := NormalizeImage(ref)
	if err != nil {
		return opError("pull image", ref, err)
	}

	c.logger.Info().Str("image", name).Msg("Pulling image")
	if _, err := c.client.Pull(c.ns(ctx), name, containerd.WithPullUnpack); err != nil {
		return opError("pull image", ref, err)
	}
	return nil
}

func (c *Containerd) ContainerExists(ctx context.Context, name string) (bool, error) {
	if _, err := c.client.LoadContainer(c.ns(ctx), name); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, opError("load container", name, err)
	}
	return true, nil
}

// ContainerRun creates the container with a fresh snapshot and starts its task
func (c *Containerd) ContainerRun(ctx context.Context, stackName string, svc *types.Service) error {
	ctx = c.ns(ctx)
	name := svc.ContainerNameSafe()

	ref, err := NormalizeImage(svc.Image)
	if err != nil {
		return opError("run container", name, err)
	}
	image, err := c.client.GetImage(ctx, ref)
	if err != nil {
		return opError("get image", svc.Image, err)
	}

	mounts, err := c.mountSpecs(svc.Mounts)
	if err != nil {
		return opError("run container", name, err)
	}

	labels := containerLabels(stackName, svc)
	if err := addProbeLabels(labels, svc.HealthCheck); err != nil {
		return opError("run container", name, err)
	}

	if len(svc.Ports) > 0 {
		c.logger.Debug().Str("container", name).Msg("Host networking, ports are bound directly by the process")
	}
	if svc.Restart != nil && svc.Restart.Name != types.RestartNo {
		c.logger.Warn().Str("container", name).Str("restart", string(svc.Restart.Name)).Msg("Restart policies are not supported by the containerd engine")
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(revealEnv(svc.Environment)),
		oci.WithHostNamespace(specs.NetworkNamespace),
		oci.WithHostHostsFile,
		oci.WithHostResolvconf,
		oci.WithMounts(mounts),
	}
	if len(svc.Command) > 0 {
		opts = append(opts, oci.WithProcessArgs(svc.Command...))
	}

	container, err := c.client.NewContainer(
		ctx,
		name,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(name+"-snapshot", image),
		containerd.WithNewSpec(opts...),
		containerd.WithContainerLabels(labels),
	)
	if err != nil {
		return opError("create container", name, err)
	}

	task, err := container.NewTask(ctx, cio.NullIO)
	if err != nil {
		c.discard(ctx, container, nil)
		return opError("create task", name, err)
	}
	if err := task.Start(ctx); err != nil {
		c.discard(ctx, container, task)
		return opError("start task", name, err)
	}
	return nil
}

// discard deletes a container that failed to start, with its task and
// snapshot, so the name is free for the next attempt
func (c *Containerd) discard(ctx context.Context, container containerd.Container, task containerd.Task) {
	if task != nil {
		if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !cerrdefs.IsNotFound(err) {
			c.logger.Warn().Err(err).Str("container", container.ID()).Msg("Failed to delete task of failed container")
		}
	}
	if err := container.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !cerrdefs.IsNotFound(err) {
		c.logger.Warn().Err(err).Str("container", container.ID()).Msg("Failed to delete failed container")
	}
}

// ContainerRemove stops the task and deletes the container with its snapshot.
// A missing container is not an error.
func (c *Containerd) ContainerRemove(ctx context.Context, name string) error {
	ctx = c.ns(ctx)

	container, err := c.client.LoadContainer(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			c.logger.Debug().Str("container", name).Msg("Container already gone")
			return nil
		}
		return opError("load container", name, err)
	}

	if err := c.stopTask(ctx, container); err != nil {
		c.logger.Warn().Err(err).Str("container", name).Msg("Failed to stop task before delete")
	}

	if err := container.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return opError("delete container", name, err)
	}
	return nil
}

func (c *Containerd) stopTask(ctx context.Context, container containerd.Container) error {
	task, err := container.Task(ctx, nil)
	if err != nil {
		// No task means nothing is running
		return nil
	}

	statusC, err := task.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for task: %w", err)
	}

	if err := task.Kill(ctx, syscall.SIGTERM); err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("failed to kill task: %w", err)
	}

	select {
	case <-statusC:
	case <-time.After(stopTimeout):
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil {
			return fmt.Errorf("failed to force kill task: %w", err)
		}
		<-statusC
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err := task.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ContainerHealthStatus maps the task status and, for running tasks, executes
// the declared probe. A running container without a probe counts as healthy.
func (c *Containerd) ContainerHealthStatus(ctx context.Context, name string) (HealthStatus, error) {
	ctx = c.ns(ctx)

	container, err := c.client.LoadContainer(ctx, name)
	if err != nil {
		return HealthStatus{}, opError("load container", name, err)
	}

	task, err := container.Task(ctx, nil)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return HealthStatus{Status: StatusCreated, Health: HealthUnknown}, nil
		}
		return HealthStatus{}, opError("load task", name, err)
	}

	st, err := task.Status(ctx)
	if err != nil {
		return HealthStatus{}, opError("task status", name, err)
	}

	status := taskStatus(st.Status)
	if status != StatusRunning {
		return HealthStatus{Status: status, Health: HealthUnknown}, nil
	}

	labels, err := container.Labels(ctx)
	if err != nil {
		return HealthStatus{}, opError("container labels", name, err)
	}
	argv, timeout, ok, err := decodeProbe(labels)
	if err != nil {
		return HealthStatus{}, opError("container labels", name, err)
	}
	if !ok {
		return HealthStatus{Status: StatusRunning, Health: HealthHealthy}, nil
	}

	if err := c.probe(ctx, container, task, argv, timeout); err != nil {
		c.logger.Debug().Err(err).Str("container", name).Msg("Probe failed")
		return HealthStatus{Status: StatusRunning, Health: HealthUnhealthy}, nil
	}
	return HealthStatus{Status: StatusRunning, Health: HealthHealthy}, nil
}

func (c *Containerd) probe(ctx context.Context, container containerd.Container, task containerd.Task, argv []string, timeout time.Duration) error {
	spec, err := container.Spec(ctx)
	if err != nil {
		return err
	}
	pspec := *spec.Process
	pspec.Args = argv
	pspec.Terminal = false

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	process, err := task.Exec(ctx, "probe-"+uuid.NewString()[:8], &pspec, cio.NullIO)
	if err != nil {
		return err
	}
	defer process.Delete(context.WithoutCancel(ctx), containerd.WithProcessKill)

	statusC, err := process.Wait(ctx)
	if err != nil {
		return err
	}
	if err := process.Start(ctx); err != nil {
		return err
	}

	select {
	case st := <-statusC:
		if code := st.ExitCode(); code != 0 {
			return fmt.Errorf("probe exited with code %d", code)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("probe timed out after %s", timeout)
	}
}

func taskStatus(s containerd.ProcessStatus) string {
	switch s {
	case containerd.Running:
		return StatusRunning
	case containerd.Created:
		return StatusCreated
	case containerd.Stopped:
		return StatusExited
	case containerd.Paused, containerd.Pausing:
		return StatusPaused
	default:
		return StatusUnknown
	}
}

func (c *Containerd) VolumeExists(_ context.Context, name string) (bool, error) {
	ok, err := c.volumes.VolumeExists(name)
	if err != nil {
		return false, opError("inspect volume", name, err)
	}
	return ok, nil
}

func (c *Containerd) VolumeCreate(_ context.Context, _ string, vol *types.Volume) error {
	if err := c.volumes.CreateVolume(vol); err != nil {
		return opError("create volume", vol.Name, err)
	}
	return nil
}

func (c *Containerd) NetworkExists(_ context.Context, name string) (bool, error) {
	if _, err := c.store.GetResource(kindNetwork, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, opError("inspect network", name, err)
	}
	return true, nil
}

// NetworkCreate records the network. Containers use host networking, so the
// record only keeps the stack's declaration stable across runs.
func (c *Containerd) NetworkCreate(_ context.Context, stackName string, net *types.Network) error {
	err := c.store.PutResource(&storage.ResourceRecord{
		Kind:      kindNetwork,
		Name:      net.Name,
		Stack:     stackName,
		Driver:    net.Driver,
		Labels:    MergeLabels(stackName, net.Labels),
		Options:   net.Options,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return opError("create network", net.Name, err)
	}
	return nil
}

// StackContainers lists the containers labeled with the stack
func (c *Containerd) StackContainers(ctx context.Context, stackName string) ([]string, error) {
	filter := fmt.Sprintf(`labels.%q==%s`, LabelStack, stackName)
	list, err := c.client.Containers(c.ns(ctx), filter)
	if err != nil {
		return nil, opError("list containers", stackName, err)
	}

	names := make([]string, 0, len(list))
	for _, container := range list {
		names = append(names, container.ID())
	}
	return names, nil
}

func (c *Containerd) mountSpecs(mounts []types.Mount) ([]specs.Mount, error) {
	out := make([]specs.Mount, 0, len(mounts))
	for _, m := range mounts {
		mode := "rw"
		if m.IsReadOnly() {
			mode = "ro"
		}

		switch m.Type {
		case types.MountTypeBind:
			src, err := filepath.Abs(m.Source)
			if err != nil {
				return nil, fmt.Errorf("mount %s: %w", m.ID, err)
			}
			opts := []string{"rbind", mode}
			if m.Propagation != "" {
				opts = append(opts, m.Propagation)
			}
			out = append(out, specs.Mount{Type: "bind", Source: src, Destination: m.Target, Options: opts})

		case types.MountTypeVolume:
			src, err := c.volumes.MountVolume(m.Source)
			if err != nil {
				return nil, fmt.Errorf("mount %s: %w", m.ID, err)
			}
			out = append(out, specs.Mount{Type: "bind", Source: src, Destination: m.Target, Options: []string{"rbind", mode}})

		case types.MountTypeTmpfs:
			opts, err := tmpfsOptions(m, mode)
			if err != nil {
				return nil, err
			}
			out = append(out, specs.Mount{Type: "tmpfs", Source: "tmpfs", Destination: m.Target, Options: opts})

		default:
			return nil, fmt.Errorf("mount %s: unsupported type %q", m.ID, m.Type)
		}
	}
	return out, nil
}

func tmpfsOptions(m types.Mount, mode string) ([]string, error) {
	opts := []string{"nosuid", "nodev", mode}
	if m.TmpfsSize != "" {
		size, err := units.RAMInBytes(m.TmpfsSize)
		if err != nil {
			return nil, fmt.Errorf("mount %s: tmpfs size: %w", m.ID, err)
		}
		opts = append(opts, fmt.Sprintf("size=%d", size))
	}
	if m.TmpfsMode != 0 {
		opts = append(opts, fmt.Sprintf("mode=%o", m.TmpfsMode))
	}
	return opts, nil
}

// addProbeLabels stores the probe argv and timeout as container labels.
// Inherit and None carry no probe: images have no portable health check
// outside Docker.
func addProbeLabels(labels map[string]string, hc *types.HealthCheck) error {
	if hc == nil {
		return nil
	}

	var argv []string
	switch hc.Kind {
	case types.HealthCheckInherit, types.HealthCheckNone:
		return nil
	case types.HealthCheckCommand:
		argv = hc.Command
	case types.HealthCheckShell:
		argv = []string{"/bin/sh", "-c", hc.Shell}
	default:
		return fmt.Errorf("healthcheck: unknown kind %v", hc.Kind)
	}

	opts, err := hc.ResolveOptions()
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	data, err := json.Marshal(argv)
	if err != nil {
		return err
	}
	labels[labelProbe] = string(data)
	labels[labelProbeTimeout] = timeout.String()
	return nil
}

func decodeProbe(labels map[string]string) ([]string, time.Duration, bool, error) {
	raw, ok := labels[labelProbe]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, 0, false, nil
	}

	var argv []string
	if err := json.Unmarshal([]byte(raw), &argv); err != nil {
		return nil, 0, false, fmt.Errorf("invalid probe label: %w", err)
	}

	timeout := defaultProbeTimeout
	if s, ok := labels[labelProbeTimeout]; ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, 0, false, fmt.Errorf("invalid probe timeout label: %w", err)
		}
		timeout = d
	}
	return argv, timeout, len(argv) > 0, nil
}
