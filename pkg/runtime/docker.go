package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

// Docker implements Operator against the Docker Engine API
type Docker struct {
	client *client.Client
	logger zerolog.Logger
}

// NewDocker connects using the standard DOCKER_* environment
func NewDocker() (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return NewDockerWithClient(cli), nil
}

// NewDockerWithClient wraps an existing client
func NewDockerWithClient(cli *client.Client) *Docker {
	return &Docker{
		client: cli,
		logger: log.WithComponent("docker"),
	}
}

// Close closes the client connection
func (d *Docker) Close() error {
	return d.client.Close()
}

func (d *Docker) ImageExists(ctx context.Context, ref string) (bool, error) {
	name, err := NormalizeImage(ref)
	if err != nil {
		return false, opError("inspect image", ref, err)
	}

	if _, err := d.client.ImageInspect(ctx, name); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, opError("inspect image", ref, err)
	}
	return true, nil
}

func (d *Docker) ImagePull(ctx context.Context, ref string) error {
	name, err := NormalizeImage(ref)
	if err != nil {
		return opError("pull image", ref, err)
	}

	d.logger.Info().Str("image", name).Msg("Pulling image")
	reader, err := d.client.ImagePull(ctx, name, image.PullOptions{})
	if err != nil {
		return opError("pull image", ref, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return opError("pull image", ref, err)
	}
	return nil
}

func (d *Docker) ContainerExists(ctx context.Context, name string) (bool, error) {
	if _, err := d.client.ContainerInspect(ctx, name); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, opError("inspect container", name, err)
	}
	return true, nil
}

// ContainerRun creates and starts the service container
func (d *Docker) ContainerRun(ctx context.Context, stackName string, svc *types.Service) error {
	name := svc.ContainerNameSafe()

	cfg, hostCfg, netCfg, err := buildContainerSpec(stackName, svc)
	if err != nil {
		return opError("run container", name, err)
	}

	resp, err := d.client.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return opError("create container", name, err)
	}
	for _, w := range resp.Warnings {
		d.logger.Warn().Str("container", name).Msg(w)
	}

	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return opError("start container", name, err)
	}

	d.logger.Debug().Str("container", name).Str("id", resp.ID).Msg("Container started")
	return nil
}

// ContainerRemove force-removes a container. A missing container is not an error.
func (d *Docker) ContainerRemove(ctx context.Context, name string) error {
	err := d.client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			d.logger.Debug().Str("container", name).Msg("Container already gone")
			return nil
		}
		return opError("remove container", name, err)
	}
	return nil
}

func (d *Docker) ContainerHealthStatus(ctx context.Context, name string) (HealthStatus, error) {
	resp, err := d.client.ContainerInspect(ctx, name)
	if err != nil {
		return HealthStatus{}, opError("inspect container", name, err)
	}

	status := HealthStatus{Status: StatusUnknown, Health: HealthUnknown}
	if resp.ContainerJSONBase != nil && resp.State != nil {
		if resp.State.Status != "" {
			status.Status = string(resp.State.Status)
		}
		if resp.State.Health != nil && resp.State.Health.Status != "" {
			status.Health = string(resp.State.Health.Status)
		}
	}
	return status, nil
}

func (d *Docker) VolumeExists(ctx context.Context, name string) (bool, error) {
	if _, err := d.client.VolumeInspect(ctx, name); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, opError("inspect volume", name, err)
	}
	return true, nil
}

func (d *Docker) VolumeCreate(ctx context.Context, stackName string, vol *types.Volume) error {
	_, err := d.client.VolumeCreate(ctx, volume.CreateOptions{
		Name:       vol.Name,
		Driver:     vol.Driver,
		DriverOpts: vol.DriverOpts,
		Labels:     MergeLabels(stackName, vol.Labels),
	})
	if err != nil {
		return opError("create volume", vol.Name, err)
	}
	return nil
}

func (d *Docker) NetworkExists(ctx context.Context, name string) (bool, error) {
	if _, err := d.client.NetworkInspect(ctx, name, network.InspectOptions{}); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, opError("inspect network", name, err)
	}
	return true, nil
}

func (d *Docker) NetworkCreate(ctx context.Context, stackName string, net *types.Network) error {
	_, err := d.client.NetworkCreate(ctx, net.Name, network.CreateOptions{
		Driver:  net.Driver,
		Options: net.Options,
		Labels:  MergeLabels(stackName, net.Labels),
	})
	if err != nil {
		return opError("create network", net.Name, err)
	}
	return nil
}

// StackContainers lists the names of all containers labeled with the stack
func (d *Docker) StackContainers(ctx context.Context, stackName string) ([]string, error) {
	list, err := d.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelStack+"="+stackName)),
	})
	if err != nil {
		return nil, opError("list containers", stackName, err)
	}

	names := make([]string, 0, len(list))
	for _, c := range list {
		if len(c.Names) > 0 {
			names = append(names, strings.TrimPrefix(c.Names[0], "/"))
		}
	}
	return names, nil
}
