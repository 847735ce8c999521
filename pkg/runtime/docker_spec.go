package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"
)

// NormalizeImage expands a short reference such as "postgres:16.2" to its
// canonical form and adds the latest tag when none is given
func NormalizeImage(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	return reference.TagNameOnly(named).String(), nil
}

func buildContainerSpec(stackName string, svc *types.Service) (*container.Config, *container.HostConfig, *network.NetworkingConfig, error) {
	exposed, bindings, err := portSpecs(svc.Ports)
	if err != nil {
		return nil, nil, nil, err
	}
	mounts, err := mountSpecs(svc.Mounts)
	if err != nil {
		return nil, nil, nil, err
	}
	health, err := healthSpec(svc.HealthCheck)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg := &container.Config{
		Image:        svc.Image,
		Env:          revealEnv(svc.Environment),
		Cmd:          svc.Command,
		ExposedPorts: exposed,
		Labels:       containerLabels(stackName, svc),
		Healthcheck:  health,
	}

	hostCfg := &container.HostConfig{
		PortBindings:  bindings,
		Mounts:        mounts,
		RestartPolicy: restartSpec(svc.Restart),
	}

	var netCfg *network.NetworkingConfig
	if svc.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(svc.Network)
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				svc.Network: {Aliases: []string{svc.Name}},
			},
		}
	}

	return cfg, hostCfg, netCfg, nil
}

// portSpecs maps each port to "<container>/<proto>". A missing host port
// publishes on the same number as the container port.
func portSpecs(ports []types.PortMapping) (nat.PortSet, nat.PortMap, error) {
	exposed := make(nat.PortSet)
	bindings := make(nat.PortMap)

	for _, p := range ports {
		proto := string(p.Protocol)
		if proto == "" {
			proto = string(types.ProtocolTCP)
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("port %s: %w", p, err)
		}

		hostPort := p.HostPort
		if hostPort == 0 {
			hostPort = p.ContainerPort
		}

		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{
			HostIP:   p.HostIP,
			HostPort: strconv.Itoa(hostPort),
		})
	}
	return exposed, bindings, nil
}

func mountSpecs(mounts []types.Mount) ([]mount.Mount, error) {
	out := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		spec := mount.Mount{
			Target:      m.Target,
			ReadOnly:    m.IsReadOnly(),
			Consistency: mount.Consistency(m.Consistency),
		}

		switch m.Type {
		case types.MountTypeBind:
			src, err := filepath.Abs(m.Source)
			if err != nil {
				return nil, fmt.Errorf("mount %s: %w", m.ID, err)
			}
			spec.Type = mount.TypeBind
			spec.Source = src
			if m.Propagation != "" {
				spec.BindOptions = &mount.BindOptions{Propagation: mount.Propagation(m.Propagation)}
			}

		case types.MountTypeVolume:
			spec.Type = mount.TypeVolume
			spec.Source = m.Source
			if m.NoCopy || len(m.Labels) > 0 {
				spec.VolumeOptions = &mount.VolumeOptions{NoCopy: m.NoCopy, Labels: m.Labels}
			}

		case types.MountTypeTmpfs:
			spec.Type = mount.TypeTmpfs
			opts := &mount.TmpfsOptions{Mode: os.FileMode(m.TmpfsMode)}
			if m.TmpfsSize != "" {
				size, err := units.RAMInBytes(m.TmpfsSize)
				if err != nil {
					return nil, fmt.Errorf("mount %s: tmpfs size: %w", m.ID, err)
				}
				opts.SizeBytes = size
			}
			spec.TmpfsOptions = opts

		default:
			return nil, fmt.Errorf("mount %s: unsupported type %q", m.ID, m.Type)
		}

		out = append(out, spec)
	}
	return out, nil
}

// healthSpec translates a health check. nil leaves the image untouched.
func healthSpec(hc *types.HealthCheck) (*container.HealthConfig, error) {
	if hc == nil {
		return nil, nil
	}

	opts, err := hc.ResolveOptions()
	if err != nil {
		return nil, fmt.Errorf("healthcheck: %w", err)
	}

	cfg := &container.HealthConfig{
		Interval:      opts.Interval,
		Timeout:       opts.Timeout,
		Retries:       opts.Retries,
		StartPeriod:   opts.StartPeriod,
		StartInterval: opts.StartInterval,
	}

	switch hc.Kind {
	case types.HealthCheckInherit:
		cfg.Test = []string{}
	case types.HealthCheckNone:
		return &container.HealthConfig{Test: []string{"NONE"}}, nil
	case types.HealthCheckCommand:
		cfg.Test = append([]string{"CMD"}, hc.Command...)
	case types.HealthCheckShell:
		cfg.Test = []string{"CMD-SHELL", hc.Shell}
	default:
		return nil, fmt.Errorf("healthcheck: unknown kind %v", hc.Kind)
	}
	return cfg, nil
}

func restartSpec(p *types.RestartPolicy) container.RestartPolicy {
	if p == nil {
		return container.RestartPolicy{}
	}
	return container.RestartPolicy{
		Name:              container.RestartPolicyMode(p.Name),
		MaximumRetryCount: p.MaximumRetryCount,
	}
}
