package stackfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/template"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/docker/go-connections/nat"
	"github.com/joho/godotenv"
	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned for a stack file without any document
var ErrEmpty = errors.New("stack file is empty")

// Options control how a stack file is read
type Options struct {
	// Name overrides the name declared in the file
	Name string

	// EnvFile is an optional dotenv file used for interpolation and secrets.
	// Process environment variables take precedence over it.
	EnvFile string

	// LookupEnv resolves variables, os.LookupEnv when nil
	LookupEnv func(key string) (string, bool)
}

// Load reads and builds the stack file at path
func Load(path string, opts Options) (*types.Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}
	stack, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stack, nil
}

// Parse builds a stack from stack file content
func Parse(data []byte, opts Options) (*types.Stack, error) {
	lookup, err := opts.lookup()
	if err != nil {
		return nil, err
	}

	expanded, err := template.Substitute(string(data), template.Mapping(lookup))
	if err != nil {
		return nil, fmt.Errorf("interpolation failed: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("invalid stack file: %w", err)
	}

	if opts.Name != "" {
		f.Name = opts.Name
	}
	return build(&f, lookup)
}

func (o Options) lookup() (func(string) (string, bool), error) {
	base := o.LookupEnv
	if base == nil {
		base = os.LookupEnv
	}
	if o.EnvFile == "" {
		return base, nil
	}

	dotenv, err := godotenv.Read(o.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func build(f *file, lookup func(string) (string, bool)) (*types.Stack, error) {
	if f.Name == "" {
		return nil, errors.New("stack name is required")
	}
	stack := types.NewStack(f.Name)

	for _, v := range f.Volumes {
		if err := stack.Add(&types.Volume{
			Name:       v.Name,
			Driver:     v.Driver,
			DriverOpts: v.DriverOpts,
			Labels:     v.Labels,
		}); err != nil {
			return nil, err
		}
	}
	for _, n := range f.Networks {
		if err := stack.Add(&types.Network{
			Name:    n.Name,
			Driver:  n.Driver,
			Options: n.Options,
			Labels:  n.Labels,
		}); err != nil {
			return nil, err
		}
	}
	for _, doc := range f.Services {
		svc, err := buildService(doc, lookup)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", doc.Name, err)
		}
		if err := stack.Add(svc); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

func buildService(doc serviceDoc, lookup func(string) (string, bool)) (*types.Service, error) {
	svc := &types.Service{
		Name:          doc.Name,
		Image:         doc.Image,
		ContainerName: doc.ContainerName,
		Network:       doc.Network,
		DependsOn:     doc.DependsOn,
		Labels:        doc.Labels,
	}

	for _, p := range doc.Ports {
		ports, err := buildPorts(p)
		if err != nil {
			return nil, err
		}
		svc.Ports = append(svc.Ports, ports...)
	}

	for _, e := range doc.Environment {
		env, err := buildEnv(e, lookup)
		if err != nil {
			return nil, err
		}
		svc.Environment = append(svc.Environment, env)
	}

	for _, m := range doc.Mounts {
		mount, err := buildMount(m)
		if err != nil {
			return nil, err
		}
		svc.Mounts = append(svc.Mounts, mount)
	}

	command, err := splitCommand(doc.Command)
	if err != nil {
		return nil, fmt.Errorf("command: %w", err)
	}
	svc.Command = command

	if doc.Restart != "" {
		restart, err := types.ParseRestartPolicy(doc.Restart)
		if err != nil {
			return nil, err
		}
		svc.Restart = restart
	}

	if doc.HealthCheck != nil {
		hc, err := buildHealthCheck(doc.HealthCheck)
		if err != nil {
			return nil, fmt.Errorf("healthcheck: %w", err)
		}
		svc.HealthCheck = hc
	}
	return svc, nil
}

func buildPorts(p portDoc) ([]types.PortMapping, error) {
	if p.Short == "" {
		return []types.PortMapping{{
			ContainerPort: p.ContainerPort,
			HostPort:      p.HostPort,
			HostIP:        p.HostIP,
			Protocol:      types.Protocol(p.Protocol),
		}}, nil
	}

	mappings, err := nat.ParsePortSpec(p.Short)
	if err != nil {
		return nil, fmt.Errorf("port %q: %w", p.Short, err)
	}
	out := make([]types.PortMapping, 0, len(mappings))
	for _, m := range mappings {
		pm := types.PortMapping{
			ContainerPort: m.Port.Int(),
			HostIP:        m.Binding.HostIP,
			Protocol:      types.Protocol(m.Port.Proto()),
		}
		if m.Binding.HostPort != "" {
			hostPort, err := strconv.Atoi(m.Binding.HostPort)
			if err != nil {
				return nil, fmt.Errorf("port %q: invalid host port: %w", p.Short, err)
			}
			pm.HostPort = hostPort
		}
		out = append(out, pm)
	}
	return out, nil
}

func buildEnv(e envEntry, lookup func(string) (string, bool)) (types.EnvVar, error) {
	if e.Secret == nil {
		return types.Env(e.Key, e.Value), nil
	}

	s := e.Secret
	if s.Label == "" {
		return types.EnvVar{}, fmt.Errorf("environment %s: secret label is required", e.Key)
	}
	switch {
	case s.FromEnv != "" && s.Value != nil:
		return types.EnvVar{}, fmt.Errorf("environment %s: secret takes either from_env or value", e.Key)
	case s.FromEnv != "":
		value, ok := lookup(s.FromEnv)
		if !ok {
			return types.EnvVar{}, fmt.Errorf("environment %s: variable %s for secret %s is not set", e.Key, s.FromEnv, s.Label)
		}
		return types.SecretEnv(e.Key, types.NewSecret(s.Label, value)), nil
	case s.Value != nil:
		return types.SecretEnv(e.Key, types.NewSecret(s.Label, *s.Value)), nil
	default:
		return types.EnvVar{}, fmt.Errorf("environment %s: secret %s has no from_env or value", e.Key, s.Label)
	}
}

func buildMount(m mountDoc) (types.Mount, error) {
	if m.Short != "" {
		return parseShortMount(m.Short)
	}

	mount := types.Mount{
		Type:        types.MountType(m.Type),
		Source:      m.Source,
		Target:      m.Target,
		ReadOnly:    m.ReadOnly,
		Consistency: m.Consistency,
		Propagation: m.Propagation,
		NoCopy:      m.NoCopy,
		Labels:      m.Labels,
		TmpfsSize:   m.Size,
	}
	if m.Mode != "" {
		mode, err := strconv.ParseUint(m.Mode, 8, 32)
		if err != nil {
			return types.Mount{}, fmt.Errorf("mount %s: invalid mode %q", m.Target, m.Mode)
		}
		mount.TmpfsMode = uint32(mode)
	}
	return mount, nil
}

// parseShortMount reads "source:target[:ro|rw]". Sources that look like
// paths are bind mounts, anything else names a volume.
func parseShortMount(spec string) (types.Mount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.Mount{}, fmt.Errorf("mount %q: expected source:target[:ro|rw]", spec)
	}

	var mount types.Mount
	if strings.HasPrefix(parts[0], "/") || strings.HasPrefix(parts[0], ".") {
		mount = types.BindMount(parts[0], parts[1])
	} else {
		mount = types.VolumeMount(parts[0], parts[1])
	}

	if len(parts) == 3 {
		var readOnly bool
		switch parts[2] {
		case "ro":
			readOnly = true
		case "rw":
		default:
			return types.Mount{}, fmt.Errorf("mount %q: unknown mode %q", spec, parts[2])
		}
		mount.ReadOnly = &readOnly
	}
	return mount, nil
}

func splitCommand(c commandDoc) ([]string, error) {
	if c.empty() {
		return nil, nil
	}
	if len(c.Argv) > 0 {
		return c.Argv, nil
	}
	return shellwords.Parse(c.Line)
}

func buildHealthCheck(doc *healthCheckDoc) (*types.HealthCheck, error) {
	opts := types.HealthCheckOptions{
		Interval:      doc.Interval,
		Timeout:       doc.Timeout,
		Retries:       doc.Retries,
		StartPeriod:   doc.StartPeriod,
		StartInterval: doc.StartInterval,
	}

	set := 0
	for _, b := range []bool{doc.Disable, doc.Shell != "", !doc.Cmd.empty()} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("only one of disable, cmd and shell may be set")
	}

	switch {
	case doc.Disable:
		return types.NoHealthCheck(), nil
	case doc.Shell != "":
		return types.ShellHealthCheck(doc.Shell, opts), nil
	case !doc.Cmd.empty():
		argv, err := splitCommand(doc.Cmd)
		if err != nil {
			return nil, fmt.Errorf("cmd: %w", err)
		}
		return types.CommandHealthCheck(argv, opts), nil
	default:
		return types.InheritHealthCheck(opts), nil
	}
}
