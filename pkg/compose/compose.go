package compose

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
	"github.com/cuemby/burrow/pkg/duration"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/joho/godotenv"
)

// defaultNetwork is the network compose attaches services to implicitly
const defaultNetwork = "default"

// Options control how compose files are imported
type Options struct {
	Files []string

	// ProjectName overrides the name compose derives from the files
	ProjectName string

	// EnvFile is an optional dotenv file merged under the process environment
	EnvFile string

	// Environ is the process environment, os.Environ() when nil
	Environ []string
}

// Load imports one or more compose files as a stack. Services are sorted by
// name; compose itself does not keep declaration order.
func Load(opts Options) (*types.Stack, error) {
	project, err := loadProject(opts)
	if err != nil {
		return nil, err
	}
	return FromProject(project)
}

func loadProject(opts Options) (*composetypes.Project, error) {
	if len(opts.Files) == 0 {
		return nil, errors.New("no compose files specified")
	}

	env, err := environment(opts)
	if err != nil {
		return nil, err
	}

	configFiles := make([]composetypes.ConfigFile, 0, len(opts.Files))
	for _, path := range opts.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read compose file %s: %w", path, err)
		}
		configFiles = append(configFiles, composetypes.ConfigFile{Filename: path, Content: data})
	}

	workingDir, err := filepath.Abs(filepath.Dir(opts.Files[0]))
	if err != nil {
		return nil, fmt.Errorf("abs %s: %w", opts.Files[0], err)
	}

	name := opts.ProjectName
	if name == "" {
		name = loader.NormalizeProjectName(filepath.Base(workingDir))
	}

	details := composetypes.ConfigDetails{
		WorkingDir:  workingDir,
		ConfigFiles: configFiles,
		Environment: env,
	}
	project, err := loader.Load(details, func(o *loader.Options) {
		o.SetProjectName(name, opts.ProjectName != "")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load compose project: %w", err)
	}
	return project, nil
}

func environment(opts Options) (composetypes.Mapping, error) {
	env := make(composetypes.Mapping)
	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		for k, v := range dotenv {
			env[k] = v
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	return env, nil
}

// FromProject converts a loaded compose project into a stack
func FromProject(project *composetypes.Project) (*types.Stack, error) {
	logger := log.WithComponent("compose").With().Str("project", project.Name).Logger()
	stack := types.NewStack(project.Name)

	for _, name := range sortedKeys(project.Volumes) {
		v := project.Volumes[name]
		if bool(v.External) {
			logger.Debug().Str("volume", name).Msg("Skipping external volume")
			continue
		}
		if err := stack.Add(&types.Volume{
			Name:       name,
			Driver:     v.Driver,
			DriverOpts: v.DriverOpts,
			Labels:     v.Labels,
		}); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(project.Networks) {
		n := project.Networks[name]
		if name == defaultNetwork || bool(n.External) {
			continue
		}
		if err := stack.Add(&types.Network{
			Name:    name,
			Driver:  n.Driver,
			Options: n.DriverOpts,
			Labels:  n.Labels,
		}); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(project.Services) {
		svc, err := convertService(project.Services[name])
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", name, err)
		}
		if err := stack.Add(svc); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

func convertService(sc composetypes.ServiceConfig) (*types.Service, error) {
	logger := log.WithService(sc.Name)

	svc := &types.Service{
		Name:          sc.Name,
		Image:         sc.Image,
		ContainerName: sc.ContainerName,
		Command:       []string(sc.Command),
		Labels:        map[string]string(sc.Labels),
	}

	networks := make([]string, 0, len(sc.Networks))
	for name := range sc.Networks {
		if name != defaultNetwork {
			networks = append(networks, name)
		}
	}
	sort.Strings(networks)
	if len(networks) > 0 {
		svc.Network = networks[0]
		if len(networks) > 1 {
			logger.Warn().Strs("networks", networks).Msg("Only the first network is attached")
		}
	}

	for _, p := range sc.Ports {
		pm, err := convertPort(p)
		if err != nil {
			return nil, err
		}
		svc.Ports = append(svc.Ports, pm)
	}

	for _, key := range sortedKeys(sc.Environment) {
		value := sc.Environment[key]
		if value == nil {
			continue
		}
		svc.Environment = append(svc.Environment, types.Env(key, *value))
	}

	for _, v := range sc.Volumes {
		svc.Mounts = append(svc.Mounts, convertMount(v))
	}

	restart, err := convertRestart(sc)
	if err != nil {
		return nil, err
	}
	svc.Restart = restart

	svc.HealthCheck = convertHealthCheck(sc.HealthCheck)

	svc.DependsOn = sortedKeys(sc.DependsOn)
	return svc, nil
}

func convertPort(p composetypes.ServicePortConfig) (types.PortMapping, error) {
	pm := types.PortMapping{
		ContainerPort: int(p.Target),
		HostIP:        p.HostIP,
		Protocol:      types.Protocol(p.Protocol),
	}
	if p.Published != "" {
		hostPort, err := strconv.Atoi(p.Published)
		if err != nil {
			return pm, fmt.Errorf("port %d: published port ranges are not supported: %q", p.Target, p.Published)
		}
		pm.HostPort = hostPort
	}
	return pm, nil
}

func convertMount(v composetypes.ServiceVolumeConfig) types.Mount {
	m := types.Mount{
		Type:        types.MountType(v.Type),
		Source:      v.Source,
		Target:      v.Target,
		Consistency: v.Consistency,
	}
	if v.ReadOnly {
		readOnly := true
		m.ReadOnly = &readOnly
	}
	if v.Bind != nil {
		m.Propagation = v.Bind.Propagation
	}
	if v.Volume != nil {
		m.NoCopy = v.Volume.NoCopy
	}
	if v.Tmpfs != nil {
		if v.Tmpfs.Size > 0 {
			m.TmpfsSize = strconv.FormatInt(int64(v.Tmpfs.Size), 10)
		}
		m.TmpfsMode = v.Tmpfs.Mode
	}
	return m
}

func convertRestart(sc composetypes.ServiceConfig) (*types.RestartPolicy, error) {
	if sc.Restart != "" {
		return types.ParseRestartPolicy(sc.Restart)
	}
	if sc.Deploy == nil || sc.Deploy.RestartPolicy == nil {
		return nil, nil
	}

	rp := sc.Deploy.RestartPolicy
	policy := &types.RestartPolicy{}
	switch rp.Condition {
	case "none":
		policy.Name = types.RestartNo
	case "on-failure":
		policy.Name = types.RestartOnFailure
	case "any", "":
		policy.Name = types.RestartAlways
	default:
		return nil, fmt.Errorf("unknown restart condition %q", rp.Condition)
	}
	if rp.MaxAttempts != nil {
		policy.MaximumRetryCount = int(*rp.MaxAttempts)
	}
	return policy, nil
}

func convertHealthCheck(hc *composetypes.HealthCheckConfig) *types.HealthCheck {
	if hc == nil {
		return nil
	}
	if hc.Disable {
		return types.NoHealthCheck()
	}

	opts := types.HealthCheckOptions{
		Interval:      formatDuration(hc.Interval),
		Timeout:       formatDuration(hc.Timeout),
		StartPeriod:   formatDuration(hc.StartPeriod),
		StartInterval: formatDuration(hc.StartInterval),
	}
	if hc.Retries != nil {
		opts.Retries = int(*hc.Retries)
	}

	test := []string(hc.Test)
	if len(test) == 0 {
		return types.InheritHealthCheck(opts)
	}
	switch test[0] {
	case "NONE":
		return types.NoHealthCheck()
	case "CMD":
		return types.CommandHealthCheck(test[1:], opts)
	case "CMD-SHELL":
		return types.ShellHealthCheck(strings.Join(test[1:], " "), opts)
	default:
		return types.ShellHealthCheck(strings.Join(test, " "), opts)
	}
}

func formatDuration(d *composetypes.Duration) string {
	if d == nil || *d == 0 {
		return ""
	}
	return duration.Format(time.Duration(*d))
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
