package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Stack is the declarative description of one application: its services,
// named volumes and networks. Services keep their declaration order.
type Stack struct {
	Name     string
	Services []*Service
	Volumes  []*Volume
	Networks []*Network
}

// Service is the logical unit run as a single container
type Service struct {
	Name          string
	Image         string
	ContainerName string // Defaults to Name
	Ports         []PortMapping
	Environment   []EnvVar
	Mounts        []Mount
	Network       string
	Command       []string
	Restart       *RestartPolicy
	HealthCheck   *HealthCheck
	DependsOn     []string
	Labels        map[string]string
}

// ContainerNameSafe returns the runtime identity of the service's container
func (s *Service) ContainerNameSafe() string {
	if s.ContainerName != "" {
		return s.ContainerName
	}
	return s.Name
}

// Protocol is a port mapping protocol
type Protocol string

const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolSCTP Protocol = "sctp"
)

// PortMapping exposes one container port on the host
type PortMapping struct {
	ContainerPort int
	HostPort      int    // 0 lets the engine reuse the container port
	HostIP        string // Empty binds all interfaces
	Protocol      Protocol
}

func (p PortMapping) String() string {
	if p.HostPort != 0 {
		return fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, p.Protocol)
	}
	return fmt.Sprintf("%d/%s", p.ContainerPort, p.Protocol)
}

// MountType is the kind of a service mount
type MountType string

const (
	MountTypeBind   MountType = "bind"
	MountTypeVolume MountType = "volume"
	MountTypeTmpfs  MountType = "tmpfs"
)

// Mount attaches storage to a service container
type Mount struct {
	ID          string // Stable synthetic id, assigned when the service is added to a stack
	Type        MountType
	Source      string // Host path (bind) or volume name (volume)
	Target      string
	ReadOnly    *bool // nil means implicit read-write
	Consistency string

	// Bind only
	Propagation string

	// Volume only
	NoCopy bool
	Labels map[string]string

	// Tmpfs only
	TmpfsSize string // Bytes or a size string such as "64m"
	TmpfsMode uint32
}

// IsReadOnly reports the effective read-only flag
func (m Mount) IsReadOnly() bool {
	return m.ReadOnly != nil && *m.ReadOnly
}

// BindMount mounts a host path into the container
func BindMount(source, target string) Mount {
	return Mount{Type: MountTypeBind, Source: source, Target: target}
}

// VolumeMount mounts a named volume into the container
func VolumeMount(volume, target string) Mount {
	return Mount{Type: MountTypeVolume, Source: volume, Target: target}
}

// TmpfsMount mounts an in-memory filesystem into the container
func TmpfsMount(target string) Mount {
	return Mount{Type: MountTypeTmpfs, Target: target}
}

// RestartPolicy defines container restart behavior
type RestartPolicy struct {
	Name              RestartCondition
	MaximumRetryCount int
}

// RestartCondition defines when to restart
type RestartCondition string

const (
	RestartNo            RestartCondition = "no"
	RestartAlways        RestartCondition = "always"
	RestartUnlessStopped RestartCondition = "unless-stopped"
	RestartOnFailure     RestartCondition = "on-failure"
)

// ParseRestartPolicy reads "no", "always", "unless-stopped" or "on-failure[:N]"
func ParseRestartPolicy(s string) (*RestartPolicy, error) {
	name, count, hasCount := strings.Cut(s, ":")
	policy := &RestartPolicy{Name: RestartCondition(name)}

	switch policy.Name {
	case RestartNo, RestartAlways, RestartUnlessStopped:
		if hasCount {
			return nil, fmt.Errorf("restart %q: only on-failure takes a retry count", s)
		}
	case RestartOnFailure:
		if hasCount {
			n, err := strconv.Atoi(count)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("restart %q: invalid retry count", s)
			}
			policy.MaximumRetryCount = n
		}
	default:
		return nil, fmt.Errorf("unknown restart policy %q", s)
	}
	return policy, nil
}

// EnvVar is one environment variable of a service
type EnvVar struct {
	Key   string
	Value EnvValue
}

// EnvValue is either a plain string or a redacted secret
type EnvValue struct {
	plain  string
	secret *Secret
}

// Plain wraps a plain-text environment value
func Plain(value string) EnvValue {
	return EnvValue{plain: value}
}

// FromSecret wraps a secret environment value
func FromSecret(secret *Secret) EnvValue {
	return EnvValue{secret: secret}
}

// Env builds a plain environment variable
func Env(key, value string) EnvVar {
	return EnvVar{Key: key, Value: Plain(value)}
}

// SecretEnv builds a secret environment variable
func SecretEnv(key string, secret *Secret) EnvVar {
	return EnvVar{Key: key, Value: FromSecret(secret)}
}

// Secret returns the wrapped secret, or nil for plain values
func (v EnvValue) Secret() *Secret {
	return v.secret
}

// IsSecret reports whether the value is redacted
func (v EnvValue) IsSecret() bool {
	return v.secret != nil
}

// PlainValue returns the plain value; it is empty for secrets
func (v EnvValue) PlainValue() string {
	return v.plain
}

// String renders the value for display. Secrets render as their label.
func (v EnvValue) String() string {
	if v.secret != nil {
		return v.secret.String()
	}
	return v.plain
}

// Volume is a named volume declared by the stack
type Volume struct {
	Name       string
	Driver     string
	DriverOpts map[string]string
	Labels     map[string]string
}

// Network is a network declared by the stack
type Network struct {
	Name    string
	Driver  string
	Options map[string]string
	Labels  map[string]string
}
