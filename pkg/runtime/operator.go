package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/burrow/pkg/types"
)

const (
	// LabelComposeProject makes Burrow resources show up in compose tooling
	LabelComposeProject = "com.docker.compose.project"

	// LabelStack names the stack that owns a resource
	LabelStack = "io.burrow.stack"

	// LabelService names the service a container runs
	LabelService = "io.burrow.service"
)

// Container states reported by ContainerHealthStatus
const (
	StatusCreated    = "created"
	StatusRunning    = "running"
	StatusRestarting = "restarting"
	StatusPaused     = "paused"
	StatusExited     = "exited"
	StatusDead       = "dead"
	StatusUnknown    = "unknown"
)

// Health values reported by ContainerHealthStatus
const (
	HealthStarting  = "starting"
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthNone      = "none"
	HealthUnknown   = "unknown"
)

var (
	// ErrOperator matches every *OperatorError
	ErrOperator = errors.New("runtime operation failed")

	// ErrNotFound is wrapped when an operation targets a missing resource
	ErrNotFound = errors.New("resource not found")
)

// Operator is the boundary between the engines and a container runtime.
// Names are runtime identities: container names, volume and network names,
// image references.
type Operator interface {
	ImageExists(ctx context.Context, image string) (bool, error)
	ImagePull(ctx context.Context, image string) error

	ContainerExists(ctx context.Context, name string) (bool, error)
	ContainerRun(ctx context.Context, stackName string, svc *types.Service) error
	ContainerRemove(ctx context.Context, name string) error
	ContainerHealthStatus(ctx context.Context, name string) (HealthStatus, error)

	VolumeExists(ctx context.Context, name string) (bool, error)
	VolumeCreate(ctx context.Context, stackName string, vol *types.Volume) error

	NetworkExists(ctx context.Context, name string) (bool, error)
	NetworkCreate(ctx context.Context, stackName string, net *types.Network) error
}

// Lister is implemented by operators that can enumerate the containers
// labeled with a stack, including ones the stack no longer declares
type Lister interface {
	StackContainers(ctx context.Context, stackName string) ([]string, error)
}

// HealthStatus is the observed container status and health
type HealthStatus struct {
	Status string
	Health string
}

func (h HealthStatus) String() string {
	return h.Status + "/" + h.Health
}

// OperatorError wraps a runtime failure with the operation and resource
type OperatorError struct {
	Op       string
	Resource string
	Err      error
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *OperatorError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrOperator) hold for every OperatorError
func (e *OperatorError) Is(target error) bool {
	return target == ErrOperator
}

func opError(op, resource string, err error) error {
	return &OperatorError{Op: op, Resource: resource, Err: err}
}

// StackLabels returns the labels every resource of a stack carries
func StackLabels(stackName string) map[string]string {
	return map[string]string{
		LabelComposeProject: stackName,
		LabelStack:          stackName,
	}
}

// MergeLabels returns user labels with the stack labels applied over them
func MergeLabels(stackName string, labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels)+2)
	for k, v := range labels {
		out[k] = v
	}
	for k, v := range StackLabels(stackName) {
		out[k] = v
	}
	return out
}

// containerLabels adds the service label to the stack labels
func containerLabels(stackName string, svc *types.Service) map[string]string {
	labels := MergeLabels(stackName, svc.Labels)
	labels[LabelService] = svc.Name
	return labels
}

// revealEnv turns the service environment into KEY=value pairs. This is the
// only place secret values leave their wrapper.
func revealEnv(env []types.EnvVar) []string {
	out := make([]string, 0, len(env))
	for _, e := range env {
		value := e.Value.PlainValue()
		if s := e.Value.Secret(); s != nil {
			value = s.Reveal()
		}
		out = append(out, e.Key+"="+value)
	}
	return out
}
