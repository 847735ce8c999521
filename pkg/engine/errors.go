package engine

import (
	"fmt"
	"strings"
)

// UpError is returned when Up aborts. Service is empty when the failure
// happened while preparing volumes or networks.
type UpError struct {
	Service string
	Err     error
}

func (e *UpError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("up failed: %v", e.Err)
	}
	return fmt.Sprintf("up failed for service %s: %v", e.Service, e.Err)
}

func (e *UpError) Unwrap() error {
	return e.Err
}

// ContainerError is one failed removal during Down
type ContainerError struct {
	Container string
	Err       error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("container %s: %v", e.Container, e.Err)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

// DownError collects every container Down failed to remove
type DownError struct {
	Failures []*ContainerError
}

func (e *DownError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Container)
	}
	if len(e.Failures) == 1 {
		return fmt.Sprintf("down failed for %s: %v", names[0], e.Failures[0].Err)
	}
	return fmt.Sprintf("down failed for %d containers: %s", len(names), strings.Join(names, ", "))
}

// Unwrap exposes every failure to errors.Is and errors.As
func (e *DownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Containers lists the containers that could not be removed
func (e *DownError) Containers() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Container)
	}
	return names
}
