// Package graph orders stack services so that every dependency starts before
// its dependents.
package graph

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/types"
)

// CycleError is returned when depends_on forms a cycle
type CycleError struct {
	Service string // First service found on the cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected at service %q", e.Service)
}

// UnknownDependencyError is returned when depends_on names an undeclared service
type UnknownDependencyError struct {
	Service    string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("service %q depends on unknown service %q", e.Service, e.Dependency)
}

// UnknownServiceError is returned when a filter names an undeclared service
type UnknownServiceError struct {
	Service string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Service)
}

type mark int

const (
	unvisited mark = iota
	visiting
	visited
)

// Sort returns services in dependency order. Independent services keep their
// declaration order.
//
// When filter is non-empty only the named services are returned, but the whole
// dependency closure of each is still walked and validated.
func Sort(services []*types.Service, filter []string) ([]*types.Service, error) {
	byName := make(map[string]*types.Service, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
	}

	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		if _, ok := byName[name]; !ok {
			return nil, &UnknownServiceError{Service: name}
		}
		wanted[name] = true
	}

	marks := make(map[string]mark, len(services))
	ordered := make([]*types.Service, 0, len(services))

	var visit func(svc *types.Service) error
	visit = func(svc *types.Service) error {
		switch marks[svc.Name] {
		case visited:
			return nil
		case visiting:
			return &CycleError{Service: svc.Name}
		}

		marks[svc.Name] = visiting
		for _, dep := range svc.DependsOn {
			next, ok := byName[dep]
			if !ok {
				return &UnknownDependencyError{Service: svc.Name, Dependency: dep}
			}
			if err := visit(next); err != nil {
				return err
			}
		}
		marks[svc.Name] = visited

		if len(wanted) == 0 || wanted[svc.Name] {
			ordered = append(ordered, svc)
		}
		return nil
	}

	for _, svc := range services {
		if len(wanted) > 0 && !wanted[svc.Name] {
			continue
		}
		if err := visit(svc); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// Reverse returns a new slice in the opposite order, used for teardown
func Reverse(services []*types.Service) []*types.Service {
	out := make([]*types.Service, len(services))
	for i, svc := range services {
		out[len(services)-1-i] = svc
	}
	return out
}
