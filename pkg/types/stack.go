package types

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned when a stack already holds a resource with the same name
var ErrDuplicateName = errors.New("duplicate name")

// Resource is anything a stack can hold: *Service, *Volume or *Network
type Resource interface {
	resourceName() string
}

func (s *Service) resourceName() string { return s.Name }
func (v *Volume) resourceName() string  { return v.Name }
func (n *Network) resourceName() string { return n.Name }

// NewStack creates an empty stack
func NewStack(name string) *Stack {
	return &Stack{Name: name}
}

// Add appends resources in order. Names must be unique per kind.
func (s *Stack) Add(resources ...Resource) error {
	for _, r := range resources {
		var err error
		switch v := r.(type) {
		case *Service:
			err = s.addService(v)
		case *Volume:
			err = s.addVolume(v)
		case *Network:
			err = s.addNetwork(v)
		default:
			err = fmt.Errorf("unsupported resource %T", r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Stack) addService(svc *Service) error {
	if svc.Name == "" {
		return errors.New("service name is required")
	}
	if _, ok := s.Service(svc.Name); ok {
		return fmt.Errorf("service %q: %w", svc.Name, ErrDuplicateName)
	}
	for i := range svc.Mounts {
		if svc.Mounts[i].ID == "" {
			svc.Mounts[i].ID = fmt.Sprintf("%s/mount-%d", svc.Name, i)
		}
	}
	for i := range svc.Ports {
		if svc.Ports[i].Protocol == "" {
			svc.Ports[i].Protocol = ProtocolTCP
		}
	}
	s.Services = append(s.Services, svc)
	return nil
}

func (s *Stack) addVolume(v *Volume) error {
	if v.Name == "" {
		return errors.New("volume name is required")
	}
	if _, ok := s.Volume(v.Name); ok {
		return fmt.Errorf("volume %q: %w", v.Name, ErrDuplicateName)
	}
	s.Volumes = append(s.Volumes, v)
	return nil
}

func (s *Stack) addNetwork(n *Network) error {
	if n.Name == "" {
		return errors.New("network name is required")
	}
	if _, ok := s.Network(n.Name); ok {
		return fmt.Errorf("network %q: %w", n.Name, ErrDuplicateName)
	}
	s.Networks = append(s.Networks, n)
	return nil
}

// Service looks a service up by name
func (s *Stack) Service(name string) (*Service, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return nil, false
}

// Volume looks a volume up by name
func (s *Stack) Volume(name string) (*Volume, bool) {
	for _, v := range s.Volumes {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Network looks a network up by name
func (s *Stack) Network(name string) (*Network, bool) {
	for _, n := range s.Networks {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Validate checks every service for problems that must stop a run before it
// touches the runtime. All problems are reported together.
func (s *Stack) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("stack name is required"))
	}
	for _, svc := range s.Services {
		if err := svc.validate(); err != nil {
			errs = append(errs, fmt.Errorf("service %s: %w", svc.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (svc *Service) validate() error {
	var errs []error
	if svc.Image == "" {
		errs = append(errs, errors.New("image is required"))
	}
	for _, p := range svc.Ports {
		switch p.Protocol {
		case ProtocolTCP, ProtocolUDP, ProtocolSCTP:
		default:
			errs = append(errs, fmt.Errorf("port %d: unsupported protocol %q", p.ContainerPort, p.Protocol))
		}
		if p.ContainerPort <= 0 || p.ContainerPort > 65535 || p.HostPort < 0 || p.HostPort > 65535 {
			errs = append(errs, fmt.Errorf("port %s: out of range", p))
		}
	}
	for _, m := range svc.Mounts {
		switch m.Type {
		case MountTypeBind, MountTypeVolume:
			if m.Source == "" {
				errs = append(errs, fmt.Errorf("mount %s: source is required", m.ID))
			}
		case MountTypeTmpfs:
		default:
			errs = append(errs, fmt.Errorf("mount %s: unsupported type %q", m.ID, m.Type))
		}
		if m.Target == "" {
			errs = append(errs, fmt.Errorf("mount %s: target is required", m.ID))
		}
	}
	if svc.HealthCheck != nil {
		if _, err := svc.HealthCheck.ResolveOptions(); err != nil {
			errs = append(errs, fmt.Errorf("healthcheck: %w", err))
		}
	}
	return errors.Join(errs...)
}
