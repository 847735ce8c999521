package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// Checker answers existence queries. runtime.Operator satisfies it.
type Checker interface {
	ImageExists(ctx context.Context, image string) (bool, error)
	ContainerExists(ctx context.Context, name string) (bool, error)
	VolumeExists(ctx context.Context, name string) (bool, error)
	NetworkExists(ctx context.Context, name string) (bool, error)
}

// Resolver builds a StackState by querying the runtime for every resource the
// stack declares, and nothing else.
type Resolver struct {
	checker Checker
	logger  zerolog.Logger
}

// NewResolver creates a resolver backed by checker
func NewResolver(checker Checker) *Resolver {
	return &Resolver{
		checker: checker,
		logger:  log.WithComponent("state"),
	}
}

// Resolve checks networks, volumes, images and containers, in that order.
// A failed check leaves the resource Unknown; the failures are returned joined
// together with the partial snapshot.
func (r *Resolver) Resolve(ctx context.Context, stack *types.Stack) (*StackState, error) {
	b := NewBuilder()
	var errs []error

	check := func(kind, name string, fn func(context.Context, string) (bool, error), set func(string, Existence) *Builder) {
		found, err := fn(ctx, name)
		if err != nil {
			r.logger.Warn().Err(err).Str(kind, name).Msg("Existence check failed, state left unknown")
			errs = append(errs, fmt.Errorf("%s %s: %w", kind, name, err))
			return
		}
		set(name, existence(found))
		r.logger.Debug().Str(kind, name).Bool("exists", found).Msg("Resolved")
	}

	for _, n := range stack.Networks {
		check("network", n.Name, r.checker.NetworkExists, b.Network)
	}
	for _, v := range stack.Volumes {
		check("volume", v.Name, r.checker.VolumeExists, b.Volume)
	}

	seen := make(map[string]bool)
	for _, svc := range stack.Services {
		if seen[svc.Image] {
			continue
		}
		seen[svc.Image] = true
		check("image", svc.Image, r.checker.ImageExists, b.Image)
	}
	for _, svc := range stack.Services {
		check("container", svc.ContainerNameSafe(), r.checker.ContainerExists, b.Container)
	}

	return b.Build(), errors.Join(errs...)
}
