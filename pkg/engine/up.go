package engine

import (
	"context"
	"fmt"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/health"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/state"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// UpOptions are the inputs of one Up command
type UpOptions struct {
	Stack *types.Stack

	// Services is the dependency-ordered subset to bring up
	Services []*types.Service

	State    *state.StackState
	Operator runtime.Operator
	Recorder *events.Recorder
	Mode     Mode
	Waiter   HealthWaiter
}

// Up brings the stack to its declared state: volumes, networks, replacement
// of existing containers, then pull, run and health wait per service.
// The first failure aborts; already started services stay running.
func Up(ctx context.Context, opts UpOptions) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "up")

	u := &up{
		UpOptions: opts,
		logger:    log.WithStack(opts.Stack.Name).With().Str("command", "up").Logger(),
		pulled:    make(map[string]bool),
	}
	if u.State == nil {
		u.State = state.Empty()
	}
	if u.Waiter == nil {
		u.Waiter = health.NewWaiter()
	}

	u.logger.Info().
		Str("mode", u.Mode.String()).
		Int("services", len(u.Services)).
		Msg("Bringing stack up")

	for _, vol := range u.Stack.Volumes {
		if err := u.ensureVolume(ctx, vol); err != nil {
			return &UpError{Err: fmt.Errorf("volume %s: %w", vol.Name, err)}
		}
	}
	for _, net := range u.Stack.Networks {
		if err := u.ensureNetwork(ctx, net); err != nil {
			return &UpError{Err: fmt.Errorf("network %s: %w", net.Name, err)}
		}
	}
	for _, svc := range u.Services {
		if err := u.removeExisting(ctx, svc); err != nil {
			return &UpError{Service: svc.Name, Err: err}
		}
	}
	for _, svc := range u.Services {
		if err := u.startService(ctx, svc); err != nil {
			return &UpError{Service: svc.Name, Err: err}
		}
	}

	u.logger.Info().Msg("Stack is up")
	return nil
}

type up struct {
	UpOptions
	logger zerolog.Logger
	pulled map[string]bool
}

func (u *up) ensureVolume(ctx context.Context, vol *types.Volume) error {
	if u.State.Volume(vol.Name) == state.Exists {
		u.logger.Debug().Str("volume", vol.Name).Msg("Volume already exists")
		return nil
	}
	if u.Mode.SystemWrite {
		if err := u.Operator.VolumeCreate(ctx, u.Stack.Name, vol); err != nil {
			return err
		}
	}
	record(u.Recorder, events.KindVolume, events.ActionCreated, vol.Name, "")
	u.logger.Info().Str("volume", vol.Name).Msg("Volume created")
	return nil
}

func (u *up) ensureNetwork(ctx context.Context, net *types.Network) error {
	if u.State.Network(net.Name) == state.Exists {
		u.logger.Debug().Str("network", net.Name).Msg("Network already exists")
		return nil
	}
	if u.Mode.SystemWrite {
		if err := u.Operator.NetworkCreate(ctx, u.Stack.Name, net); err != nil {
			return err
		}
	}
	record(u.Recorder, events.KindNetwork, events.ActionCreated, net.Name, "")
	u.logger.Info().Str("network", net.Name).Msg("Network created")
	return nil
}

// removeExisting removes a container that exists or might exist
func (u *up) removeExisting(ctx context.Context, svc *types.Service) error {
	name := svc.ContainerNameSafe()
	existing := u.State.Container(name)
	if !existing.Present() {
		u.logger.Debug().Str("container", name).Msg("Container does not exist")
		return nil
	}

	u.logger.Info().Str("container", name).Str("state", existing.String()).Msg("Replacing container")
	if u.Mode.SystemWrite {
		if err := u.Operator.ContainerRemove(ctx, name); err != nil {
			return err
		}
	}
	record(u.Recorder, events.KindContainer, events.ActionRemoved, name, "")
	return nil
}

func (u *up) startService(ctx context.Context, svc *types.Service) error {
	name := svc.ContainerNameSafe()
	logger := u.logger.With().Str("service", svc.Name).Str("container", name).Logger()

	if u.State.Image(svc.Image) != state.Exists && !u.pulled[svc.Image] {
		u.pulled[svc.Image] = true
		logger.Info().Str("image", svc.Image).Msg("Pulling image")
		if u.Mode.SystemWrite {
			if err := u.Operator.ImagePull(ctx, svc.Image); err != nil {
				return err
			}
		}
		record(u.Recorder, events.KindImage, events.ActionPulled, svc.Image, "")
	}

	if u.Mode.SystemWrite {
		if err := u.Operator.ContainerRun(ctx, u.Stack.Name, svc); err != nil {
			return err
		}
	}
	record(u.Recorder, events.KindContainer, events.ActionRun, name, svc.Image)
	logger.Info().Msg("Container started")

	if !u.Mode.SystemWrite || !svc.HealthCheck.Waitable() {
		return nil
	}
	if err := u.Waiter.Wait(ctx, u.Operator, name, svc.HealthCheck); err != nil {
		return fmt.Errorf("health wait: %w", err)
	}
	return nil
}
