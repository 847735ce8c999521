package engine

import (
	"context"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/graph"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/state"
	"github.com/cuemby/burrow/pkg/types"
)

// DownOptions are the inputs of one Down command
type DownOptions struct {
	Stack *types.Stack

	// Services is the dependency-ordered subset; Down walks it backwards
	Services []*types.Service

	State    *state.StackState
	Operator runtime.Operator
	Recorder *events.Recorder
	Mode     Mode
}

// Down removes the service containers, dependents first. A failed removal
// is logged and collected; the remaining services are still processed.
// Volumes, networks and images are left alone.
func Down(ctx context.Context, opts DownOptions) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "down")

	logger := log.WithStack(opts.Stack.Name).With().Str("command", "down").Logger()
	current := opts.State
	if current == nil {
		current = state.Empty()
	}

	logger.Info().
		Str("mode", opts.Mode.String()).
		Int("services", len(opts.Services)).
		Msg("Bringing stack down")

	var failures []*ContainerError
	for _, svc := range graph.Reverse(opts.Services) {
		name := svc.ContainerNameSafe()
		existing := current.Container(name)
		if !existing.Present() {
			logger.Info().Str("container", name).Msg("Container does not exist, nothing to remove")
			continue
		}

		if opts.Mode.SystemWrite {
			if err := opts.Operator.ContainerRemove(ctx, name); err != nil {
				logger.Error().Err(err).Str("service", svc.Name).Str("container", name).Msg("Failed to remove container")
				failures = append(failures, &ContainerError{Container: name, Err: err})
				continue
			}
		}
		record(opts.Recorder, events.KindContainer, events.ActionRemoved, name, "")
		logger.Info().Str("container", name).Msg("Container removed")
	}

	if len(failures) > 0 {
		return &DownError{Failures: failures}
	}
	logger.Info().Msg("Stack is down")
	return nil
}
