package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/cuemby/burrow/pkg/audit"
	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/engine"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/graph"
	"github.com/cuemby/burrow/pkg/health"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/report"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/state"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Command is what a run does to the stack
type Command string

const (
	CommandUp    Command = "up"
	CommandDown  Command = "down"
	CommandCheck Command = "check"
)

// Options are the inputs of one run
type Options struct {
	Command Command
	Stack   *types.Stack
	Config  *config.Config

	// OperatorFactory builds the live operator, NewOperator when nil
	OperatorFactory OperatorFactory

	// Store persists the run record when set
	Store storage.Store

	// Broker receives every event as it is recorded when set
	Broker *events.Broker

	// Waiter waits for health checks, a wall-clock health.Waiter when nil
	Waiter engine.HealthWaiter

	// Out receives the report
	Out io.Writer
}

// Result describes a finished run
type Result struct {
	RunID    string
	Mode     engine.Mode
	Live     bool

	// Services in start order, nil when ordering failed
	Services []*types.Service
	State    *state.StackState
	Events   []events.Event
	Audit    *audit.Report

	// Orphans are containers labeled with the stack that it no longer declares
	Orphans []string
}

// Live reports whether a command talks to the real runtime
func Live(cmd Command, dryRun, liveCheck bool) bool {
	if cmd == CommandCheck {
		return liveCheck
	}
	return !dryRun || liveCheck
}

// Run executes one command against the stack: audit, validate, order,
// resolve, reconcile, then persist and report
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	stack := opts.Stack
	runID := uuid.NewString()
	logger := log.WithRunID(runID).With().
		Str("stack", stack.Name).
		Str("command", string(opts.Command)).
		Logger()

	dryRun := cfg.DryRun || opts.Command == CommandCheck
	result := &Result{
		RunID: runID,
		Mode:  engine.ModeFor(dryRun, cfg.LiveCheck),
		Live:  Live(opts.Command, dryRun, cfg.LiveCheck),
	}
	run := &storage.Run{
		ID:        runID,
		Stack:     stack.Name,
		Command:   string(opts.Command),
		DryRun:    dryRun,
		LiveCheck: cfg.LiveCheck,
		Services:  cfg.Services,
		StartedAt: time.Now().UTC(),
	}

	rec := events.NewRecorder()
	if opts.Broker != nil {
		rec.Attach(opts.Broker)
	}

	err := execute(ctx, opts, result, rec, logger)
	result.Events = rec.Events()

	run.EndedAt = time.Now().UTC()
	run.Events = result.Events
	run.Outcome = storage.OutcomeSuccess
	if err != nil {
		run.Outcome = storage.OutcomeFailure
		run.Error = err.Error()
	}

	finish(opts, run, logger)

	if opts.Out != nil && dryRun && result.Services != nil {
		if rerr := report.Render(opts.Out, report.Input{
			Stack:    stack,
			Command:  string(opts.Command),
			Mode:     result.Mode.String(),
			Services: cfg.Services,
			Events:   result.Events,
			State:    result.State,
			Audit:    result.Audit,
			Color:    !cfg.NoColor,
		}); rerr != nil {
			logger.Warn().Err(rerr).Msg("Failed to render report")
		}
	}

	if err != nil {
		logger.Error().Err(err).Dur("duration", run.Duration()).Msg("Run failed")
		return result, err
	}
	logger.Info().Dur("duration", run.Duration()).Int("events", len(result.Events)).Msg("Run completed")
	return result, nil
}

func execute(ctx context.Context, opts Options, result *Result, rec *events.Recorder, logger zerolog.Logger) error {
	cfg := opts.Config
	stack := opts.Stack

	result.Audit = audit.Inspect(stack)
	logAlerts(logger, result.Audit)

	if err := stack.Validate(); err != nil {
		return fmt.Errorf("invalid stack: %w", err)
	}

	ordered, err := graph.Sort(stack.Services, cfg.Services)
	if err != nil {
		return err
	}
	result.Services = ordered

	var op runtime.Operator
	if result.Live {
		factory := opts.OperatorFactory
		if factory == nil {
			factory = NewOperator
		}
		op, err = factory(cfg, opts.Store)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", cfg.Engine, err)
		}
		if closer, ok := op.(io.Closer); ok {
			defer closer.Close()
		}

		current, err := state.NewResolver(op).Resolve(ctx, stack)
		if err != nil {
			logger.Warn().Err(err).Msg("Live state is partial, unresolved resources are treated as present")
		}
		result.State = current
		result.Orphans = orphans(ctx, op, stack, logger)
	} else {
		op = runtime.NewDryRun(rec)
		result.State = state.Empty()
	}

	switch opts.Command {
	case CommandUp:
		return engine.Up(ctx, engine.UpOptions{
			Stack:    stack,
			Services: ordered,
			State:    result.State,
			Operator: op,
			Recorder: rec,
			Mode:     result.Mode,
			Waiter:   waiter(opts.Waiter),
		})
	case CommandDown:
		return engine.Down(ctx, engine.DownOptions{
			Stack:    stack,
			Services: ordered,
			State:    result.State,
			Operator: op,
			Recorder: rec,
			Mode:     result.Mode,
		})
	case CommandCheck:
		return nil
	default:
		return fmt.Errorf("unknown command %q", opts.Command)
	}
}

func waiter(w engine.HealthWaiter) engine.HealthWaiter {
	if w != nil {
		return w
	}
	hw := health.NewWaiter()
	hw.Observe = func(outcome string, elapsed time.Duration) {
		metrics.HealthWaitSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
	return hw
}

// orphans lists stack containers the stack does not declare anymore
func orphans(ctx context.Context, op runtime.Operator, stack *types.Stack, logger zerolog.Logger) []string {
	lister, ok := op.(runtime.Lister)
	if !ok {
		return nil
	}
	names, err := lister.StackContainers(ctx, stack.Name)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list stack containers")
		return nil
	}

	declared := make([]string, 0, len(stack.Services))
	for _, svc := range stack.Services {
		declared = append(declared, svc.ContainerNameSafe())
	}

	var out []string
	for _, name := range names {
		if !slices.Contains(declared, name) {
			out = append(out, name)
			logger.Warn().Str("container", name).Msg("Container belongs to the stack but is not declared")
		}
	}
	return out
}

func logAlerts(logger zerolog.Logger, rep *audit.Report) {
	for _, a := range rep.Alerts() {
		var ev *zerolog.Event
		switch a.Severity {
		case audit.SeverityCritical, audit.SeverityWarn:
			ev = logger.Warn()
		default:
			ev = logger.Debug()
		}
		ev.Str("severity", string(a.Severity)).Str("location", a.Location.String()).Msg(a.Message)
	}
}

// finish persists the run and updates metrics. Failures here never change
// the outcome of the run.
func finish(opts Options, run *storage.Run, logger zerolog.Logger) {
	metrics.RunsTotal.WithLabelValues(run.Command, string(run.Outcome)).Inc()
	metrics.LastRunTimestamp.WithLabelValues(run.Stack, run.Command).SetToCurrentTime()

	if opts.Store != nil {
		if err := opts.Store.SaveRun(run); err != nil {
			logger.Error().Err(err).Msg("Failed to save run record")
		}
	}

	if path := opts.Config.MetricsFile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to write metrics")
		}
	}
}

// IsUsageError reports errors caused by the stack definition rather than
// the runtime
func IsUsageError(err error) bool {
	var cycle *graph.CycleError
	var unknownDep *graph.UnknownDependencyError
	var unknownSvc *graph.UnknownServiceError
	return errors.As(err, &cycle) || errors.As(err, &unknownDep) || errors.As(err, &unknownSvc)
}
