package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

var (
	// ErrTimeout matches every *TimeoutError
	ErrTimeout = errors.New("container did not become healthy")

	// ErrExited matches every *ExitedError
	ErrExited = errors.New("container exited while waiting for health")
)

// Outcomes passed to Waiter.Observe
const (
	OutcomeHealthy = "healthy"
	OutcomeTimeout = "timeout"
	OutcomeExited  = "exited"
	OutcomeError   = "error"
)

// TimeoutError is returned when the unhealthy budget or the deadline is exhausted
type TimeoutError struct {
	Container   string
	Attempts    int
	MaxAttempts int
	Last        runtime.HealthStatus
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("container %s did not become healthy (%d/%d unhealthy checks, last status %s)",
		e.Container, e.Attempts, e.MaxAttempts, e.Last)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ExitedError is returned when the container stops while being waited on
type ExitedError struct {
	Container string
	Status    runtime.HealthStatus
}

func (e *ExitedError) Error() string {
	return fmt.Sprintf("container %s exited while waiting for health (%s)", e.Container, e.Status)
}

func (e *ExitedError) Is(target error) bool {
	return target == ErrExited
}

// StatusSource reports container health. runtime.Operator satisfies it.
type StatusSource interface {
	ContainerHealthStatus(ctx context.Context, name string) (runtime.HealthStatus, error)
}

// Clock abstracts time for the poll loop
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Waiter blocks until a container reports healthy
type Waiter struct {
	Clock Clock

	// Observe, when set, is called once per wait with its outcome and duration
	Observe func(outcome string, elapsed time.Duration)

	logger zerolog.Logger
}

// NewWaiter creates a waiter on the wall clock
func NewWaiter() *Waiter {
	return &Waiter{
		Clock:  realClock{},
		logger: log.WithComponent("health"),
	}
}

// Wait polls the container until it is healthy, exits, or exhausts its budget.
// The deadline is fixed when the wait starts.
func (w *Waiter) Wait(ctx context.Context, src StatusSource, name string, hc *types.HealthCheck) (err error) {
	cfg, err := ConfigFor(hc)
	if err != nil {
		return fmt.Errorf("healthcheck for %s: %w", name, err)
	}

	clock := w.Clock
	if clock == nil {
		clock = realClock{}
	}

	start := clock.Now()
	deadline := cfg.Deadline(start)
	status := NewStatus(start)
	logger := w.logger.With().Str("container", name).Logger()

	defer func() {
		if w.Observe != nil {
			w.Observe(outcomeOf(err), clock.Now().Sub(start))
		}
	}()

	logger.Info().
		Dur("interval", cfg.Interval).
		Int("max_attempts", cfg.MaxAttempts()).
		Time("deadline", deadline).
		Msg("Waiting for container to become healthy")

	for {
		observed, err := src.ContainerHealthStatus(ctx, name)
		if err != nil {
			return err
		}
		status.Update(observed)

		if observed.Status == runtime.StatusExited {
			logger.Error().Str("status", observed.String()).Msg("Container exited")
			return &ExitedError{Container: name, Status: observed}
		}
		if observed.Health == runtime.HealthHealthy {
			logger.Info().Int("polls", status.Polls).Msg("Container healthy")
			return nil
		}

		logger.Debug().
			Str("status", observed.String()).
			Int("attempt", status.Unhealthy).
			Int("max_attempts", cfg.MaxAttempts()).
			Msg("Container not healthy yet")

		if !clock.Now().Before(deadline) || status.Exhausted(cfg) {
			return &TimeoutError{
				Container:   name,
				Attempts:    status.Unhealthy,
				MaxAttempts: cfg.MaxAttempts(),
				Last:        observed,
			}
		}

		if err := clock.Sleep(ctx, cfg.Interval); err != nil {
			return err
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeHealthy
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrExited):
		return OutcomeExited
	default:
		return OutcomeError
	}
}
