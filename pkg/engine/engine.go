package engine

import (
	"context"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/health"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/types"
)

// HealthWaiter blocks until a container is healthy. *health.Waiter satisfies it.
type HealthWaiter interface {
	Wait(ctx context.Context, src health.StatusSource, name string, hc *types.HealthCheck) error
}

// record appends a mutation to the execution log and counts it
func record(rec *events.Recorder, kind events.Kind, action events.Action, resource, message string) {
	if rec != nil {
		rec.Record(kind, action, resource, message)
	}
	metrics.OperationsTotal.WithLabelValues(string(kind), string(action)).Inc()
}
