package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every Burrow metric. It is separate from the default
// registry so the textfile only carries what a run produced.
var Registry = prometheus.NewRegistry()

var (
	// Engine metrics
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_operations_total",
			Help: "Total number of recorded runtime operations by resource kind and action",
		},
		[]string{"kind", "action"},
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burrow_reconcile_duration_seconds",
			Help:    "Time taken by an up or down command in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"command"},
	)

	// Health metrics
	HealthWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burrow_health_wait_seconds",
			Help:    "Time spent waiting for containers to become healthy by outcome",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"outcome"},
	)

	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_runs_total",
			Help: "Total number of runs by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	LastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "burrow_last_run_timestamp_seconds",
			Help: "Unix time of the last run by stack and command",
		},
		[]string{"stack", "command"},
	)
)

func init() {
	Registry.MustRegister(OperationsTotal)
	Registry.MustRegister(ReconcileDuration)
	Registry.MustRegister(HealthWaitSeconds)
	Registry.MustRegister(RunsTotal)
	Registry.MustRegister(LastRunTimestamp)
	Registry.MustRegister(collectors.NewGoCollector())
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
