/*
Package metrics defines Burrow's Prometheus metrics.

Burrow is a command, not a daemon, so nothing is scraped. Each run updates the
collectors in Registry and, when a metrics file is configured, writes them out
for the node_exporter textfile collector:

	burrow up ──► OperationsTotal / ReconcileDuration / HealthWaitSeconds
	          ──► RunsTotal / LastRunTimestamp
	          ──► WriteTextfile("/var/lib/node_exporter/burrow.prom")

# Metrics

  - burrow_operations_total{kind,action}: recorded runtime operations
  - burrow_reconcile_duration_seconds{command}: up and down duration
  - burrow_health_wait_seconds{outcome}: health waits (healthy, timeout, exited, error)
  - burrow_runs_total{command,outcome}: runs by outcome
  - burrow_last_run_timestamp_seconds{stack,command}: last run time

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "up")
*/
package metrics
