/*
Package runner drives one burrow command from a loaded stack to a persisted
run record.

	┌──────────── Run ────────────┐
	│ audit → validate → order    │
	│        ↓                    │
	│ operator (live | dry-run)   │
	│        ↓                    │
	│ resolve state → engine      │
	│        ↓                    │
	│ save run, metrics, report   │
	└─────────────────────────────┘

A run is live when it is allowed to query the runtime: up and down unless
dry-run is set without live-check, check only with live-check. Runs that are
not live use the in-memory dry-run operator and an empty state, so they never
touch the runtime at all.

Failures to persist the run, write metrics or render the report are logged
and never change the outcome of the command.
*/
package runner
