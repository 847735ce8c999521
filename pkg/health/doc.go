/*
Package health implements the wait that follows every container start.

After a service with a health check is run, the Up engine blocks on
Waiter.Wait until the runtime reports the container healthy. The wait is a
small state machine:

	           ┌──────────── poll ContainerHealthStatus ◄───────────┐
	           │                                                     │
	           ▼                                                     │
	   status exited? ──yes──► ExitedError                           │
	           │ no                                                  │
	   health healthy? ──yes──► done                                 │
	           │ no                                                  │
	   unhealthy? count it                                           │
	           │                                                     │
	   past deadline or count ≥ retries+1? ──yes──► TimeoutError     │
	           │ no                                                  │
	           └──────────────── sleep interval ─────────────────────┘

Unset options default to interval 1s, timeout 30s, retries 3, start period 1s
and start interval 1s. The deadline is computed once, when the wait starts:

	now + timeout_s × retries × interval_s + start_period + start_interval

The product is taken in seconds and saturates at the largest time.Duration.

The Clock is injectable so tests drive the loop without sleeping. Sleeping
honours context cancellation.
*/
package health
