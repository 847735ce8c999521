/*
Package runtime is the boundary between Burrow and a container engine.

The engines only ever talk to the Operator interface. Three implementations
exist and the runner picks one per run:

	┌──────────────────── RUNTIME OPERATORS ─────────────────────┐
	│                                                             │
	│                    Operator interface                       │
	│   images · containers · health · volumes · networks         │
	│                           │                                 │
	│        ┌──────────────────┼───────────────────┐             │
	│        ▼                  ▼                   ▼             │
	│   ┌─────────┐       ┌───────────┐      ┌────────────┐       │
	│   │ DryRun  │       │  Docker   │      │ Containerd │       │
	│   │ in-mem  │       │ Engine API│      │ namespace  │       │
	│   │  maps   │       │ (FromEnv) │      │  "burrow"  │       │
	│   └─────────┘       └───────────┘      └────────────┘       │
	│                                          │        │         │
	│                                   pkg/volume  pkg/storage   │
	│                                   (volumes)   (networks)    │
	└─────────────────────────────────────────────────────────────┘

# Errors

Docker and Containerd wrap every engine failure in *OperatorError, which
matches ErrOperator with errors.Is and unwraps to the engine error. Removing a
container that is already gone succeeds. DryRun fails only when asked to
remove a container it never ran (ErrNotFound).

# Labels

Every created container, volume and network carries StackLabels merged over
its user labels, so compose tooling sees Burrow resources as one project:

	com.docker.compose.project=<stack>
	io.burrow.stack=<stack>

# Secrets

Secret environment values are revealed exactly once, when the container spec
is built for the engine. Nothing in this package logs an environment value.

# Health

Docker reports health from its own probe loop (State.Health.Status). The
containerd engine has none, so the declared probe is stored as a container
label and executed inside the task on every ContainerHealthStatus call.
*/
package runtime
