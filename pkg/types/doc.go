/*
Package types defines the Stack model that every other Burrow package works on.

A Stack is a pure description: services, named volumes and named networks. It
is built once (by hand, by pkg/stackfile or by pkg/compose) and never mutated
by the engines afterwards.

# Core Types

Stack:
  - Stack: ordered services, volumes and networks with unique names
  - Resource: sealed interface accepted by Stack.Add

Services:
  - Service: one container with image, ports, environment, mounts and deps
  - PortMapping: container port to host port, tcp/udp/sctp
  - Mount: bind, volume or tmpfs, identified by "<service>/mount-<index>"
  - RestartPolicy: no, always, unless-stopped, on-failure

Health:
  - HealthCheck: Inherit, None, Command or Shell, plus timing options
  - ResolvedOptions: timing parsed into time.Duration values

Secrets:
  - Secret: opaque value that renders as "<Secret: label>"
  - EnvValue: a plain string or a *Secret

# Usage

	stack := types.NewStack("shop")
	err := stack.Add(
		&types.Volume{Name: "data"},
		&types.Service{
			Name:  "db",
			Image: "postgres:16.2",
			Environment: []types.EnvVar{
				types.SecretEnv("POSTGRES_PASSWORD", types.NewSecret("db password", pw)),
			},
			Mounts:      []types.Mount{types.VolumeMount("data", "/var/lib/postgresql/data")},
			HealthCheck: types.ShellHealthCheck("pg_isready", types.HealthCheckOptions{Interval: "2s"}),
		},
		&types.Service{Name: "api", Image: "shop/api:1.4.0", DependsOn: []string{"db"}},
	)

Validate must succeed before a stack is handed to the engine; it parses every
health check duration so malformed values fail before anything runs.
*/
package types
