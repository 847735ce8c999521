/*
Package compose imports docker-compose projects as Burrow stacks.

Files are loaded with compose-go, so interpolation, merging of several files
and path resolution follow compose semantics. The result is converted into a
types.Stack:

  - services are sorted by name
  - the implicit "default" network and external volumes and networks are skipped
  - a service attached to several networks keeps the first one by name
  - healthcheck: disable and NONE give None, CMD gives a command, CMD-SHELL
    gives a shell command, no test inherits the image health check
  - restart comes from restart:, falling back to deploy.restart_policy

Compose has no notion of secrets in environment values, so every imported
variable is plain.
*/
package compose
