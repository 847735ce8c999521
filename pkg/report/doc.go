/*
Package report renders the human-readable summary of a run.

The standard report shows the stack as declared, annotated with what the run
did and what the audit found:

	Stack: shop (dry-run) up

	Volumes
	  - data : created driver=local

	Containers

	1. db (postgres:latest ✖ image uses tag :latest)
	   Volumes    : /var/lib/postgresql/data → (volume) data (read-write)
	   Healthcheck: (exec) pg_isready

	Execution
	    1. volume data created

Colors come from fatih/color and are off unless Input.Color is set.
*/
package report
