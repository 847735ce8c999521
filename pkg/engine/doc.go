/*
Package engine implements the up and down commands against a runtime.Operator.

Both commands take a resolved state.StackState and a Mode. The mode decides
whether runtime mutations actually happen; every decision is recorded on the
events.Recorder either way, so a dry run produces the same log a real run
would.

# Up

	volumes ──► networks ──► remove existing containers ──► per service:
	                                                          pull (once per image)
	                                                          run
	                                                          wait for health

A container whose state is Exists or Unknown is replaced. The first failure
aborts with an *UpError; there is no rollback.

# Down

Services are walked in reverse dependency order. Failures are collected into a
*DownError and the remaining services are still removed. Volumes, networks and
images are never touched.
*/
package engine
