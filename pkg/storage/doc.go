/*
Package storage persists Burrow's run history in a BoltDB file.

	┌──────────── <dataDir>/burrow.db ────────────┐
	│                                              │
	│  runs       (run id)       → Run JSON        │
	│  resources  (kind/name)    → ResourceRecord  │
	└──────────────────────────────────────────────┘

# Run lock

bbolt takes an exclusive flock on the database file for as long as it is open.
Open waits up to the given timeout and then fails with ErrLocked, so two Burrow
runs against the same data directory cannot interleave their mutations. The
runner opens the store before resolving state and closes it after the run
record is saved.

# Records

Run records hold the command, mode flags, timing, outcome and the execution
log. Events only name resources, so no secret value is ever written to disk.

Resource records exist for what the runtime cannot answer itself. Under the
containerd engine there is no network object, so created networks are tracked
here.

# Usage

	store, err := storage.Open(dataDir, storage.DefaultLockTimeout)
	if errors.Is(err, storage.ErrLocked) {
		return fmt.Errorf("another burrow run is in progress: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns("shop", 10)
*/
package storage
