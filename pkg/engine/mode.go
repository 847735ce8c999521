package engine

// Mode decides whether the engines may touch the runtime
type Mode struct {
	// SystemRead allows existence checks against the runtime
	SystemRead bool

	// SystemWrite allows mutations and health waits
	SystemWrite bool
}

// ModeFor derives the mode from the run flags. live-check only matters in
// dry-run, where it re-enables reads.
func ModeFor(dryRun, liveCheck bool) Mode {
	return Mode{
		SystemRead:  !dryRun || liveCheck,
		SystemWrite: !dryRun,
	}
}

func (m Mode) String() string {
	switch {
	case m.SystemWrite:
		return "live"
	case m.SystemRead:
		return "dry-run, live-check"
	default:
		return "dry-run"
	}
}
