package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/burrow/pkg/duration"
)

// HealthCheckKind discriminates the health check variants
type HealthCheckKind int

const (
	// HealthCheckInherit keeps the probe baked into the image
	HealthCheckInherit HealthCheckKind = iota
	// HealthCheckNone disables any probe, including the image's
	HealthCheckNone
	// HealthCheckCommand runs an argv inside the container
	HealthCheckCommand
	// HealthCheckShell runs a command line through the container's shell
	HealthCheckShell
)

func (k HealthCheckKind) String() string {
	switch k {
	case HealthCheckInherit:
		return "inherit"
	case HealthCheckNone:
		return "none"
	case HealthCheckCommand:
		return "cmd"
	case HealthCheckShell:
		return "cmd-shell"
	default:
		return fmt.Sprintf("HealthCheckKind(%d)", int(k))
	}
}

// ErrDurationTooShort is returned for health durations between 0 and 1ms
var ErrDurationTooShort = errors.New("duration must be 0 or at least 1ms")

// HealthCheckOptions holds the raw probe timing. Empty strings inherit.
type HealthCheckOptions struct {
	Interval      string
	Timeout       string
	Retries       int
	StartPeriod   string
	StartInterval string
}

// ResolvedOptions is HealthCheckOptions with durations parsed. Zero means unset.
type ResolvedOptions struct {
	Interval      time.Duration
	Timeout       time.Duration
	Retries       int
	StartPeriod   time.Duration
	StartInterval time.Duration
}

// HealthCheck describes how the engine decides a service is ready
type HealthCheck struct {
	Kind    HealthCheckKind
	Command []string // HealthCheckCommand
	Shell   string   // HealthCheckShell
	Options HealthCheckOptions
}

// InheritHealthCheck keeps the image probe, optionally overriding its timing
func InheritHealthCheck(opts HealthCheckOptions) *HealthCheck {
	return &HealthCheck{Kind: HealthCheckInherit, Options: opts}
}

// NoHealthCheck disables health checking
func NoHealthCheck() *HealthCheck {
	return &HealthCheck{Kind: HealthCheckNone}
}

// CommandHealthCheck probes with an argv
func CommandHealthCheck(argv []string, opts HealthCheckOptions) *HealthCheck {
	return &HealthCheck{Kind: HealthCheckCommand, Command: argv, Options: opts}
}

// ShellHealthCheck probes with a shell command line
func ShellHealthCheck(cmd string, opts HealthCheckOptions) *HealthCheck {
	return &HealthCheck{Kind: HealthCheckShell, Shell: cmd, Options: opts}
}

// Waitable reports whether the engine should wait on this check
func (h *HealthCheck) Waitable() bool {
	return h != nil && h.Kind != HealthCheckNone
}

// ResolveOptions parses the option durations. A disabled check resolves to zero options.
func (h *HealthCheck) ResolveOptions() (ResolvedOptions, error) {
	var r ResolvedOptions
	switch h.Kind {
	case HealthCheckNone:
		return r, nil
	case HealthCheckInherit, HealthCheckCommand, HealthCheckShell:
	default:
		return r, fmt.Errorf("unknown health check kind %v", h.Kind)
	}

	if h.Options.Retries < 0 {
		return r, fmt.Errorf("retries must not be negative, got %d", h.Options.Retries)
	}
	r.Retries = h.Options.Retries

	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"interval", h.Options.Interval, &r.Interval},
		{"timeout", h.Options.Timeout, &r.Timeout},
		{"start_period", h.Options.StartPeriod, &r.StartPeriod},
		{"start_interval", h.Options.StartInterval, &r.StartInterval},
	}
	for _, f := range fields {
		d, err := duration.ParseOptional(f.raw)
		if err != nil {
			return ResolvedOptions{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if d != 0 && d < time.Millisecond {
			return ResolvedOptions{}, fmt.Errorf("%s: %w", f.name, ErrDurationTooShort)
		}
		*f.dst = d
	}
	return r, nil
}

const summaryWidth = 50

// Summary renders a one-line description for reports
func (h *HealthCheck) Summary() string {
	if h == nil {
		return "None"
	}
	switch h.Kind {
	case HealthCheckInherit:
		return "Inherited"
	case HealthCheckNone:
		return "None"
	case HealthCheckCommand:
		return truncate("(exec) " + strings.Join(h.Command, " "))
	case HealthCheckShell:
		return truncate("(shell) " + h.Shell)
	default:
		return h.Kind.String()
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= summaryWidth {
		return s
	}
	return string(r[:summaryWidth-3]) + "..."
}
