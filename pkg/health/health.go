package health

import (
	"math"
	"time"

	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/types"
)

// Config is the resolved timing of one health wait
type Config struct {
	// Interval is the time between polls
	Interval time.Duration

	// Timeout is the per-probe timeout declared on the service
	Timeout time.Duration

	// Retries is the number of unhealthy polls tolerated
	Retries int

	// StartPeriod is the grace period before probe failures count
	StartPeriod time.Duration

	// StartInterval is the probe interval during the start period
	StartInterval time.Duration
}

// DefaultConfig returns the values used for unset options
func DefaultConfig() Config {
	return Config{
		Interval:      1 * time.Second,
		Timeout:       30 * time.Second,
		Retries:       3,
		StartPeriod:   1 * time.Second,
		StartInterval: 1 * time.Second,
	}
}

// ConfigFor resolves a health check into a Config, filling unset options with defaults
func ConfigFor(hc *types.HealthCheck) (Config, error) {
	cfg := DefaultConfig()
	if hc == nil {
		return cfg, nil
	}

	opts, err := hc.ResolveOptions()
	if err != nil {
		return cfg, err
	}
	if opts.Interval > 0 {
		cfg.Interval = opts.Interval
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.Retries > 0 {
		cfg.Retries = opts.Retries
	}
	if opts.StartPeriod > 0 {
		cfg.StartPeriod = opts.StartPeriod
	}
	if opts.StartInterval > 0 {
		cfg.StartInterval = opts.StartInterval
	}
	return cfg, nil
}

// MaxAttempts is the number of unhealthy polls that ends the wait
func (c Config) MaxAttempts() int {
	return c.Retries + 1
}

// Budget is the total time a wait may take:
// timeout × retries × interval (in seconds) + start_period + start_interval.
// The result saturates at the largest time.Duration.
func (c Config) Budget() time.Duration {
	product := c.Timeout.Seconds() * float64(c.Retries) * c.Interval.Seconds() * float64(time.Second)
	if product >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return saturatingAdd(saturatingAdd(time.Duration(product), c.StartPeriod), c.StartInterval)
}

// Deadline returns now + Budget
func (c Config) Deadline(now time.Time) time.Time {
	return now.Add(c.Budget())
}

func saturatingAdd(a, b time.Duration) time.Duration {
	if b > 0 && a > time.Duration(math.MaxInt64)-b {
		return time.Duration(math.MaxInt64)
	}
	return a + b
}

// Status tracks the progress of one wait
type Status struct {
	// Polls counts every status query
	Polls int

	// Unhealthy counts polls that reported unhealthy
	Unhealthy int

	// Last is the most recent observation
	Last runtime.HealthStatus

	// StartedAt is when the wait began
	StartedAt time.Time
}

// NewStatus creates a Status starting at now
func NewStatus(now time.Time) *Status {
	return &Status{StartedAt: now}
}

// Update records one observation
func (s *Status) Update(observed runtime.HealthStatus) {
	s.Polls++
	s.Last = observed
	if observed.Health == runtime.HealthUnhealthy {
		s.Unhealthy++
	}
}

// Exhausted reports whether the unhealthy budget is spent
func (s *Status) Exhausted(cfg Config) bool {
	return s.Unhealthy >= cfg.MaxAttempts()
}
