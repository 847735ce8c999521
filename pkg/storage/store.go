package storage

import (
	"errors"
	"time"

	"github.com/cuemby/burrow/pkg/events"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrLocked is returned when another run holds the state directory
	ErrLocked = errors.New("state directory is locked by another run")

	// ErrAmbiguous is returned when a run id prefix matches several runs
	ErrAmbiguous = errors.New("ambiguous run id")
)

// Outcome is how a run ended
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Run is the persisted record of one command execution.
// Events carry resource identities only, never environment values.
type Run struct {
	ID        string         `json:"id"`
	Stack     string         `json:"stack"`
	Command   string         `json:"command"`
	DryRun    bool           `json:"dry_run"`
	LiveCheck bool           `json:"live_check"`
	Services  []string       `json:"services,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Outcome   Outcome        `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	Events    []events.Event `json:"events"`
}

// Duration returns how long the run took
func (r *Run) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// ResourceRecord tracks a resource the engine has no native store for,
// such as networks under containerd
type ResourceRecord struct {
	Kind      string            `json:"kind"`
	Name      string            `json:"name"`
	Stack     string            `json:"stack"`
	Driver    string            `json:"driver,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store defines the interface for run history and resource records
type Store interface {
	// Runs
	SaveRun(run *Run) error
	GetRun(id string) (*Run, error)
	ListRuns(stack string, limit int) ([]*Run, error)

	// Resources
	PutResource(rec *ResourceRecord) error
	GetResource(kind, name string) (*ResourceRecord, error)
	DeleteResource(kind, name string) error

	// Utility
	Close() error
}
