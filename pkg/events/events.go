package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the resource kind an event is about
type Kind string

const (
	KindVolume    Kind = "volume"
	KindNetwork   Kind = "network"
	KindImage     Kind = "image"
	KindContainer Kind = "container"
)

// Action is what happened to the resource
type Action string

const (
	ActionExistsCheck Action = "exists-check"
	ActionCreated     Action = "created"
	ActionPulled      Action = "pulled"
	ActionRemoved     Action = "removed"
	ActionRun         Action = "run"
)

// Event is one entry of the execution log
type Event struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Kind      Kind      `json:"kind"`
	Action    Action    `json:"action"`
	Resource  string    `json:"resource"`
	Exists    *bool     `json:"exists,omitempty"` // exists-check only
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
}

func (e Event) String() string {
	s := fmt.Sprintf("%s %s %s", e.Kind, e.Resource, e.Action)
	if e.Exists != nil {
		s += fmt.Sprintf(" exists=%t", *e.Exists)
	}
	return s
}

// Recorder is the append-only execution log of one run.
// Events keep the order in which they were recorded.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	broker *Broker
	now    func() time.Time
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Attach forwards every subsequently recorded event to the broker
func (r *Recorder) Attach(b *Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broker = b
}

// Record appends a mutation event
func (r *Recorder) Record(kind Kind, action Action, resource, message string) Event {
	return r.append(Event{Kind: kind, Action: action, Resource: resource, Message: message})
}

// RecordExists appends an exists-check event with its outcome
func (r *Recorder) RecordExists(kind Kind, resource string, exists bool) Event {
	return r.append(Event{Kind: kind, Action: ActionExistsCheck, Resource: resource, Exists: &exists})
}

func (r *Recorder) append(e Event) Event {
	r.mu.Lock()
	e.ID = uuid.NewString()
	e.Seq = len(r.events) + 1
	e.Timestamp = r.now()
	r.events = append(r.events, e)
	broker := r.broker
	r.mu.Unlock()

	if broker != nil {
		ev := e
		broker.Publish(&ev)
	}
	return e
}

// Events returns a copy of the log
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// For returns the events about one resource, in order
func (r *Recorder) For(kind Kind, resource string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind && e.Resource == resource {
			out = append(out, e)
		}
	}
	return out
}

// Mutations returns the log without exists-check events
func (r *Recorder) Mutations() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Action != ActionExistsCheck {
			out = append(out, e)
		}
	}
	return out
}
