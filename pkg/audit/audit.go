package audit

import (
	"slices"
	"strings"

	"github.com/cuemby/burrow/pkg/types"
)

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Location segments
const (
	segmentService     = "service"
	segmentEnvironment = "environment"
	segmentHealthCheck = "healthcheck"
	segmentMount       = "mount"
	segmentImage       = "image"
	segmentDependsOn   = "depends_on"
)

// Location is the path of the stack element an alert is about,
// e.g. [service api environment DB_PASSWORD]
type Location []string

// ServiceLocation is the root location of a service
func ServiceLocation(service string) Location {
	return Location{segmentService, service}
}

func (l Location) child(segments ...string) Location {
	out := make(Location, 0, len(l)+len(segments))
	out = append(out, l...)
	return append(out, segments...)
}

func (l Location) Environment(key string) Location { return l.child(segmentEnvironment, key) }
func (l Location) HealthCheck() Location           { return l.child(segmentHealthCheck) }
func (l Location) Mount(id string) Location        { return l.child(segmentMount, id) }
func (l Location) Image() Location                 { return l.child(segmentImage) }
func (l Location) DependsOn(name string) Location  { return l.child(segmentDependsOn, name) }

// Equal reports whether both locations name the same element
func (l Location) Equal(other Location) bool {
	return slices.Equal(l, other)
}

func (l Location) String() string {
	return strings.Join(l, ".")
}

// Alert is one audit finding
type Alert struct {
	Severity Severity
	Message  string
	Location Location
}

// Inspector evaluates one class of risk over a stack
type Inspector interface {
	Code() string
	Evaluate(stack *types.Stack) []Alert
}

// DefaultInspectors returns every built-in inspector
func DefaultInspectors() []Inspector {
	return []Inspector{
		secretsInspector{},
		imageInspector{},
		mountsInspector{},
		healthCheckInspector{},
		dependsOnInspector{},
	}
}

// Inspect runs the built-in inspectors over the stack
func Inspect(stack *types.Stack) *Report {
	return InspectWith(stack, DefaultInspectors()...)
}

// InspectWith runs the given inspectors over the stack, in order
func InspectWith(stack *types.Stack, inspectors ...Inspector) *Report {
	var alerts []Alert
	for _, inspector := range inspectors {
		alerts = append(alerts, inspector.Evaluate(stack)...)
	}
	return &Report{alerts: alerts}
}

// Report holds the alerts of one inspection
type Report struct {
	alerts []Alert
}

// NewReport wraps alerts into a report
func NewReport(alerts []Alert) *Report {
	return &Report{alerts: alerts}
}

// Alerts returns every alert in inspection order
func (r *Report) Alerts() []Alert {
	if r == nil {
		return nil
	}
	return slices.Clone(r.alerts)
}

// Query returns the alerts raised exactly at location
func (r *Report) Query(location Location) []Alert {
	if r == nil {
		return nil
	}
	var out []Alert
	for _, a := range r.alerts {
		if a.Location.Equal(location) {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the number of alerts with the given severity
func (r *Report) Count(severity Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, a := range r.alerts {
		if a.Severity == severity {
			n++
		}
	}
	return n
}
