package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/cuemby/burrow/pkg/audit"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/state"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/fatih/color"
)

// Input is everything the standard report shows
type Input struct {
	Stack    *types.Stack
	Command  string
	Mode     string
	Services []string // Service filter, empty for the whole stack
	Events   []events.Event
	State    *state.StackState
	Audit    *audit.Report
	Color    bool
}

const (
	keyNetwork     = "Network"
	keyPorts       = "Ports"
	keyVolumes     = "Volumes"
	keyEnvironment = "Environment"
	keyDependsOn   = "Depends on"
	keyCommand     = "Command"
	keyHealthCheck = "Healthcheck"
)

var keyWidth = len(keyEnvironment)

type palette struct {
	title    func(a ...interface{}) string
	name     func(a ...interface{}) string
	ok       func(a ...interface{}) string
	removed  func(a ...interface{}) string
	faint    func(a ...interface{}) string
	critical func(a ...interface{}) string
	warn     func(a ...interface{}) string
	info     func(a ...interface{}) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		title:    mk(color.Bold),
		name:     mk(color.FgCyan, color.Bold),
		ok:       mk(color.FgGreen),
		removed:  mk(color.FgRed),
		faint:    mk(color.Faint),
		critical: mk(color.FgRed, color.Bold),
		warn:     mk(color.FgYellow),
		info:     mk(color.FgBlue),
	}
}

type renderer struct {
	in Input
	p  palette
	b  strings.Builder
}

// Render writes the standard report for one run
func Render(w io.Writer, in Input) error {
	if in.State == nil {
		in.State = state.Empty()
	}
	r := &renderer{in: in, p: newPalette(in.Color)}
	r.header()
	r.volumes()
	r.networks()
	r.containers()
	r.execution()

	_, err := io.WriteString(w, r.b.String())
	return err
}

func (r *renderer) line(format string, args ...interface{}) {
	fmt.Fprintf(&r.b, format, args...)
	r.b.WriteByte('\n')
}

func (r *renderer) header() {
	services := ""
	if len(r.in.Services) > 0 {
		services = " [" + strings.Join(r.in.Services, ", ") + "]"
	}
	r.line("%s %s (%s) %s%s", r.p.title("Stack:"), r.p.name(r.in.Stack.Name), r.in.Mode, r.in.Command, services)
	r.line("")
}

func (r *renderer) nameWidth() int {
	width := 0
	for _, v := range r.in.Stack.Volumes {
		width = max(width, len(v.Name))
	}
	for _, n := range r.in.Stack.Networks {
		width = max(width, len(n.Name))
	}
	return width
}

func (r *renderer) volumes() {
	if len(r.in.Stack.Volumes) == 0 {
		return
	}
	r.line("%s", r.p.title("Volumes"))
	width := r.nameWidth()
	for _, v := range r.in.Stack.Volumes {
		details := keyValues(v.Labels)
		if v.Driver != "" {
			details = append(details, "driver="+v.Driver)
		}
		details = append(details, keyValues(v.DriverOpts)...)
		trail := r.trail(events.KindVolume, v.Name, r.in.State.Volume(v.Name), details)
		r.line("  - %-*s : %s", width, v.Name, trail)
	}
	r.line("")
}

func (r *renderer) networks() {
	if len(r.in.Stack.Networks) == 0 {
		return
	}
	r.line("%s", r.p.title("Networks"))
	width := r.nameWidth()
	for _, n := range r.in.Stack.Networks {
		var details []string
		if n.Driver != "" {
			details = append(details, "driver="+n.Driver)
		}
		details = append(details, keyValues(n.Options)...)
		trail := r.trail(events.KindNetwork, n.Name, r.in.State.Network(n.Name), details)
		r.line("  - %-*s : %s", width, n.Name, trail)
	}
	r.line("")
}

// trail summarizes what happened to a volume or network. Without events the
// resolved state is shown instead.
func (r *renderer) trail(kind events.Kind, name string, current state.Existence, details []string) string {
	var steps []string
	for _, e := range r.in.Events {
		if e.Kind != kind || e.Resource != name {
			continue
		}
		switch e.Action {
		case events.ActionExistsCheck:
			if e.Exists != nil && *e.Exists {
				steps = append(steps, r.p.faint("exists"))
			} else {
				steps = append(steps, r.p.faint("missing"))
			}
		case events.ActionCreated:
			steps = append(steps, strings.TrimSpace(r.p.ok("created")+" "+strings.Join(details, " ")))
		case events.ActionRemoved:
			steps = append(steps, r.p.removed("removed"))
		}
	}
	if len(steps) == 0 {
		return r.p.faint(current.String())
	}
	return strings.Join(steps, " → ")
}

func (r *renderer) key(name string) string {
	return fmt.Sprintf("   %-*s:", keyWidth, name)
}

func (r *renderer) blank() string {
	return fmt.Sprintf("   %-*s ", keyWidth, "")
}

func (r *renderer) alerts(location audit.Location) []string {
	var out []string
	for _, a := range r.in.Audit.Query(location) {
		out = append(out, r.alert(a))
	}
	return out
}

func (r *renderer) alert(a audit.Alert) string {
	switch a.Severity {
	case audit.SeverityCritical:
		return r.p.critical("✖ " + a.Message)
	case audit.SeverityWarn:
		return r.p.warn("⚠ " + a.Message)
	default:
		return r.p.info("ℹ " + a.Message)
	}
}

// field writes one labeled multi-line field with its alerts below each value
func (r *renderer) field(name string, values []string, alerts [][]string) {
	for i, v := range values {
		k := r.blank()
		if i == 0 {
			k = r.key(name)
		}
		r.line("%s %s", k, v)
		if alerts != nil {
			for _, a := range alerts[i] {
				r.line("%s     %s", r.blank(), a)
			}
		}
	}
}

func (r *renderer) containers() {
	r.line("%s", r.p.title("Containers"))
	r.line("")
	for i, svc := range r.in.Stack.Services {
		r.container(i+1, svc)
		r.line("")
	}
}

func (r *renderer) container(number int, svc *types.Service) {
	loc := audit.ServiceLocation(svc.Name)

	image := svc.Image
	if imageAlerts := r.alerts(loc.Image()); len(imageAlerts) > 0 {
		image += " " + strings.Join(imageAlerts, ", ")
	}
	r.line("%d. %s (%s)", number, r.p.name(svc.Name), image)

	if svc.Network != "" {
		r.field(keyNetwork, []string{svc.Network}, nil)
	}

	if len(svc.Ports) > 0 {
		ports := make([]string, 0, len(svc.Ports))
		for _, p := range svc.Ports {
			ports = append(ports, p.String())
		}
		r.field(keyPorts, []string{strings.Join(ports, ", ")}, nil)
	}

	if len(svc.Mounts) > 0 {
		var values []string
		var alerts [][]string
		for _, m := range svc.Mounts {
			values = append(values, fmt.Sprintf("%s → (%s) %s %s", m.Target, m.Type, m.Source, accessMode(m)))
			alerts = append(alerts, r.alerts(loc.Mount(m.ID)))
		}
		r.field(keyVolumes, values, alerts)
	}

	if len(svc.Environment) > 0 {
		var values []string
		var alerts [][]string
		for _, env := range svc.Environment {
			values = append(values, env.Key+"="+env.Value.String())
			alerts = append(alerts, r.alerts(loc.Environment(env.Key)))
		}
		r.field(keyEnvironment, values, alerts)
	}

	if len(svc.DependsOn) > 0 {
		var alerts [][]string
		for _, dep := range svc.DependsOn {
			alerts = append(alerts, r.alerts(loc.DependsOn(dep)))
		}
		r.field(keyDependsOn, svc.DependsOn, alerts)
	}

	if len(svc.Command) > 0 {
		r.field(keyCommand, []string{strings.Join(svc.Command, " ")}, nil)
	}

	health := append([]string{svc.HealthCheck.Summary()}, r.alerts(loc.HealthCheck())...)
	r.field(keyHealthCheck, health, nil)
}

func (r *renderer) execution() {
	if len(r.in.Events) == 0 {
		return
	}
	r.line("%s", r.p.title("Execution"))
	for _, e := range r.in.Events {
		r.line("  %3d. %s", e.Seq, e.String())
	}
}

func accessMode(m types.Mount) string {
	switch {
	case m.ReadOnly == nil:
		return "(read-write)"
	case *m.ReadOnly:
		return "read-only"
	default:
		return "read-write"
	}
}

// keyValues renders a map as sorted k=v pairs
func keyValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, k+"="+m[k])
	}
	return out
}
