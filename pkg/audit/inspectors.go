package audit

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/distribution/reference"
)

var secretKeyHints = []string{"password", "token", "secret", "key", "pwd", "pass"}

// secretsInspector flags secret-looking environment keys with plaintext values
type secretsInspector struct{}

func (secretsInspector) Code() string { return "secrets" }

func (secretsInspector) Evaluate(stack *types.Stack) []Alert {
	var alerts []Alert
	for _, svc := range stack.Services {
		for _, env := range svc.Environment {
			if env.Value.IsSecret() || !looksSecret(env.Key) {
				continue
			}
			alerts = append(alerts, Alert{
				Severity: SeverityCritical,
				Message:  "looks like a secret but is passed as plaintext, declare it as a secret to redact it",
				Location: ServiceLocation(svc.Name).Environment(env.Key),
			})
		}
	}
	return alerts
}

func looksSecret(key string) bool {
	lowered := strings.ToLower(key)
	for _, hint := range secretKeyHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}

var unstableTags = map[string]bool{
	"dev":      true,
	"nightly":  true,
	"snapshot": true,
	"beta":     true,
	"alpha":    true,
	"rc":       true,
}

// imageInspector flags images that are not pinned to a stable version
type imageInspector struct{}

func (imageInspector) Code() string { return "service_image" }

func (imageInspector) Evaluate(stack *types.Stack) []Alert {
	var alerts []Alert
	for _, svc := range stack.Services {
		if alert, ok := imageAlert(svc.Name, svc.Image); ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

func imageAlert(service, image string) (Alert, bool) {
	location := ServiceLocation(service).Image()
	critical := func(msg string) (Alert, bool) {
		return Alert{Severity: SeverityCritical, Message: msg, Location: location}, true
	}

	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return critical(fmt.Sprintf("invalid image reference: %v", err))
	}
	if _, ok := named.(reference.Digested); ok {
		return Alert{}, false
	}

	tagged, ok := named.(reference.Tagged)
	if !ok {
		return critical("image has no explicit tag (defaults to :latest)")
	}

	tag := tagged.Tag()
	switch {
	case tag == "latest":
		return critical("image uses tag :latest")
	case unstableTags[tag]:
		return Alert{Severity: SeverityWarn, Message: "image uses unstable tag :" + tag, Location: location}, true
	case !strings.ContainsFunc(tag, unicode.IsDigit):
		return critical("image tag is vague :" + tag)
	}
	return Alert{}, false
}

var sensitiveHostPaths = []string{"/etc", "/var", "/home", "/root"}

// mountsInspector flags risky bind mounts and overlapping targets
type mountsInspector struct{}

func (mountsInspector) Code() string { return "service_mounts" }

func (mountsInspector) Evaluate(stack *types.Stack) []Alert {
	var alerts []Alert
	for _, svc := range stack.Services {
		for _, m := range svc.Mounts {
			alerts = append(alerts, mountAlerts(svc, m)...)
		}
	}
	return alerts
}

func mountAlerts(svc *types.Service, m types.Mount) []Alert {
	location := ServiceLocation(svc.Name).Mount(m.ID)
	var alerts []Alert
	add := func(severity Severity, msg string) {
		alerts = append(alerts, Alert{Severity: severity, Message: msg, Location: location})
	}

	if m.Type == types.MountTypeBind {
		for _, prefix := range sensitiveHostPaths {
			if withinPath(path.Clean(m.Source), prefix) {
				add(SeverityCritical, "sensitive host path")
			}
		}
		if m.ReadOnly == nil {
			add(SeverityWarn, "defaults to read-write, make it explicit")
		}
	}

	for _, other := range svc.Mounts {
		if other.ID == m.ID || !path.IsAbs(other.Target) || !path.IsAbs(m.Target) {
			continue
		}
		a, b := path.Clean(m.Target), path.Clean(other.Target)
		if withinPath(a, b) || withinPath(b, a) {
			add(SeverityCritical, "conflicting mount path with "+other.Target)
		}
	}

	if !path.IsAbs(m.Target) {
		add(SeverityCritical, "relative target path")
	}
	if m.Type == types.MountTypeBind && !path.IsAbs(m.Source) {
		add(SeverityCritical, "relative source path")
	}
	return alerts
}

// withinPath reports whether p equals dir or lies below it
func withinPath(p, dir string) bool {
	if p == dir {
		return true
	}
	if dir == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, dir+"/")
}

// healthCheckInspector notes services that declare no health check at all
type healthCheckInspector struct{}

func (healthCheckInspector) Code() string { return "service_healthcheck" }

func (healthCheckInspector) Evaluate(stack *types.Stack) []Alert {
	var alerts []Alert
	for _, svc := range stack.Services {
		if svc.HealthCheck == nil {
			alerts = append(alerts, Alert{
				Severity: SeverityInfo,
				Message:  "no healthcheck",
				Location: ServiceLocation(svc.Name).HealthCheck(),
			})
		}
	}
	return alerts
}

// dependsOnInspector flags dependencies Up cannot wait for
type dependsOnInspector struct{}

func (dependsOnInspector) Code() string { return "service_depends_on" }

func (dependsOnInspector) Evaluate(stack *types.Stack) []Alert {
	var alerts []Alert
	for _, svc := range stack.Services {
		for _, dep := range svc.DependsOn {
			target, ok := stack.Service(dep)
			if !ok || target.HealthCheck.Waitable() {
				continue
			}
			alerts = append(alerts, Alert{
				Severity: SeverityWarn,
				Message:  dep + " has no healthcheck",
				Location: ServiceLocation(svc.Name).DependsOn(dep),
			})
		}
	}
	return alerts
}
