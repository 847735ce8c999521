package stackfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a stack file
type file struct {
	Name     string       `yaml:"name"`
	Volumes  []volumeDoc  `yaml:"volumes"`
	Networks []networkDoc `yaml:"networks"`
	Services []serviceDoc `yaml:"services"`
}

type volumeDoc struct {
	Name       string            `yaml:"name"`
	Driver     string            `yaml:"driver"`
	DriverOpts map[string]string `yaml:"driver_opts"`
	Labels     map[string]string `yaml:"labels"`
}

type networkDoc struct {
	Name    string            `yaml:"name"`
	Driver  string            `yaml:"driver"`
	Options map[string]string `yaml:"options"`
	Labels  map[string]string `yaml:"labels"`
}

type serviceDoc struct {
	Name          string            `yaml:"name"`
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Network       string            `yaml:"network"`
	Ports         []portDoc         `yaml:"ports"`
	Environment   environmentDoc    `yaml:"environment"`
	Mounts        []mountDoc        `yaml:"mounts"`
	Command       commandDoc        `yaml:"command"`
	Restart       string            `yaml:"restart"`
	HealthCheck   *healthCheckDoc   `yaml:"healthcheck"`
	DependsOn     []string          `yaml:"depends_on"`
	Labels        map[string]string `yaml:"labels"`
}

// portDoc is either "8080:80/tcp" or a mapping
type portDoc struct {
	Short         string `yaml:"-"`
	ContainerPort int    `yaml:"container"`
	HostPort      int    `yaml:"host"`
	HostIP        string `yaml:"host_ip"`
	Protocol      string `yaml:"protocol"`
}

func (p *portDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Short = node.Value
		return nil
	}
	type plain portDoc
	return node.Decode((*plain)(p))
}

// mountDoc is either "source:target[:ro|rw]" or a mapping
type mountDoc struct {
	Short       string `yaml:"-"`
	Type        string `yaml:"type"`
	Source      string `yaml:"source"`
	Target      string `yaml:"target"`
	ReadOnly    *bool  `yaml:"read_only"`
	Consistency string `yaml:"consistency"`
	Propagation string `yaml:"propagation"`
	NoCopy      bool   `yaml:"nocopy"`
	Size        string `yaml:"size"`
	Mode        string `yaml:"mode"`

	Labels map[string]string `yaml:"labels"`
}

func (m *mountDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Short = node.Value
		return nil
	}
	type plain mountDoc
	return node.Decode((*plain)(m))
}

// commandDoc is either a shell-like string or an argv list
type commandDoc struct {
	Line string
	Argv []string
}

func (c *commandDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Line = node.Value
		return nil
	case yaml.SequenceNode:
		return node.Decode(&c.Argv)
	default:
		return fmt.Errorf("line %d: command must be a string or a list", node.Line)
	}
}

func (c commandDoc) empty() bool {
	return c.Line == "" && len(c.Argv) == 0
}

// envEntry keeps environment variables in declaration order
type envEntry struct {
	Key    string
	Value  string
	Secret *secretDoc
}

type secretDoc struct {
	Label   string  `yaml:"secret"`
	FromEnv string  `yaml:"from_env"`
	Value   *string `yaml:"value"`
}

type environmentDoc []envEntry

func (e *environmentDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: environment must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		entry := envEntry{Key: key.Value}
		switch value.Kind {
		case yaml.ScalarNode:
			entry.Value = value.Value
		case yaml.MappingNode:
			var s secretDoc
			if err := value.Decode(&s); err != nil {
				return fmt.Errorf("environment %s: %w", key.Value, err)
			}
			entry.Secret = &s
		default:
			return fmt.Errorf("line %d: environment %s must be a string or a secret", value.Line, key.Value)
		}
		*e = append(*e, entry)
	}
	return nil
}

type healthCheckDoc struct {
	Cmd           commandDoc `yaml:"cmd"`
	Shell         string     `yaml:"shell"`
	Disable       bool       `yaml:"disable"`
	Interval      string     `yaml:"interval"`
	Timeout       string     `yaml:"timeout"`
	Retries       int        `yaml:"retries"`
	StartPeriod   string     `yaml:"start_period"`
	StartInterval string     `yaml:"start_interval"`
}
