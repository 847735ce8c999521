package state

// Existence is what is known about one runtime resource
type Existence int

const (
	// Unknown means the resource was not checked, or the check failed
	Unknown Existence = iota
	Exists
	Missing
)

func (e Existence) String() string {
	switch e {
	case Exists:
		return "exists"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// Present reports whether a resource has to be treated as possibly present.
// Unknown counts as present.
func (e Existence) Present() bool {
	return e != Missing
}

func existence(found bool) Existence {
	if found {
		return Exists
	}
	return Missing
}

// StackState is a frozen snapshot of the runtime, keyed by resource identity
type StackState struct {
	containers map[string]Existence
	volumes    map[string]Existence
	networks   map[string]Existence
	images     map[string]Existence
}

// Empty returns a snapshot where everything is Unknown
func Empty() *StackState {
	return NewBuilder().Build()
}

// Container returns the state of a container by name
func (s *StackState) Container(name string) Existence { return s.containers[name] }

// Volume returns the state of a volume by name
func (s *StackState) Volume(name string) Existence { return s.volumes[name] }

// Network returns the state of a network by name
func (s *StackState) Network(name string) Existence { return s.networks[name] }

// Image returns the state of an image by reference
func (s *StackState) Image(ref string) Existence { return s.images[ref] }

// Known returns the number of entries that are not Unknown
func (s *StackState) Known() int {
	n := 0
	for _, m := range []map[string]Existence{s.containers, s.volumes, s.networks, s.images} {
		for _, e := range m {
			if e != Unknown {
				n++
			}
		}
	}
	return n
}

// Builder accumulates observations before freezing them into a StackState
type Builder struct {
	s StackState
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{s: StackState{
		containers: make(map[string]Existence),
		volumes:    make(map[string]Existence),
		networks:   make(map[string]Existence),
		images:     make(map[string]Existence),
	}}
}

func (b *Builder) Container(name string, e Existence) *Builder {
	b.s.containers[name] = e
	return b
}

func (b *Builder) Volume(name string, e Existence) *Builder {
	b.s.volumes[name] = e
	return b
}

func (b *Builder) Network(name string, e Existence) *Builder {
	b.s.networks[name] = e
	return b
}

func (b *Builder) Image(ref string, e Existence) *Builder {
	b.s.images[ref] = e
	return b
}

// Build returns a copy of the accumulated state; the builder stays usable
func (b *Builder) Build() *StackState {
	return &StackState{
		containers: clone(b.s.containers),
		volumes:    clone(b.s.volumes),
		networks:   clone(b.s.networks),
		images:     clone(b.s.images),
	}
}

func clone(m map[string]Existence) map[string]Existence {
	out := make(map[string]Existence, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
