package types

import (
	"errors"

	"github.com/rs/zerolog"
)

// ErrSecretNotSerializable is returned by every marshaling method of Secret
var ErrSecretNotSerializable = errors.New("secret values cannot be serialized")

// Secret is a redacted value such as a password or an API key.
//
// It renders as "<Secret: label>" everywhere and refuses to be serialized.
// The raw value is only reachable through Reveal, which runtime adapters call
// right before handing the environment to the container engine.
type Secret struct {
	_     [0]func() // not comparable
	label string
	value string
}

// NewSecret creates a secret with a display label
func NewSecret(label, value string) *Secret {
	return &Secret{label: label, value: value}
}

// Label returns the display label
func (s *Secret) Label() string {
	return s.label
}

// Reveal returns the raw value
func (s *Secret) Reveal() string {
	return s.value
}

func (s *Secret) String() string {
	return "<Secret: " + s.label + ">"
}

// GoString keeps %#v from printing the raw value
func (s *Secret) GoString() string {
	return s.String()
}

func (s *Secret) MarshalJSON() ([]byte, error) {
	return nil, ErrSecretNotSerializable
}

func (s *Secret) MarshalText() ([]byte, error) {
	return nil, ErrSecretNotSerializable
}

func (s *Secret) MarshalYAML() (interface{}, error) {
	return nil, ErrSecretNotSerializable
}

// MarshalZerologObject logs the label only
func (s *Secret) MarshalZerologObject(e *zerolog.Event) {
	e.Str("secret", s.label)
}
