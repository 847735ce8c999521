// Package duration parses the unit-suffixed duration strings used in stack
// definitions ("10s", "500ms", "2m").
//
// Only a non-negative integer followed by exactly one unit is accepted. Decimal
// values and compound forms such as "1h30m" are rejected so that a duration
// always maps to a bounded integer number of nanoseconds.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidFormat is returned when the value is not <integer><unit>.
	ErrInvalidFormat = errors.New("invalid duration format")

	// ErrUnknownUnit is returned when the unit suffix is not supported.
	ErrUnknownUnit = errors.New("unknown duration unit")

	// ErrOutOfRange is returned when the value does not fit in a time.Duration.
	ErrOutOfRange = errors.New("duration out of range")
)

var pattern = regexp.MustCompile(`^(\d+)([a-zA-Zµ]+)$`)

var units = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
}

// ParseError describes a duration string that could not be parsed.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: '%s'", e.Err, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse converts a duration string into a time.Duration.
func Parse(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	match := pattern.FindStringSubmatch(trimmed)
	if match == nil {
		return 0, &ParseError{Value: value, Err: ErrInvalidFormat}
	}

	unit, ok := units[match[2]]
	if !ok {
		return 0, &ParseError{Value: value, Err: fmt.Errorf("%w %q", ErrUnknownUnit, match[2])}
	}

	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, &ParseError{Value: value, Err: ErrOutOfRange}
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, &ParseError{Value: value, Err: ErrOutOfRange}
	}

	return time.Duration(n) * unit, nil
}

// ParseOptional is Parse, except that an empty value means "inherit" and yields zero.
func ParseOptional(value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return Parse(value)
}

// Nanoseconds parses value and returns its length in nanoseconds, zero when empty.
func Nanoseconds(value string) (int64, error) {
	d, err := ParseOptional(value)
	if err != nil {
		return 0, err
	}
	return d.Nanoseconds(), nil
}

var formatUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
	{"us", time.Microsecond},
}

// Format renders d in the single-unit form Parse accepts, using the largest
// unit that divides it exactly. Negative values format as "0s".
func Format(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	for _, u := range formatUnits {
		if d%u.unit == 0 {
			return strconv.FormatInt(int64(d/u.unit), 10) + u.suffix
		}
	}
	return strconv.FormatInt(int64(d), 10) + "ns"
}
