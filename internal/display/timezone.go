package display

import (
	"strconv"
	"strings"
	"time"
)

const tickTimeLayout = "2006-01-02 15:04:05"

// ParseTimezone resolves a loosely-formatted timezone label (UTC, GMT+8,
// GMT-4, GMT8) into a fixed-offset location. Any input that cannot be
// parsed falls back to UTC.
func ParseTimezone(label string) *time.Location {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	if normalized == "" || normalized == "UTC" {
		return time.UTC
	}

	if !strings.HasPrefix(normalized, "GMT") {
		return time.UTC
	}

	rest := strings.TrimPrefix(normalized, "GMT")
	if rest == "" {
		return time.UTC
	}

	sign := 1
	switch rest[0] {
	case '+':
		rest = rest[1:]
	case '-':
		sign = -1
		rest = rest[1:]
	}

	hours, err := strconv.Atoi(rest)
	if err != nil {
		return time.UTC
	}

	offset := sign * hours
	return time.FixedZone(normalized, offset*3600)
}

// Formatter renders timestamps in the configured display timezone.
type Formatter struct {
	label    string
	location *time.Location
}

// NewFormatter builds a formatter for the given timezone label.
func NewFormatter(label string) Formatter {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	if normalized == "" {
		normalized = "UTC"
	}
	return Formatter{label: normalized, location: ParseTimezone(label)}
}

// Format renders t as "2006-01-02 15:04:05" in the display timezone.
func (f Formatter) Format(t time.Time) string {
	return t.In(f.loc()).Format(tickTimeLayout)
}

// Label returns the normalized timezone label, e.g. for message suffixes.
func (f Formatter) Label() string {
	if f.label == "" {
		return "UTC"
	}
	return f.label
}

func (f Formatter) loc() *time.Location {
	if f.location == nil {
		return time.UTC
	}
	return f.location
}
