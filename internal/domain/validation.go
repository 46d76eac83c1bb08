package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidMedication is matched (via errors.Is) by every ValidationError.
var ErrInvalidMedication = errors.New("invalid medication")

// FieldError describes one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned when a medication is rejected before any
// store write is attempted.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "invalid medication: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidMedication) true.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidMedication }

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// ParseClock parses an "HH:MM" 24-hour time of day and returns hours and
// minutes.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// FormatClock renders hours and minutes as "HH:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// Normalize cleans user input in place: trims and NFC-normalizes text,
// canonicalizes time slots, fills the canonical slots when none were given
// and clears them for as-needed medications. It never rejects input;
// Validate does that.
func (m *Medication) Normalize() {
	m.Name = cleanText(m.Name)
	m.Dosage = cleanText(m.Dosage)
	m.Notes = strings.TrimSpace(m.Notes)

	switch {
	case m.Frequency == FrequencyAsNeeded:
		m.Times = []string{}
	case m.Frequency.Valid() && len(m.Times) == 0:
		m.Times = m.Frequency.Slots()
	default:
		m.Times = canonicalTimes(m.Times)
	}
	if m.CurrentSupply < 0 {
		m.CurrentSupply = 0
	}
	if m.TotalSupply < 0 {
		m.TotalSupply = 0
	}
	if m.RefillAt < 0 {
		m.RefillAt = 0
	}
}

// Validate checks the required fields and the times/frequency invariant.
// It returns a *ValidationError listing every problem, or nil.
func (m *Medication) Validate() error {
	ve := &ValidationError{}
	if m.Name == "" {
		ve.add("name", "required")
	}
	if m.Dosage == "" {
		ve.add("dosage", "required")
	}
	switch {
	case m.Frequency == "":
		ve.add("frequency", "required")
	case !m.Frequency.Valid():
		ve.add("frequency", fmt.Sprintf("unsupported value %q", string(m.Frequency)))
	}
	switch {
	case !m.Duration.Set():
		ve.add("duration", "required")
	case !m.Duration.Valid():
		ve.add("duration", fmt.Sprintf("unsupported value %d", int(m.Duration)))
	}
	for _, t := range m.Times {
		if _, _, err := ParseClock(t); err != nil {
			ve.add("times", err.Error())
		}
	}
	if m.Frequency.Scheduled() && len(m.Times) != m.Frequency.SlotCount() {
		ve.add("times", fmt.Sprintf("%s needs %d time(s), got %d", m.Frequency, m.Frequency.SlotCount(), len(m.Times)))
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// cleanText trims, NFC-normalizes and collapses inner whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// canonicalTimes rewrites parseable slots as zero-padded "HH:MM" and sorts
// them ascending. Unparseable entries are kept so Validate can report them.
func canonicalTimes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if h, m, err := ParseClock(t); err == nil {
			out = append(out, FormatClock(h, m))
			continue
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
