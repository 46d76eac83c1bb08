package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Duration is the length of a medication course in days. DurationOngoing
// means the course has no end date; the zero value means "not set".
type Duration int

// DurationOngoing marks a course without an end date.
const DurationOngoing Duration = -1

// Durations lists the course lengths offered by the app.
func Durations() []Duration {
	return []Duration{7, 14, 30, 90, DurationOngoing}
}

// Set reports whether a duration was chosen.
func (d Duration) Set() bool { return d != 0 }

// Ongoing reports whether the course has no end date.
func (d Duration) Ongoing() bool { return d == DurationOngoing }

// Days returns the finite day count, or 0 for ongoing/unset durations.
func (d Duration) Days() int {
	if d > 0 {
		return int(d)
	}
	return 0
}

// Valid reports whether d is one of Durations().
func (d Duration) Valid() bool {
	for _, v := range Durations() {
		if d == v {
			return true
		}
	}
	return false
}

// String renders the app label, e.g. "7 days" or "Ongoing".
func (d Duration) String() string {
	switch {
	case d.Ongoing():
		return "Ongoing"
	case d == 1:
		return "1 day"
	case d > 0:
		return fmt.Sprintf("%d days", int(d))
	default:
		return ""
	}
}

// ParseDuration accepts a label ("30 days", "Ongoing") or an integer day
// count where -1 means ongoing.
func ParseDuration(s string) (Duration, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "":
		return 0, nil
	case "ongoing", "-1":
		return DurationOngoing, nil
	}
	t = strings.TrimSuffix(strings.TrimSuffix(t, "days"), "day")
	n, err := strconv.Atoi(strings.TrimSpace(t))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if n < 0 {
		return DurationOngoing, nil
	}
	return Duration(n), nil
}

// MarshalJSON writes the label form so stored records read like the app's.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either a label string or a JSON number.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if n < 0 {
			n = int(DurationOngoing)
		}
		*d = Duration(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
