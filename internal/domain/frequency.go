package domain

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
)

// Frequency is how often a medication is taken. The stored value is the
// display label used by the app ("Twice daily").
type Frequency string

const (
	FrequencyOnceDaily       Frequency = "Once daily"
	FrequencyTwiceDaily      Frequency = "Twice daily"
	FrequencyThreeTimesDaily Frequency = "Three times daily"
	FrequencyFourTimesDaily  Frequency = "Four times daily"
	FrequencyAsNeeded        Frequency = "As needed"
)

// canonicalSlots maps each frequency to its default time-of-day slots.
var canonicalSlots = map[Frequency][]string{
	FrequencyOnceDaily:       {"09:00"},
	FrequencyTwiceDaily:      {"09:00", "21:00"},
	FrequencyThreeTimesDaily: {"09:00", "15:00", "21:00"},
	FrequencyFourTimesDaily:  {"09:00", "13:00", "17:00", "21:00"},
	FrequencyAsNeeded:        {},
}

// Frequencies lists the supported values in display order.
func Frequencies() []Frequency {
	return []Frequency{
		FrequencyOnceDaily,
		FrequencyTwiceDaily,
		FrequencyThreeTimesDaily,
		FrequencyFourTimesDaily,
		FrequencyAsNeeded,
	}
}

// ParseFrequency resolves a label ("Twice daily") or slug ("twice-daily",
// "twice_daily") case-insensitively. The boolean is false for unknown input.
func ParseFrequency(s string) (Frequency, bool) {
	key := normalizeFrequencyKey(s)
	if key == "" {
		return "", false
	}
	for _, f := range Frequencies() {
		if normalizeFrequencyKey(string(f)) == key {
			return f, true
		}
	}
	return "", false
}

func normalizeFrequencyKey(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	_, ok := canonicalSlots[f]
	return ok
}

// Slots returns a copy of the canonical slots for f, or nil if f is invalid.
func (f Frequency) Slots() []string {
	s, ok := canonicalSlots[f]
	if !ok {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// SlotCount is the number of scheduled doses per day implied by f.
func (f Frequency) SlotCount() int { return len(canonicalSlots[f]) }

// Scheduled is false only for FrequencyAsNeeded.
func (f Frequency) Scheduled() bool { return f.Valid() && f != FrequencyAsNeeded }

// UnmarshalJSON accepts any spelling ParseFrequency understands. Unknown
// values are kept verbatim so validation can report them.
func (f *Frequency) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, ok := ParseFrequency(s); ok {
		*f = parsed
		return nil
	}
	*f = Frequency(s)
	return nil
}
