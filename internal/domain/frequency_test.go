package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseFrequency(t *testing.T) {
	tests := map[string]Frequency{
		"Twice daily":       FrequencyTwiceDaily,
		"twice-daily":       FrequencyTwiceDaily,
		"THREE_TIMES_DAILY": FrequencyThreeTimesDaily,
		"  once   daily ":   FrequencyOnceDaily,
		"four-times-daily":  FrequencyFourTimesDaily,
		"as-needed":         FrequencyAsNeeded,
	}
	for in, want := range tests {
		got, ok := ParseFrequency(in)
		if !ok || got != want {
			t.Fatalf("ParseFrequency(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseFrequency("hourly"); ok {
		t.Fatalf("hourly should not parse")
	}
	if _, ok := ParseFrequency(""); ok {
		t.Fatalf("empty should not parse")
	}
}

func TestFrequency_Slots(t *testing.T) {
	want := map[Frequency][]string{
		FrequencyOnceDaily:       {"09:00"},
		FrequencyTwiceDaily:      {"09:00", "21:00"},
		FrequencyThreeTimesDaily: {"09:00", "15:00", "21:00"},
		FrequencyFourTimesDaily:  {"09:00", "13:00", "17:00", "21:00"},
		FrequencyAsNeeded:        {},
	}
	for f, slots := range want {
		if !reflect.DeepEqual(f.Slots(), slots) {
			t.Fatalf("%s slots = %v", f, f.Slots())
		}
		if f.SlotCount() != len(slots) {
			t.Fatalf("%s slot count", f)
		}
	}
	// Slots returns a copy.
	s := FrequencyOnceDaily.Slots()
	s[0] = "00:00"
	if FrequencyOnceDaily.Slots()[0] != "09:00" {
		t.Fatalf("Slots must not expose the canonical table")
	}
	if Frequency("x").Slots() != nil || Frequency("x").Valid() {
		t.Fatalf("unknown frequency should be invalid")
	}
	if FrequencyAsNeeded.Scheduled() || !FrequencyOnceDaily.Scheduled() {
		t.Fatalf("Scheduled()")
	}
}

func TestFrequency_UnmarshalKeepsUnknown(t *testing.T) {
	var f Frequency
	if err := json.Unmarshal([]byte(`"hourly"`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f != "hourly" {
		t.Fatalf("unknown values are kept verbatim, got %q", f)
	}
}

func TestDuration_ParseAndLabels(t *testing.T) {
	tests := map[string]Duration{
		"7 days":  7,
		"14":      14,
		"Ongoing": DurationOngoing,
		"-1":      DurationOngoing,
		"90 Days": 90,
		"":        0,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Fatalf("ParseDuration(%q) = %d,%v want %d", in, got, err, want)
		}
	}
	if _, err := ParseDuration("forever"); err == nil {
		t.Fatalf("expected error")
	}
	if Duration(30).String() != "30 days" || DurationOngoing.String() != "Ongoing" || Duration(0).String() != "" {
		t.Fatalf("String()")
	}
	if Duration(7).Days() != 7 || DurationOngoing.Days() != 0 {
		t.Fatalf("Days()")
	}
}

func TestDuration_UnmarshalNumberOrLabel(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`30`), &d); err != nil || d != 30 {
		t.Fatalf("number: %d %v", d, err)
	}
	if err := json.Unmarshal([]byte(`-5`), &d); err != nil || d != DurationOngoing {
		t.Fatalf("negative number: %d %v", d, err)
	}
	if err := json.Unmarshal([]byte(`"Ongoing"`), &d); err != nil || d != DurationOngoing {
		t.Fatalf("label: %d %v", d, err)
	}
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatalf("expected error for bad label")
	}
}
