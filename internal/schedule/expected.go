// Package schedule derives the expected dose times of medications for a
// calendar date and classifies them against the dose history.
//
// Everything here is pure: no I/O, no clock reads. Callers pass the target
// date (whose Location decides what "that day" means) and, for status
// resolution, the current instant.
package schedule

import (
	"time"

	"github.com/tbourn/medremind-core/internal/domain"
)

// ExpectedDose is one scheduled slot of a medication on a given date.
type ExpectedDose struct {
	MedicationID string    `json:"medicationId"`
	Time         string    `json:"time"`
	At           time.Time `json:"at"`
}

// ExpectedDoses returns the slots m is scheduled for on date's calendar day,
// in ascending time order. The result is empty before the start date, after
// a finite course has ended, and for as-needed medications.
//
// The active window is inclusive on both ends: a 7-day course started on
// the 1st still yields doses on the 8th.
func ExpectedDoses(m domain.Medication, date time.Time) []ExpectedDose {
	out := []ExpectedDose{}
	if !Active(m, date) || !m.Frequency.Scheduled() {
		return out
	}

	loc := date.Location()
	y, mo, d := date.Date()
	for _, t := range m.Times {
		h, mi, err := domain.ParseClock(t)
		if err != nil {
			continue
		}
		out = append(out, ExpectedDose{
			MedicationID: m.ID,
			Time:         t,
			At:           time.Date(y, mo, d, h, mi, 0, 0, loc),
		})
	}
	return out
}

// DaySchedule concatenates ExpectedDoses for meds in the given order.
func DaySchedule(meds []domain.Medication, date time.Time) []ExpectedDose {
	out := []ExpectedDose{}
	for _, m := range meds {
		out = append(out, ExpectedDoses(m, date)...)
	}
	return out
}

// Active reports whether date falls inside m's course:
// startDate <= date <= startDate+duration, compared as calendar days in
// date's location. Ongoing courses never end.
func Active(m domain.Medication, date time.Time) bool {
	day := civilDay(date, date.Location())
	start := civilDay(m.StartDate, date.Location())
	if day.Before(start) {
		return false
	}
	if m.Duration.Ongoing() {
		return true
	}
	end := start.AddDate(0, 0, m.Duration.Days())
	return !day.After(end)
}

// EndDate returns the last active calendar day of a finite course, or nil
// for ongoing ones.
func EndDate(m domain.Medication, loc *time.Location) *time.Time {
	if m.Duration.Ongoing() || !m.Duration.Set() {
		return nil
	}
	y, mo, d := m.StartDate.In(loc).Date()
	end := time.Date(y, mo, d, 0, 0, 0, 0, loc).AddDate(0, 0, m.Duration.Days())
	return &end
}

// SameDay reports whether ts falls on day's calendar date in day's location.
func SameDay(ts, day time.Time) bool {
	y1, m1, d1 := ts.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// civilDay maps t to midnight UTC of its calendar date in loc, so day
// arithmetic is immune to DST shifts.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
