package utils

import (
	"errors"
	"strings"
	"time"
)

// DayLayout is the wire format of calendar dates.
const DayLayout = "2006-01-02"

// ErrInvalidDay is returned by ParseDay for malformed input.
var ErrInvalidDay = errors.New("date must be YYYY-MM-DD")

// ParseDay parses a YYYY-MM-DD date as midnight in loc. An empty string
// yields def.
//
// Example:
//
//	d, _ := utils.ParseDay("2025-03-10", time.UTC, time.Time{})
func ParseDay(s string, loc *time.Location, def time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return d, nil
}

// StartOfDay returns midnight of t's calendar date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
