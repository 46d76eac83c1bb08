// Package utils provides small helpers for parsing query parameters. They
// know nothing about medications or doses.
package utils

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidWindow is returned by ParseWindow for malformed or out-of-range input.
var ErrInvalidWindow = errors.New("window must be a duration such as 30m or 2h")

// AtoiDefault parses s as a decimal int, ignoring surrounding whitespace.
// Empty or malformed input yields def.
//
//	utils.AtoiDefault(" 42 ", 0) // 42
//	utils.AtoiDefault("x", 5)    // 5
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseWindow parses a Go duration string bounded to [0, max]. An empty
// string yields def. A max of zero or less disables the upper bound.
func ParseWindow(s string, def, max time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 || (max > 0 && d > max) {
		return 0, ErrInvalidWindow
	}
	return d, nil
}
