package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var (
	// ErrMalformedTimestamp means a reminder value is not an exact date+time.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrInvalidRecurrence means a recurrence value is not a valid RRULE.
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")
)

// reminderLayouts are tried in order; all but RFC 3339 are read in the
// configured location. The first one matches HTML datetime-local inputs.
var reminderLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseReminder parses a reminder date+time. Date-only values are rejected.
func ParseReminder(value string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	for _, layout := range reminderLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
}

// NormalizeRecurrence strips an optional "RRULE:" prefix and checks that
// the remainder parses.
func NormalizeRecurrence(value string) (string, error) {
	v := strings.TrimSpace(value)
	v = strings.TrimPrefix(v, "RRULE:")
	if v == "" {
		return "", nil
	}
	if _, err := rrule.StrToRRule(v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	return v, nil
}
