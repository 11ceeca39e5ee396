package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReminder(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	want := time.Date(2025, 6, 1, 18, 0, 0, 0, loc)

	for _, in := range []string{
		"2025-06-01T18:00",
		"2025-06-01T18:00:00",
		"2025-06-01 18:00",
		" 2025-06-01 18:00:00 ",
		"2025-06-01T18:00:00-04:00",
	} {
		got, err := ParseReminder(in, loc)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}
}

func TestParseReminder_Malformed(t *testing.T) {
	for _, in := range []string{"", "2025-06-01", "18:00", "June 1st", "2025-13-01T18:00"} {
		_, err := ParseReminder(in, time.UTC)
		assert.ErrorIs(t, err, ErrMalformedTimestamp, in)
	}
}

func TestNormalizeRecurrence(t *testing.T) {
	got, err := NormalizeRecurrence("RRULE:FREQ=DAILY;COUNT=2")
	require.NoError(t, err)
	assert.Equal(t, "FREQ=DAILY;COUNT=2", got)

	got, err = NormalizeRecurrence("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizeRecurrence("FREQ=HOURLYISH")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
}
