package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandOccurrences_SingleEvent(t *testing.T) {
	g := NewGenerator(time.UTC, 0)
	pe, err := g.FromEvent(sampleEvent())
	require.NoError(t, err)

	res, err := ExpandOccurrences([]ParsedEvent{pe}, ExpandConfig{
		RangeStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)

	occ := res.Occurrences[0]
	assert.Equal(t, "0190a1b2-0000-7000-8000-000000000001", occ.EventID)
	assert.Equal(t, "12 Main Street", occ.Location)
	assert.Equal(t, "2025-06-01T18:00:00Z", occ.InstanceKey)
	assert.Equal(t, 2*time.Hour, occ.End.Sub(occ.Start))

	res, err = ExpandOccurrences([]ParsedEvent{pe}, ExpandConfig{
		RangeStart: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Occurrences)
}

func TestExpandOccurrences_Recurring(t *testing.T) {
	ev := sampleEvent()
	ev.Recurrence = "FREQ=WEEKLY;COUNT=4"
	pe, err := NewGenerator(time.UTC, 0).FromEvent(ev)
	require.NoError(t, err)

	res, err := ExpandOccurrences([]ParsedEvent{pe}, ExpandConfig{
		RangeStart: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)
	assert.Equal(t, "2025-06-08T18:00:00Z", res.Occurrences[0].InstanceKey)
	assert.Equal(t, "2025-06-22T18:00:00Z", res.Occurrences[2].InstanceKey)
}

func TestExpandOccurrences_CapAndOrdering(t *testing.T) {
	daily := sampleEvent()
	daily.ID = "b"
	daily.Recurrence = "FREQ=DAILY"
	single := sampleEvent()
	single.ID = "a"
	single.ReminderAt = "2025-06-01T09:00"

	g := NewGenerator(time.UTC, 0)
	p1, err := g.FromEvent(daily)
	require.NoError(t, err)
	p2, err := g.FromEvent(single)
	require.NoError(t, err)

	res, err := ExpandOccurrences([]ParsedEvent{p1, p2}, ExpandConfig{
		RangeStart:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 5,
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 6)
	assert.Equal(t, "a", res.Occurrences[0].EventID)
	assert.Equal(t, []string{UID("b")}, res.TruncatedEvents)
}

func TestExpandOccurrences_BadRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{
		RangeStart: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}
