package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/ics"
	"eventease/internal/model"
	"eventease/internal/storage"
	"eventease/internal/storage/memory"
	"eventease/internal/storage/storagetest"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store, ics.NewGenerator(time.UTC, 0)), store
}

func seed(t *testing.T, store *memory.Store, id, organizer string, offset time.Duration) model.Event {
	t.Helper()
	ev := storagetest.SampleEvent(id, organizer, offset)
	require.NoError(t, store.CreateEvent(context.Background(), ev))
	return ev
}

func TestGet_VisibleToOrganizerAndProviders(t *testing.T) {
	svc, store := newService(t)
	ev := seed(t, store, "e1", "olivia@example.com", 0)
	ctx := context.Background()

	for _, who := range []string{ev.OrganizerRef, ev.VendorRef, ev.VenueRef} {
		got, err := svc.Get(ctx, who, "e1")
		require.NoError(t, err, who)
		assert.Equal(t, "e1", got.ID)
	}

	_, err := svc.Get(ctx, "stranger@example.com", "e1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, "", "e1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, ev.OrganizerRef, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_OrganizerOnly(t *testing.T) {
	svc, store := newService(t)
	ev := seed(t, store, "e1", "olivia@example.com", 0)
	ctx := context.Background()
	require.NoError(t, store.CreateInvitation(ctx, storagetest.SampleInvitation("i1", "e1", "gabe@example.com", 0)))

	assert.ErrorIs(t, svc.Delete(ctx, ev.VendorRef, "e1"), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, ev.VenueRef, "e1"), ErrForbidden)

	require.NoError(t, svc.Delete(ctx, ev.OrganizerRef, "e1"))
	_, err := store.GetEvent(ctx, "e1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetInvitation(ctx, "i1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, ev.OrganizerRef, "e1"), storage.ErrNotFound)
}

func TestList_ByPerspective(t *testing.T) {
	svc, store := newService(t)
	a := seed(t, store, "e1", "olivia@example.com", 0)
	seed(t, store, "e2", "olivia@example.com", time.Minute)
	seed(t, store, "e3", "pat@example.com", 2*time.Minute)
	ctx := context.Background()

	mine, err := svc.List(ctx, "olivia@example.com", AsOrganizer)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "e1", mine[0].ID)

	booked, err := svc.List(ctx, a.VendorRef, AsVendor)
	require.NoError(t, err)
	assert.Len(t, booked, 3)

	venue, err := svc.List(ctx, a.VenueRef, AsVenue)
	require.NoError(t, err)
	assert.Len(t, venue, 3)

	_, err = svc.List(ctx, "olivia@example.com", Perspective("guest"))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestParsePerspective(t *testing.T) {
	p, err := ParsePerspective("")
	require.NoError(t, err)
	assert.Equal(t, AsOrganizer, p)

	p, err = ParsePerspective(" Venue ")
	require.NoError(t, err)
	assert.Equal(t, AsVenue, p)

	_, err = ParsePerspective("admin")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAgenda(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	weekly := storagetest.SampleEvent("e1", "olivia@example.com", 0)
	weekly.ReminderAt = "2025-06-01T18:00"
	weekly.Recurrence = "FREQ=WEEKLY;COUNT=3"
	require.NoError(t, store.CreateEvent(ctx, weekly))

	broken := storagetest.SampleEvent("e2", "olivia@example.com", time.Minute)
	broken.ReminderAt = "soon"
	require.NoError(t, store.CreateEvent(ctx, broken))

	res, err := svc.Agenda(ctx, "olivia@example.com",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)
	for _, occ := range res.Occurrences {
		assert.Equal(t, "e1", occ.EventID)
	}
}
