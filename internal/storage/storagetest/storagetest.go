// Package storagetest holds the behavioral contract every storage.Store
// implementation must satisfy.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/model"
	"eventease/internal/storage"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.Store

var base = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

// SampleEvent returns a fully populated event for id.
func SampleEvent(id, organizer string, offset time.Duration) model.Event {
	return model.Event{
		ID:             id,
		OrganizerRef:   organizer,
		OrganizerName:  "Org " + organizer,
		Title:          "Birthday " + id,
		Description:    "cake",
		EventType:      "birthday",
		ReminderAt:     "2025-06-01T18:00",
		VendorRef:      "vendor@example.com",
		VendorName:     "Cakes Ltd",
		VendorServices: "catering",
		VendorPhone:    "555-0100",
		VenueRef:       "venue@example.com",
		VenueName:      "Hall A",
		VenueAddress:   "1 Main St",
		VenueLat:       "38.7",
		VenueLng:       "-9.1",
		VenuePhone:     "555-0200",
		CreatedAt:      base.Add(offset),
	}
}

// SampleInvitation returns a pending invitation.
func SampleInvitation(id, eventID, email string, offset time.Duration) model.Invitation {
	return model.Invitation{
		ID:         id,
		EventID:    eventID,
		GuestName:  "Guest " + id,
		GuestEmail: email,
		RSVPStatus: model.RSVPPending,
		CreatedAt:  base.Add(offset),
	}
}

// Run executes the full contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("providers", func(t *testing.T) { testProviders(t, newStore(t)) })
	t.Run("events", func(t *testing.T) { testEvents(t, newStore(t)) })
	t.Run("invitations", func(t *testing.T) { testInvitations(t, newStore(t)) })
	t.Run("delete event cascades", func(t *testing.T) { testDeleteCascade(t, newStore(t)) })
}

func testProviders(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.FindProviderByRef(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	vendor := model.Provider{Ref: "vendor@example.com", Name: "Cakes Ltd", Role: model.RoleVendor, Services: "catering", Phone: "555-0100"}
	venue := model.Provider{Ref: "venue@example.com", Name: "Hall A", Role: model.RoleVenueOwner, Address: "1 Main St", Lat: "38.7", Lng: "-9.1"}
	require.NoError(t, s.PutProvider(ctx, vendor))
	require.NoError(t, s.PutProvider(ctx, venue))

	got, err := s.FindProviderByRef(ctx, "venue@example.com")
	require.NoError(t, err)
	assert.Equal(t, venue, got)

	vendors, err := s.ListProviders(ctx, model.RoleVendor)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, "vendor@example.com", vendors[0].Ref)

	all, err := s.ListProviders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	vendor.Phone = "555-9999"
	require.NoError(t, s.PutProvider(ctx, vendor))
	got, err = s.FindProviderByRef(ctx, vendor.Ref)
	require.NoError(t, err)
	assert.Equal(t, "555-9999", got.Phone)
}

func testEvents(t *testing.T, s storage.Store) {
	ctx := context.Background()

	first := SampleEvent("ev-1", "org@example.com", 0)
	second := SampleEvent("ev-2", "org@example.com", time.Minute)
	second.VendorRef = "other-vendor@example.com"
	other := SampleEvent("ev-3", "someone@example.com", 2*time.Minute)

	require.NoError(t, s.CreateEvent(ctx, second))
	require.NoError(t, s.CreateEvent(ctx, first))
	require.NoError(t, s.CreateEvent(ctx, other))
	require.ErrorIs(t, s.CreateEvent(ctx, first), storage.ErrDuplicate)

	got, err := s.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, first.VenueAddress, got.VenueAddress)
	assert.Equal(t, first.VendorServices, got.VendorServices)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	_, err = s.GetEvent(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	mine, err := s.ListEventsByOrganizer(ctx, "org@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "ev-1", mine[0].ID)
	assert.Equal(t, "ev-2", mine[1].ID)

	byVendor, err := s.ListEventsByVendor(ctx, "vendor@example.com")
	require.NoError(t, err)
	assert.Len(t, byVendor, 2)

	byVenue, err := s.ListEventsByVenue(ctx, "venue@example.com")
	require.NoError(t, err)
	assert.Len(t, byVenue, 3)

	none, err := s.ListEventsByOrganizer(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	require.NoError(t, s.DeleteEvent(ctx, "ev-3"))
	require.ErrorIs(t, s.DeleteEvent(ctx, "ev-3"), storage.ErrNotFound)
}

func testInvitations(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateEvent(ctx, SampleEvent("ev-1", "org@example.com", 0)))

	a := SampleInvitation("inv-a", "ev-1", "a@example.com", 0)
	b := SampleInvitation("inv-b", "ev-1", "b@example.com", time.Second)
	require.NoError(t, s.CreateInvitation(ctx, a))
	require.NoError(t, s.CreateInvitation(ctx, b))

	dup := SampleInvitation("inv-dup", "ev-1", "A@Example.com ", 2*time.Second)
	require.ErrorIs(t, s.CreateInvitation(ctx, dup), storage.ErrDuplicate)

	all, err := s.ListInvitationsByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "inv-a", all[0].ID)
	assert.Equal(t, model.RSVPPending, all[0].RSVPStatus)

	require.NoError(t, s.MarkSent(ctx, "inv-a"))
	require.ErrorIs(t, s.MarkSent(ctx, "missing"), storage.ErrNotFound)

	pending, err := s.ListPendingByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "inv-b", pending[0].ID)

	got, err := s.GetInvitation(ctx, "inv-a")
	require.NoError(t, err)
	assert.True(t, got.Sent)
	assert.Equal(t, a.GuestName, got.GuestName)

	require.NoError(t, s.DeleteInvitation(ctx, "inv-b"))
	require.ErrorIs(t, s.DeleteInvitation(ctx, "inv-b"), storage.ErrNotFound)
	_, err = s.GetInvitation(ctx, "inv-b")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// The guest may be re-invited once the earlier invitation is gone.
	require.NoError(t, s.CreateInvitation(ctx, SampleInvitation("inv-b2", "ev-1", "b@example.com", 3*time.Second)))
}

func testDeleteCascade(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateEvent(ctx, SampleEvent("ev-1", "org@example.com", 0)))
	require.NoError(t, s.CreateInvitation(ctx, SampleInvitation("inv-1", "ev-1", "a@example.com", 0)))

	require.NoError(t, s.DeleteEvent(ctx, "ev-1"))

	_, err := s.GetInvitation(ctx, "inv-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
	left, err := s.ListInvitationsByEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Empty(t, left)
}
