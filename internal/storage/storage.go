// Package storage defines the persistence boundary for providers, events and
// invitations. Implementations live in the memory, sqlite and postgres
// subpackages and must all honor the same contract, exercised by
// storagetest.
package storage

import (
	"context"
	"errors"

	"eventease/internal/model"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates a write conflicted with a uniqueness constraint:
	// an event id that already exists or a second invitation for the same
	// (event, guest email) pair.
	ErrDuplicate = errors.New("record already exists")
)

// ProviderStore is the read side of the provider directory, plus the write
// used by registration/bootstrap tooling.
type ProviderStore interface {
	FindProviderByRef(ctx context.Context, ref string) (model.Provider, error)
	ListProviders(ctx context.Context, role model.ProviderRole) ([]model.Provider, error)
	PutProvider(ctx context.Context, p model.Provider) error
}

// EventStore owns event identity and lifetime. Listings are ordered by
// creation time, then id.
type EventStore interface {
	CreateEvent(ctx context.Context, ev model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	// DeleteEvent removes the event and all of its invitations.
	DeleteEvent(ctx context.Context, id string) error
	ListEventsByOrganizer(ctx context.Context, organizerRef string) ([]model.Event, error)
	ListEventsByVendor(ctx context.Context, vendorRef string) ([]model.Event, error)
	ListEventsByVenue(ctx context.Context, venueRef string) ([]model.Event, error)
}

// InvitationStore persists guest invitations. Listings are ordered by
// creation time, then id.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv model.Invitation) error
	GetInvitation(ctx context.Context, id string) (model.Invitation, error)
	DeleteInvitation(ctx context.Context, id string) error
	ListInvitationsByEvent(ctx context.Context, eventID string) ([]model.Invitation, error)
	ListPendingByEvent(ctx context.Context, eventID string) ([]model.Invitation, error)
	// MarkSent flips one invitation's sent flag. It touches no other field.
	MarkSent(ctx context.Context, id string) error
}

// Store bundles every store the application needs.
type Store interface {
	ProviderStore
	EventStore
	InvitationStore
	Close() error
}
