// Package memory is a map-backed storage.Store used in tests and for
// throwaway local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"eventease/internal/model"
	"eventease/internal/storage"
)

type invitationKey struct {
	eventID string
	email   string
}

// Store keeps every record in process memory.
type Store struct {
	mu          sync.RWMutex
	providers   map[string]model.Provider
	events      map[string]model.Event
	invitations map[string]model.Invitation
	byGuest     map[invitationKey]string
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		providers:   make(map[string]model.Provider),
		events:      make(map[string]model.Event),
		invitations: make(map[string]model.Invitation),
		byGuest:     make(map[invitationKey]string),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) FindProviderByRef(_ context.Context, ref string) (model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[ref]
	if !ok {
		return model.Provider{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProviders(_ context.Context, role model.ProviderRole) ([]model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Provider, 0)
	for _, p := range s.providers {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Ref < out[j].Ref
	})
	return out, nil
}

// PutProvider inserts or replaces a provider. Committed events keep their
// snapshots.
func (s *Store) PutProvider(_ context.Context, p model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.Ref] = p
	return nil
}

func (s *Store) CreateEvent(_ context.Context, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; ok {
		return storage.ErrDuplicate
	}
	s.events[ev.ID] = ev
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, storage.ErrNotFound
	}
	return ev, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.events, id)
	for invID, inv := range s.invitations {
		if inv.EventID == id {
			delete(s.invitations, invID)
			delete(s.byGuest, invitationKey{eventID: id, email: model.NormalizeEmail(inv.GuestEmail)})
		}
	}
	return nil
}

func (s *Store) ListEventsByOrganizer(_ context.Context, ref string) ([]model.Event, error) {
	return s.filterEvents(func(ev model.Event) bool { return ev.OrganizerRef == ref }), nil
}

func (s *Store) ListEventsByVendor(_ context.Context, ref string) ([]model.Event, error) {
	return s.filterEvents(func(ev model.Event) bool { return ev.VendorRef == ref }), nil
}

func (s *Store) ListEventsByVenue(_ context.Context, ref string) ([]model.Event, error) {
	return s.filterEvents(func(ev model.Event) bool { return ev.VenueRef == ref }), nil
}

func (s *Store) filterEvents(keep func(model.Event) bool) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) CreateInvitation(_ context.Context, inv model.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := invitationKey{eventID: inv.EventID, email: model.NormalizeEmail(inv.GuestEmail)}
	if _, ok := s.byGuest[key]; ok {
		return storage.ErrDuplicate
	}
	if _, ok := s.invitations[inv.ID]; ok {
		return storage.ErrDuplicate
	}
	s.invitations[inv.ID] = inv
	s.byGuest[key] = inv.ID
	return nil
}

func (s *Store) GetInvitation(_ context.Context, id string) (model.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	if !ok {
		return model.Invitation{}, storage.ErrNotFound
	}
	return inv, nil
}

func (s *Store) DeleteInvitation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.invitations, id)
	delete(s.byGuest, invitationKey{eventID: inv.EventID, email: model.NormalizeEmail(inv.GuestEmail)})
	return nil
}

func (s *Store) ListInvitationsByEvent(_ context.Context, eventID string) ([]model.Invitation, error) {
	return s.filterInvitations(func(inv model.Invitation) bool { return inv.EventID == eventID }), nil
}

func (s *Store) ListPendingByEvent(_ context.Context, eventID string) ([]model.Invitation, error) {
	return s.filterInvitations(func(inv model.Invitation) bool { return inv.EventID == eventID && !inv.Sent }), nil
}

func (s *Store) filterInvitations(keep func(model.Invitation) bool) []model.Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Invitation, 0)
	for _, inv := range s.invitations {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return storage.ErrNotFound
	}
	inv.Sent = true
	s.invitations[id] = inv
	return nil
}
