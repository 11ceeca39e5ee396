// Package invite manages the guest list of an event.
package invite

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"eventease/internal/events"
	"eventease/internal/ids"
	appLog "eventease/internal/log"
	"eventease/internal/model"
	"eventease/internal/storage"
)

// Service adds, lists and removes guests. Every operation requires the
// caller to organize the event.
type Service struct {
	events *events.Service
	store  storage.InvitationStore
	clock  func() time.Time
	newID  func() (string, error)
}

// NewService wires a Service; nil clock and newID fall back to time.Now
// and UUIDv7.
func NewService(ev *events.Service, store storage.InvitationStore, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = ids.New
	}
	return &Service{events: ev, store: store, clock: clock, newID: newID}
}

// GuestInput is one guest to invite.
type GuestInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Add creates a pending invitation. A guest already invited to the event
// (case-insensitive email) yields the existing invitation and created=false.
func (s *Service) Add(ctx context.Context, userRef, eventID string, in GuestInput) (model.Invitation, bool, error) {
	ev, err := s.events.Owned(ctx, userRef, eventID)
	if err != nil {
		return model.Invitation{}, false, err
	}
	name, email, err := normalizeGuest(in)
	if err != nil {
		return model.Invitation{}, false, err
	}

	id, err := s.newID()
	if err != nil {
		return model.Invitation{}, false, fmt.Errorf("invitation id: %w", err)
	}
	inv := model.Invitation{
		ID:         id,
		EventID:    ev.ID,
		GuestName:  name,
		GuestEmail: email,
		RSVPStatus: model.RSVPPending,
		CreatedAt:  s.clock().UTC().Truncate(time.Millisecond),
	}
	err = s.store.CreateInvitation(ctx, inv)
	if err == nil {
		appLog.Info("guest invited", "event_id", ev.ID, "invitation_id", inv.ID, "guest", inv.GuestEmail)
		return inv, true, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return model.Invitation{}, false, fmt.Errorf("create invitation: %w", err)
	}

	existing, ferr := s.findByEmail(ctx, ev.ID, email)
	if ferr != nil {
		return model.Invitation{}, false, ferr
	}
	return existing, false, nil
}

// List returns the event's invitations, oldest first.
func (s *Service) List(ctx context.Context, userRef, eventID string) ([]model.Invitation, error) {
	if _, err := s.events.Owned(ctx, userRef, eventID); err != nil {
		return nil, err
	}
	return s.store.ListInvitationsByEvent(ctx, eventID)
}

// Get returns one invitation together with its event.
func (s *Service) Get(ctx context.Context, userRef, eventID, invitationID string) (model.Event, model.Invitation, error) {
	ev, err := s.events.Owned(ctx, userRef, eventID)
	if err != nil {
		return model.Event{}, model.Invitation{}, err
	}
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return model.Event{}, model.Invitation{}, err
	}
	if inv.EventID != ev.ID {
		return model.Event{}, model.Invitation{}, storage.ErrNotFound
	}
	return ev, inv, nil
}

// Remove deletes one invitation of the event.
func (s *Service) Remove(ctx context.Context, userRef, eventID, invitationID string) error {
	if _, _, err := s.Get(ctx, userRef, eventID, invitationID); err != nil {
		return err
	}
	if err := s.store.DeleteInvitation(ctx, invitationID); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	appLog.Info("guest removed", "event_id", eventID, "invitation_id", invitationID)
	return nil
}

func (s *Service) findByEmail(ctx context.Context, eventID, email string) (model.Invitation, error) {
	all, err := s.store.ListInvitationsByEvent(ctx, eventID)
	if err != nil {
		return model.Invitation{}, err
	}
	key := model.NormalizeEmail(email)
	for _, inv := range all {
		if model.NormalizeEmail(inv.GuestEmail) == key {
			return inv, nil
		}
	}
	return model.Invitation{}, fmt.Errorf("duplicate invitation for %s not listed: %w", email, storage.ErrNotFound)
}

// normalizeGuest validates the address and defaults the name. Input such
// as "Gabe <gabe@example.com>" supplies both.
func normalizeGuest(in GuestInput) (string, string, error) {
	raw := strings.TrimSpace(in.Email)
	if raw == "" {
		return "", "", model.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", "", model.InvalidCause("email", "is not a valid address", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSpace(addr.Name)
	}
	if name == "" {
		name, _, _ = strings.Cut(addr.Address, "@")
	}
	return name, addr.Address, nil
}
