// Package events exposes committed events to their organizer and booked
// providers.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventease/internal/ics"
	appLog "eventease/internal/log"
	"eventease/internal/model"
	"eventease/internal/storage"
)

// ErrForbidden is returned when the caller may not see or change an event.
var ErrForbidden = errors.New("not permitted for this event")

// Perspective selects which relation to an event a listing uses.
type Perspective string

const (
	AsOrganizer Perspective = "organizer"
	AsVendor    Perspective = "vendor"
	AsVenue     Perspective = "venue"
)

// ParsePerspective maps a query value to a Perspective; empty means organizer.
func ParsePerspective(s string) (Perspective, error) {
	switch p := Perspective(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return AsOrganizer, nil
	case AsOrganizer, AsVendor, AsVenue:
		return p, nil
	default:
		return "", model.Invalid("as", "must be organizer, vendor or venue")
	}
}

// Service applies ownership rules on top of an EventStore.
type Service struct {
	store storage.EventStore
	gen   ics.Generator
}

// NewService returns a Service. gen supplies the time zone and duration
// used for agenda expansion.
func NewService(store storage.EventStore, gen ics.Generator) *Service {
	return &Service{store: store, gen: gen}
}

// Get returns an event the user organizes or is booked for.
func (s *Service) Get(ctx context.Context, userRef, id string) (model.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if !ev.VisibleTo(userRef) {
		return model.Event{}, ErrForbidden
	}
	return ev, nil
}

// Owned returns an event only when userRef is its organizer.
func (s *Service) Owned(ctx context.Context, userRef, id string) (model.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if userRef == "" || ev.OrganizerRef != userRef {
		return model.Event{}, ErrForbidden
	}
	return ev, nil
}

// Delete removes an event and its invitations. Only the organizer may.
func (s *Service) Delete(ctx context.Context, userRef, id string) error {
	if _, err := s.Owned(ctx, userRef, id); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	appLog.Info("event deleted", "event_id", id, "organizer", userRef)
	return nil
}

// List returns the user's events from the given perspective.
func (s *Service) List(ctx context.Context, userRef string, as Perspective) ([]model.Event, error) {
	if userRef == "" {
		return nil, model.Invalid("user", "is required")
	}
	switch as {
	case AsOrganizer, "":
		return s.store.ListEventsByOrganizer(ctx, userRef)
	case AsVendor:
		return s.store.ListEventsByVendor(ctx, userRef)
	case AsVenue:
		return s.store.ListEventsByVenue(ctx, userRef)
	default:
		return nil, model.Invalid("as", "must be organizer, vendor or venue")
	}
}

// Related returns every event the user organizes or is booked for, once.
func (s *Service) Related(ctx context.Context, userRef string) ([]model.Event, error) {
	seen := make(map[string]bool)
	var out []model.Event
	for _, as := range []Perspective{AsOrganizer, AsVendor, AsVenue} {
		evs, err := s.List(ctx, userRef, as)
		if err != nil {
			return nil, err
		}
		for _, ev := range evs {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
	}
	return out, nil
}

// Agenda expands the user's events into occurrences within [from, to].
// Events whose stored reminder no longer parses are skipped.
func (s *Service) Agenda(ctx context.Context, userRef string, from, to time.Time) (ics.ExpandResult, error) {
	evs, err := s.Related(ctx, userRef)
	if err != nil {
		return ics.ExpandResult{}, err
	}
	parsed := make([]ics.ParsedEvent, 0, len(evs))
	for _, ev := range evs {
		pe, err := s.gen.FromEvent(ev)
		if err != nil {
			appLog.Warn("agenda: skipping event", "event_id", ev.ID, "error", err.Error())
			continue
		}
		parsed = append(parsed, pe)
	}
	return ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: s.gen.Location,
		RangeStart:      from,
		RangeEnd:        to,
	})
}
