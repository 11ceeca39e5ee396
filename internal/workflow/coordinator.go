// Package workflow assembles one event out of several independent
// selection requests made under a session key.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventease/internal/ics"
	"eventease/internal/ids"
	appLog "eventease/internal/log"
	"eventease/internal/model"
	"eventease/internal/storage"
)

// ErrNotReady is returned by Commit when type, vendor or venue is missing.
var ErrNotReady = errors.New("selection is not ready to commit")

// ProviderLookup resolves provider references at commit time.
type ProviderLookup interface {
	FindProviderByRef(ctx context.Context, ref string) (model.Provider, error)
}

// EventWriter is the part of the event store the coordinator writes through.
type EventWriter interface {
	CreateEvent(ctx context.Context, ev model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
}

// CommitInput carries the organizer-entered event details.
type CommitInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ReminderAt  string `json:"reminder_at"`
	Recurrence  string `json:"recurrence"`
}

// Coordinator drives the selection flow. Operations for one session key
// are serialized; different keys never block each other.
type Coordinator struct {
	sessions  SessionStore
	providers ProviderLookup
	events    EventWriter
	loc       *time.Location
	clock     func() time.Time
	newID     func() (string, error)
	locks     keyedMutex
}

// NewCoordinator wires a Coordinator. loc is the zone reminder times are
// validated in; nil clock and newID fall back to time.Now and UUIDv7.
func NewCoordinator(sessions SessionStore, providers ProviderLookup, events EventWriter, loc *time.Location, clock func() time.Time, newID func() (string, error)) *Coordinator {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = ids.New
	}
	return &Coordinator{
		sessions:  sessions,
		providers: providers,
		events:    events,
		loc:       loc,
		clock:     clock,
		newID:     newID,
	}
}

// SelectEventType records the event type for session.
func (c *Coordinator) SelectEventType(ctx context.Context, session, eventType string) (model.Selection, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return model.Selection{}, model.Invalid("event_type", "is required")
	}
	return c.update(ctx, session, func(sel *model.Selection) bool {
		sel.EventType = eventType
		return true
	})
}

// SelectProvider records whichever of vendorRef and venueRef is non-empty.
// With both empty it returns the current state and writes nothing.
func (c *Coordinator) SelectProvider(ctx context.Context, session, vendorRef, venueRef string) (model.Selection, error) {
	vendorRef = strings.TrimSpace(vendorRef)
	venueRef = strings.TrimSpace(venueRef)
	return c.update(ctx, session, func(sel *model.Selection) bool {
		if vendorRef == "" && venueRef == "" {
			return false
		}
		if vendorRef != "" {
			sel.VendorRef = vendorRef
		}
		if venueRef != "" {
			sel.VenueRef = venueRef
		}
		return true
	})
}

// State returns the current selection, empty when none exists.
func (c *Coordinator) State(ctx context.Context, session string) (model.Selection, error) {
	if session == "" {
		return model.Selection{}, ErrSessionKeyRequired
	}
	unlock, err := c.lock(ctx, session)
	if err != nil {
		return model.Selection{}, err
	}
	defer unlock()

	sel, _, err := c.sessions.Load(ctx, session)
	return sel, err
}

// IsReadyToCommit reports whether type, vendor and venue are all chosen.
func (c *Coordinator) IsReadyToCommit(ctx context.Context, session string) (bool, error) {
	sel, err := c.State(ctx, session)
	if err != nil {
		return false, err
	}
	return sel.Ready(), nil
}

// Abandon clears the selection. Clearing an absent selection is not an error.
func (c *Coordinator) Abandon(ctx context.Context, session string) error {
	if session == "" {
		return ErrSessionKeyRequired
	}
	unlock, err := c.lock(ctx, session)
	if err != nil {
		return err
	}
	defer unlock()
	return c.sessions.Delete(ctx, session)
}

// Commit turns a ready selection into an Event owned by organizer and
// clears the selection. If a failure leaves the selection in place, a
// retried Commit returns the event the first attempt may have written
// instead of creating a second one. An id that was reserved but is no
// longer in the store is never written again.
func (c *Coordinator) Commit(ctx context.Context, session string, organizer model.Organizer, in CommitInput) (model.Event, error) {
	if session == "" {
		return model.Event{}, ErrSessionKeyRequired
	}
	unlock, err := c.lock(ctx, session)
	if err != nil {
		return model.Event{}, err
	}
	defer unlock()

	sel, _, err := c.sessions.Load(ctx, session)
	if err != nil {
		return model.Event{}, err
	}
	if !sel.Ready() {
		return model.Event{}, ErrNotReady
	}

	in, err = c.validate(organizer, in)
	if err != nil {
		return model.Event{}, err
	}

	if sel.PendingEventID != "" {
		existing, err := c.events.GetEvent(ctx, sel.PendingEventID)
		switch {
		case err == nil:
			appLog.Info("commit resumed", "session", session, "event_id", existing.ID)
			return c.finish(ctx, session, existing), nil
		case errors.Is(err, storage.ErrNotFound):
			// Either never written or written and deleted since.
			appLog.Info("dropping unresolved event id", "session", session, "event_id", sel.PendingEventID)
			sel.PendingEventID = ""
		default:
			return model.Event{}, fmt.Errorf("check pending event: %w", err)
		}
	}

	vendor, err := c.resolve(ctx, sel.VendorRef)
	if err != nil {
		return model.Event{}, err
	}
	venue, err := c.resolve(ctx, sel.VenueRef)
	if err != nil {
		return model.Event{}, err
	}

	id, err := c.newID()
	if err != nil {
		return model.Event{}, fmt.Errorf("reserve event id: %w", err)
	}
	sel.PendingEventID = id
	sel.UpdatedAt = c.clock().UTC()
	if err := c.sessions.Save(ctx, session, sel); err != nil {
		return model.Event{}, err
	}

	ev := model.Event{
		ID:             id,
		OrganizerRef:   organizer.Ref,
		OrganizerName:  organizer.Name,
		Title:          in.Title,
		Description:    in.Description,
		EventType:      sel.EventType,
		ReminderAt:     in.ReminderAt,
		Recurrence:     in.Recurrence,
		VendorRef:      sel.VendorRef,
		VendorName:     vendor.Name,
		VendorServices: vendor.Services,
		VendorPhone:    vendor.Phone,
		VenueRef:       sel.VenueRef,
		VenueName:      venue.Name,
		VenueAddress:   venue.Address,
		VenueLat:       venue.Lat,
		VenueLng:       venue.Lng,
		VenuePhone:     venue.Phone,
		CreatedAt:      c.clock().UTC().Truncate(time.Millisecond),
	}

	if err := c.events.CreateEvent(ctx, ev); err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	appLog.Info("event committed", "event_id", ev.ID, "organizer", ev.OrganizerRef, "type", ev.EventType)
	return c.finish(ctx, session, ev), nil
}

// finish clears the selection of a committed event. A failed clear is
// logged only: the event exists and the next select settles the token.
func (c *Coordinator) finish(ctx context.Context, session string, ev model.Event) model.Event {
	if err := c.sessions.Delete(ctx, session); err != nil {
		appLog.Error("clear selection after commit failed", err, "session", session, "event_id", ev.ID)
	}
	return ev
}

func (c *Coordinator) validate(organizer model.Organizer, in CommitInput) (CommitInput, error) {
	if strings.TrimSpace(organizer.Ref) == "" {
		return in, model.Invalid("organizer", "is required")
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, model.Invalid("title", "is required")
	}
	in.Description = strings.TrimSpace(in.Description)
	in.ReminderAt = strings.TrimSpace(in.ReminderAt)
	if _, err := ics.ParseReminder(in.ReminderAt, c.loc); err != nil {
		return in, model.InvalidCause("reminder_at", "must be a date and time such as 2025-06-01T18:00", err)
	}
	rule, err := ics.NormalizeRecurrence(in.Recurrence)
	if err != nil {
		return in, model.InvalidCause("recurrence", "must be an RRULE such as FREQ=WEEKLY;COUNT=4", err)
	}
	in.Recurrence = rule
	return in, nil
}

// resolve snapshots a provider. A reference that no longer resolves yields
// the Unknown placeholder; any other lookup failure aborts the commit.
func (c *Coordinator) resolve(ctx context.Context, ref string) (model.Provider, error) {
	p, err := c.providers.FindProviderByRef(ctx, ref)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		appLog.Warn("provider not found, using placeholder", "ref", ref)
		return model.Provider{Ref: ref, Name: model.UnknownProviderName}, nil
	}
	return model.Provider{}, fmt.Errorf("resolve provider %s: %w", ref, err)
}

// lock serializes work on session within this process and, when the
// session store supports it, across every process sharing the store.
func (c *Coordinator) lock(ctx context.Context, session string) (func(), error) {
	unlock := c.locks.Lock(session)
	locker, ok := c.sessions.(SessionLocker)
	if !ok {
		return unlock, nil
	}
	release, err := locker.Lock(ctx, session)
	if err != nil {
		unlock()
		return nil, err
	}
	return func() {
		release()
		unlock()
	}, nil
}

// update applies mutate to the session's selection under its lock and
// saves the result when mutate reports a change.
func (c *Coordinator) update(ctx context.Context, session string, mutate func(*model.Selection) bool) (model.Selection, error) {
	if session == "" {
		return model.Selection{}, ErrSessionKeyRequired
	}
	unlock, err := c.lock(ctx, session)
	if err != nil {
		return model.Selection{}, err
	}
	defer unlock()

	sel, _, err := c.sessions.Load(ctx, session)
	if err != nil {
		return model.Selection{}, err
	}
	sel, reset, err := c.settlePending(ctx, session, sel)
	if err != nil {
		return model.Selection{}, err
	}
	if !mutate(&sel) {
		if reset {
			return sel, c.sessions.Delete(ctx, session)
		}
		return sel, nil
	}
	sel.UpdatedAt = c.clock().UTC()
	if err := c.sessions.Save(ctx, session, sel); err != nil {
		return model.Selection{}, err
	}
	return sel, nil
}

// settlePending starts a fresh selection when the reserved event was in
// fact written by an earlier commit whose cleanup did not finish.
func (c *Coordinator) settlePending(ctx context.Context, session string, sel model.Selection) (model.Selection, bool, error) {
	if sel.PendingEventID == "" {
		return sel, false, nil
	}
	_, err := c.events.GetEvent(ctx, sel.PendingEventID)
	switch {
	case err == nil:
		appLog.Info("discarding selection of completed commit", "session", session, "event_id", sel.PendingEventID)
		return model.Selection{}, true, nil
	case errors.Is(err, storage.ErrNotFound):
		return sel, false, nil
	default:
		return model.Selection{}, false, err
	}
}
