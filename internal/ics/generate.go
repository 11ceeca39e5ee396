package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"eventease/internal/model"
)

const (
	// DefaultDuration is the calendar length of an event; events carry no
	// explicit end time.
	DefaultDuration = 2 * time.Hour
	// DefaultProductID is the PRODID of generated calendars.
	DefaultProductID = "-//EventEase//Invitations//EN"
	// LocationPlaceholder is written when the venue has no address.
	LocationPlaceholder = "TBD"
	// UIDDomain suffixes event ids to form calendar UIDs.
	UIDDomain = "eventease"
)

// ErrMissingEventID is returned when an event has no id to derive a UID from.
var ErrMissingEventID = errors.New("event id is required")

// Generator renders one invitation calendar per (event, guest). It is a
// value type with no I/O; identical inputs yield identical bytes.
type Generator struct {
	// Location is the zone ReminderAt values are interpreted in.
	Location *time.Location
	// Duration is added to the start to form DTEND.
	Duration time.Duration
	// ProductID is written as PRODID.
	ProductID string
}

// NewGenerator returns a Generator with defaults applied for zero values.
func NewGenerator(loc *time.Location, duration time.Duration) Generator {
	return Generator{Location: loc, Duration: duration}.withDefaults()
}

func (g Generator) withDefaults() Generator {
	if g.Location == nil {
		g.Location = time.UTC
	}
	if g.Duration <= 0 {
		g.Duration = DefaultDuration
	}
	if g.ProductID == "" {
		g.ProductID = DefaultProductID
	}
	return g
}

// UID returns the calendar UID for an event id.
func UID(eventID string) string {
	return eventID + "@" + UIDDomain
}

// EventIDFromUID reverses UID; foreign UIDs are returned unchanged.
func EventIDFromUID(uid string) string {
	return strings.TrimSuffix(uid, "@"+UIDDomain)
}

// Window returns the start and end instants of ev.
func (g Generator) Window(ev model.Event) (time.Time, time.Time, error) {
	g = g.withDefaults()
	start, err := ParseReminder(ev.ReminderAt, g.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(g.Duration), nil
}

// Generate renders the METHOD:REQUEST calendar for inv's guest.
func (g Generator) Generate(ev model.Event, inv model.Invitation) ([]byte, error) {
	g = g.withDefaults()
	if ev.ID == "" {
		return nil, ErrMissingEventID
	}
	start, end, err := g.Window(ev)
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.SetProductId(g.ProductID)
	cal.SetMethod(ical.MethodRequest)

	vevent := cal.AddEvent(UID(ev.ID))
	stamp := ev.CreatedAt
	if stamp.IsZero() {
		stamp = start
	}
	vevent.SetDtStampTime(stamp.UTC())
	vevent.SetStartAt(start.UTC())
	vevent.SetEndAt(end.UTC())
	vevent.SetSummary(ev.Title)
	vevent.SetDescription(ev.Description)
	vevent.SetLocation(locationOf(ev))
	if ev.Recurrence != "" {
		rule, err := NormalizeRecurrence(ev.Recurrence)
		if err != nil {
			return nil, err
		}
		vevent.AddProperty(ical.ComponentPropertyRrule, rule)
	}
	// One parameter per property keeps serialization order stable.
	vevent.SetProperty(ical.ComponentPropertyOrganizer, "mailto:"+ev.OrganizerRef, ical.WithCN(displayName(ev.OrganizerName, ev.OrganizerRef)))
	vevent.AddProperty(ical.ComponentPropertyAttendee, "mailto:"+inv.GuestEmail, ical.WithCN(displayName(inv.GuestName, inv.GuestEmail)))
	vevent.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")

	return []byte(cal.Serialize()), nil
}

func locationOf(ev model.Event) string {
	if addr := strings.TrimSpace(ev.VenueAddress); addr != "" {
		return addr
	}
	return LocationPlaceholder
}

func displayName(name, addr string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return addr
}

// AttachmentName is the filename of the calendar attached to invitation mail.
const AttachmentName = "invite.ics"

// Filename is the download name of an event calendar.
func Filename(ev model.Event) string {
	return fmt.Sprintf("invite-%s.ics", ev.ID)
}
