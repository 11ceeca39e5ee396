package model

import "time"

// UnknownProviderName is the snapshot name recorded when a selected provider
// reference no longer resolves at commit time.
const UnknownProviderName = "Unknown"

// Event is a committed event record. Provider fields are snapshots copied
// from the provider directory at commit time and are never refreshed.
type Event struct {
	ID            string `json:"id"`
	OrganizerRef  string `json:"organizer_ref"`
	OrganizerName string `json:"organizer_name"`

	Title       string `json:"title"`
	Description string `json:"description"`
	EventType   string `json:"event_type"`

	// ReminderAt is the local date+time of the event as entered by the
	// organizer (e.g. "2025-06-01T18:00"). It is validated at commit.
	ReminderAt string `json:"reminder_at"`
	// Recurrence is an optional RRULE value (without the "RRULE:" prefix).
	Recurrence string `json:"recurrence,omitempty"`

	VendorRef      string `json:"vendor_ref"`
	VendorName     string `json:"vendor_name"`
	VendorServices string `json:"vendor_services"`
	VendorPhone    string `json:"vendor_phone"`

	VenueRef     string `json:"venue_ref"`
	VenueName    string `json:"venue_name"`
	VenueAddress string `json:"venue_address"`
	VenueLat     string `json:"venue_lat"`
	VenueLng     string `json:"venue_lng"`
	VenuePhone   string `json:"venue_phone"`

	CreatedAt time.Time `json:"created_at"`
}

// VisibleTo reports whether the user may view the event: its organizer or
// one of the booked providers.
func (e Event) VisibleTo(userRef string) bool {
	if userRef == "" {
		return false
	}
	return userRef == e.OrganizerRef || userRef == e.VendorRef || userRef == e.VenueRef
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	EventID string `json:"event_id"`
	UID     string `json:"uid"`

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string `json:"instance_key"`

	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`

	// Start / End are in the configured display timezone.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
