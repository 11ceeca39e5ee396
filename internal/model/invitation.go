package model

import (
	"strings"
	"time"
)

// RSVPStatus is a guest's attendance answer.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// Valid reports whether s is a known status.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAccepted, RSVPDeclined:
		return true
	}
	return false
}

// Invitation links one guest to one event. At most one invitation exists per
// (EventID, GuestEmail).
type Invitation struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	GuestName  string     `json:"guest_name"`
	GuestEmail string     `json:"guest_email"`
	Sent       bool       `json:"sent"`
	RSVPStatus RSVPStatus `json:"rsvp_status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NormalizeEmail is the canonical form used for the per-event uniqueness key.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
