package model

import "time"

// Phase is the derived position of a Selection in the creation flow.
type Phase string

const (
	PhaseEmpty             Phase = "empty"
	PhaseTypeChosen        Phase = "type_chosen"
	PhasePartiallySelected Phase = "partially_selected"
	PhaseReadyToCommit     Phase = "ready_to_commit"
)

// Selection is the ephemeral per-session state of the event creation flow.
// Empty strings mean "not selected yet".
type Selection struct {
	EventType string `json:"event_type,omitempty"`
	VendorRef string `json:"vendor_ref,omitempty"`
	VenueRef  string `json:"venue_ref,omitempty"`

	// PendingEventID is reserved before the event is written so that a
	// commit retried after a partial failure reuses the same id.
	PendingEventID string `json:"pending_event_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Ready reports whether every required choice has been made.
func (s Selection) Ready() bool {
	return s.EventType != "" && s.VendorRef != "" && s.VenueRef != ""
}

// IsEmpty reports whether nothing has been selected.
func (s Selection) IsEmpty() bool {
	return s.EventType == "" && s.VendorRef == "" && s.VenueRef == ""
}

// Phase derives the flow position from the fields that are set.
func (s Selection) Phase() Phase {
	switch {
	case s.Ready():
		return PhaseReadyToCommit
	case s.VendorRef != "" || s.VenueRef != "":
		return PhasePartiallySelected
	case s.EventType != "":
		return PhaseTypeChosen
	default:
		return PhaseEmpty
	}
}
