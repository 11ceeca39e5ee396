package dispatch

import (
	"fmt"
	"strings"
	"time"

	"eventease/internal/ics"
	"eventease/internal/model"
)

const whenLayout = "Monday, 2 January 2006 15:04 MST"

func body(ev model.Event, inv model.Invitation, start, end time.Time) string {
	var b strings.Builder

	greeting := inv.GuestName
	if greeting == "" {
		greeting = inv.GuestEmail
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting)
	fmt.Fprintf(&b, "%s invites you to %s.\n\n", nameOr(ev.OrganizerName, ev.OrganizerRef), ev.Title)

	fmt.Fprintf(&b, "When:  %s until %s\n", start.Format(whenLayout), end.Format("15:04 MST"))
	if ev.Recurrence != "" {
		fmt.Fprintf(&b, "Repeats: %s\n", ev.Recurrence)
	}
	where := ev.VenueAddress
	if strings.TrimSpace(where) == "" {
		where = ics.LocationPlaceholder
	}
	fmt.Fprintf(&b, "Where: %s, %s\n", nameOr(ev.VenueName, ev.VenueRef), where)
	if ev.VenuePhone != "" {
		fmt.Fprintf(&b, "Venue phone: %s\n", ev.VenuePhone)
	}
	if ev.EventType != "" {
		fmt.Fprintf(&b, "Type:  %s\n", ev.EventType)
	}
	vendor := nameOr(ev.VendorName, ev.VendorRef)
	if ev.VendorServices != "" {
		vendor += " (" + ev.VendorServices + ")"
	}
	fmt.Fprintf(&b, "Vendor: %s\n", vendor)
	if ev.VendorPhone != "" {
		fmt.Fprintf(&b, "Vendor phone: %s\n", ev.VendorPhone)
	}

	if d := strings.TrimSpace(ev.Description); d != "" {
		fmt.Fprintf(&b, "\n%s\n", d)
	}
	fmt.Fprintf(&b, "\nOpen the attached %s to add the event to your calendar.\n", ics.AttachmentName)
	return b.String()
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}
