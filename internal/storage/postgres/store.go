package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"eventease/internal/model"
	"eventease/internal/storage"
)

func (db *DB) FindProviderByRef(ctx context.Context, ref string) (model.Provider, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT ref, name, role, services, phone, address, lat, lng
		FROM providers WHERE ref = $1`, ref)
	p, err := scanProvider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Provider{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Provider{}, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

func (db *DB) ListProviders(ctx context.Context, role model.ProviderRole) ([]model.Provider, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT ref, name, role, services, phone, address, lat, lng
		FROM providers
		WHERE $1 = '' OR role = $1
		ORDER BY name ASC, ref ASC`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	out := make([]model.Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) PutProvider(ctx context.Context, p model.Provider) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO providers (ref, name, role, services, phone, address, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ref) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			services = EXCLUDED.services,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng`,
		p.Ref, p.Name, string(p.Role), p.Services, p.Phone, p.Address, p.Lat, p.Lng)
	if err != nil {
		return fmt.Errorf("put provider: %w", err)
	}
	return nil
}

const eventColumns = `id, organizer_ref, organizer_name, title, description, event_type,
	reminder_at, recurrence, vendor_ref, vendor_name, vendor_services, vendor_phone,
	venue_ref, venue_name, venue_address, venue_lat, venue_lng, venue_phone, created_at`

func (db *DB) CreateEvent(ctx context.Context, ev model.Event) error {
	_, err := db.Pool.Exec(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		ev.ID, ev.OrganizerRef, ev.OrganizerName, ev.Title, ev.Description, ev.EventType,
		ev.ReminderAt, ev.Recurrence, ev.VendorRef, ev.VendorName, ev.VendorServices, ev.VendorPhone,
		ev.VenueRef, ev.VenueName, ev.VenueAddress, ev.VenueLat, ev.VenueLng, ev.VenuePhone,
		ev.CreatedAt.UTC())
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (db *DB) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	ct, err := db.Pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (db *DB) ListEventsByOrganizer(ctx context.Context, ref string) ([]model.Event, error) {
	return db.listEvents(ctx, "organizer_ref", ref)
}

func (db *DB) ListEventsByVendor(ctx context.Context, ref string) ([]model.Event, error) {
	return db.listEvents(ctx, "vendor_ref", ref)
}

func (db *DB) ListEventsByVenue(ctx context.Context, ref string) ([]model.Event, error) {
	return db.listEvents(ctx, "venue_ref", ref)
}

// listEvents filters on column, which is always one of the fixed names above.
func (db *DB) listEvents(ctx context.Context, column, value string) ([]model.Event, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+eventColumns+` FROM events
		WHERE `+column+` = $1
		ORDER BY created_at ASC, id ASC`, value)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

const invitationColumns = `id, event_id, guest_name, guest_email, sent, rsvp_status, created_at`

func (db *DB) CreateInvitation(ctx context.Context, inv model.Invitation) error {
	status := inv.RSVPStatus
	if status == "" {
		status = model.RSVPPending
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO invitations (id, event_id, guest_name, guest_email, guest_email_key, sent, rsvp_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.EventID, inv.GuestName, inv.GuestEmail, model.NormalizeEmail(inv.GuestEmail),
		inv.Sent, string(status), inv.CreatedAt.UTC())
	if err != nil {
		switch pgCode(err) {
		case codeUniqueViolation:
			return storage.ErrDuplicate
		case codeForeignKeyViolation:
			return fmt.Errorf("create invitation: event %s: %w", inv.EventID, storage.ErrNotFound)
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (db *DB) GetInvitation(ctx context.Context, id string) (model.Invitation, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id)
	inv, err := scanInvitation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Invitation{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (db *DB) DeleteInvitation(ctx context.Context, id string) error {
	ct, err := db.Pool.Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (db *DB) ListInvitationsByEvent(ctx context.Context, eventID string) ([]model.Invitation, error) {
	return db.listInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`, eventID)
}

func (db *DB) ListPendingByEvent(ctx context.Context, eventID string) ([]model.Invitation, error) {
	return db.listInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations
		WHERE event_id = $1 AND NOT sent
		ORDER BY created_at ASC, id ASC`, eventID)
}

func (db *DB) listInvitations(ctx context.Context, query string, args ...any) ([]model.Invitation, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	out := make([]model.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (db *DB) MarkSent(ctx context.Context, id string) error {
	ct, err := db.Pool.Exec(ctx, `UPDATE invitations SET sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark invitation sent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanProvider(row pgx.Row) (model.Provider, error) {
	var p model.Provider
	var role string
	if err := row.Scan(&p.Ref, &p.Name, &role, &p.Services, &p.Phone, &p.Address, &p.Lat, &p.Lng); err != nil {
		return model.Provider{}, err
	}
	p.Role = model.ProviderRole(role)
	return p, nil
}

func scanEvent(row pgx.Row) (model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.OrganizerRef, &ev.OrganizerName, &ev.Title, &ev.Description, &ev.EventType,
		&ev.ReminderAt, &ev.Recurrence, &ev.VendorRef, &ev.VendorName, &ev.VendorServices, &ev.VendorPhone,
		&ev.VenueRef, &ev.VenueName, &ev.VenueAddress, &ev.VenueLat, &ev.VenueLng, &ev.VenuePhone,
		&ev.CreatedAt)
	if err != nil {
		return model.Event{}, err
	}
	ev.CreatedAt = ev.CreatedAt.UTC()
	return ev, nil
}

func scanInvitation(row pgx.Row) (model.Invitation, error) {
	var inv model.Invitation
	var status string
	if err := row.Scan(&inv.ID, &inv.EventID, &inv.GuestName, &inv.GuestEmail, &inv.Sent, &status, &inv.CreatedAt); err != nil {
		return model.Invitation{}, err
	}
	inv.RSVPStatus = model.RSVPStatus(status)
	inv.CreatedAt = inv.CreatedAt.UTC()
	return inv, nil
}
