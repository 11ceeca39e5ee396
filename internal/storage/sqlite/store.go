// Package sqlite implements storage.Store on SQLite via the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"eventease/internal/model"
	"eventease/internal/storage"
	"eventease/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

const migrationTable = "schema_migrations"

// Store provides SQLite-backed persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps the
	// per-connection foreign_keys pragma in effect.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.applyMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// applyMigrations executes each embedded migration at most once.
func (s *Store) applyMigrations() error {
	if _, err := s.sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var count int
		if err := s.sqlDB.QueryRow(`SELECT COUNT(*) FROM `+migrationTable+` WHERE name = ?`, name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := s.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) FindProviderByRef(ctx context.Context, ref string) (model.Provider, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT ref, name, role, services, phone, address, lat, lng
		FROM providers WHERE ref = ?`, ref)
	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Provider{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Provider{}, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

func (s *Store) ListProviders(ctx context.Context, role model.ProviderRole) ([]model.Provider, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT ref, name, role, services, phone, address, lat, lng
		FROM providers
		WHERE ? = '' OR role = ?
		ORDER BY name ASC, ref ASC`, string(role), string(role))
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

func (s *Store) PutProvider(ctx context.Context, p model.Provider) error {
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO providers (ref, name, role, services, phone, address, lat, lng)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			services = excluded.services,
			phone = excluded.phone,
			address = excluded.address,
			lat = excluded.lat,
			lng = excluded.lng`,
		p.Ref, p.Name, string(p.Role), p.Services, p.Phone, p.Address, p.Lat, p.Lng)
	if err != nil {
		return fmt.Errorf("put provider: %w", err)
	}
	return nil
}

const eventColumns = `id, organizer_ref, organizer_name, title, description, event_type,
	reminder_at, recurrence, vendor_ref, vendor_name, vendor_services, vendor_phone,
	venue_ref, venue_name, venue_address, venue_lat, venue_lng, venue_phone, created_at`

func (s *Store) CreateEvent(ctx context.Context, ev model.Event) error {
	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.OrganizerRef, ev.OrganizerName, ev.Title, ev.Description, ev.EventType,
		ev.ReminderAt, ev.Recurrence, ev.VendorRef, ev.VendorName, ev.VendorServices, ev.VendorPhone,
		ev.VenueRef, ev.VenueName, ev.VenueAddress, ev.VenueLat, ev.VenueLng, ev.VenuePhone,
		toMillis(ev.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) ListEventsByOrganizer(ctx context.Context, ref string) ([]model.Event, error) {
	return s.listEvents(ctx, "organizer_ref", ref)
}

func (s *Store) ListEventsByVendor(ctx context.Context, ref string) ([]model.Event, error) {
	return s.listEvents(ctx, "vendor_ref", ref)
}

func (s *Store) ListEventsByVenue(ctx context.Context, ref string) ([]model.Event, error) {
	return s.listEvents(ctx, "venue_ref", ref)
}

// listEvents filters on column, which is always one of the fixed names above.
func (s *Store) listEvents(ctx context.Context, column, value string) ([]model.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+eventColumns+` FROM events
		WHERE `+column+` = ?
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

func (s *Store) CreateInvitation(ctx context.Context, inv model.Invitation) error {
	status := inv.RSVPStatus
	if status == "" {
		status = model.RSVPPending
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO invitations (id, event_id, guest_name, guest_email, guest_email_key, sent, rsvp_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.EventID, inv.GuestName, inv.GuestEmail, model.NormalizeEmail(inv.GuestEmail),
		boolToInt(inv.Sent), string(status), toMillis(inv.CreatedAt))
	if err != nil {
		switch {
		case isUniqueConstraintError(err):
			return storage.ErrDuplicate
		case isForeignKeyConstraintError(err):
			return fmt.Errorf("create invitation: event %s: %w", inv.EventID, storage.ErrNotFound)
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (s *Store) GetInvitation(ctx context.Context, id string) (model.Invitation, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invitation{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) ListInvitationsByEvent(ctx context.Context, eventID string) ([]model.Invitation, error) {
	return s.listInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations
		WHERE event_id = ?
		ORDER BY created_at ASC, id ASC`, eventID)
}

func (s *Store) ListPendingByEvent(ctx context.Context, eventID string) ([]model.Invitation, error) {
	return s.listInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations
		WHERE event_id = ? AND sent = 0
		ORDER BY created_at ASC, id ASC`, eventID)
}

func (s *Store) listInvitations(ctx context.Context, query string, args ...any) ([]model.Invitation, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
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

func (s *Store) MarkSent(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE invitations SET sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invitation sent: %w", err)
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProvider(row scanner) (model.Provider, error) {
	var p model.Provider
	var role string
	if err := row.Scan(&p.Ref, &p.Name, &role, &p.Services, &p.Phone, &p.Address, &p.Lat, &p.Lng); err != nil {
		return model.Provider{}, err
	}
	p.Role = model.ProviderRole(role)
	return p, nil
}

func scanEvent(row scanner) (model.Event, error) {
	var ev model.Event
	var createdAt int64
	err := row.Scan(&ev.ID, &ev.OrganizerRef, &ev.OrganizerName, &ev.Title, &ev.Description, &ev.EventType,
		&ev.ReminderAt, &ev.Recurrence, &ev.VendorRef, &ev.VendorName, &ev.VendorServices, &ev.VendorPhone,
		&ev.VenueRef, &ev.VenueName, &ev.VenueAddress, &ev.VenueLat, &ev.VenueLng, &ev.VenuePhone,
		&createdAt)
	if err != nil {
		return model.Event{}, err
	}
	ev.CreatedAt = fromMillis(createdAt)
	return ev, nil
}

func scanInvitation(row scanner) (model.Invitation, error) {
	var inv model.Invitation
	var sent int
	var status string
	var createdAt int64
	if err := row.Scan(&inv.ID, &inv.EventID, &inv.GuestName, &inv.GuestEmail, &sent, &status, &createdAt); err != nil {
		return model.Invitation{}, err
	}
	inv.Sent = sent != 0
	inv.RSVPStatus = model.RSVPStatus(status)
	inv.CreatedAt = fromMillis(createdAt)
	return inv, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed") || strings.Contains(value, "constraint failed: unique")
}

func isForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
