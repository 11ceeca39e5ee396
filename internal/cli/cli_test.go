package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/config"
	"eventease/internal/dispatch"
	"eventease/internal/model"
	"eventease/internal/storage/sqlite"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "eventease", cmd.Use)

	for _, name := range []string{"serve", "send", "ics", "provider"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, FormatText, formatFlag.DefValue)
}

// writeConfig points a fresh config at a sqlite file under a temp dir.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.LogLevel = "error"
	cfg.Storage.SQLitePath = filepath.Join(dir, "eventease.db")
	cfg.SMTP.LogOnly = true
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))
	return path, cfg.Storage.SQLitePath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProviderAddAndList(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "provider", "add", "--ref", "Hall@Example.com", "--name", "Hall A", "--role", "venue_owner", "--address", "1 Main St")
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "provider", "add", "--ref", "cakes@example.com", "--name", "Cake Co", "--services", "Cakes")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "--format", "json", "provider", "list", "--role", "venue_owner")
	require.NoError(t, err)
	var providers []model.Provider
	require.NoError(t, json.Unmarshal([]byte(out), &providers))
	require.Len(t, providers, 1)
	assert.Equal(t, "hall@example.com", providers[0].Ref)

	out, err = run(t, "--config", cfgPath, "provider", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cake Co")
	assert.Contains(t, out, "1 Main St")

	_, err = run(t, "--config", cfgPath, "provider", "add", "--ref", "x@example.com", "--role", "dj")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = run(t, "--config", cfgPath, "--format", "yaml", "provider", "list")
	assert.Error(t, err)
}

func seedEvent(t *testing.T, dbPath string) {
	t.Helper()
	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateEvent(ctx, model.Event{
		ID: "evt-1", OrganizerRef: "olivia@example.com", OrganizerName: "Olivia",
		Title: "Sam Birthday", EventType: "Birthday", ReminderAt: "2025-06-01T18:00",
		VendorRef: "cakes@example.com", VendorName: "Cake Co",
		VenueRef: "hall@example.com", VenueName: "Hall A", VenueAddress: "1 Main St",
		CreatedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.CreateInvitation(ctx, model.Invitation{
		ID: "inv-1", EventID: "evt-1", GuestName: "Gabe", GuestEmail: "gabe@example.com",
		RSVPStatus: model.RSVPPending, CreatedAt: time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
	}))
}

func TestICSAndSend(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	// Create the schema with the first CLI run, then seed.
	_, err := run(t, "--config", cfgPath, "provider", "list")
	require.NoError(t, err)
	seedEvent(t, dbPath)

	out, err := run(t, "--config", cfgPath, "ics", "--event", "evt-1", "--invitation", "inv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:evt-1@eventease")

	out, err = run(t, "--config", cfgPath, "ics", "--event", "evt-1", "--invitation", "inv-1", "--inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "summary:   Sam Birthday")
	assert.Contains(t, out, "location:  1 Main St")

	outFile := filepath.Join(t.TempDir(), "invite.ics")
	_, err = run(t, "--config", cfgPath, "ics", "--event", "evt-1", "--invitation", "inv-1", "-o", outFile)
	require.NoError(t, err)
	assert.FileExists(t, outFile)

	out, err = run(t, "--config", cfgPath, "--format", "json", "send", "--event", "evt-1")
	require.NoError(t, err)
	var report dispatch.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.SuccessCount)

	out, err = run(t, "--config", cfgPath, "send", "--event", "evt-1")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to send")

	_, err = run(t, "--config", cfgPath, "send", "--event", "missing")
	assert.Error(t, err)
}
