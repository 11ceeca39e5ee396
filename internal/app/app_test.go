package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/config"
	"eventease/internal/invite"
	"eventease/internal/mail"
	"eventease/internal/model"
	"eventease/internal/workflow"
)

func TestNew_SQLiteAndMemorySessions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "data", "eventease.db")

	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.IsType(t, &mail.LogTransport{}, a.Transport)
	assert.IsType(t, &workflow.MemorySessionStore{}, a.Sessions)
	require.NotNil(t, a.Coordinator)

	sched, err := a.Scheduler(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sched.Len())
}

func TestNew_WithoutSMTPHostInvitationsStayPending(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name    string
		logOnly bool
		sent    int
	}{
		{name: "holding", logOnly: false, sent: 0},
		{name: "log only", logOnly: true, sent: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Storage.Driver = config.DriverMemory
			cfg.SMTP.LogOnly = tc.logOnly

			a, err := New(ctx, cfg, Options{})
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			_, err = a.Coordinator.SelectEventType(ctx, "s", "Birthday")
			require.NoError(t, err)
			_, err = a.Coordinator.SelectProvider(ctx, "s", "cakes@example.com", "hall@example.com")
			require.NoError(t, err)
			ev, err := a.Coordinator.Commit(ctx, "s", model.Organizer{Ref: "olivia@example.com"}, workflow.CommitInput{Title: "Party", ReminderAt: "2025-06-01 18:00"})
			require.NoError(t, err)
			_, _, err = a.Invites.Add(ctx, "olivia@example.com", ev.ID, invite.GuestInput{Email: "gabe@example.com"})
			require.NoError(t, err)

			report, err := a.Dispatcher.SendPending(ctx, ev.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.sent, report.SuccessCount)

			pending, err := a.Store.ListPendingByEvent(ctx, ev.ID)
			require.NoError(t, err)
			assert.Len(t, pending, 1-tc.sent)
			if tc.sent == 0 {
				require.Len(t, report.Failures, 1)
				assert.ErrorIs(t, report.Failures[0].Err, mail.ErrNotDelivered)
			}
		})
	}
}

func TestNew_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Sessions.Backend = config.SessionsRedis
	cfg.Sessions.RedisAddr = mr.Addr()

	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.IsType(t, &workflow.RedisSessionStore{}, a.Sessions)
	sched, err := a.Scheduler(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sched.Len())

	ctx := context.Background()
	_, err = a.Coordinator.SelectEventType(ctx, "s1", "Birthday")
	require.NoError(t, err)
	assert.True(t, mr.Exists("eventease:selection:s1"))
}

func TestNew_SMTPTransportAndSkipSessions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = config.DriverMemory
	cfg.SMTP.Host = "smtp.example.com"

	a, err := New(context.Background(), cfg, Options{SkipSessions: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.IsType(t, &mail.SMTPTransport{}, a.Transport)
	assert.Nil(t, a.Coordinator)
	assert.Error(t, a.Run(context.Background()))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = config.DriverPostgres

	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestEndToEndDispatchWithInjectedTransport(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = config.DriverMemory
	tr := mail.NewLogTransport(5)

	a, err := New(context.Background(), cfg, Options{Transport: tr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ctx := context.Background()

	require.NoError(t, a.Store.PutProvider(ctx, model.Provider{Ref: "hall@example.com", Name: "Hall A", Role: model.RoleVenueOwner}))
	_, err = a.Coordinator.SelectEventType(ctx, "s", "Birthday")
	require.NoError(t, err)
	_, err = a.Coordinator.SelectProvider(ctx, "s", "cakes@example.com", "hall@example.com")
	require.NoError(t, err)
	ev, err := a.Coordinator.Commit(ctx, "s", model.Organizer{Ref: "olivia@example.com"}, workflow.CommitInput{Title: "Party", ReminderAt: "2025-06-01 18:00"})
	require.NoError(t, err)

	_, created, err := a.Invites.Add(ctx, "olivia@example.com", ev.ID, invite.GuestInput{Email: "gabe@example.com"})
	require.NoError(t, err)
	require.True(t, created)

	report, err := a.Dispatcher.SendPending(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	require.Len(t, tr.Sent(), 1)
	assert.Equal(t, "Invitation: Party", tr.Sent()[0].Subject)
}
