package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/config"
	"eventease/internal/dispatch"
	"eventease/internal/events"
	"eventease/internal/ics"
	"eventease/internal/invite"
	"eventease/internal/mail"
	"eventease/internal/model"
	"eventease/internal/storage/memory"
	"eventease/internal/workflow"
)

const (
	olivia = "olivia@example.com"
	hall   = "hall@example.com"
	cakes  = "cakes@example.com"
)

func fixedNow() time.Time {
	return time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}
}

type harness struct {
	t         *testing.T
	handler   http.Handler
	store     *memory.Store
	transport *mail.LogTransport
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.PutProvider(ctx, model.Provider{Ref: hall, Name: "Hall A", Role: model.RoleVenueOwner, Address: "1 Main St"}))
	require.NoError(t, store.PutProvider(ctx, model.Provider{Ref: cakes, Name: "Cake Co", Role: model.RoleVendor, Services: "Cakes"}))

	gen := ics.NewGenerator(time.UTC, 0)
	evs := events.NewService(store, gen)
	transport := mail.NewLogTransport(10)
	deps := Deps{
		Coordinator: workflow.NewCoordinator(workflow.NewMemorySessionStore(time.Hour, fixedNow), store, store, time.UTC, fixedNow, sequentialIDs("evt")),
		Events:      evs,
		Invites:     invite.NewService(evs, store, fixedNow, sequentialIDs("inv")),
		Dispatcher:  dispatch.New(store, store, gen, transport, dispatch.Options{Workers: 2}),
		Providers:   store,
		Calendar:    gen,
		Now:         fixedNow,
	}
	return &harness{t: t, handler: NewServer(cfg, deps).Handler(), store: store, transport: transport}
}

func (h *harness) do(method, path, user string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if user != "" {
		req.Header.Set(headerUserEmail, user)
		req.Header.Set(headerSessionKey, "tab-1")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) commitEvent() model.Event {
	h.t.Helper()
	require.Equal(h.t, http.StatusOK, h.do("POST", "/api/selection/event-type", olivia, map[string]string{"event_type": "Birthday"}).Code)
	require.Equal(h.t, http.StatusOK, h.do("POST", "/api/selection/providers", olivia, map[string]string{"vendor_ref": cakes}).Code)
	require.Equal(h.t, http.StatusOK, h.do("POST", "/api/selection/providers", olivia, map[string]string{"venue_ref": hall}).Code)
	rec := h.do("POST", "/api/selection/commit", olivia, workflow.CommitInput{Title: "Sam turns 30", ReminderAt: "2025-06-01T18:00"})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Event](h.t, rec)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRequiresIdentity(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do("GET", "/api/selection", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSessionCookieIssuedWhenMissing(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest("GET", "/api/selection", nil)
	req.Header.Set(headerUserEmail, olivia)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestSelectionFlowAndInvitations(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do("POST", "/api/selection/commit", olivia, workflow.CommitInput{Title: "x", ReminderAt: "2025-06-01T18:00"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	ev := h.commitEvent()
	assert.Equal(t, "evt-1", ev.ID)
	assert.Equal(t, "Hall A", ev.VenueName)
	assert.Equal(t, "Cake Co", ev.VendorName)

	sel := decode[selectionResponse](t, h.do("GET", "/api/selection", olivia, nil))
	assert.Equal(t, model.PhaseEmpty, sel.Phase)

	rec = h.do("POST", "/api/events/evt-1/invitations", olivia, invite.GuestInput{Email: "gabe@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[addInvitationResponse](t, rec)
	assert.False(t, added.AlreadyExists)

	rec = h.do("POST", "/api/events/evt-1/invitations", olivia, invite.GuestInput{Email: "GABE@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[addInvitationResponse](t, rec).AlreadyExists)

	rec = h.do("POST", "/api/events/evt-1/invitations", olivia, invite.GuestInput{Email: "robin@example.com", Name: "Robin"})
	require.Equal(t, http.StatusCreated, rec.Code)

	list := decode[struct {
		Invitations []model.Invitation `json:"invitations"`
	}](t, h.do("GET", "/api/events/evt-1/invitations", olivia, nil))
	assert.Len(t, list.Invitations, 2)

	rec = h.do("POST", "/api/events/evt-1/invitations/send", olivia, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[dispatch.Report](t, rec)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Len(t, h.transport.Sent(), 2)

	report = decode[dispatch.Report](t, h.do("POST", "/api/events/evt-1/invitations/send", olivia, nil))
	assert.True(t, report.NothingToDo)

	rec = h.do("GET", "/api/events/evt-1/invitations/"+added.Invitation.ID+"/calendar.ics", olivia, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invite-evt-1.ics")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")

	rec = h.do("DELETE", "/api/events/evt-1/invitations/"+added.Invitation.ID, olivia, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCommitValidation(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusOK, h.do("POST", "/api/selection/event-type", olivia, map[string]string{"event_type": "Gala"}).Code)
	require.Equal(t, http.StatusOK, h.do("POST", "/api/selection/providers", olivia, map[string]string{"vendor_ref": cakes, "venue_ref": hall}).Code)

	rec := h.do("POST", "/api/selection/commit", olivia, workflow.CommitInput{Title: "Gala", ReminderAt: "tomorrow"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decode[Problem](t, rec)
	assert.Contains(t, p.Errors, "reminder_at")

	rec = h.do("POST", "/api/selection/event-type", olivia, map[string]string{"bogus": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sel := decode[selectionResponse](t, h.do("GET", "/api/selection", olivia, nil))
	assert.True(t, sel.Ready)

	assert.Equal(t, http.StatusNoContent, h.do("DELETE", "/api/selection", olivia, nil).Code)
	sel = decode[selectionResponse](t, h.do("GET", "/api/selection", olivia, nil))
	assert.False(t, sel.Ready)
}

func TestEventPermissions(t *testing.T) {
	h := newHarness(t, nil)
	h.commitEvent()

	assert.Equal(t, http.StatusOK, h.do("GET", "/api/events/evt-1", hall, nil).Code)
	assert.Equal(t, http.StatusOK, h.do("GET", "/api/events/evt-1", cakes, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do("GET", "/api/events/evt-1", "eve@example.com", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("GET", "/api/events/nope", olivia, nil).Code)

	assert.Equal(t, http.StatusForbidden, h.do("POST", "/api/events/evt-1/invitations", hall, invite.GuestInput{Email: "x@example.com"}).Code)
	assert.Equal(t, http.StatusForbidden, h.do("POST", "/api/events/evt-1/invitations/send", cakes, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do("DELETE", "/api/events/evt-1", hall, nil).Code)

	venueView := decode[struct {
		Events []model.Event `json:"events"`
	}](t, h.do("GET", "/api/events?as=venue", hall, nil))
	require.Len(t, venueView.Events, 1)

	assert.Equal(t, http.StatusBadRequest, h.do("GET", "/api/events?as=guest", olivia, nil).Code)

	assert.Equal(t, http.StatusNoContent, h.do("DELETE", "/api/events/evt-1", olivia, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("GET", "/api/events/evt-1", olivia, nil).Code)
}

func TestProviders(t *testing.T) {
	h := newHarness(t, nil)

	all := decode[struct {
		Providers []model.Provider `json:"providers"`
	}](t, h.do("GET", "/api/providers", olivia, nil))
	assert.Len(t, all.Providers, 2)

	venues := decode[struct {
		Providers []model.Provider `json:"providers"`
	}](t, h.do("GET", "/api/providers?role=venue", olivia, nil))
	require.Len(t, venues.Providers, 1)
	assert.Equal(t, "Hall A", venues.Providers[0].Name)

	assert.Equal(t, http.StatusBadRequest, h.do("GET", "/api/providers?role=dj", olivia, nil).Code)
}

func TestAgenda(t *testing.T) {
	h := newHarness(t, nil)
	h.commitEvent()

	resp := decode[agendaResponse](t, h.do("GET", "/api/agenda?days=7", olivia, nil))
	require.Len(t, resp.Occurrences, 1)
	assert.Equal(t, "evt-1", resp.Occurrences[0].EventID)
	assert.Equal(t, "UTC", resp.DisplayTimeZone)

	resp = decode[agendaResponse](t, h.do("GET", "/api/agenda?days=1", olivia, nil))
	assert.Empty(t, resp.Occurrences)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newHarness(t, cfg)

	assert.Equal(t, http.StatusOK, h.do("GET", "/health", "", nil).Code)

	rec := h.do("GET", "/api/selection", olivia, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "EventEase")

	req := httptest.NewRequest("GET", "/api/selection", nil)
	req.Header.Set(headerUserEmail, olivia)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
