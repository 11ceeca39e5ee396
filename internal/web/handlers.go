package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"eventease/internal/events"
	"eventease/internal/ics"
	"eventease/internal/invite"
	appLog "eventease/internal/log"
	"eventease/internal/model"
	"eventease/internal/workflow"
)

type selectionResponse struct {
	Selection model.Selection `json:"selection"`
	Phase     model.Phase     `json:"phase"`
	Ready     bool            `json:"ready"`
}

func newSelectionResponse(sel model.Selection) selectionResponse {
	return selectionResponse{Selection: sel, Phase: sel.Phase(), Ready: sel.Ready()}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	role, err := parseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	providers, err := s.deps.Providers.ListProviders(r.Context(), role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if providers == nil {
		providers = []model.Provider{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

func parseRole(v string) (model.ProviderRole, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return "", nil
	case "vendor":
		return model.RoleVendor, nil
	case "venue", "venue_owner":
		return model.RoleVenueOwner, nil
	default:
		return "", model.Invalid("role", "must be vendor or venue_owner")
	}
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := s.deps.Coordinator.State(r.Context(), sessionFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSelectionResponse(sel))
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Coordinator.Abandon(r.Context(), sessionFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectEventType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventType string `json:"event_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	sel, err := s.deps.Coordinator.SelectEventType(r.Context(), sessionFrom(r), req.EventType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSelectionResponse(sel))
}

func (s *Server) handleSelectProviders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VendorRef string `json:"vendor_ref"`
		VenueRef  string `json:"venue_ref"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	sel, err := s.deps.Coordinator.SelectProvider(r.Context(), sessionFrom(r),
		model.NormalizeEmail(req.VendorRef), model.NormalizeEmail(req.VenueRef))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSelectionResponse(sel))
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var in workflow.CommitInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	ev, err := s.deps.Coordinator.Commit(r.Context(), sessionFrom(r), userFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	as, err := events.ParsePerspective(r.URL.Query().Get("as"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	evs, err := s.deps.Events.List(r.Context(), userFrom(r).Ref, as)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if evs == nil {
		evs = []model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"as": as, "events": evs})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Events.Get(r.Context(), userFrom(r).Ref, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Events.Delete(r.Context(), userFrom(r).Ref, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	invs, err := s.deps.Invites.List(r.Context(), userFrom(r).Ref, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if invs == nil {
		invs = []model.Invitation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

type addInvitationResponse struct {
	Invitation    model.Invitation `json:"invitation"`
	AlreadyExists bool             `json:"already_exists"`
}

func (s *Server) handleAddInvitation(w http.ResponseWriter, r *http.Request) {
	var in invite.GuestInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	inv, created, err := s.deps.Invites.Add(r.Context(), userFrom(r).Ref, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, addInvitationResponse{Invitation: inv, AlreadyExists: !created})
}

func (s *Server) handleRemoveInvitation(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Invites.Remove(r.Context(), userFrom(r).Ref, r.PathValue("id"), r.PathValue("inv"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendInvitations(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Events.Owned(r.Context(), userFrom(r).Ref, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.deps.Dispatcher.SendPending(r.Context(), ev.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleInvitationCalendar(w http.ResponseWriter, r *http.Request) {
	ev, inv, err := s.deps.Invites.Get(r.Context(), userFrom(r).Ref, r.PathValue("id"), r.PathValue("inv"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := s.deps.Calendar.Generate(ev, inv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8; method=REQUEST")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ics.Filename(ev)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	Occurrences     []model.Occurrence `json:"occurrences"`
	TruncatedUIDs   []string           `json:"truncated_uids,omitempty"`
	RangeStart      time.Time          `json:"range_start"`
	RangeEnd        time.Time          `json:"range_end"`
	DisplayTimeZone string             `json:"display_timezone"`
}

// handleAgenda returns expanded occurrences of the caller's events.
//
// GET /api/agenda?days=7&backfill=1
//   - days:     how many days ahead to include (default 7)
//   - backfill: how many past days to include (default 1)
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	loc := s.deps.Calendar.Location
	if loc == nil {
		loc = time.UTC
	}
	now := s.deps.Now().In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	user := userFrom(r)
	appLog.Debug("api agenda request",
		"user", user.Ref,
		"days", days,
		"backfill", backfill,
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)

	res, err := s.deps.Events.Agenda(r.Context(), user.Ref, rangeStart, rangeEnd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	occ := res.Occurrences
	if occ == nil {
		occ = []model.Occurrence{}
	}
	writeJSON(w, http.StatusOK, agendaResponse{
		Occurrences:     occ,
		TruncatedUIDs:   res.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
	})
}
