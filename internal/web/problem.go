package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventease/internal/dispatch"
	"eventease/internal/events"
	appLog "eventease/internal/log"
	"eventease/internal/model"
	"eventease/internal/storage"
	"eventease/internal/workflow"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, errs map[string][]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  title,
		Status: status,
		Detail: detail,
		Errors: errs,
	})
}

// writeError maps domain errors to problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusBadRequest, "Validation failed", verr.Error(),
			map[string][]string{verr.Field: {verr.Msg}})
	case errors.Is(err, errBadBody):
		writeProblem(w, http.StatusBadRequest, "Bad request", err.Error(), nil)
	case errors.Is(err, errNoIdentity):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), nil)
	case errors.Is(err, workflow.ErrSessionKeyRequired):
		writeProblem(w, http.StatusBadRequest, "Bad request", err.Error(), nil)
	case errors.Is(err, workflow.ErrNotReady):
		writeProblem(w, http.StatusConflict, "Selection incomplete", "choose an event type, a vendor and a venue before committing", nil)
	case errors.Is(err, workflow.ErrSessionBusy):
		writeProblem(w, http.StatusConflict, "Session busy", "another request for this session is still running; retry shortly", nil)
	case errors.Is(err, dispatch.ErrInProgress):
		writeProblem(w, http.StatusConflict, "Dispatch in progress", err.Error(), nil)
	case errors.Is(err, events.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error(), nil)
	case errors.Is(err, storage.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not found", "the requested record does not exist", nil)
	default:
		appLog.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
		writeProblem(w, http.StatusInternalServerError, "Internal error", "", nil)
	}
}
