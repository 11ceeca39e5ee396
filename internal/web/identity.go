package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"eventease/internal/ids"
	"eventease/internal/model"
)

const (
	headerUserEmail  = "X-User-Email"
	headerUserName   = "X-User-Name"
	headerSessionKey = "X-Session-Key"
	sessionCookie    = "eventease_session"
)

var (
	errNoIdentity = errors.New("missing " + headerUserEmail + " header")
	errBadBody    = errors.New("malformed request body")
)

type ctxKey int

const (
	userKey ctxKey = iota
	sessionKeyKey
)

// withUser resolves the caller identity set by the fronting auth proxy
// and the selection session key before calling h.
func (s *Server) withUser(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := model.NormalizeEmail(r.Header.Get(headerUserEmail))
		if email == "" {
			writeError(w, r, errNoIdentity)
			return
		}
		user := model.Organizer{Ref: email, Name: strings.TrimSpace(r.Header.Get(headerUserName))}
		if user.Name == "" {
			user.Name = email
		}

		key, err := sessionKey(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		// Session keys are scoped to the user so a leaked key is useless
		// to anyone else.
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, sessionKeyKey, user.Ref+"|"+key)
		h(w, r.WithContext(ctx))
	}
}

// sessionKey reads the key from the header or cookie, issuing a cookie
// when neither is present.
func sessionKey(w http.ResponseWriter, r *http.Request) (string, error) {
	if k := strings.TrimSpace(r.Header.Get(headerSessionKey)); k != "" {
		return k, nil
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	k, err := ids.New()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    k,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return k, nil
}

func userFrom(r *http.Request) model.Organizer {
	u, _ := r.Context().Value(userKey).(model.Organizer)
	return u
}

func sessionFrom(r *http.Request) string {
	k, _ := r.Context().Value(sessionKeyKey).(string)
	return k
}
