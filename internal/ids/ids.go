// Package ids generates identifiers for events, invitations and sessions.
package ids

import "github.com/google/uuid"

// New returns a time-ordered UUIDv7 string.
func New() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
