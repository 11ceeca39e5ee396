package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"eventease/internal/model"
)

var (
	// ErrSessionKeyRequired is returned for operations without a session key.
	ErrSessionKeyRequired = errors.New("session key is required")
	// ErrSessionBusy is returned when another process held the session
	// lock for longer than the store is willing to wait.
	ErrSessionBusy = errors.New("session is busy")
)

// SessionStore holds one Selection per session key. Implementations store
// whole values; there is no partial update.
type SessionStore interface {
	Load(ctx context.Context, key string) (model.Selection, bool, error)
	Save(ctx context.Context, key string, sel model.Selection) error
	Delete(ctx context.Context, key string) error
}

// SessionLocker is implemented by stores shared between processes. Lock
// blocks until the caller owns key and returns the release function.
type SessionLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type memoryEntry struct {
	sel     model.Selection
	expires time.Time
}

// MemorySessionStore keeps selections in process memory. Entries untouched
// for longer than the TTL are invisible to Load and removed by Sweep.
type MemorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]memoryEntry
}

// NewMemorySessionStore returns an empty store. A non-positive ttl keeps
// entries forever.
func NewMemorySessionStore(ttl time.Duration, clock func() time.Time) *MemorySessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemorySessionStore{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemorySessionStore) Load(_ context.Context, key string) (model.Selection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return model.Selection{}, false, nil
	}
	if s.expired(e, s.clock()) {
		delete(s.entries, key)
		return model.Selection{}, false, nil
	}
	return e.sel, true, nil
}

func (s *MemorySessionStore) Save(_ context.Context, key string, sel model.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{sel: sel}
	if s.ttl > 0 {
		e.expires = s.clock().Add(s.ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	removed := 0
	for k, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemorySessionStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
