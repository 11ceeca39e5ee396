package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eventease/internal/model"
	"eventease/internal/storage"
)

var errBackend = errors.New("backend unavailable")

func fixedClock() time.Time {
	return time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
}

// sequentialIDs returns evt-1, evt-2, ...
func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("evt-%d", n), nil
	}
}

// flakyEvents persists the event but reports a failure the first failN
// times, as a connection dropped after the write would.
type flakyEvents struct {
	storage.EventStore
	mu    sync.Mutex
	failN int
	calls int
}

func (f *flakyEvents) CreateEvent(ctx context.Context, ev model.Event) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failN
	f.mu.Unlock()

	if err := f.EventStore.CreateEvent(ctx, ev); err != nil {
		return err
	}
	if fail {
		return errBackend
	}
	return nil
}

// brokenProviders fails every lookup with a non-NotFound error.
type brokenProviders struct{}

func (brokenProviders) FindProviderByRef(context.Context, string) (model.Provider, error) {
	return model.Provider{}, errBackend
}

// failingDeletes wraps a SessionStore whose Delete always fails.
type failingDeletes struct {
	SessionStore
}

func (failingDeletes) Delete(context.Context, string) error {
	return errBackend
}
