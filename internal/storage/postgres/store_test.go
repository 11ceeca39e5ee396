package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"eventease/internal/storage"
	"eventease/internal/storage/storagetest"
)

// TestStoreContract runs against a disposable database named by
// EVENTEASE_TEST_POSTGRES_DSN; tables are truncated before each subtest.
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("EVENTEASE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EVENTEASE_TEST_POSTGRES_DSN not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx := context.Background()
		db, err := Connect(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		_, err = db.Pool.Exec(ctx, `TRUNCATE invitations, events, providers`)
		require.NoError(t, err)
		return db
	})
}
