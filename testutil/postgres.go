package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/onnwee/emote-tender/backend/db"
	"github.com/onnwee/emote-tender/backend/emotes"
)

// TestDSN returns TEST_PG_DSN or skips the test when it is not set.
func TestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	return dsn
}

// SetupStore connects an emote store to TEST_PG_DSN, migrates, and empties the emotes table.
// It skips the test if TEST_PG_DSN is not set.
func SetupStore(t *testing.T, fetcher emotes.Fetcher) *emotes.Store {
	t.Helper()
	dsn := TestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `TRUNCATE emotes RESTART IDENTITY`); err != nil {
		conn.Close()
		t.Fatalf("failed to truncate emotes: %v", err)
	}
	conn.Close()

	store, err := emotes.Connect(ctx, dsn, fetcher)
	if err != nil {
		t.Fatalf("failed to connect store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
