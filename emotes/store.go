// Package emotes stores custom emote images in Postgres and looks them up by name.
//
// A Store owns one database connection. Reconnect replaces it manually; nothing in this
// package retries. AddOne is guarded against duplicates by a lookup plus the unique index on
// Emotes.name, but callers that care about ordering should still serialize their writes.
package emotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onnwee/emote-tender/backend/db"
	"github.com/onnwee/emote-tender/backend/telemetry"
)

// Emote is a stored emote record.
type Emote struct {
	ID    int64
	Name  string
	Image []byte
}

// Store is the emote table behind a single connection.
type Store struct {
	dsn     string
	fetcher Fetcher

	// mu guards conn swaps during Reconnect; HTTP handlers read concurrently.
	mu   sync.RWMutex
	conn *sql.DB
}

// Connect opens the store's connection. A nil fetcher uses HTTPFetcher with the default client.
func Connect(ctx context.Context, dsn string, fetcher Fetcher) (*Store, error) {
	conn, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if fetcher == nil {
		fetcher = HTTPFetcher{}
	}
	return &Store{dsn: dsn, fetcher: fetcher, conn: conn}, nil
}

// Reconnect closes the current connection, ignoring close errors, and opens a new one
// from the DSN it was opened with. It does not retry.
func (s *Store) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	telemetry.Inc(telemetry.StoreReconnects)
	conn, err := db.Connect(ctx, s.dsn)
	if err != nil {
		slog.Error("emote store reconnect failed", slog.Any("err", err), slog.String("component", "emote_store"))
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	s.conn = conn
	slog.Info("emote store reconnected", slog.String("component", "emote_store"))
	return nil
}

// Close releases the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Ping checks the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	return conn.PingContext(ctx)
}

func (s *Store) db() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, fmt.Errorf("%w: store is closed", ErrConnection)
	}
	return s.conn, nil
}

// FindByName returns the emote called name, or nil when none exists. If several rows
// share the name, the first one the query yields is returned.
func (s *Store) FindByName(ctx context.Context, name string) (*Emote, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}
	var e Emote
	err = conn.QueryRowContext(ctx, `SELECT id, name, image FROM Emotes WHERE name = $1`, name).
		Scan(&e.ID, &e.Name, &e.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find emote %q: %w", name, err)
	}
	return &e, nil
}

// List returns all stored emote names in insertion order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT name FROM Emotes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list emotes: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan emote name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddOne downloads imageURL and stores it under name. It returns false without fetching
// anything when name is already stored, or when a concurrent writer won the insert.
// Otherwise it reports whether the row can be read back after commit.
func (s *Store) AddOne(ctx context.Context, name, imageURL string) (added bool, err error) {
	ctx, span := telemetry.StartEmoteSpan(ctx, "emote-store", "AddOne", name)
	defer func() { telemetry.EndSpan(span, err) }()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "emote_store"), slog.String("emote", name))

	existing, err := s.FindByName(ctx, name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		telemetry.Inc(telemetry.EmoteDuplicates)
		log.Debug("emote already stored")
		return false, nil
	}

	var image []byte
	telemetry.TimeFunc(telemetry.FetchDuration, func() {
		image, err = s.fetcher.Fetch(ctx, imageURL)
	})
	if err != nil {
		telemetry.Inc(telemetry.EmoteFetchFailures)
		return false, err
	}

	inserted, err := s.insert(ctx, name, image)
	if err != nil {
		return false, err
	}
	if !inserted {
		telemetry.Inc(telemetry.EmoteDuplicates)
		log.Info("emote inserted concurrently by another writer")
		return false, nil
	}

	conn, err := s.db()
	if err != nil {
		return false, err
	}
	var id int64
	err = conn.QueryRowContext(ctx, `SELECT id FROM Emotes WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("emote missing after insert")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirm emote %q: %w", name, err)
	}

	telemetry.Inc(telemetry.EmotesAdded)
	log.Info("emote added", slog.Int64("id", id), slog.Int("bytes", len(image)))
	return true, nil
}

func (s *Store) insert(ctx context.Context, name string, image []byte) (bool, error) {
	conn, err := s.db()
	if err != nil {
		return false, err
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO Emotes(name, image) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, name, image)
	if err != nil {
		return false, fmt.Errorf("insert emote %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert emote %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit emote %q: %w", name, err)
	}
	return n == 1, nil
}
