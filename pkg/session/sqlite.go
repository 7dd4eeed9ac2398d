package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists session entries in a local SQLite database so an
// embedded client survives process restarts without a cache server.
// Expiry is enforced on read and by Sweep.
type SQLiteStore struct {
	db    *sql.DB
	bcast *broadcaster
	clock func() time.Time
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	expires_at INTEGER,
	PRIMARY KEY (namespace, key)
);
`

// NewSQLiteStore opens (and if needed creates) the database at path.
// ":memory:" works for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	// SQLite handles a single writer; more connections just contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: init sqlite schema: %w", err)
	}

	return &SQLiteStore{
		db:    db,
		bcast: newBroadcaster(),
		clock: time.Now,
	}, nil
}

// Set stores value under (namespace, key).
func (s *SQLiteStore) Set(ctx context.Context, namespace, key string, value []byte, opts SetOptions) error {
	var expiresAt sql.NullInt64
	if opts.TTL > 0 {
		expiresAt = sql.NullInt64{Valid: true, Int64: s.clock().Add(opts.TTL).UnixNano()}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_entries (namespace, key, value, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, namespace, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("session: sqlite set: %w", err)
	}

	if !opts.SkipBroadcast {
		s.bcast.publish(Event{Namespace: namespace, Key: key, Op: OpSet})
	}
	return nil
}

// Get returns the stored value, or ErrNotFound when absent/expired.
func (s *SQLiteStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM session_entries
		WHERE namespace = ? AND key = ?
	`, namespace, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: sqlite get: %w", err)
	}

	if expiresAt.Valid && s.clock().UnixNano() >= expiresAt.Int64 {
		_, _ = s.db.ExecContext(ctx, `
			DELETE FROM session_entries WHERE namespace = ? AND key = ?
		`, namespace, key)
		return nil, ErrNotFound
	}
	return value, nil
}

// Delete removes a key.
func (s *SQLiteStore) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM session_entries WHERE namespace = ? AND key = ?
	`, namespace, key)
	if err != nil {
		return fmt.Errorf("session: sqlite delete: %w", err)
	}
	s.bcast.publish(Event{Namespace: namespace, Key: key, Op: OpDelete})
	return nil
}

// ClearAll wipes every namespace.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_entries`); err != nil {
		return fmt.Errorf("session: sqlite clear: %w", err)
	}
	s.bcast.publish(Event{Op: OpClear})
	return nil
}

// Subscribe registers a change callback.
func (s *SQLiteStore) Subscribe(fn func(Event)) func() {
	return s.bcast.subscribe(fn)
}

// Sweep removes expired rows and returns how many were dropped.
func (s *SQLiteStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM session_entries
		WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, s.clock().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("session: sqlite sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Ping checks the database handle, for readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
