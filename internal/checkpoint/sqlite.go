package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore keeps checkpoints in a local SQLite file. Timestamps are
// stored as RFC3339 UTC strings so the file stays inspectable with any
// sqlite shell.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the checkpoint database at path
// and ensures the schema exists. The caller must Close it when done.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping checkpoint database: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}

	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		object_type TEXT PRIMARY KEY,
		high_water_mark TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sync_times (
		direction TEXT PRIMARY KEY,
		synced_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("create checkpoint schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// HighWaterMark implements Store.
func (s *SQLiteStore) HighWaterMark(ctx context.Context, objectType string) (*time.Time, error) {
	return s.queryMark(ctx,
		`SELECT high_water_mark FROM checkpoints WHERE object_type = ?`, objectType)
}

// SetHighWaterMark implements Store.
func (s *SQLiteStore) SetHighWaterMark(ctx context.Context, objectType string, mark time.Time) error {
	query := `
	INSERT INTO checkpoints (object_type, high_water_mark)
	VALUES (?, ?)
	ON CONFLICT(object_type) DO UPDATE SET
		high_water_mark = excluded.high_water_mark
	`
	if _, err := s.conn.ExecContext(ctx, query, objectType, mark.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("set high-water mark for %s: %w", objectType, err)
	}
	return nil
}

// SyncedTime implements Store.
func (s *SQLiteStore) SyncedTime(ctx context.Context, direction Direction) (*time.Time, error) {
	return s.queryMark(ctx,
		`SELECT synced_at FROM sync_times WHERE direction = ?`, string(direction))
}

// SetSyncedTime implements Store.
func (s *SQLiteStore) SetSyncedTime(ctx context.Context, direction Direction, t time.Time) error {
	query := `
	INSERT INTO sync_times (direction, synced_at)
	VALUES (?, ?)
	ON CONFLICT(direction) DO UPDATE SET
		synced_at = excluded.synced_at
	`
	if _, err := s.conn.ExecContext(ctx, query, string(direction), t.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("set synced time for %s: %w", direction, err)
	}
	return nil
}

func (s *SQLiteStore) queryMark(ctx context.Context, query, key string) (*time.Time, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx, query, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint for %s: %w", key, err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint %q for %s: %w", raw, key, err)
	}
	return &t, nil
}
