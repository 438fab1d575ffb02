package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`

// sqliteDSN configures every pooled connection: the CLI and a running server
// share the file, so writers wait for the lock instead of failing with
// SQLITE_BUSY, and transactions take the write lock up front.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// SQLite keeps state as JSON values in a small key-value table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the state database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single connection keeps read-modify-write in AppendLog serialized
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLite) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value
	`, key, string(data))
	return err
}

func (s *SQLite) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	if _, err := s.get(ctx, EnabledKey, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

func (s *SQLite) SetEnabled(ctx context.Context, enabled bool) error {
	return s.put(ctx, EnabledKey, enabled)
}

func (s *SQLite) Logs(ctx context.Context, limit int) ([]LogEntry, error) {
	var logs []LogEntry
	if _, err := s.get(ctx, LogsKey, &logs); err != nil {
		return nil, err
	}
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *SQLite) AppendLog(ctx context.Context, entry LogEntry, limit int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var logs []LogEntry
	var raw string
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, LogsKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal([]byte(raw), &logs); err != nil {
			return fmt.Errorf("decode %s: %w", LogsKey, err)
		}
	}

	data, err := json.Marshal(Prepend(logs, entry, limit))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value
	`, LogsKey, string(data)); err != nil {
		return err
	}
	return tx.Commit()
}
