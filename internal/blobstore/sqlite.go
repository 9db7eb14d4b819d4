package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"horse.fit/lingodrop/internal/globaltime"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS objects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	data BLOB NOT NULL,
	size INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_objects_namespace_id ON objects (namespace, id);
`

// OpenSQLiteDB opens the sqlite file backing the object stores, applying the
// pragmas needed for concurrent reader and writer processes.
func OpenSQLiteDB(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqldb.Exec(pragma); err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := sqldb.Exec(sqliteSchema); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return sqldb, nil
}

// SQLite mirrors the Postgres store over a local sqlite file, with the same
// id-cursor poll watch.
type SQLite struct {
	sqldb        *sql.DB
	namespace    string
	pollInterval time.Duration
}

func NewSQLite(sqldb *sql.DB, namespace string, pollInterval time.Duration) (*SQLite, error) {
	if sqldb == nil {
		return nil, fmt.Errorf("sqlite database is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("store namespace is required")
	}
	if pollInterval <= 0 {
		pollInterval = defaultWatchPollInterval
	}
	return &SQLite{sqldb: sqldb, namespace: namespace, pollInterval: pollInterval}, nil
}

func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
	if !ValidKey(key) {
		return fmt.Errorf("invalid object key %q", key)
	}

	_, err := s.sqldb.ExecContext(ctx, `
		INSERT INTO objects (namespace, key, data, size, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key)
		DO UPDATE SET data = excluded.data, size = excluded.size, created_at = excluded.created_at`,
		s.namespace, key, data, int64(len(data)), globaltime.UTC())
	if err != nil {
		return fmt.Errorf("store object %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}

	var data []byte
	err := s.sqldb.QueryRowContext(ctx,
		`SELECT data FROM objects WHERE namespace = ? AND key = ?`,
		s.namespace, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("load object %q: %w", key, err)
	}
	return data, nil
}

func (s *SQLite) Exists(ctx context.Context, key string) (bool, error) {
	if !ValidKey(key) {
		return false, nil
	}

	var exists bool
	err := s.sqldb.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM objects WHERE namespace = ? AND key = ?)`,
		s.namespace, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check object %q: %w", key, err)
	}
	return exists, nil
}

func (s *SQLite) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	rows, err := s.sqldb.QueryContext(ctx,
		`SELECT key, size, created_at FROM objects WHERE namespace = ? ORDER BY key`,
		s.namespace)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var items []ObjectInfo
	for rows.Next() {
		var item ObjectInfo
		if err := rows.Scan(&item.Key, &item.Size, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}
		if prefix != "" && !strings.HasPrefix(item.Key, prefix) {
			continue
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return items, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}

	result, err := s.sqldb.ExecContext(ctx,
		`DELETE FROM objects WHERE namespace = ? AND key = ?`,
		s.namespace, key)
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}
	return nil
}

func (s *SQLite) Watch(ctx context.Context, keyPattern string) (<-chan Event, error) {
	var cursor int64
	err := s.sqldb.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM objects WHERE namespace = ?`,
		s.namespace).Scan(&cursor)
	if err != nil {
		return nil, fmt.Errorf("init watch cursor: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next, events, err := s.pollSince(ctx, cursor, keyPattern)
				if err != nil {
					continue
				}
				cursor = next
				for _, event := range events {
					select {
					case out <- event:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

func (s *SQLite) pollSince(ctx context.Context, cursor int64, keyPattern string) (int64, []Event, error) {
	rows, err := s.sqldb.QueryContext(ctx, `
		SELECT id, key, created_at FROM objects
		WHERE namespace = ? AND id > ?
		ORDER BY id`,
		s.namespace, cursor)
	if err != nil {
		return cursor, nil, fmt.Errorf("poll objects: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			id        int64
			key       string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &key, &createdAt); err != nil {
			return cursor, nil, fmt.Errorf("scan object row: %w", err)
		}
		if id > cursor {
			cursor = id
		}
		if !matchKey(keyPattern, key) {
			continue
		}
		events = append(events, Event{Key: key, CreatedAt: createdAt.UTC()})
	}
	if err := rows.Err(); err != nil {
		return cursor, nil, fmt.Errorf("poll objects: %w", err)
	}
	return cursor, events, nil
}
