package blobstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/lingodrop/internal/db"
	"horse.fit/lingodrop/internal/globaltime"
)

const defaultWatchPollInterval = 2 * time.Second

// Postgres keeps objects in the shared objects table, one row per key inside
// a namespace. Watch polls the table instead of listening for notifications,
// using the autoincrement id as a cursor so each creation is seen once.
type Postgres struct {
	pool         *db.Pool
	namespace    string
	pollInterval time.Duration
}

func NewPostgres(pool *db.Pool, namespace string, pollInterval time.Duration) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("store namespace is required")
	}
	if pollInterval <= 0 {
		pollInterval = defaultWatchPollInterval
	}
	return &Postgres{pool: pool, namespace: namespace, pollInterval: pollInterval}, nil
}

func (s *Postgres) Put(ctx context.Context, key string, data []byte) error {
	if !ValidKey(key) {
		return fmt.Errorf("invalid object key %q", key)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO objects (namespace, key, data, size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (namespace, key)
		DO UPDATE SET data = EXCLUDED.data, size = EXCLUDED.size, created_at = EXCLUDED.created_at`,
		s.namespace, key, data, int64(len(data)), globaltime.UTC())
	if err != nil {
		return fmt.Errorf("store object %q: %w", key, err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM objects WHERE namespace = $1 AND key = $2`,
		s.namespace, key).Scan(&data)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("load object %q: %w", key, err)
	}
	return data, nil
}

func (s *Postgres) Exists(ctx context.Context, key string) (bool, error) {
	if !ValidKey(key) {
		return false, nil
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM objects WHERE namespace = $1 AND key = $2)`,
		s.namespace, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check object %q: %w", key, err)
	}
	return exists, nil
}

func (s *Postgres) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, size, created_at FROM objects WHERE namespace = $1 ORDER BY key`,
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

func (s *Postgres) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM objects WHERE namespace = $1 AND key = $2`,
		s.namespace, key)
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}
	return nil
}

func (s *Postgres) Watch(ctx context.Context, keyPattern string) (<-chan Event, error) {
	cursor, err := s.watchCursor(ctx)
	if err != nil {
		return nil, err
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

// watchCursor returns the highest id already in the namespace, so a watch
// only reports objects created after it started.
func (s *Postgres) watchCursor(ctx context.Context) (int64, error) {
	var cursor int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM objects WHERE namespace = $1`,
		s.namespace).Scan(&cursor)
	if err != nil {
		return 0, fmt.Errorf("init watch cursor: %w", err)
	}
	return cursor, nil
}

func (s *Postgres) pollSince(ctx context.Context, cursor int64, keyPattern string) (int64, []Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, key, created_at FROM objects
		WHERE namespace = $1 AND id > $2
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
