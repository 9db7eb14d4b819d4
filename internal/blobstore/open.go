package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"horse.fit/lingodrop/internal/config"
	"horse.fit/lingodrop/internal/db"
)

// Stores bundles the request and response namespaces of one backend. Both
// namespaces share the backend's underlying resources (pool, database
// handle), so Close releases them exactly once.
type Stores struct {
	Requests  Store
	Responses Store

	closers []func() error
}

// Close releases the backend resources shared by both namespaces.
func (s *Stores) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// Open wires the request and response namespaces onto the configured
// backend. The memory backend exists only within one process; separate
// serve and work processes cannot share it.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	switch strings.TrimSpace(strings.ToLower(cfg.StoreBackend)) {
	case config.BackendMemory:
		return &Stores{
			Requests:  NewMemory(),
			Responses: NewMemory(),
		}, nil

	case config.BackendFS:
		requests, err := NewFS(filepath.Join(cfg.DataDir, NamespaceRequests))
		if err != nil {
			return nil, fmt.Errorf("open fs request store: %w", err)
		}
		responses, err := NewFS(filepath.Join(cfg.DataDir, NamespaceResponses))
		if err != nil {
			return nil, fmt.Errorf("open fs response store: %w", err)
		}
		return &Stores{
			Requests:  requests,
			Responses: responses,
		}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		requests, err := NewPostgres(pool, NamespaceRequests, cfg.WatchPollInterval)
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("open postgres request store: %w", err)
		}
		responses, err := NewPostgres(pool, NamespaceResponses, cfg.WatchPollInterval)
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("open postgres response store: %w", err)
		}
		return &Stores{
			Requests:  requests,
			Responses: responses,
			closers:   []func() error{pool.Close},
		}, nil

	case config.BackendSQLite:
		sqldb, err := OpenSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		requests, err := NewSQLite(sqldb, NamespaceRequests, cfg.WatchPollInterval)
		if err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("open sqlite request store: %w", err)
		}
		responses, err := NewSQLite(sqldb, NamespaceResponses, cfg.WatchPollInterval)
		if err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("open sqlite response store: %w", err)
		}
		return &Stores{
			Requests:  requests,
			Responses: responses,
			closers:   []func() error{sqldb.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
