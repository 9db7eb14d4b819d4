// Package blobstore provides key-addressed object storage with creation
// notifications. Request and response namespaces of the translation pipeline
// are two independent Store instances over the same backend.
package blobstore

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Get and Delete for keys with no stored object.
var ErrNotFound = errors.New("object not found")

// Namespace names shared by all backends.
const (
	NamespaceRequests  = "requests"
	NamespaceResponses = "responses"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key       string
	Size      int64
	CreatedAt time.Time
}

// Event signals that an object was created under a watched pattern.
// Delivery is at-least-once; consumers must tolerate duplicates.
type Event struct {
	Key       string
	CreatedAt time.Time
}

// Store is a key-addressed blob namespace.
type Store interface {
	// Put creates or overwrites the object at key. The write is atomic at
	// the key level: readers never observe a partial object.
	Put(ctx context.Context, key string, data []byte) error
	// Get reads the object at key; ErrNotFound when absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// List returns objects whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Delete removes the object at key; ErrNotFound when absent.
	Delete(ctx context.Context, key string) error
	// Watch emits an Event for every object created after the call whose
	// key matches the glob pattern (path.Match syntax, for example
	// "*.json"). The returned channel closes when ctx ends.
	Watch(ctx context.Context, keyPattern string) (<-chan Event, error)
}

// ObjectKey derives the stored key for a request id. Ids that already carry
// the .json suffix are used verbatim so the request and response objects of
// one submission share a basename.
func ObjectKey(requestID string) string {
	id := strings.TrimSpace(requestID)
	if id == "" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(id), ".json") {
		return id
	}
	return id + ".json"
}

// ValidKey reports whether key is safe to store: non-empty, no path
// separators, no traversal, not hidden.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	if strings.ContainsAny(key, "/\\") {
		return false
	}
	if strings.HasPrefix(key, ".") {
		return false
	}
	return key == strings.TrimSpace(key)
}

func matchKey(pattern, key string) bool {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" || trimmed == "*" {
		return true
	}
	ok, err := path.Match(trimmed, key)
	if err != nil {
		return false
	}
	return ok
}
