package blobstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"horse.fit/lingodrop/internal/globaltime"
)

// Memory is an in-process Store for tests and single-binary demos.
type Memory struct {
	mu       sync.RWMutex
	objects  map[string]memoryObject
	watchers map[int]*memoryWatcher
	nextID   int
}

type memoryObject struct {
	data []byte
	info ObjectInfo
}

type memoryWatcher struct {
	pattern string
	events  chan Event
	done    <-chan struct{}
}

func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string]memoryObject),
		watchers: make(map[int]*memoryWatcher),
	}
}

func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidKey(key) {
		return fmt.Errorf("invalid object key %q", key)
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	info := ObjectInfo{
		Key:       key,
		Size:      int64(len(stored)),
		CreatedAt: globaltime.UTC(),
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: stored, info: info}
	watchers := make([]*memoryWatcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		if matchKey(w.pattern, key) {
			watchers = append(watchers, w)
		}
	}
	m.mu.Unlock()

	event := Event{Key: key, CreatedAt: info.CreatedAt}
	for _, w := range watchers {
		select {
		case w.events <- event:
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}

	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	return ok, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	items := make([]ObjectInfo, 0, len(m.objects))
	for key, obj := range m.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		items = append(items, obj.info)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) Watch(ctx context.Context, keyPattern string) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	watcher := &memoryWatcher{
		pattern: keyPattern,
		events:  make(chan Event, 16),
		done:    ctx.Done(),
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = watcher
	m.mu.Unlock()

	out := make(chan Event)
	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.watchers, id)
			m.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-watcher.events:
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
