package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a fully in-memory implementation of Store. Safe for
// concurrent access. Intended for unit testing and development without
// a Redis server.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]memEntry
	lists  map[string][]string
}

type memEntry struct {
	value     string
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns a new empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]memEntry),
		lists:  make(map[string][]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(e.expiresAt) {
		delete(m.values, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) SetWithExpiry(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.lists, key)
	return nil
}

func (m *MemoryStore) RightPush(_ context.Context, listKey, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[listKey] = append(m.lists[listKey], value)
	return nil
}

// BlockingLeftPop polls the list until an element arrives, the wait
// window elapses, or the context is cancelled.
func (m *MemoryStore) BlockingLeftPop(ctx context.Context, listKey string, wait time.Duration) (string, bool, error) {
	deadline := time.Now().Add(wait)
	for {
		if v, ok := m.tryLeftPop(listKey); ok {
			return v, true, nil
		}
		if time.Now().After(deadline) {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (m *MemoryStore) tryLeftPop(listKey string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.lists[listKey]
	if len(list) == 0 {
		return "", false
	}
	head := list[0]
	if len(list) == 1 {
		delete(m.lists, listKey)
	} else {
		m.lists[listKey] = list[1:]
	}
	return head, true
}

func (m *MemoryStore) ListLen(_ context.Context, listKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.lists[listKey])), nil
}

// Ping always succeeds for the memory store.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }
