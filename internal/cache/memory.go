package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryEntries caps the memory tier when no limit is given.
const DefaultMemoryEntries = 4096

// MemoryTier is the process-local tier. Expired entries are dropped when read
// or when a Set finds the tier full; past the limit the oldest insert goes.
type MemoryTier struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	order   []Key
	limit   int
	now     Clock
}

func NewMemoryTier(now Clock) *MemoryTier {
	return NewMemoryTierWithLimit(now, DefaultMemoryEntries)
}

func NewMemoryTierWithLimit(now Clock, limit int) *MemoryTier {
	if limit <= 0 {
		limit = DefaultMemoryEntries
	}
	return &MemoryTier{
		entries: make(map[Key]Entry),
		limit:   limit,
		now:     clockOrNow(now),
	}
}

func (m *MemoryTier) Name() string { return "memory" }

func (m *MemoryTier) Get(_ context.Context, key Key) (*Entry, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if entry.Expired(m.now()) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.ExpiresAt.Equal(entry.ExpiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, nil
	}
	return &entry, nil
}

func (m *MemoryTier) Set(_ context.Context, key Key, payload []byte, expiresAt time.Time) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		if len(m.entries) >= m.limit {
			m.sweep(m.now())
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = Entry{Payload: buf, ExpiresAt: expiresAt}

	for len(m.entries) > m.limit && len(m.order) > 0 {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
	if len(m.order) > 2*m.limit {
		m.compact()
	}
	return nil
}

// sweep drops every expired entry. Callers hold the write lock.
func (m *MemoryTier) sweep(now time.Time) {
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
		}
	}
	m.compact()
}

// compact forgets order slots whose entries are gone.
func (m *MemoryTier) compact() {
	live := m.order[:0]
	for _, key := range m.order {
		if _, ok := m.entries[key]; ok {
			live = append(live, key)
		}
	}
	m.order = live
}

func (m *MemoryTier) DeleteOwner(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if key.Owner == owner {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len counts stored entries, expired ones included.
func (m *MemoryTier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
