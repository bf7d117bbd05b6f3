package revocation

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// Memory is a process-local bounded blacklist. Past the high-water mark the
// oldest half is evicted; acceptable only because access tokens are
// short-lived. State does not survive a restart and is not shared across
// instances.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	order   []memoryEntry
	maxSize int
	nowFunc func() time.Time
}

func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Memory{
		entries: make(map[string]time.Time),
		maxSize: maxSize,
		nowFunc: time.Now,
	}
}

func (m *Memory) Blacklist(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.nowFunc().Add(ttl)
	if _, ok := m.entries[token]; !ok {
		m.order = append(m.order, memoryEntry{token: token, expiresAt: expiresAt})
	}
	m.entries[token] = expiresAt

	if len(m.entries) > m.maxSize {
		m.evictOldestHalfLocked()
	}

	return nil
}

func (m *Memory) IsBlacklisted(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	expiresAt, ok := m.entries[token]
	if !ok {
		return false, nil
	}
	// An entry past its ttl no longer matters: the token itself has
	// expired and fails the expiry check regardless.
	return m.nowFunc().Before(expiresAt), nil
}

func (m *Memory) EvictExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	kept := m.order[:0]
	evicted := 0

	for _, e := range m.order {
		current, ok := m.entries[e.token]
		if !ok {
			continue
		}
		if now.Before(current) {
			kept = append(kept, e)
			continue
		}
		delete(m.entries, e.token)
		evicted++
	}

	m.order = kept
	return evicted, nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) evictOldestHalfLocked() {
	drop := len(m.order) / 2
	for _, e := range m.order[:drop] {
		delete(m.entries, e.token)
	}
	m.order = append([]memoryEntry(nil), m.order[drop:]...)
}
