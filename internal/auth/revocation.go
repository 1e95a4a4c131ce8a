package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore records sessions that were signed out before they expired.
type RevocationStore interface {
	// Revoke marks the session ids as revoked until the given time.
	Revoke(ctx context.Context, sessionIDs []string, until time.Time) error
	// IsRevoked reports whether the session id was revoked.
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemoryRevocations is an in-process RevocationStore.
type MemoryRevocations struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRevocations) Revoke(_ context.Context, sessionIDs []string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}

	for _, id := range sessionIDs {
		if id == "" {
			continue
		}
		if current, ok := m.entries[id]; !ok || until.After(current) {
			m.entries[id] = until
		}
	}
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	until, ok := m.entries[sessionID]
	if !ok {
		return false, nil
	}
	return until.After(m.now()), nil
}

// Len returns the number of tracked revocations.
func (m *MemoryRevocations) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
