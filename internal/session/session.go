package session

import (
	"context"
	"sync"
	"time"

	"caixa/backend/internal/domain"
)

// Store keeps per-browser session state (cart and pending flashes) between requests.
type Store interface {
	Load(ctx context.Context, id string) (domain.SessionState, bool, error)
	Save(ctx context.Context, id string, state domain.SessionState, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	state     domain.SessionState
	expiresAt time.Time
}

// MemoryStore is the in-process backend used when no Redis address is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (domain.SessionState, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return domain.SessionState{}, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return domain.SessionState{}, false, nil
	}
	return cloneState(entry.state), true, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, state domain.SessionState, ttl time.Duration) error {
	entry := memoryEntry{state: cloneState(state)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func cloneState(state domain.SessionState) domain.SessionState {
	out := state
	out.Cart = state.Cart.Clone()
	if state.Flashes != nil {
		out.Flashes = append([]domain.Flash(nil), state.Flashes...)
	}
	return out
}
