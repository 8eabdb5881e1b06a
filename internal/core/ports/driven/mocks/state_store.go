package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

var _ driven.StateStore = (*MockStateStore)(nil)

// MockStateStore is an in-memory StateStore for testing
type MockStateStore struct {
	mu      sync.Mutex
	live    map[string]*domain.AuthState
	claimed map[string]*domain.AuthState

	// SaveErr, when set, is returned by Save without storing anything
	SaveErr error
	// Now overrides the clock for expiry checks
	Now func() time.Time
}

// NewMockStateStore creates a new MockStateStore
func NewMockStateStore() *MockStateStore {
	return &MockStateStore{
		live:    make(map[string]*domain.AuthState),
		claimed: make(map[string]*domain.AuthState),
	}
}

func (m *MockStateStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MockStateStore) Save(ctx context.Context, state *domain.AuthState) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	if cp.ExpiresAt.IsZero() {
		cp.ExpiresAt = m.now().Add(domain.DefaultStateTTL)
		state.ExpiresAt = cp.ExpiresAt
	}
	m.live[state.State] = &cp
	return nil
}

func (m *MockStateStore) Consume(ctx context.Context, state string) (*domain.AuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.live[state]
	if !ok || domain.IsExpiredAt(s.ExpiresAt, m.now()) {
		return nil, domain.ErrStateNotFound
	}
	delete(m.live, state)
	m.claimed[state] = s
	cp := *s
	return &cp, nil
}

func (m *MockStateStore) Release(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.claimed[state]; ok {
		delete(m.claimed, state)
		m.live[state] = s
	}
	return nil
}

func (m *MockStateStore) Delete(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, state)
	delete(m.claimed, state)
	return nil
}

func (m *MockStateStore) Cleanup(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for _, set := range []map[string]*domain.AuthState{m.live, m.claimed} {
		for k, v := range set {
			if domain.IsExpiredAt(v.ExpiresAt, now) {
				delete(set, k)
				removed++
			}
		}
	}
	return removed, nil
}

// Exists reports whether the state is stored, live or claimed
func (m *MockStateStore) Exists(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, live := m.live[state]
	_, claimed := m.claimed[state]
	return live || claimed
}

// IsLive reports whether the state is stored and unclaimed
func (m *MockStateStore) IsLive(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[state]
	return ok
}

// Count returns the number of stored states
func (m *MockStateStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live) + len(m.claimed)
}

// Put stores a state directly, bypassing Save
func (m *MockStateStore) Put(state *domain.AuthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.live[state.State] = &cp
}
