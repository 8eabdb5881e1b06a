package mocks

import (
	"context"
	"sync"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

var _ driven.TokenStore = (*MockTokenStore)(nil)

// MockTokenStore is an in-memory TokenStore for testing
type MockTokenStore struct {
	mu      sync.RWMutex
	records map[string]*domain.TokenRecord

	// UpsertErr, when set, is returned by Upsert without storing anything
	UpsertErr error
	// ListErr, when set, is returned by ListProviders
	ListErr error
}

// NewMockTokenStore creates a new MockTokenStore
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{records: make(map[string]*domain.TokenRecord)}
}

func tokenKey(userID string, p domain.Provider) string {
	return userID + "/" + string(p)
}

func (m *MockTokenStore) Upsert(ctx context.Context, record *domain.TokenRecord) (*domain.TokenRecord, error) {
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tokenKey(record.UserID, record.Provider)
	existing, ok := m.records[key]
	if !ok {
		existing = &domain.TokenRecord{}
		m.records[key] = existing
	}
	existing.Merge(record)
	cp := *existing
	return &cp, nil
}

func (m *MockTokenStore) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.TokenRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[tokenKey(userID, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockTokenStore) ListProviders(ctx context.Context, userID string) ([]domain.Provider, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Provider
	for _, rec := range m.records {
		if rec.UserID == userID {
			out = append(out, rec.Provider)
		}
	}
	return out, nil
}

func (m *MockTokenStore) Delete(ctx context.Context, userID string, provider domain.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, tokenKey(userID, provider))
	return nil
}

// Count returns the number of stored records
func (m *MockTokenStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
