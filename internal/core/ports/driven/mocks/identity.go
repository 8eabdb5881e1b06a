package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

var _ driven.IdentityVerifier = (*MockIdentityVerifier)(nil)

// MockIdentityVerifier maps fixed tokens to user IDs
type MockIdentityVerifier struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMockIdentityVerifier creates a verifier with the given token -> user ID pairs
func NewMockIdentityVerifier(tokens map[string]string) *MockIdentityVerifier {
	m := &MockIdentityVerifier{tokens: make(map[string]string)}
	for k, v := range tokens {
		m.tokens[k] = v
	}
	return m
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.tokens[token]
	if !ok || token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return &domain.Identity{UserID: uid, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// Add registers another token
func (m *MockIdentityVerifier) Add(token, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
}
