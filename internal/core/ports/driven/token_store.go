package driven

import (
	"context"

	"github.com/neurasense/connect/internal/core/domain"
)

// TokenStore persists provider token records keyed by (user, provider).
type TokenStore interface {
	// Upsert merges the record into any existing record for the same key
	// (see domain.TokenRecord.Merge) and returns the stored result.
	Upsert(ctx context.Context, record *domain.TokenRecord) (*domain.TokenRecord, error)

	// Get retrieves the record for a user and provider.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, userID string, provider domain.Provider) (*domain.TokenRecord, error)

	// ListProviders returns the providers that have a record for the user.
	ListProviders(ctx context.Context, userID string) ([]domain.Provider, error)

	// Delete removes the record. Idempotent.
	Delete(ctx context.Context, userID string, provider domain.Provider) error
}
