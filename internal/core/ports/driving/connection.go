package driving

import (
	"context"

	"github.com/neurasense/connect/internal/core/domain"
)

// ConnectionService answers which providers a user has connected and handles
// disconnects.
type ConnectionService interface {
	// List returns a connected flag for every known provider.
	List(ctx context.Context, userID string) (domain.ConnectionSnapshot, error)

	// Get returns a summary of the stored token record for one provider.
	// Returns domain.ErrNotFound when the provider is not connected.
	Get(ctx context.Context, userID string, provider domain.Provider) (*domain.TokenRecordSummary, error)

	// Disconnect removes the token record. Disconnecting a provider that is
	// not connected is not an error.
	Disconnect(ctx context.Context, userID string, provider domain.Provider) error
}
