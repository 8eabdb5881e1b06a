package driven

import (
	"context"

	"github.com/neurasense/connect/internal/core/domain"
)

// StateStore manages OAuth flow state for CSRF protection and callback
// correlation. States are single-use and expire after a short period.
type StateStore interface {
	// Save stores a new authorization state.
	// ExpiresAt is filled from the store TTL when zero.
	Save(ctx context.Context, state *domain.AuthState) error

	// Consume atomically claims a live state and returns it.
	// A claimed state is invisible to further Consume calls until it is
	// released. Returns domain.ErrStateNotFound if the state does not exist,
	// has expired, or is already claimed.
	Consume(ctx context.Context, state string) (*domain.AuthState, error)

	// Release returns a claimed state to the live set so the flow can be
	// retried before it expires. No-op if the state is not claimed.
	Release(ctx context.Context, state string) error

	// Delete removes the state whether claimed or not. Idempotent.
	Delete(ctx context.Context, state string) error

	// Cleanup removes expired states and returns how many were removed.
	// Stores with native expiry may return 0.
	Cleanup(ctx context.Context) (int, error)
}
