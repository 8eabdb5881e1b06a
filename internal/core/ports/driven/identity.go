package driven

import (
	"context"
	"time"

	"github.com/neurasense/connect/internal/core/domain"
)

// IdentityVerifier validates identity tokens issued by the application's
// sign-in service.
type IdentityVerifier interface {
	// Verify validates the token and returns the caller identity.
	// Returns domain.ErrNotAuthenticated or domain.ErrTokenExpired on failure.
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// IdentityIssuer mints identity tokens. Used by tooling and tests.
type IdentityIssuer interface {
	Issue(userID, email string, ttl time.Duration) (string, error)
}
