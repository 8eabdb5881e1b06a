package domain

import "time"

// DefaultStateTTL is how long an authorization state stays valid.
const DefaultStateTTL = 10 * time.Minute

// AuthState correlates an opaque OAuth state value with the user who started
// the flow. The provider callback is an unauthenticated redirect, so this record
// is the only way to recover the user at callback time.
type AuthState struct {
	State        string    `json:"state"`
	UserID       string    `json:"user_id"`
	Provider     Provider  `json:"provider"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired checks if the state has passed its expiry
func (s *AuthState) IsExpired() bool {
	return IsExpiredAt(s.ExpiresAt, time.Now())
}

// IsExpiredAt reports whether expiresAt is at or before now.
// A zero expiry never expires.
func IsExpiredAt(expiresAt, now time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return !now.Before(expiresAt)
}
