package domain

import "time"

// Identity is the verified caller of an authenticated request
type Identity struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityClaims represents the identity token payload
type IdentityClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
