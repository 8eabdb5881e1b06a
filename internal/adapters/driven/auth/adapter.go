package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// Ensure Adapter implements the identity ports
var (
	_ driven.IdentityVerifier = (*Adapter)(nil)
	_ driven.IdentityIssuer   = (*Adapter)(nil)
)

// DefaultIssuer is the iss claim on tokens this service mints.
const DefaultIssuer = "neurasense"

// jwtClaims wraps domain.IdentityClaims for JWT compatibility
type jwtClaims struct {
	UserID string `json:"uid,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Adapter signs and verifies HS256 identity tokens
type Adapter struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(secret string) *Adapter {
	return &Adapter{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		leeway: 30 * time.Second,
	}
}

// Issue creates a signed identity token for userID valid for ttl.
func (a *Adapter) Issue(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue token: empty user id")
	}
	now := time.Now()
	jc := jwtClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jc).SignedString(a.secret)
}

// Parse validates a token and extracts its claims. The user id comes from
// the uid claim, falling back to sub.
func (a *Adapter) Parse(tokenString string) (*domain.IdentityClaims, error) {
	var jc jwtClaims
	_, err := jwt.ParseWithClaims(tokenString, &jc, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Join(domain.ErrNotAuthenticated, domain.ErrTokenExpired)
		}
		return nil, errors.Join(domain.ErrNotAuthenticated, err)
	}

	uid := jc.UserID
	if uid == "" {
		uid = jc.Subject
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: token has no user id", domain.ErrNotAuthenticated)
	}

	claims := &domain.IdentityClaims{UserID: uid, Email: jc.Email}
	if jc.IssuedAt != nil {
		claims.IssuedAt = jc.IssuedAt.Unix()
	}
	if jc.ExpiresAt != nil {
		claims.ExpiresAt = jc.ExpiresAt.Unix()
	}
	return claims, nil
}

// Verify implements driven.IdentityVerifier.
func (a *Adapter) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	claims, err := a.Parse(token)
	if err != nil {
		return nil, err
	}
	return &domain.Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}
