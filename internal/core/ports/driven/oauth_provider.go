package driven

import (
	"context"
	"time"

	"github.com/neurasense/connect/internal/core/domain"
)

// OAuthToken is the result of an authorization-code exchange.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
	Expiry       time.Time
}

// OAuthProvider is the per-provider capability used by the connect flow.
// Each provider (Twitter, Reddit, Spotify) has its own implementation.
type OAuthProvider interface {
	// Provider returns which provider this implementation serves.
	Provider() domain.Provider

	// RedirectURI returns the registered callback URI. The same value must be
	// sent at authorization and at exchange.
	RedirectURI() string

	// AuthCodeURL builds the authorization URL. codeVerifier is empty for
	// providers without PKCE; otherwise its S256 challenge is included.
	AuthCodeURL(state, codeVerifier string) string

	// Exchange trades an authorization code for tokens.
	// Failures wrap domain.ErrProviderExchange or domain.ErrProviderTimeout.
	Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*OAuthToken, error)
}

// ProfileFetcher is implemented by providers whose "who am I" endpoint is
// read after the exchange.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token *OAuthToken) (*domain.Profile, error)
}

// ProviderRegistry resolves configured providers.
type ProviderRegistry interface {
	// Get returns the provider implementation.
	// Returns domain.ErrUnknownProvider or domain.ErrProviderNotConfigured.
	Get(p domain.Provider) (OAuthProvider, error)

	// Configured lists providers with client credentials.
	Configured() []domain.Provider
}
