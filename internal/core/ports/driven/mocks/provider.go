package mocks

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

var (
	_ driven.OAuthProvider    = (*MockOAuthProvider)(nil)
	_ driven.ProfileFetcher   = (*MockOAuthProvider)(nil)
	_ driven.ProviderRegistry = (*MockProviderRegistry)(nil)
)

// ExchangeCall records the arguments of one Exchange call
type ExchangeCall struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// MockOAuthProvider is a configurable OAuthProvider for testing
type MockOAuthProvider struct {
	mu sync.Mutex

	Name     domain.Provider
	Redirect string

	ExchangeFn func(ctx context.Context, code, redirectURI, codeVerifier string) (*driven.OAuthToken, error)
	ProfileFn  func(ctx context.Context, token *driven.OAuthToken) (*domain.Profile, error)

	Exchanges []ExchangeCall
}

// NewMockOAuthProvider creates a provider that exchanges any code for a fixed token
func NewMockOAuthProvider(p domain.Provider) *MockOAuthProvider {
	return &MockOAuthProvider{
		Name:     p,
		Redirect: "http://localhost:8080/connect/" + string(p) + "/callback",
	}
}

func (m *MockOAuthProvider) Provider() domain.Provider { return m.Name }

func (m *MockOAuthProvider) RedirectURI() string { return m.Redirect }

func (m *MockOAuthProvider) AuthCodeURL(state, codeVerifier string) string {
	v := url.Values{
		"client_id":     {"client-" + string(m.Name)},
		"redirect_uri":  {m.Redirect},
		"response_type": {"code"},
		"state":         {state},
	}
	if codeVerifier != "" {
		v.Set("code_challenge_method", "S256")
	}
	return "https://auth.example.com/" + string(m.Name) + "?" + v.Encode()
}

func (m *MockOAuthProvider) Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*driven.OAuthToken, error) {
	m.mu.Lock()
	m.Exchanges = append(m.Exchanges, ExchangeCall{Code: code, RedirectURI: redirectURI, CodeVerifier: codeVerifier})
	m.mu.Unlock()
	if m.ExchangeFn != nil {
		return m.ExchangeFn(ctx, code, redirectURI, codeVerifier)
	}
	return &driven.OAuthToken{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		TokenType:    "bearer",
		ExpiresIn:    3600,
	}, nil
}

func (m *MockOAuthProvider) FetchProfile(ctx context.Context, token *driven.OAuthToken) (*domain.Profile, error) {
	if m.ProfileFn != nil {
		return m.ProfileFn(ctx, token)
	}
	return nil, nil
}

// ExchangeCount returns how many times Exchange was called
func (m *MockOAuthProvider) ExchangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Exchanges)
}

// MockProviderRegistry is a map-backed ProviderRegistry
type MockProviderRegistry struct {
	Providers map[domain.Provider]driven.OAuthProvider
}

// NewMockProviderRegistry registers the given providers
func NewMockProviderRegistry(providers ...driven.OAuthProvider) *MockProviderRegistry {
	r := &MockProviderRegistry{Providers: make(map[domain.Provider]driven.OAuthProvider)}
	for _, p := range providers {
		r.Providers[p.Provider()] = p
	}
	return r
}

func (r *MockProviderRegistry) Get(p domain.Provider) (driven.OAuthProvider, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, p)
	}
	prov, ok := r.Providers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, p)
	}
	return prov, nil
}

func (r *MockProviderRegistry) Configured() []domain.Provider {
	var out []domain.Provider
	for _, p := range domain.AllProviders() {
		if _, ok := r.Providers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
