package domain

import (
	"fmt"
	"strings"
)

// Provider identifies a third-party account provider a user can connect.
type Provider string

const (
	ProviderTwitter Provider = "twitter"
	ProviderReddit  Provider = "reddit"
	ProviderSpotify Provider = "spotify"
)

// AllProviders returns every provider known to the connection manager,
// in the order the connect page renders them.
func AllProviders() []Provider {
	return []Provider{ProviderTwitter, ProviderSpotify, ProviderReddit}
}

// ParseProvider converts a path or query value to a Provider.
// Matching is case-insensitive.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return p, nil
}

// IsValid reports whether p is one of the known providers.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderTwitter, ProviderReddit, ProviderSpotify:
		return true
	}
	return false
}

// DisplayName returns a human-readable provider name
func (p Provider) DisplayName() string {
	switch p {
	case ProviderTwitter:
		return "Twitter"
	case ProviderReddit:
		return "Reddit"
	case ProviderSpotify:
		return "Spotify"
	default:
		return string(p)
	}
}

// UsesPKCE reports whether the provider's authorization-code flow requires
// a PKCE code verifier.
func (p Provider) UsesPKCE() bool {
	return p == ProviderTwitter
}

func (p Provider) String() string {
	return string(p)
}
