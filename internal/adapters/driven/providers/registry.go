package providers

import (
	"fmt"
	"log/slog"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

var _ driven.ProviderRegistry = (*Registry)(nil)

// Registry holds the configured providers.
type Registry struct {
	providers map[domain.Provider]driven.OAuthProvider
}

// NewRegistry creates a registry from already-built providers.
func NewRegistry(providers ...driven.OAuthProvider) *Registry {
	r := &Registry{providers: make(map[domain.Provider]driven.OAuthProvider)}
	for _, p := range providers {
		r.providers[p.Provider()] = p
	}
	return r
}

// Settings holds client registrations for every provider. A provider with no
// client ID is left out of the registry.
type Settings struct {
	Twitter Config
	Reddit  Config
	Spotify Config
}

// Build constructs every provider that has a client ID. A partially configured
// provider is an error.
func Build(s Settings, logger *slog.Logger, opts ...Option) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := NewRegistry()

	type ctor func(Config, ...Option) (driven.OAuthProvider, error)
	builders := []struct {
		name domain.Provider
		cfg  Config
		make ctor
	}{
		{domain.ProviderTwitter, s.Twitter, func(c Config, o ...Option) (driven.OAuthProvider, error) { return NewTwitter(c, o...) }},
		{domain.ProviderReddit, s.Reddit, func(c Config, o ...Option) (driven.OAuthProvider, error) { return NewReddit(c, o...) }},
		{domain.ProviderSpotify, s.Spotify, func(c Config, o ...Option) (driven.OAuthProvider, error) { return NewSpotify(c, o...) }},
	}

	for _, b := range builders {
		if b.cfg.ClientID == "" {
			logger.Warn("oauth provider not configured", "provider", b.name)
			continue
		}
		p, err := b.make(b.cfg, opts...)
		if err != nil {
			return nil, err
		}
		r.providers[b.name] = p
	}
	return r, nil
}

// Get returns the provider or ErrUnknownProvider / ErrProviderNotConfigured.
func (r *Registry) Get(p domain.Provider) (driven.OAuthProvider, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, p)
	}
	prov, ok := r.providers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, p)
	}
	return prov, nil
}

// Configured lists configured providers in display order.
func (r *Registry) Configured() []domain.Provider {
	var out []domain.Provider
	for _, p := range domain.AllProviders() {
		if _, ok := r.providers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
