package providers

import (
	"golang.org/x/oauth2/spotify"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// SpotifyScopes are the fixed scopes requested from Spotify.
func SpotifyScopes() []string {
	return []string{
		"user-read-recently-played",
		"user-top-read",
		"user-read-currently-playing",
		"user-read-playback-state",
	}
}

var _ driven.OAuthProvider = (*Spotify)(nil)

// Spotify implements the Spotify authorization-code grant. No profile is
// fetched; the token record alone marks the connection.
type Spotify struct {
	*base
}

// NewSpotify creates a Spotify provider.
func NewSpotify(cfg Config, opts ...Option) (*Spotify, error) {
	b, err := newBase(domain.ProviderSpotify, cfg, spotify.Endpoint, "https://api.spotify.com", SpotifyScopes(), opts)
	if err != nil {
		return nil, err
	}
	return &Spotify{base: b}, nil
}
