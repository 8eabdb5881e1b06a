// Package providers implements the OAuth2 authorization-code grant for each
// supported provider on top of golang.org/x/oauth2.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// Config holds one provider's client registration. Endpoint and APIBaseURL
// default to the provider's production URLs when empty.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// UserAgent overrides the option-level user agent for this provider.
	UserAgent string

	Endpoint   oauth2.Endpoint
	APIBaseURL string
}

func (c Config) validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.RedirectURI == "" {
		return ErrMissingRedirectURI
	}
	return nil
}

// base carries what every provider shares: the oauth2 config, the HTTP client
// and the fixed authorization parameters.
type base struct {
	name       domain.Provider
	config     *oauth2.Config
	httpClient *http.Client
	apiBaseURL string
	authParams []oauth2.AuthCodeOption
}

func newBase(name domain.Provider, cfg Config, endpoint oauth2.Endpoint, apiBaseURL string, scopes []string, opts []Option) (*base, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if cfg.UserAgent != "" {
		o.userAgent = cfg.UserAgent
	}

	if cfg.Endpoint.AuthURL != "" {
		endpoint = cfg.Endpoint
	}
	// All three providers accept client credentials via HTTP Basic auth.
	endpoint.AuthStyle = oauth2.AuthStyleInHeader
	if cfg.APIBaseURL != "" {
		apiBaseURL = cfg.APIBaseURL
	}

	return &base{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		httpClient: o.client(),
		apiBaseURL: apiBaseURL,
	}, nil
}

func (b *base) Provider() domain.Provider { return b.name }

func (b *base) RedirectURI() string { return b.config.RedirectURL }

// AuthCodeURL builds the authorization URL. A non-empty codeVerifier adds
// the S256 code challenge.
func (b *base) AuthCodeURL(state, codeVerifier string) string {
	opts := append([]oauth2.AuthCodeOption(nil), b.authParams...)
	if codeVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(codeVerifier))
	}
	return b.config.AuthCodeURL(state, opts...)
}

// Exchange trades the code for tokens at the token endpoint. redirectURI must
// be the one used at authorization time.
func (b *base) Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*driven.OAuthToken, error) {
	cfg := *b.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	tok, err := cfg.Exchange(b.withClient(ctx), code, opts...)
	if err != nil {
		return nil, b.callErr(ctx, "exchange code", err)
	}

	out := &driven.OAuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out, nil
}

func (b *base) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

// callErr tags a failed provider call with the matching domain error.
func (b *base) callErr(ctx context.Context, op string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", b.name, op, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(domain.ErrProviderTimeout, wrapped)
	}
	return errors.Join(domain.ErrProviderExchange, wrapped)
}

// getJSON performs an authenticated GET against the provider API.
func (b *base) getJSON(ctx context.Context, token *driven.OAuthToken, path string, out any) error {
	ctx = b.withClient(ctx)
	client := b.config.Client(ctx, &oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiBaseURL+path, nil)
	if err != nil {
		return b.callErr(ctx, "build request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return b.callErr(ctx, "fetch profile", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return b.callErr(ctx, "fetch profile", fmt.Errorf("%w: status=%d", ErrRequestFailed, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return b.callErr(ctx, "fetch profile", errors.Join(ErrDecodeFailed, err))
	}
	return nil
}
