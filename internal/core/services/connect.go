package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
	"github.com/neurasense/connect/internal/core/ports/driving"
)

// Ensure connectService implements ConnectService
var _ driving.ConnectService = (*connectService)(nil)

const (
	defaultSuccessPath     = "/profile-setup"
	defaultProviderTimeout = 10 * time.Second
)

// ConnectServiceConfig holds configuration for the connect service.
type ConnectServiceConfig struct {
	StateStore driven.StateStore
	TokenStore driven.TokenStore
	Identity   driven.IdentityVerifier
	Providers  driven.ProviderRegistry
	Logger     *slog.Logger

	// BaseURL is the application base URL used for post-flow redirects.
	// Example: "https://app.neurasense.ai"
	BaseURL string

	// SuccessPath is the application page the callback redirects to (default: /profile-setup).
	SuccessPath string

	// StateTTL is how long a state is accepted (default: 10m).
	StateTTL time.Duration

	// ProviderTimeout bounds each call to a provider endpoint (default: 10s).
	ProviderTimeout time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type connectService struct {
	states          driven.StateStore
	tokens          driven.TokenStore
	identity        driven.IdentityVerifier
	providers       driven.ProviderRegistry
	logger          *slog.Logger
	baseURL         string
	successPath     string
	stateTTL        time.Duration
	providerTimeout time.Duration
	now             func() time.Time
}

// NewConnectService creates a new connect service.
func NewConnectService(cfg ConnectServiceConfig) driving.ConnectService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	successPath := cfg.SuccessPath
	if successPath == "" {
		successPath = defaultSuccessPath
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = domain.DefaultStateTTL
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &connectService{
		states:          cfg.StateStore,
		tokens:          cfg.TokenStore,
		identity:        cfg.Identity,
		providers:       cfg.Providers,
		logger:          logger,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		successPath:     successPath,
		stateTTL:        ttl,
		providerTimeout: timeout,
		now:             now,
	}
}

// Initiate starts a connect flow for the authenticated caller.
func (s *connectService) Initiate(ctx context.Context, req driving.InitiateRequest) (*driving.InitiateResponse, error) {
	if req.IdentityToken == "" {
		return nil, domain.ErrNotAuthenticated
	}
	identity, err := s.identity.Verify(ctx, req.IdentityToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			return nil, err
		}
		return nil, errors.Join(domain.ErrNotAuthenticated, err)
	}

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	now := s.now()
	state := &domain.AuthState{
		State:       uuid.NewString(),
		UserID:      identity.UserID,
		Provider:    req.Provider,
		RedirectURI: provider.RedirectURI(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.stateTTL),
	}
	if req.Provider.UsesPKCE() {
		state.CodeVerifier = oauth2.GenerateVerifier()
	}

	// No authorization URL leaves this function unless the state is stored.
	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("failed to save oauth state",
			"provider", req.Provider,
			"user_id", identity.UserID,
			"error", err,
		)
		return nil, storageErr("save state", err)
	}

	s.logger.Info("connect flow started",
		"provider", req.Provider,
		"user_id", identity.UserID,
	)

	return &driving.InitiateResponse{
		AuthorizationURL: provider.AuthCodeURL(state.State, state.CodeVerifier),
		State:            state.State,
		ExpiresAt:        state.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Callback completes the authorization-code grant.
func (s *connectService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if req.Error != "" {
		return nil, s.denied(ctx, req)
	}

	if req.Code == "" || req.State == "" {
		return nil, domain.ErrMissingParameter
	}

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	state, err := s.states.Consume(ctx, req.State)
	if err != nil {
		if errors.Is(err, domain.ErrStateNotFound) {
			return nil, domain.ErrStateNotFound
		}
		return nil, storageErr("consume state", err)
	}

	if state.Provider != req.Provider {
		s.logger.Warn("oauth state provider mismatch",
			"route_provider", req.Provider,
			"state_provider", state.Provider,
		)
		s.release(ctx, state)
		return nil, domain.ErrStateNotFound
	}

	record, err := s.exchange(ctx, provider, state, req.Code)
	if err != nil {
		s.logger.Error("oauth exchange failed",
			"provider", state.Provider,
			"user_id", state.UserID,
			"error", err,
		)
		s.release(ctx, state)
		return nil, err
	}

	if _, err := s.tokens.Upsert(ctx, record); err != nil {
		s.logger.Error("failed to store token record",
			"provider", state.Provider,
			"user_id", state.UserID,
			"error", err,
		)
		s.release(ctx, state)
		return nil, storageErr("upsert token record", err)
	}

	// The record is written, so the flow has succeeded even if the state
	// cannot be removed. Its TTL will reap it.
	if err := s.states.Delete(ctx, state.State); err != nil {
		s.logger.Warn("failed to delete consumed oauth state",
			"provider", state.Provider,
			"error", err,
		)
	}

	s.logger.Info("provider connected",
		"provider", state.Provider,
		"user_id", state.UserID,
	)

	return &driving.CallbackResponse{
		RedirectURL: s.successURL(state.Provider),
		Provider:    state.Provider,
		UserID:      state.UserID,
	}, nil
}

// exchange trades the code for tokens and fetches the profile where the
// provider supports it. Each provider call gets its own deadline.
func (s *connectService) exchange(ctx context.Context, provider driven.OAuthProvider, state *domain.AuthState, code string) (*domain.TokenRecord, error) {
	exCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	token, err := provider.Exchange(exCtx, code, state.RedirectURI, state.CodeVerifier)
	cancel()
	if err != nil {
		return nil, providerErr("exchange code", err)
	}

	now := s.now()
	record := &domain.TokenRecord{
		UserID:       state.UserID,
		Provider:     state.Provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Scope:        token.Scope,
		ExpiresIn:    token.ExpiresIn,
		ConnectedAt:  now,
		FetchedAt:    now,
	}
	switch {
	case !token.Expiry.IsZero():
		exp := token.Expiry.UTC()
		record.ExpiresAt = &exp
	case token.ExpiresIn > 0:
		exp := now.Add(time.Duration(token.ExpiresIn) * time.Second).UTC()
		record.ExpiresAt = &exp
	}

	if fetcher, ok := provider.(driven.ProfileFetcher); ok {
		pCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		profile, err := fetcher.FetchProfile(pCtx, token)
		cancel()
		if err != nil {
			return nil, providerErr("fetch profile", err)
		}
		record.Profile = profile
	}

	return record, nil
}

// denied handles a provider error redirect. Only the provider that owns the
// state may end its flow; a denial arriving on another route leaves the state
// live for the genuine callback.
func (s *connectService) denied(ctx context.Context, req driving.CallbackRequest) error {
	if req.State != "" {
		state, err := s.states.Consume(ctx, req.State)
		switch {
		case err == nil && state.Provider != req.Provider:
			s.logger.Warn("oauth state provider mismatch",
				"route_provider", req.Provider,
				"state_provider", state.Provider,
			)
			s.release(ctx, state)
			return domain.ErrStateNotFound
		case err == nil:
			if err := s.states.Delete(ctx, state.State); err != nil {
				s.logger.Warn("failed to delete denied oauth state", "provider", req.Provider, "error", err)
			}
		case !errors.Is(err, domain.ErrStateNotFound):
			s.logger.Warn("failed to claim denied oauth state", "provider", req.Provider, "error", err)
		}
	}

	s.logger.Info("provider denied authorization",
		"provider", req.Provider,
		"error_code", req.Error,
		"error_description", req.ErrorDescription,
	)
	return fmt.Errorf("%w: %s", domain.ErrProviderDenied, req.Error)
}

func (s *connectService) release(ctx context.Context, state *domain.AuthState) {
	if err := s.states.Release(ctx, state.State); err != nil {
		s.logger.Warn("failed to release oauth state",
			"provider", state.Provider,
			"error", err,
		)
	}
}

func (s *connectService) successURL(p domain.Provider) string {
	return s.baseURL + s.successPath + "?" + url.Values{"oauth": {string(p)}}.Encode()
}

// providerErr classifies a provider call failure. Deadline errors become
// ErrProviderTimeout, everything else ErrProviderExchange.
func providerErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrProviderTimeout), errors.Is(err, domain.ErrProviderExchange):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrProviderTimeout, err))
	default:
		return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrProviderExchange, err))
	}
}

func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorage, err))
}
