package services

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
	"github.com/neurasense/connect/internal/core/ports/driven/mocks"
	"github.com/neurasense/connect/internal/core/ports/driving"
)

type connectFixture struct {
	svc       driving.ConnectService
	states    *mocks.MockStateStore
	tokens    *mocks.MockTokenStore
	twitter   *mocks.MockOAuthProvider
	reddit    *mocks.MockOAuthProvider
	spotify   *mocks.MockOAuthProvider
	providers *mocks.MockProviderRegistry
}

func newConnectFixture(t *testing.T) *connectFixture {
	t.Helper()
	f := &connectFixture{
		states:  mocks.NewMockStateStore(),
		tokens:  mocks.NewMockTokenStore(),
		twitter: mocks.NewMockOAuthProvider(domain.ProviderTwitter),
		reddit:  mocks.NewMockOAuthProvider(domain.ProviderReddit),
		spotify: mocks.NewMockOAuthProvider(domain.ProviderSpotify),
	}
	f.providers = mocks.NewMockProviderRegistry(f.twitter, f.reddit, f.spotify)
	f.svc = NewConnectService(ConnectServiceConfig{
		StateStore:      f.states,
		TokenStore:      f.tokens,
		Identity:        mocks.NewMockIdentityVerifier(map[string]string{"good-token": "user-1"}),
		Providers:       f.providers,
		BaseURL:         "https://app.example.com/",
		ProviderTimeout: 200 * time.Millisecond,
	})
	return f
}

func (f *connectFixture) initiate(t *testing.T, p domain.Provider) *driving.InitiateResponse {
	t.Helper()
	resp, err := f.svc.Initiate(context.Background(), driving.InitiateRequest{Provider: p, IdentityToken: "good-token"})
	require.NoError(t, err)
	return resp
}

func TestConnectService_Initiate(t *testing.T) {
	f := newConnectFixture(t)

	resp := f.initiate(t, domain.ProviderReddit)

	assert.NotEmpty(t, resp.State)
	assert.True(t, f.states.IsLive(resp.State))

	u, err := url.Parse(resp.AuthorizationURL)
	require.NoError(t, err)
	assert.Equal(t, resp.State, u.Query().Get("state"))
	assert.Equal(t, "code", u.Query().Get("response_type"))

	expires, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(domain.DefaultStateTTL), expires, 5*time.Second)
}

func TestConnectService_Initiate_UniqueStates(t *testing.T) {
	f := newConnectFixture(t)

	a := f.initiate(t, domain.ProviderSpotify)
	b := f.initiate(t, domain.ProviderSpotify)

	assert.NotEqual(t, a.State, b.State)
	assert.Equal(t, 2, f.states.Count())
}

func TestConnectService_Initiate_PKCEOnlyForTwitter(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()

	tw := f.initiate(t, domain.ProviderTwitter)
	st, err := f.states.Consume(ctx, tw.State)
	require.NoError(t, err)
	assert.NotEmpty(t, st.CodeVerifier)
	assert.Equal(t, "user-1", st.UserID)

	rd := f.initiate(t, domain.ProviderReddit)
	st, err = f.states.Consume(ctx, rd.State)
	require.NoError(t, err)
	assert.Empty(t, st.CodeVerifier)
}

func TestConnectService_Initiate_NotAuthenticated(t *testing.T) {
	f := newConnectFixture(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"unknown token", "forged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Initiate(context.Background(), driving.InitiateRequest{
				Provider:      domain.ProviderReddit,
				IdentityToken: tt.token,
			})
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
		})
	}
	assert.Equal(t, 0, f.states.Count())
}

func TestConnectService_Initiate_UnknownProvider(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.Initiate(context.Background(), driving.InitiateRequest{Provider: "myspace", IdentityToken: "good-token"})
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)

	delete(f.providers.Providers, domain.ProviderSpotify)
	_, err = f.svc.Initiate(context.Background(), driving.InitiateRequest{Provider: domain.ProviderSpotify, IdentityToken: "good-token"})
	assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)
}

func TestConnectService_Initiate_NoURLWithoutState(t *testing.T) {
	f := newConnectFixture(t)
	f.states.SaveErr = errors.New("connection refused")

	resp, err := f.svc.Initiate(context.Background(), driving.InitiateRequest{Provider: domain.ProviderTwitter, IdentityToken: "good-token"})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestConnectService_Callback_Success(t *testing.T) {
	f := newConnectFixture(t)
	f.reddit.ProfileFn = func(ctx context.Context, tok *driven.OAuthToken) (*domain.Profile, error) {
		return &domain.Profile{Username: "u_alice"}, nil
	}
	init := f.initiate(t, domain.ProviderReddit)

	resp, err := f.svc.Callback(context.Background(), driving.CallbackRequest{
		Provider: domain.ProviderReddit,
		Code:     "XYZ",
		State:    init.State,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com/profile-setup?oauth=reddit", resp.RedirectURL)
	assert.Equal(t, "user-1", resp.UserID)
	assert.False(t, f.states.Exists(init.State))

	rec, err := f.tokens.Get(context.Background(), "user-1", domain.ProviderReddit)
	require.NoError(t, err)
	assert.Equal(t, "access-XYZ", rec.AccessToken)
	assert.Equal(t, "refresh-XYZ", rec.RefreshToken)
	assert.Equal(t, "u_alice", rec.Profile.Username)
	require.NotNil(t, rec.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *rec.ExpiresAt, 5*time.Second)

	require.Len(t, f.reddit.Exchanges, 1)
	assert.Equal(t, f.reddit.Redirect, f.reddit.Exchanges[0].RedirectURI)
}

func TestConnectService_Callback_StateSingleUse(t *testing.T) {
	f := newConnectFixture(t)
	init := f.initiate(t, domain.ProviderSpotify)
	req := driving.CallbackRequest{Provider: domain.ProviderSpotify, Code: "c1", State: init.State}

	_, err := f.svc.Callback(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.Callback(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.Equal(t, 1, f.spotify.ExchangeCount())
}

func TestConnectService_Callback_MissingParams(t *testing.T) {
	f := newConnectFixture(t)

	for _, p := range domain.AllProviders() {
		for _, req := range []driving.CallbackRequest{
			{Provider: p, Code: "abc"},
			{Provider: p, State: "abc"},
			{Provider: p},
		} {
			_, err := f.svc.Callback(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrMissingParameter, "provider %s", p)
		}
	}
	assert.Equal(t, 0, f.tokens.Count())
}

func TestConnectService_Callback_InvalidState(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{
		Provider: domain.ProviderReddit,
		Code:     "XYZ",
		State:    "does-not-exist",
	})

	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.Equal(t, 0, f.tokens.Count())
	assert.Equal(t, 0, f.reddit.ExchangeCount())
}

func TestConnectService_Callback_ExpiredState(t *testing.T) {
	f := newConnectFixture(t)
	f.states.Put(&domain.AuthState{
		State:     "old",
		UserID:    "user-1",
		Provider:  domain.ProviderReddit,
		ExpiresAt: time.Now().Add(-time.Second),
	})

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderReddit, Code: "c", State: "old"})
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestConnectService_Callback_ProviderMismatch(t *testing.T) {
	f := newConnectFixture(t)
	init := f.initiate(t, domain.ProviderTwitter)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderReddit, Code: "c", State: init.State})
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.True(t, f.states.IsLive(init.State), "mismatched state should be released")

	_, err = f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderTwitter, Code: "c", State: init.State})
	assert.NoError(t, err)
}

func TestConnectService_Callback_ExchangeFailureKeepsState(t *testing.T) {
	f := newConnectFixture(t)
	f.reddit.ExchangeFn = func(ctx context.Context, code, redirectURI, verifier string) (*driven.OAuthToken, error) {
		return nil, errors.New("invalid_grant")
	}
	init := f.initiate(t, domain.ProviderReddit)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderReddit, Code: "c", State: init.State})

	assert.ErrorIs(t, err, domain.ErrProviderExchange)
	assert.False(t, domain.IsRetryable(err))
	assert.True(t, f.states.IsLive(init.State))
	assert.Equal(t, 0, f.tokens.Count())
}

func TestConnectService_Callback_ProfileFailureKeepsState(t *testing.T) {
	f := newConnectFixture(t)
	f.reddit.ProfileFn = func(ctx context.Context, tok *driven.OAuthToken) (*domain.Profile, error) {
		return nil, errors.New("503 from /api/v1/me")
	}
	init := f.initiate(t, domain.ProviderReddit)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderReddit, Code: "c", State: init.State})

	assert.ErrorIs(t, err, domain.ErrProviderExchange)
	assert.True(t, f.states.IsLive(init.State))
	assert.Equal(t, 0, f.tokens.Count())
}

func TestConnectService_Callback_Timeout(t *testing.T) {
	f := newConnectFixture(t)
	f.spotify.ExchangeFn = func(ctx context.Context, code, redirectURI, verifier string) (*driven.OAuthToken, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	init := f.initiate(t, domain.ProviderSpotify)

	start := time.Now()
	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderSpotify, Code: "c", State: init.State})

	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
	assert.True(t, domain.IsRetryable(err))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, f.states.IsLive(init.State))
}

func TestConnectService_Callback_StorageFailureKeepsState(t *testing.T) {
	f := newConnectFixture(t)
	f.tokens.UpsertErr = errors.New("disk full")
	init := f.initiate(t, domain.ProviderSpotify)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderSpotify, Code: "c", State: init.State})

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.True(t, f.states.IsLive(init.State))

	// A retry with a fresh code succeeds once storage recovers.
	f.tokens.UpsertErr = nil
	_, err = f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderSpotify, Code: "c2", State: init.State})
	assert.NoError(t, err)
}

func TestConnectService_Callback_ProviderDenied(t *testing.T) {
	f := newConnectFixture(t)
	init := f.initiate(t, domain.ProviderReddit)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{
		Provider:         domain.ProviderReddit,
		State:            init.State,
		Error:            "access_denied",
		ErrorDescription: "user said no",
	})

	assert.ErrorIs(t, err, domain.ErrProviderDenied)
	assert.False(t, f.states.Exists(init.State))
	assert.Equal(t, 0, f.reddit.ExchangeCount())
}

func TestConnectService_Callback_ProviderDeniedOnOtherRoute(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	init := f.initiate(t, domain.ProviderTwitter)

	_, err := f.svc.Callback(ctx, driving.CallbackRequest{
		Provider: domain.ProviderReddit,
		State:    init.State,
		Error:    "access_denied",
	})
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.True(t, f.states.IsLive(init.State))

	resp, err := f.svc.Callback(ctx, driving.CallbackRequest{Provider: domain.ProviderTwitter, Code: "c", State: init.State})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderTwitter, resp.Provider)
	assert.False(t, f.states.Exists(init.State))
}

func TestConnectService_Callback_PKCEVerifierPropagates(t *testing.T) {
	f := newConnectFixture(t)
	init := f.initiate(t, domain.ProviderTwitter)

	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderTwitter, Code: "c", State: init.State})
	require.NoError(t, err)

	require.Len(t, f.twitter.Exchanges, 1)
	assert.NotEmpty(t, f.twitter.Exchanges[0].CodeVerifier)
	assert.Len(t, f.twitter.Exchanges[0].CodeVerifier, 43)
}

func TestConnectService_Callback_MergesExistingRecord(t *testing.T) {
	f := newConnectFixture(t)
	f.reddit.ProfileFn = func(ctx context.Context, tok *driven.OAuthToken) (*domain.Profile, error) {
		return &domain.Profile{Username: "u_alice"}, nil
	}
	first := f.initiate(t, domain.ProviderReddit)
	_, err := f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderReddit, Code: "one", State: first.State})
	require.NoError(t, err)

	// Second connect returns no refresh token; the stored one survives.
	f.reddit.ExchangeFn = func(ctx context.Context, code, redirectURI, verifier string) (*driven.OAuthToken, error) {
		return &driven.OAuthToken{AccessToken: "access-two", ExpiresIn: 3600}, nil
	}
	second := f.initiate(t, domain.ProviderReddit)
	_, err = f.svc.Callback(context.Background(), driving.CallbackRequest{Provider: domain.ProviderReddit, Code: "two", State: second.State})
	require.NoError(t, err)

	rec, err := f.tokens.Get(context.Background(), "user-1", domain.ProviderReddit)
	require.NoError(t, err)
	assert.Equal(t, "access-two", rec.AccessToken)
	assert.Equal(t, "refresh-one", rec.RefreshToken)
	assert.Equal(t, 1, f.tokens.Count())
}
