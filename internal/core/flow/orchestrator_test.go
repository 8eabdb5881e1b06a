package flow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurasense/connect/internal/core/domain"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) IdentityToken(ctx context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeNavigator struct{ urls []string }

func (f *fakeNavigator) Navigate(ctx context.Context, u string) error {
	f.urls = append(f.urls, u)
	return nil
}

type fakeStatus struct {
	snap  domain.ConnectionSnapshot
	calls int
}

func (f *fakeStatus) Connections(ctx context.Context) (domain.ConnectionSnapshot, error) {
	f.calls++
	return f.snap, nil
}

type fakePresenter struct {
	toasts []string
	modals []domain.Provider
}

func (f *fakePresenter) ShowToast(msg string)                  { f.toasts = append(f.toasts, msg) }
func (f *fakePresenter) ShowPostConnectModal(p domain.Provider) { f.modals = append(f.modals, p) }

type orchestratorFixture struct {
	o         *Orchestrator
	tokens    *fakeTokens
	nav       *fakeNavigator
	status    *fakeStatus
	presenter *fakePresenter
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		tokens:    &fakeTokens{token: "id-token"},
		nav:       &fakeNavigator{},
		status:    &fakeStatus{snap: domain.NewConnectionSnapshot([]domain.Provider{domain.ProviderReddit})},
		presenter: &fakePresenter{},
	}
	f.o = NewOrchestrator(OrchestratorConfig{
		Tokens:    f.tokens,
		Navigator: f.nav,
		Status:    f.status,
		Presenter: f.presenter,
		BaseURL:   "https://app.example.com/",
	})
	return f
}

func TestOrchestrator_ConfirmNavigatesToInitiator(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	require.NoError(t, f.o.Dispatch(ctx, Request(domain.ProviderReddit)))
	assert.Equal(t, Confirming, f.o.State().Phase)
	assert.Empty(t, f.nav.urls)

	require.NoError(t, f.o.Dispatch(ctx, Confirm()))

	assert.Equal(t, State{Phase: Redirecting, Provider: domain.ProviderReddit}, f.o.State())
	require.Len(t, f.nav.urls, 1)
	assert.Equal(t, "https://app.example.com/connect/reddit?token=id-token", f.nav.urls[0])
}

func TestOrchestrator_CancelHasNoSideEffects(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	require.NoError(t, f.o.Dispatch(ctx, Request(domain.ProviderTwitter)))
	require.NoError(t, f.o.Dispatch(ctx, Cancel()))

	assert.Equal(t, State{Phase: Idle}, f.o.State())
	assert.Zero(t, f.tokens.calls)
	assert.Empty(t, f.nav.urls)
	assert.Zero(t, f.status.calls)
	assert.Empty(t, f.presenter.toasts)
}

func TestOrchestrator_TokenFailureToasts(t *testing.T) {
	f := newOrchestratorFixture()
	f.tokens.err = errors.New("not signed in")
	ctx := context.Background()

	require.NoError(t, f.o.Dispatch(ctx, Request(domain.ProviderSpotify)))
	require.NoError(t, f.o.Dispatch(ctx, Confirm()))

	assert.Equal(t, State{Phase: Idle}, f.o.State())
	assert.Empty(t, f.nav.urls)
	require.Len(t, f.presenter.toasts, 1)
	assert.Contains(t, f.presenter.toasts[0], "Spotify")
}

func TestOrchestrator_LoadWithReturn(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	require.NoError(t, f.o.Load(ctx, url.Values{"oauth": {"reddit"}}))

	assert.Equal(t, State{Phase: Returned, Provider: domain.ProviderReddit}, f.o.State())
	assert.Equal(t, 1, f.status.calls)
	assert.True(t, f.o.Snapshot()[domain.ProviderReddit])
	assert.Equal(t, []domain.Provider{domain.ProviderReddit}, f.presenter.modals)

	require.NoError(t, f.o.Dispatch(ctx, Acknowledge(Dashboard)))
	assert.Equal(t, Confirmed, f.o.State().Phase)
	assert.Equal(t, []string{"https://app.example.com/dashboard"}, f.nav.urls)
}

func TestOrchestrator_LoadPlain(t *testing.T) {
	f := newOrchestratorFixture()

	require.NoError(t, f.o.Load(context.Background(), url.Values{}))

	assert.Equal(t, Idle, f.o.State().Phase)
	assert.Equal(t, 1, f.status.calls)
	assert.Empty(t, f.presenter.modals)
}

func TestOrchestrator_InvalidEvent(t *testing.T) {
	f := newOrchestratorFixture()

	err := f.o.Dispatch(context.Background(), Confirm())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, State{Phase: Idle}, f.o.State())
}

func TestReturnedProvider(t *testing.T) {
	p, ok := ReturnedProvider(url.Values{"oauth": {"Twitter"}})
	assert.True(t, ok)
	assert.Equal(t, domain.ProviderTwitter, p)

	_, ok = ReturnedProvider(url.Values{"oauth": {"myspace"}})
	assert.False(t, ok)

	_, ok = ReturnedProvider(url.Values{})
	assert.False(t, ok)
}

func TestAPIStatusClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/connections" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer id-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"connections": map[string]bool{"twitter": false, "spotify": true, "reddit": false},
		})
	}))
	defer srv.Close()

	client := NewAPIStatusClient(srv.URL, &fakeTokens{token: "id-token"}, srv.Client())
	snap, err := client.Connections(context.Background())
	require.NoError(t, err)
	assert.True(t, snap[domain.ProviderSpotify])
	assert.False(t, snap[domain.ProviderReddit])
	assert.Len(t, snap, 3)

	bad := NewAPIStatusClient(srv.URL, &fakeTokens{token: "wrong"}, srv.Client())
	_, err = bad.Connections(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}
