package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/neurasense/connect/internal/core/domain"
)

// IdentityTokenSource yields the signed-in user's identity token.
type IdentityTokenSource interface {
	IdentityToken(ctx context.Context) (string, error)
}

// Navigator performs a full page navigation.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// StatusClient queries the connection registry.
type StatusClient interface {
	Connections(ctx context.Context) (domain.ConnectionSnapshot, error)
}

// Presenter shows transient UI.
type Presenter interface {
	ShowToast(msg string)
	ShowPostConnectModal(p domain.Provider)
}

// OrchestratorConfig holds the collaborators and URLs for an Orchestrator.
type OrchestratorConfig struct {
	Tokens    IdentityTokenSource
	Navigator Navigator
	Status    StatusClient
	Presenter Presenter
	Logger    *slog.Logger

	// BaseURL is where the connect endpoints are served.
	BaseURL string

	// DashboardPath is navigated to on Acknowledge(Dashboard) (default: /dashboard).
	DashboardPath string
}

// Orchestrator drives the state machine and runs its effects.
type Orchestrator struct {
	tokens    IdentityTokenSource
	nav       Navigator
	status    StatusClient
	presenter Presenter
	logger    *slog.Logger
	baseURL   string
	dashboard string

	mu       sync.Mutex
	state    State
	snapshot domain.ConnectionSnapshot
}

// NewOrchestrator creates an orchestrator in the Idle state.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dashboard := cfg.DashboardPath
	if dashboard == "" {
		dashboard = "/dashboard"
	}
	return &Orchestrator{
		tokens:    cfg.Tokens,
		nav:       cfg.Navigator,
		status:    cfg.Status,
		presenter: cfg.Presenter,
		logger:    logger,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		dashboard: dashboard,
		state:     State{Phase: Idle},
		snapshot:  domain.NewConnectionSnapshot(nil),
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the last connection status fetched.
func (o *Orchestrator) Snapshot() domain.ConnectionSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(domain.ConnectionSnapshot, len(o.snapshot))
	for k, v := range o.snapshot {
		out[k] = v
	}
	return out
}

// Load fetches the initial connection status and, when the page was reached
// through a post-connect redirect, dispatches the Return event.
func (o *Orchestrator) Load(ctx context.Context, query url.Values) error {
	if p, ok := ReturnedProvider(query); ok {
		return o.Dispatch(ctx, Return(p))
	}
	return o.refresh(ctx)
}

// Dispatch applies ev and runs the resulting effects. Effects may feed
// follow-up events back into the machine.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event) error {
	o.mu.Lock()
	next, effects, err := Transition(o.state, ev)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.logger.Debug("connect flow transition", "from", o.state.String(), "event", ev.Kind.String(), "to", next.String())
	o.state = next
	o.mu.Unlock()

	var errs []error
	for _, eff := range effects {
		if err := o.run(ctx, eff); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) run(ctx context.Context, eff Effect) error {
	switch eff.Kind {
	case EffectFetchIdentityToken:
		token, err := o.tokens.IdentityToken(ctx)
		if err != nil {
			return o.Dispatch(ctx, Fail(err))
		}
		return o.Dispatch(ctx, TokenReady(token))
	case EffectNavigate:
		return o.nav.Navigate(ctx, o.InitiateURL(eff.Provider, eff.Token))
	case EffectRefreshStatus:
		return o.refresh(ctx)
	case EffectShowToast:
		o.presenter.ShowToast(eff.Message)
	case EffectShowPostConnectModal:
		o.presenter.ShowPostConnectModal(eff.Provider)
	case EffectGoToDashboard:
		return o.nav.Navigate(ctx, o.baseURL+o.dashboard)
	default:
		return fmt.Errorf("unknown effect %d", eff.Kind)
	}
	return nil
}

func (o *Orchestrator) refresh(ctx context.Context) error {
	snap, err := o.status.Connections(ctx)
	if err != nil {
		return fmt.Errorf("refresh connection status: %w", err)
	}
	o.mu.Lock()
	o.snapshot = snap
	o.mu.Unlock()
	return nil
}

// InitiateURL builds the initiate endpoint URL for a provider.
func (o *Orchestrator) InitiateURL(p domain.Provider, token string) string {
	return o.baseURL + "/connect/" + url.PathEscape(string(p)) + "?" + url.Values{"token": {token}}.Encode()
}

// ReturnedProvider extracts the provider from a post-connect redirect query.
func ReturnedProvider(query url.Values) (domain.Provider, bool) {
	raw := query.Get("oauth")
	if raw == "" {
		return "", false
	}
	p, err := domain.ParseProvider(raw)
	if err != nil {
		return "", false
	}
	return p, true
}
