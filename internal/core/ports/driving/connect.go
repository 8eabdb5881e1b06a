package driving

import (
	"context"

	"github.com/neurasense/connect/internal/core/domain"
)

// ConnectService drives the OAuth connect flow for third-party accounts.
// Initiate starts the authorization-code grant, Callback completes it.
type ConnectService interface {
	// Initiate verifies the caller's identity, persists a state record and
	// returns the provider authorization URL. No URL is returned unless the
	// state was stored.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)

	// Callback handles the provider redirect. It claims the state, exchanges
	// the code, stores the token record and returns where to send the user.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)
}

// InitiateRequest represents a request to start a connect flow.
type InitiateRequest struct {
	Provider domain.Provider

	// IdentityToken is the caller's signed identity token.
	IdentityToken string
}

// InitiateResponse contains the authorization URL and state.
// @Description Response containing the provider authorization URL
type InitiateResponse struct {
	// AuthorizationURL is where the user agent should be redirected.
	AuthorizationURL string `json:"authorization_url" example:"https://www.reddit.com/api/v1/authorize?client_id=..."`

	// State is the CSRF token that will come back on the callback.
	State string `json:"state" example:"4b6f1c2e-8e1a-4a53-9d0c-2f1b1de4e0a7"`

	// ExpiresAt is when the state stops being accepted.
	ExpiresAt string `json:"expires_at" example:"2024-01-15T10:10:00Z"`
}

// CallbackRequest represents the provider redirect parameters.
type CallbackRequest struct {
	// Provider is the provider named in the callback route.
	Provider domain.Provider

	Code  string
	State string

	// Error is set when the provider reports a failure, typically access_denied.
	Error            string
	ErrorDescription string
}

// CallbackResponse is the result of a completed callback.
type CallbackResponse struct {
	// RedirectURL is the application page to send the user agent to.
	RedirectURL string

	Provider domain.Provider
	UserID   string
}
