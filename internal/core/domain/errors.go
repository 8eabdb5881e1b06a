package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrMissingParameter indicates a required request parameter was absent
	ErrMissingParameter = errors.New("missing parameter")

	// ErrStateNotFound indicates the OAuth state is absent, expired, or already consumed
	ErrStateNotFound = errors.New("invalid state")

	// ErrNotAuthenticated indicates the identity token is missing or failed verification
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTokenExpired indicates the identity token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrUnknownProvider indicates the provider name is not recognised
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderNotConfigured indicates the provider has no client credentials
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrProviderExchange indicates the provider token or profile call failed
	ErrProviderExchange = errors.New("provider exchange failed")

	// ErrProviderTimeout indicates a provider call exceeded its deadline. Retryable.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrProviderDenied indicates the provider redirected back with an error (e.g. access_denied)
	ErrProviderDenied = errors.New("provider denied authorization")

	// ErrStorage indicates the state or token store failed
	ErrStorage = errors.New("storage error")
)

// IsRetryable reports whether the error is transient and the user may retry
// the same flow without restarting it.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderTimeout)
}
