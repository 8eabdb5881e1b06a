package http

import (
	"errors"
	"net/http"

	"github.com/neurasense/connect/internal/core/domain"
)

const (
	msgMissingParameter = "Missing code or state"
	msgInvalidState     = "Invalid state"
	msgNotAuthenticated = "Not authenticated"
	msgInternal         = "internal server error"
)

// apiError is the HTTP rendering of a domain error. Code is the short
// machine-readable form used in error redirects.
type apiError struct {
	Status  int
	Message string
	Code    string
}

// mapError translates domain errors into HTTP status and message. Timeout is
// checked before exchange because a provider timeout also fails the exchange.
func mapError(err error) apiError {
	switch {
	case errors.Is(err, domain.ErrMissingParameter):
		return apiError{http.StatusBadRequest, msgMissingParameter, "missing_parameter"}
	case errors.Is(err, domain.ErrStateNotFound):
		return apiError{http.StatusBadRequest, msgInvalidState, "invalid_state"}
	case errors.Is(err, domain.ErrProviderDenied):
		return apiError{http.StatusBadRequest, "Authorization was denied", "access_denied"}
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrTokenExpired):
		return apiError{http.StatusUnauthorized, msgNotAuthenticated, "not_authenticated"}
	case errors.Is(err, domain.ErrUnknownProvider):
		return apiError{http.StatusNotFound, "Unknown provider", "unknown_provider"}
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return apiError{http.StatusNotFound, "Provider not configured", "provider_not_configured"}
	case errors.Is(err, domain.ErrNotFound):
		return apiError{http.StatusNotFound, "Not connected", "not_found"}
	case errors.Is(err, domain.ErrProviderTimeout):
		return apiError{http.StatusGatewayTimeout, "Provider did not respond in time, please try again", "provider_timeout"}
	case errors.Is(err, domain.ErrProviderExchange):
		return apiError{http.StatusInternalServerError, "Failed to exchange code", "exchange_failed"}
	case errors.Is(err, domain.ErrStorage):
		return apiError{http.StatusInternalServerError, "Failed to store connection", "storage_error"}
	default:
		return apiError{http.StatusInternalServerError, msgInternal, "internal"}
	}
}
