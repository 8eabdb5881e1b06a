package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driving"
)

// handleConnect godoc
// @Summary      Start a provider connection
// @Description  Verifies the identity token, stores an OAuth state and redirects to the provider. Send Accept: application/json to receive the URL instead of a redirect.
// @Tags         Connect
// @Produce      json
// @Param        provider  path      string  true   "Provider"  Enums(twitter, reddit, spotify)
// @Param        token     query     string  false  "Identity token (or Authorization: Bearer)"
// @Success      200       {object}  driving.InitiateResponse
// @Success      302       "Redirect to provider authorization page"
// @Failure      401       {object}  ErrorResponse  "Not authenticated"
// @Failure      404       {object}  ErrorResponse  "Unknown or unconfigured provider"
// @Failure      500       {object}  ErrorResponse  "Storage error"
// @Router       /connect/{provider} [get]
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	resp, err := s.connectService.Initiate(r.Context(), driving.InitiateRequest{
		Provider:      domain.Provider(r.PathValue("provider")),
		IdentityToken: identityToken(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, resp.AuthorizationURL, http.StatusFound)
}

// handleCallback godoc
// @Summary      Provider OAuth callback
// @Description  Completes the authorization-code grant and redirects to the application
// @Tags         Connect
// @Produce      json
// @Param        provider           path   string  true   "Provider"  Enums(twitter, reddit, spotify)
// @Param        code               query  string  false  "Authorization code"
// @Param        state              query  string  false  "OAuth state"
// @Param        error              query  string  false  "Provider error, e.g. access_denied"
// @Param        error_description  query  string  false  "Provider error description"
// @Success      302  "Redirect to application"
// @Failure      400  {object}  ErrorResponse  "Missing code or state, invalid state or denied"
// @Failure      500  {object}  ErrorResponse  "Exchange or storage failure"
// @Failure      504  {object}  ErrorResponse  "Provider timeout"
// @Router       /connect/{provider}/callback [get]
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	provider := domain.Provider(r.PathValue("provider"))

	resp, err := s.connectService.Callback(r.Context(), driving.CallbackRequest{
		Provider:         provider,
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		if s.callbackErrorPath != "" {
			s.logger.Warn("oauth callback failed", "provider", provider, "error", err)
			http.Redirect(w, r, s.errorRedirectURL(provider, mapError(err).Code), http.StatusFound)
			return
		}
		s.writeDomainError(w, r, err)
		return
	}

	http.Redirect(w, r, resp.RedirectURL, http.StatusFound)
}

func (s *Server) errorRedirectURL(provider domain.Provider, code string) string {
	q := url.Values{}
	q.Set("oauth_error", code)
	if provider.IsValid() {
		q.Set("provider", provider.String())
	}
	return strings.TrimRight(s.baseURL, "/") + s.callbackErrorPath + "?" + q.Encode()
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
