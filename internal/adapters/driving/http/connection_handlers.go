package http

import (
	"net/http"

	"github.com/neurasense/connect/internal/core/domain"
)

// ConnectionsResponse lists connected flags per provider
// @Description Connection status for every known provider
type ConnectionsResponse struct {
	Connections map[string]bool `json:"connections" example:"twitter:false,reddit:true,spotify:false"`
}

// handleListConnections godoc
// @Summary      List connections
// @Description  Returns whether each provider is connected for the caller
// @Tags         Connections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ConnectionsResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/connections [get]
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}

	snap, err := s.connectionService.List(r.Context(), identity.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := ConnectionsResponse{Connections: make(map[string]bool, len(snap))}
	for p, connected := range snap {
		resp.Connections[p.String()] = connected
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetConnection godoc
// @Summary      Get connection
// @Description  Returns a summary of the stored connection without secrets
// @Tags         Connections
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string  true  "Provider"  Enums(twitter, reddit, spotify)
// @Success      200       {object}  domain.TokenRecordSummary
// @Failure      401       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse  "Not connected or unknown provider"
// @Router       /api/v1/connections/{provider} [get]
func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}

	summary, err := s.connectionService.Get(r.Context(), identity.UserID, domain.Provider(r.PathValue("provider")))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleDisconnect godoc
// @Summary      Disconnect provider
// @Description  Deletes the stored connection. Disconnecting twice is not an error.
// @Tags         Connections
// @Security     BearerAuth
// @Param        provider  path  string  true  "Provider"  Enums(twitter, reddit, spotify)
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse  "Unknown provider"
// @Router       /api/v1/connections/{provider} [delete]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}

	if err := s.connectionService.Disconnect(r.Context(), identity.UserID, domain.Provider(r.PathValue("provider"))); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
