package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/neurasense/connect/internal/core/domain"
)

// APIStatusClient reads connection status from the connections endpoint.
type APIStatusClient struct {
	baseURL string
	tokens  IdentityTokenSource
	client  *http.Client
}

// NewAPIStatusClient creates a status client. A nil client gets a 10s timeout.
func NewAPIStatusClient(baseURL string, tokens IdentityTokenSource, client *http.Client) *APIStatusClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIStatusClient{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens, client: client}
}

type connectionsBody struct {
	Connections map[string]bool `json:"connections"`
}

// Connections fetches the snapshot for the signed-in user.
func (c *APIStatusClient) Connections(ctx context.Context) (domain.ConnectionSnapshot, error) {
	token, err := c.tokens.IdentityToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/connections", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("connections: unexpected status %d", resp.StatusCode)
	}

	var body connectionsBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode connections: %w", err)
	}
	present := make([]domain.Provider, 0, len(body.Connections))
	for name, ok := range body.Connections {
		if ok {
			present = append(present, domain.Provider(name))
		}
	}
	return domain.NewConnectionSnapshot(present), nil
}
