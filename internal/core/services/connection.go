package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
	"github.com/neurasense/connect/internal/core/ports/driving"
)

// Ensure connectionService implements ConnectionService
var _ driving.ConnectionService = (*connectionService)(nil)

type connectionService struct {
	tokens driven.TokenStore
	logger *slog.Logger
}

// NewConnectionService creates a new connection status service.
func NewConnectionService(tokens driven.TokenStore, logger *slog.Logger) driving.ConnectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &connectionService{tokens: tokens, logger: logger}
}

// List reports a connected flag per known provider. A record's presence is
// authoritative regardless of token validity.
func (s *connectionService) List(ctx context.Context, userID string) (domain.ConnectionSnapshot, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	providers, err := s.tokens.ListProviders(ctx, userID)
	if err != nil {
		return nil, storageErr("list providers", err)
	}
	return domain.NewConnectionSnapshot(providers), nil
}

// Get returns the safe summary of one token record.
func (s *connectionService) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.TokenRecordSummary, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if !provider.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	record, err := s.tokens.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	return record.ToSummary(), nil
}

// Disconnect deletes the token record; absent records are not an error.
func (s *connectionService) Disconnect(ctx context.Context, userID string, provider domain.Provider) error {
	if userID == "" {
		return domain.ErrNotAuthenticated
	}
	if !provider.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	if err := s.tokens.Delete(ctx, userID, provider); err != nil {
		return storageErr("delete token record", err)
	}
	s.logger.Info("provider disconnected", "provider", provider, "user_id", userID)
	return nil
}
