package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore implements driven.StateStore using PostgreSQL.
// A claimed state has claimed_at set and is invisible to Consume.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new PostgreSQL-backed state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Save stores a new state.
func (s *StateStore) Save(ctx context.Context, state *domain.AuthState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = now.Add(domain.DefaultStateTTL)
	}

	query := `
		INSERT INTO oauth_states (state, user_id, provider, code_verifier, redirect_uri, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		state.State,
		state.UserID,
		string(state.Provider),
		state.CodeVerifier,
		state.RedirectURI,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume claims an unclaimed, unexpired state in one statement.
func (s *StateStore) Consume(ctx context.Context, state string) (*domain.AuthState, error) {
	query := `
		UPDATE oauth_states SET claimed_at = NOW()
		WHERE state = $1 AND claimed_at IS NULL AND expires_at > NOW()
		RETURNING state, user_id, provider, code_verifier, redirect_uri, created_at, expires_at
	`

	var st domain.AuthState
	var provider string
	err := s.db.QueryRowContext(ctx, query, state).Scan(
		&st.State,
		&st.UserID,
		&provider,
		&st.CodeVerifier,
		&st.RedirectURI,
		&st.CreatedAt,
		&st.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim oauth state: %w", err)
	}
	st.Provider = domain.Provider(provider)
	return &st, nil
}

// Release unclaims a state.
func (s *StateStore) Release(ctx context.Context, state string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE oauth_states SET claimed_at = NULL WHERE state = $1`, state); err != nil {
		return fmt.Errorf("release oauth state: %w", err)
	}
	return nil
}

// Delete removes a state.
func (s *StateStore) Delete(ctx context.Context, state string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE state = $1`, state); err != nil {
		return fmt.Errorf("delete oauth state: %w", err)
	}
	return nil
}

// Cleanup removes expired states, claimed or not.
func (s *StateStore) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth states: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth states: %w", err)
	}
	return int(n), nil
}
