package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// Ensure TokenStore implements the interface.
var _ driven.TokenStore = (*TokenStore)(nil)

// tokenSecrets is the encrypted part of a token record.
type tokenSecrets struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenStore implements driven.TokenStore using PostgreSQL. Access and
// refresh tokens are stored encrypted; everything else is plain columns.
type TokenStore struct {
	db  *DB
	enc *SecretEncryptor
}

// NewTokenStore creates a new PostgreSQL-backed token store.
func NewTokenStore(db *DB, enc *SecretEncryptor) *TokenStore {
	return &TokenStore{db: db, enc: enc}
}

func recordAAD(userID string, p domain.Provider) []byte {
	return []byte(userID + "/" + string(p))
}

const selectRecord = `
	SELECT user_id, provider, secret_blob, token_type, scope, expires_in, expires_at, profile, connected_at, fetched_at
	FROM token_records
	WHERE user_id = $1 AND provider = $2
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *TokenStore) scan(row rowScanner) (*domain.TokenRecord, error) {
	var rec domain.TokenRecord
	var provider string
	var blob, profile []byte
	var expiresAt sql.NullTime

	err := row.Scan(
		&rec.UserID,
		&provider,
		&blob,
		&rec.TokenType,
		&rec.Scope,
		&rec.ExpiresIn,
		&expiresAt,
		&profile,
		&rec.ConnectedAt,
		&rec.FetchedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Provider = domain.Provider(provider)
	rec.ExpiresAt = TimePtr(expiresAt)

	var secrets tokenSecrets
	if err := s.enc.Open(blob, recordAAD(rec.UserID, rec.Provider), &secrets); err != nil {
		return nil, fmt.Errorf("decrypt token record: %w", err)
	}
	rec.AccessToken = secrets.AccessToken
	rec.RefreshToken = secrets.RefreshToken

	if len(profile) > 0 {
		rec.Profile = &domain.Profile{}
		if err := json.Unmarshal(profile, rec.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
	}
	return &rec, nil
}

// Upsert merges record into the stored row inside a transaction.
func (s *TokenStore) Upsert(ctx context.Context, record *domain.TokenRecord) (*domain.TokenRecord, error) {
	var merged *domain.TokenRecord

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		current, err := s.scan(tx.QueryRowContext(ctx, selectRecord+" FOR UPDATE", record.UserID, string(record.Provider)))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			current = &domain.TokenRecord{}
		case err != nil:
			return fmt.Errorf("load token record: %w", err)
		}
		current.Merge(record)

		blob, err := s.enc.Seal(tokenSecrets{
			AccessToken:  current.AccessToken,
			RefreshToken: current.RefreshToken,
		}, recordAAD(current.UserID, current.Provider))
		if err != nil {
			return fmt.Errorf("encrypt token record: %w", err)
		}

		var profile []byte
		if current.Profile != nil {
			if profile, err = json.Marshal(current.Profile); err != nil {
				return fmt.Errorf("marshal profile: %w", err)
			}
		}

		query := `
			INSERT INTO token_records (user_id, provider, secret_blob, token_type, scope, expires_in, expires_at, profile, connected_at, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (user_id, provider) DO UPDATE SET
				secret_blob = EXCLUDED.secret_blob,
				token_type = EXCLUDED.token_type,
				scope = EXCLUDED.scope,
				expires_in = EXCLUDED.expires_in,
				expires_at = EXCLUDED.expires_at,
				profile = EXCLUDED.profile,
				connected_at = EXCLUDED.connected_at,
				fetched_at = EXCLUDED.fetched_at
		`
		_, err = tx.ExecContext(ctx, query,
			current.UserID,
			string(current.Provider),
			blob,
			current.TokenType,
			current.Scope,
			current.ExpiresIn,
			NullTime(current.ExpiresAt),
			profile,
			current.ConnectedAt,
			current.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("write token record: %w", err)
		}
		merged = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert token record: %w", err)
	}
	return merged, nil
}

// Get retrieves the record for (userID, provider).
func (s *TokenStore) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.TokenRecord, error) {
	rec, err := s.scan(s.db.QueryRowContext(ctx, selectRecord, userID, string(provider)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token record: %w", err)
	}
	return rec, nil
}

// ListProviders returns the providers with a stored record for the user.
func (s *TokenStore) ListProviders(ctx context.Context, userID string) ([]domain.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT provider FROM token_records WHERE user_id = $1 ORDER BY provider`, userID)
	if err != nil {
		return nil, fmt.Errorf("list token records: %w", err)
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, domain.Provider(p))
	}
	return providers, rows.Err()
}

// Delete removes the record; absent records are not an error.
func (s *TokenStore) Delete(ctx context.Context, userID string, provider domain.Provider) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM token_records WHERE user_id = $1 AND provider = $2`, userID, string(provider))
	if err != nil {
		return fmt.Errorf("delete token record: %w", err)
	}
	return nil
}
