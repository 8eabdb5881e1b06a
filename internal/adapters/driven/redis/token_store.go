package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TokenStore = (*TokenStore)(nil)

const (
	tokenPrefix     = "token:"
	tokenUserPrefix = "token-index:"

	maxUpsertRetries = 5
)

// TokenStore implements driven.TokenStore using Redis.
// Each record lives at token:{user}:{provider}; token-index:{user} is the
// set of providers the user has records for.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore creates a new Redis-backed TokenStore
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func recordKey(userID string, p domain.Provider) string {
	return tokenPrefix + userID + ":" + string(p)
}

// Upsert merges record into any stored record under an optimistic WATCH
// transaction and returns the merged result.
func (s *TokenStore) Upsert(ctx context.Context, record *domain.TokenRecord) (*domain.TokenRecord, error) {
	key := recordKey(record.UserID, record.Provider)
	var merged *domain.TokenRecord

	txf := func(tx *redis.Tx) error {
		current := &domain.TokenRecord{}
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, current); err != nil {
				return fmt.Errorf("unmarshal token record: %w", err)
			}
		}

		current.Merge(record)
		out, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal token record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			pipe.SAdd(ctx, tokenUserPrefix+record.UserID, string(record.Provider))
			return nil
		})
		if err == nil {
			merged = current
		}
		return err
	}

	for range maxUpsertRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("failed to upsert token record: %w", err)
	}
	return nil, fmt.Errorf("failed to upsert token record: too much contention on %s", key)
}

// Get retrieves the record for (userID, provider)
func (s *TokenStore) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.TokenRecord, error) {
	data, err := s.client.Get(ctx, recordKey(userID, provider)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token record: %w", err)
	}

	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}
	return &rec, nil
}

// ListProviders returns the providers with a stored record. Set members whose
// record key is gone are pruned.
func (s *TokenStore) ListProviders(ctx context.Context, userID string) ([]domain.Provider, error) {
	members, err := s.client.SMembers(ctx, tokenUserPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list token records: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	checks := make([]*redis.IntCmd, len(members))
	for i, m := range members {
		checks[i] = pipe.Exists(ctx, recordKey(userID, domain.Provider(m)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check token records: %w", err)
	}

	var providers []domain.Provider
	var stale []any
	for i, m := range members {
		if checks[i].Val() == 1 {
			providers = append(providers, domain.Provider(m))
		} else {
			stale = append(stale, m)
		}
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, tokenUserPrefix+userID, stale...)
	}
	return providers, nil
}

// Delete removes the record; absent records are not an error.
func (s *TokenStore) Delete(ctx context.Context, userID string, provider domain.Provider) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(userID, provider))
		pipe.SRem(ctx, tokenUserPrefix+userID, string(provider))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}
	return nil
}
