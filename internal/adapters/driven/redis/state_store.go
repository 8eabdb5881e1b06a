package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateStore = (*StateStore)(nil)

// Live and claimed states live under separate roots so no state token can
// name another token's claimed key.
const (
	statePrefix        = "oauth:state:"
	claimedStatePrefix = "oauth:claimed:"
)

// claimScript moves a live state to its claimed key and returns the payload.
// RENAME keeps the key's TTL, so a claimed state still expires on schedule.
var claimScript = redis.NewScript(`
	local v = redis.call("GET", KEYS[1])
	if not v then
		return false
	end
	redis.call("RENAME", KEYS[1], KEYS[2])
	return v
`)

// releaseStateScript moves a claimed state back to its live key unless a live
// key already exists.
var releaseStateScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return redis.call("RENAMENX", KEYS[1], KEYS[2])
	end
	return 0
`)

// StateStore implements driven.StateStore using Redis.
// States use Redis TTL for expiration; Cleanup has nothing to do.
type StateStore struct {
	client *redis.Client
}

// NewStateStore creates a new Redis-backed StateStore
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// Save stores a state with a TTL derived from ExpiresAt.
func (s *StateStore) Save(ctx context.Context, state *domain.AuthState) error {
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = time.Now().Add(domain.DefaultStateTTL)
	}
	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save state: already expired")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, statePrefix+state.State, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to save state: duplicate state token")
	}
	return nil
}

// Consume atomically claims a live state. Missing, expired or already claimed
// states return domain.ErrStateNotFound.
func (s *StateStore) Consume(ctx context.Context, state string) (*domain.AuthState, error) {
	if state == "" {
		return nil, domain.ErrStateNotFound
	}
	data, err := claimScript.Run(ctx, s.client,
		[]string{statePrefix + state, claimedStatePrefix + state}).Text()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim state: %w", err)
	}

	var st domain.AuthState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	// Key TTL and ExpiresAt should agree, but trust the record.
	if st.IsExpired() {
		s.client.Del(ctx, claimedStatePrefix+state)
		return nil, domain.ErrStateNotFound
	}
	return &st, nil
}

// Release returns a claimed state to the live set.
func (s *StateStore) Release(ctx context.Context, state string) error {
	err := releaseStateScript.Run(ctx, s.client,
		[]string{claimedStatePrefix + state, statePrefix + state}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release state: %w", err)
	}
	return nil
}

// Delete removes a state whether live or claimed.
func (s *StateStore) Delete(ctx context.Context, state string) error {
	if err := s.client.Del(ctx, statePrefix+state, claimedStatePrefix+state).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires state keys itself.
func (s *StateStore) Cleanup(ctx context.Context) (int, error) {
	return 0, nil
}
