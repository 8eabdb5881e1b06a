package redis

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/neurasense/connect/internal/core/domain"
)

func TestTokenStore_UpsertAndGet(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()
	store := NewTokenStore(client)
	ctx := context.Background()

	connected := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	rec := &domain.TokenRecord{
		UserID:       "U",
		Provider:     domain.ProviderReddit,
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresIn:    3600,
		Profile:      &domain.Profile{Username: "u_alice"},
		ConnectedAt:  connected,
		FetchedAt:    connected,
	}

	merged, err := store.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.Get(ctx, "U", domain.ProviderReddit)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(merged, got); diff != "" {
		t.Errorf("stored record differs from upsert result (-want +got):\n%s", diff)
	}
	if got.AccessToken != "AT1" || got.Profile.Username != "u_alice" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestTokenStore_UpsertMerges(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()
	store := NewTokenStore(client)
	ctx := context.Background()

	_, _ = store.Upsert(ctx, &domain.TokenRecord{
		UserID: "U", Provider: domain.ProviderReddit,
		AccessToken: "AT1", RefreshToken: "RT1",
		Profile: &domain.Profile{Username: "u_alice"},
	})
	merged, err := store.Upsert(ctx, &domain.TokenRecord{
		UserID: "U", Provider: domain.ProviderReddit,
		AccessToken: "AT2",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if merged.AccessToken != "AT2" {
		t.Errorf("expected AT2, got %s", merged.AccessToken)
	}
	if merged.RefreshToken != "RT1" {
		t.Errorf("expected refresh token kept, got %q", merged.RefreshToken)
	}
	if merged.Profile == nil || merged.Profile.Username != "u_alice" {
		t.Errorf("expected profile kept, got %+v", merged.Profile)
	}
}

func TestTokenStore_GetMissing(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := NewTokenStore(client).Get(context.Background(), "U", domain.ProviderSpotify)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_ListAndDelete(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()
	store := NewTokenStore(client)
	ctx := context.Background()

	for _, p := range []domain.Provider{domain.ProviderReddit, domain.ProviderSpotify} {
		_, _ = store.Upsert(ctx, &domain.TokenRecord{UserID: "U", Provider: p, AccessToken: "at"})
	}
	_, _ = store.Upsert(ctx, &domain.TokenRecord{UserID: "V", Provider: domain.ProviderTwitter, AccessToken: "at"})

	got, err := store.ListProviders(ctx, "U")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []domain.Provider{domain.ProviderReddit, domain.ProviderSpotify}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("providers mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 2; i++ {
		if err := store.Delete(ctx, "U", domain.ProviderReddit); err != nil {
			t.Errorf("delete #%d: %v", i+1, err)
		}
	}
	got, _ = store.ListProviders(ctx, "U")
	if diff := cmp.Diff([]domain.Provider{domain.ProviderSpotify}, got); diff != "" {
		t.Errorf("after delete (-want +got):\n%s", diff)
	}
}

func TestTokenStore_ListPrunesStaleIndex(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	store := NewTokenStore(client)
	ctx := context.Background()

	_, _ = store.Upsert(ctx, &domain.TokenRecord{UserID: "U", Provider: domain.ProviderReddit, AccessToken: "at"})
	mr.Del(recordKey("U", domain.ProviderReddit))

	got, err := store.ListProviders(ctx, "U")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no providers, got %v", got)
	}
	if ok, _ := mr.SIsMember(tokenUserPrefix+"U", "reddit"); ok {
		t.Error("expected stale index entry pruned")
	}
}

func TestTokenStore_ConcurrentUpserts(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()
	store := NewTokenStore(client)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Upsert(ctx, &domain.TokenRecord{UserID: "U", Provider: domain.ProviderTwitter, AccessToken: "at"})
		}()
	}
	wg.Wait()

	providers, err := store.ListProviders(ctx, "U")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(providers) != 1 {
		t.Errorf("expected exactly one provider, got %v", providers)
	}
}
