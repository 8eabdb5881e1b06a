package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neurasense/connect/internal/adapters/driven/postgres"
	redisadapter "github.com/neurasense/connect/internal/adapters/driven/redis"
	httpadapter "github.com/neurasense/connect/internal/adapters/driving/http"
	"github.com/neurasense/connect/internal/config"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

// stores is the storage backend selected by configuration.
type stores struct {
	states  driven.StateStore
	tokens  driven.TokenStore
	lock    driven.DistributedLock
	pingers map[string]httpadapter.Pinger
	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.Store {
	case config.StoreRedis:
		return openRedisStores(ctx, cfg, logger)
	case config.StorePostgres:
		return openPostgresStores(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func openRedisStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	client, err := redisadapter.Connect(ctx, cfg.RedisURL, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}
	logger.Info("using redis store")

	lock := redisadapter.NewLock(client)
	return &stores{
		states:  redisadapter.NewStateStore(client),
		tokens:  redisadapter.NewTokenStore(client),
		lock:    lock,
		pingers: map[string]httpadapter.Pinger{"redis": lock},
		closers: []func() error{client.Close},
	}, nil
}

func openPostgresStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	enc, err := postgres.NewSecretEncryptorFromSecret(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("token encryption key: %w", err)
	}

	db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("using postgres store")

	s := &stores{
		states:  postgres.NewStateStore(db),
		tokens:  postgres.NewTokenStore(db, enc),
		lock:    postgres.NewAdvisoryLock(db),
		pingers: map[string]httpadapter.Pinger{"postgres": db},
		closers: []func() error{db.Close},
	}

	// A configured Redis takes over sweep locking so API and worker
	// instances coordinate through one place.
	if cfg.RedisURL != "" {
		client, err := redisadapter.Connect(ctx, cfg.RedisURL, 3, time.Second)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		lock := redisadapter.NewLock(client)
		s.lock = lock
		s.pingers["redis"] = lock
		s.closers = append(s.closers, client.Close)
	}

	return s, nil
}
