package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/neurasense/connect/internal/core/ports/driven"
)

const sweepLockName = "state-sweeper"

// StateSweeper periodically removes expired authorization states.
//
// For multi-instance deployments, configure a DistributedLock so only one
// instance sweeps per interval.
type StateSweeper struct {
	states driven.StateStore
	lock   driven.DistributedLock
	logger *slog.Logger

	interval time.Duration
	lockTTL  time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// StateSweeperConfig holds configuration for the sweeper.
type StateSweeperConfig struct {
	StateStore driven.StateStore
	Lock       driven.DistributedLock // Optional
	Logger     *slog.Logger
	Interval   time.Duration // How often to sweep (default: 1h)
	LockTTL    time.Duration // TTL for the sweep lock (default: 5m)
}

// NewStateSweeper creates a new sweeper.
func NewStateSweeper(cfg StateSweeperConfig) *StateSweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &StateSweeper{
		states:   cfg.StateStore,
		lock:     cfg.Lock,
		logger:   logger,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Start begins the sweep loop. It runs until Stop is called or ctx is done.
func (s *StateSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("state sweeper starting", "interval", s.interval)

	go s.run(ctx)
	return nil
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (s *StateSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("state sweeper stopped")
}

// IsRunning reports whether the loop is active.
func (s *StateSweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *StateSweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.SweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}

// SweepOnce removes expired states once. When another instance holds the
// sweep lock it does nothing and returns zero.
func (s *StateSweeper) SweepOnce(ctx context.Context) (removed int, err error) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, sweepLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire sweep lock", "error", err)
			return 0, err
		}
		if !acquired {
			s.logger.Debug("sweep lock held by another instance, skipping")
			return 0, nil
		}
		defer func() {
			if err := s.lock.Release(ctx, sweepLockName); err != nil {
				s.logger.Warn("failed to release sweep lock", "error", err)
			}
		}()
	}

	removed, err = s.states.Cleanup(ctx)
	if err != nil {
		s.logger.Error("state sweep failed", "error", err)
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("removed expired oauth states", "count", removed)
	}
	return removed, nil
}
