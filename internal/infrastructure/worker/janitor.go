package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
)

// SessionExpirer clears sessions left idle before a cutoff
type SessionExpirer interface {
	ExpireIdle(ctx context.Context, cutoff time.Time) []string
}

// JanitorConfig holds configuration for the janitor
type JanitorConfig struct {
	SweepInterval  time.Duration
	CacheRetention time.Duration
	SessionIdleTTL time.Duration
}

// DefaultJanitorConfig returns default configuration
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		SweepInterval:  10 * time.Minute,
		CacheRetention: 72 * time.Hour,
		SessionIdleTTL: 24 * time.Hour,
	}
}

// SweepResult reports what one sweep removed
type SweepResult struct {
	FoldersDeleted  int
	SessionsExpired int
}

// JanitorWorker periodically drops stale document cache folders and idle
// pre-dispatch sessions. A zero retention or TTL disables that half.
type JanitorWorker struct {
	config   JanitorConfig
	folders  port.FolderManager
	sessions SessionExpirer
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

// NewJanitorWorker creates a new janitor
func NewJanitorWorker(config JanitorConfig, folders port.FolderManager, sessions SessionExpirer, logger *zap.Logger) *JanitorWorker {
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultJanitorConfig().SweepInterval
	}
	return &JanitorWorker{
		config:   config,
		folders:  folders,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the sweep loop
func (w *JanitorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("janitor already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("Janitor started",
		zap.Duration("sweep_interval", w.config.SweepInterval),
		zap.Duration("cache_retention", w.config.CacheRetention),
		zap.Duration("session_idle_ttl", w.config.SessionIdleTTL))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop terminates the loop and waits for a running sweep to finish
func (w *JanitorWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("Janitor stopped")
	return nil
}

// Name returns the worker name for identification
func (w *JanitorWorker) Name() string {
	return "Janitor"
}

func (w *JanitorWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass
func (w *JanitorWorker) Sweep(ctx context.Context) SweepResult {
	var result SweepResult
	now := w.now()

	if w.config.SessionIdleTTL > 0 && w.sessions != nil {
		result.SessionsExpired = len(w.sessions.ExpireIdle(ctx, now.Add(-w.config.SessionIdleTTL)))
	}

	if w.config.CacheRetention > 0 {
		result.FoldersDeleted = w.sweepCache(ctx, now.Add(-w.config.CacheRetention))
	}

	if result.FoldersDeleted > 0 || result.SessionsExpired > 0 {
		w.logger.Info("Janitor sweep finished",
			zap.Int("folders_deleted", result.FoldersDeleted),
			zap.Int("sessions_expired", result.SessionsExpired))
	}
	return result
}

func (w *JanitorWorker) sweepCache(ctx context.Context, cutoff time.Time) int {
	folders, err := w.folders.List(ctx)
	if err != nil {
		w.logger.Error("Failed to list cache folders", zap.Error(err))
		return 0
	}

	deleted := 0
	for _, f := range folders {
		if ctx.Err() != nil {
			break
		}
		if !f.ModTime.Before(cutoff) {
			continue
		}
		if err := w.folders.Delete(ctx, f.Name); err != nil {
			w.logger.Warn("Failed to delete cache folder",
				zap.String("folder", f.Name),
				zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted
}
