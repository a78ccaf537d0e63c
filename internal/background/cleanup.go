package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cleaner purges stale rows and reports how many were removed
type Cleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// CleanerFunc adapts a function to the Cleaner interface
type CleanerFunc func(ctx context.Context) (int64, error)

// Cleanup calls f(ctx)
func (f CleanerFunc) Cleanup(ctx context.Context) (int64, error) {
	return f(ctx)
}

// CleanupManager periodically removes spent QR codes and expired drafts
type CleanupManager struct {
	tasks    map[string]Cleaner
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. tasks maps a name used in
// logs to the cleaner it runs on every tick.
func NewCleanupManager(tasks map[string]Cleaner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		tasks:    tasks,
		logger:   logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup runs every task once; a failing task does not stop the others
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	for name, task := range cm.tasks {
		cleanupCtx, cancel := context.WithTimeout(ctx, cm.timeout)
		rowsDeleted, err := task.Cleanup(cleanupCtx)
		cancel()

		if err != nil {
			cm.logger.Error("cleanup task failed",
				slog.String("task", name),
				slog.Any("error", err))
			continue
		}

		if rowsDeleted > 0 {
			cm.logger.Info("cleanup task completed",
				slog.String("task", name),
				slog.Int64("rows_deleted", rowsDeleted))
		}
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
