package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRetention keeps expired rows around for a day before purging them.
const DefaultRetention = 24 * time.Hour

// ExpiredPurger deletes rows that expired before the cutoff
type ExpiredPurger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupTask names a table purged on each run
type CleanupTask struct {
	Name   string
	Purger ExpiredPurger
}

// CleanupManager periodically removes expired reset requests and remember
// tokens from the database
type CleanupManager struct {
	tasks     []CleanupTask
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	logger *slog.Logger,
	interval time.Duration,
	retention time.Duration,
	tasks ...CleanupTask,
) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CleanupManager{
		tasks:     tasks,
		logger:    logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop is called or
// ctx is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce purges every task once. A failing task does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := cm.now().Add(-cm.retention)
	for _, task := range cm.tasks {
		rowsDeleted, err := task.Purger.DeleteExpiredBefore(cleanupCtx, cutoff)
		if err != nil {
			cm.logger.Error("cleanup failed",
				slog.String("task", task.Name),
				slog.Any("error", err),
			)
			continue
		}

		if rowsDeleted > 0 {
			cm.logger.Info("cleanup completed",
				slog.String("task", task.Name),
				slog.Int64("rows_deleted", rowsDeleted),
			)
		}
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
