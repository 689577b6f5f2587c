package background

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiredTokenPurger deletes entries that expired before a given instant:
// one-time tokens and, with the in-memory cache, blacklist keys.
type ExpiredTokenPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CleanupManager removes expired verification and reset tokens on a cron
// schedule. Lookups already reject expired rows; this bounds table growth.
type CleanupManager struct {
	cron     *cron.Cron
	schedule string
	targets  map[string]ExpiredTokenPurger
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewCleanupManager creates a manager for a six-field (with seconds) schedule.
func NewCleanupManager(schedule string, targets map[string]ExpiredTokenPurger, logger *slog.Logger) *CleanupManager {
	return &CleanupManager{
		cron:     cron.New(cron.WithSeconds()),
		schedule: schedule,
		targets:  targets,
		logger:   logger,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Start runs a first pass immediately and then registers the schedule.
func (cm *CleanupManager) Start(ctx context.Context) error {
	if _, err := cm.cron.AddFunc(cm.schedule, func() { cm.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", cm.schedule, err)
	}

	cm.RunOnce(ctx)
	cm.cron.Start()
	cm.logger.Info("token cleanup scheduled", slog.String("schedule", cm.schedule))
	return nil
}

// RunOnce purges every target and returns the number of rows removed.
func (cm *CleanupManager) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	var total int64
	now := cm.now()
	for name, target := range cm.targets {
		n, err := target.DeleteExpired(ctx, now)
		if err != nil {
			cm.logger.Error("failed to cleanup expired tokens", slog.String("target", name), slog.Any("error", err))
			continue
		}
		if n > 0 {
			cm.logger.Info("expired token cleanup completed", slog.String("target", name), slog.Int64("rows_deleted", n))
		}
		total += n
	}
	return total
}

// Stop prevents new runs and waits for a running job or ctx, whichever ends first.
func (cm *CleanupManager) Stop(ctx context.Context) error {
	stopped := cm.cron.Stop()
	select {
	case <-stopped.Done():
		cm.logger.Info("cleanup manager stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
