package application

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
	robfigcron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type HousekeepingConfig struct {
	// LockSweep is a cron spec, e.g. "@every 5m".
	LockSweep        string
	StaleLockMinutes int
	// RetentionDays of history to keep; 0 keeps everything.
	RetentionDays int
}

// Housekeeping sweeps stale locks and old history on a cron.
type Housekeeping struct {
	scheduler *robfigcron.Cron
	lock      domain.ExecutionLock
	history   domain.HistoryRepository
	runs      domain.RunRepository
	cfg       HousekeepingConfig
	now       func() time.Time
}

func NewHousekeeping(lock domain.ExecutionLock, history domain.HistoryRepository, runs domain.RunRepository, cfg HousekeepingConfig) *Housekeeping {
	if cfg.LockSweep == "" {
		cfg.LockSweep = "@every 5m"
	}
	if cfg.StaleLockMinutes <= 0 {
		cfg.StaleLockMinutes = 5
	}
	return &Housekeeping{
		scheduler: robfigcron.New(),
		lock:      lock,
		history:   history,
		runs:      runs,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron. Stop with Stop.
func (h *Housekeeping) Start(ctx context.Context) error {
	if _, err := h.scheduler.AddFunc(h.cfg.LockSweep, func() { h.SweepLocks(ctx) }); err != nil {
		return fmt.Errorf("invalid lock sweep spec %q: %w", h.cfg.LockSweep, err)
	}
	if h.cfg.RetentionDays > 0 && h.history != nil {
		if _, err := h.scheduler.AddFunc("@daily", func() { h.PurgeHistory(ctx) }); err != nil {
			return fmt.Errorf("failed to register history purge: %w", err)
		}
	}
	h.scheduler.Start()
	logrus.Infof("[HOUSEKEEPING] Started (locks %s, retention %d days)", h.cfg.LockSweep, h.cfg.RetentionDays)
	return nil
}

func (h *Housekeeping) Stop() {
	<-h.scheduler.Stop().Done()
}

func (h *Housekeeping) SweepLocks(ctx context.Context) int64 {
	n, err := h.lock.CleanupStale(ctx, h.cfg.StaleLockMinutes)
	if err != nil {
		logrus.WithError(err).Warn("[HOUSEKEEPING] Lock sweep failed")
		return 0
	}
	if n > 0 {
		logrus.Debugf("[HOUSEKEEPING] Removed %d stale locks", n)
	}
	return n
}

func (h *Housekeeping) PurgeHistory(ctx context.Context) int64 {
	if h.cfg.RetentionDays <= 0 || h.history == nil {
		return 0
	}
	cutoff := h.now().UTC().AddDate(0, 0, -h.cfg.RetentionDays)
	n, err := h.history.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("[HOUSEKEEPING] History purge failed")
		return 0
	}
	logrus.Infof("[HOUSEKEEPING] Purged %d history rows older than %s", n, cutoff.Format("2006-01-02"))

	if h.runs != nil {
		runs, err := h.runs.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			logrus.WithError(err).Error("[HOUSEKEEPING] Run purge failed")
		} else if runs > 0 {
			logrus.Infof("[HOUSEKEEPING] Purged %d runs older than %s", runs, cutoff.Format("2006-01-02"))
		}
	}
	return n
}
