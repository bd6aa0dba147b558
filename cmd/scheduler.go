package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	"github.com/AzielCF/az-tweetcast/pkg/msgworker"
	"github.com/AzielCF/az-tweetcast/schedules/application"
	"github.com/AzielCF/az-tweetcast/ui/rest"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the minute-aligned scheduler without the http API",
	Run:   runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(_ *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := startScheduler(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logrus.Info("[SCHEDULER] Reception of termination signal, shutting down gracefully...")

	cancel()
	stop()
	StopApp()
}

// startScheduler launches the loop and housekeeping. The returned func waits for both to stop.
func startScheduler(ctx context.Context) func() {
	cfg := coreconfig.Global.Scheduler

	opts := []application.LoopOption{
		application.WithLoopSettings(settingsSvc),
		application.WithStaleLockMinutes(cfg.StaleLockMinutes),
	}
	if cfg.Parallel {
		pool := msgworker.GetGlobalPool()
		rest.UseSchedulePool(pool)
		opts = append(opts, application.WithWorkerPool(pool))
	}
	loop := application.NewLoop(scheduleRepo, executor, lockRepo, opts...)

	hk := application.NewHousekeeping(lockRepo, historyRepo, runRepo, application.HousekeepingConfig{
		LockSweep:        cfg.HousekeepingEvery,
		StaleLockMinutes: cfg.StaleLockMinutes,
		RetentionDays:    cfg.HistoryRetention,
	})
	hkStarted := true
	if err := hk.Start(ctx); err != nil {
		logrus.WithError(err).Error("[HOUSEKEEPING] Not started")
		hkStarted = false
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	return func() {
		wg.Wait()
		if hkStarted {
			hk.Stop()
		}
		if cfg.Parallel {
			msgworker.StopGlobalPool()
		}
	}
}
