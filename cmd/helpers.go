package cmd

import (
	"context"
	"errors"
	"os"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	"github.com/AzielCF/az-tweetcast/infrastructure/valkey"
	"github.com/AzielCF/az-tweetcast/integrations/apify"
	"github.com/AzielCF/az-tweetcast/integrations/rewrite"
	"github.com/AzielCF/az-tweetcast/integrations/telegram"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/AzielCF/az-tweetcast/schedules/repository"
	"github.com/sirupsen/logrus"
)

// buildLock prefers Valkey when enabled and reachable, else the database lock table.
func buildLock(_ context.Context, cfg *coreconfig.Config) domain.ExecutionLock {
	if cfg.Database.ValkeyEnabled {
		client, err := valkey.NewClient(valkey.ConfigFrom(cfg.Database))
		if err == nil {
			vkClient = client
			logrus.Infof("[LOCK] Using valkey at %s", cfg.Database.ValkeyAddress)
			return repository.NewLockValkeyRepository(client, serverID, cfg.Scheduler.LockTTL)
		}
		logrus.WithError(err).Warn("[LOCK] Valkey unavailable, falling back to database locks")
	}
	return repository.NewLockGormRepository(appDB, serverID)
}

// buildSender returns nil when no bot token is set; runs then fail as a config error.
func buildSender(cfg *coreconfig.Config) domain.ChannelSender {
	if cfg.Telegram.BotToken == "" {
		logrus.Warn("[TELEGRAM] TELEGRAM_BOT_TOKEN not set, schedules cannot post")
		return nil
	}
	sender, err := telegram.NewSender(cfg.Telegram)
	if err != nil {
		logrus.WithError(err).Error("[TELEGRAM] Failed to initialize bot")
		return nil
	}
	return sender
}

func buildFetcher(cfg *coreconfig.Config) domain.CandidateFetcher {
	if cfg.Apify.Token == "" {
		logrus.Warn("[APIFY] APIFY_TOKEN not set, schedules cannot fetch tweets")
		return nil
	}
	return apify.NewClient(apify.ConfigFrom(cfg.Apify))
}

func buildRewriter(ctx context.Context, cfg *coreconfig.Config) domain.TextRewriter {
	rw, err := rewrite.New(ctx, rewrite.ConfigFrom(cfg.AI))
	if err != nil {
		if !errors.Is(err, rewrite.ErrNotConfigured) {
			logrus.WithError(err).Error("[REWRITE] Failed to initialize rewriter")
		}
		return nil
	}
	return rw
}

type schemaStore interface {
	InitSchema(ctx context.Context) error
}

func initSchema(ctx context.Context) error {
	stores := []schemaStore{scheduleRepo, historyRepo, runRepo, settingsSvc}
	if l, ok := lockRepo.(schemaStore); ok {
		stores = append(stores, l)
	}
	for _, s := range stores {
		if err := s.InitSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}

// onShutdown runs steps in order after the first signal. The returned channel
// closes once the last step has returned; servers block on it so the process
// never exits mid-drain.
func onShutdown(sigs <-chan os.Signal, steps ...func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sigs
		for _, step := range steps {
			step()
		}
	}()
	return done
}
