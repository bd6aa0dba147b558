package application

import (
	"context"
	"strings"

	"github.com/AzielCF/az-tweetcast/core/settings/domain"
	"github.com/AzielCF/az-tweetcast/core/settings/infrastructure"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SettingsService struct {
	repo domain.ISettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		repo: infrastructure.NewGlobalSettingsGormRepository(db),
	}
}

func (s *SettingsService) InitSchema(ctx context.Context) error {
	return s.repo.InitSchema(ctx)
}

type DynamicSettings struct {
	SchedulerPaused      bool   `json:"scheduler_paused"`
	DefaultRewritePrompt string `json:"default_rewrite_prompt"`
}

func (s *SettingsService) GetDynamicSettings(ctx context.Context) (*DynamicSettings, error) {
	ds := &DynamicSettings{}

	paused, err := s.repo.Get(ctx, domain.KeySchedulerPaused)
	if err != nil {
		return nil, err
	}
	ds.SchedulerPaused = isOn(paused)

	prompt, err := s.repo.Get(ctx, domain.KeyDefaultRewritePrompt)
	if err != nil {
		return nil, err
	}
	ds.DefaultRewritePrompt = prompt
	return ds, nil
}

func (s *SettingsService) SetSchedulerPaused(ctx context.Context, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return s.repo.Set(ctx, domain.KeySchedulerPaused, val)
}

func (s *SettingsService) SetDefaultRewritePrompt(ctx context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.repo.Delete(ctx, domain.KeyDefaultRewritePrompt)
	}
	return s.repo.Set(ctx, domain.KeyDefaultRewritePrompt, v)
}

// SchedulerPaused reads the pause switch. A read failure counts as not paused.
func (s *SettingsService) SchedulerPaused(ctx context.Context) bool {
	val, err := s.repo.Get(ctx, domain.KeySchedulerPaused)
	if err != nil {
		logrus.WithError(err).Debug("[SETTINGS] Failed to read pause switch")
		return false
	}
	return isOn(val)
}

func (s *SettingsService) DefaultRewritePrompt(ctx context.Context) string {
	val, err := s.repo.Get(ctx, domain.KeyDefaultRewritePrompt)
	if err != nil {
		logrus.WithError(err).Debug("[SETTINGS] Failed to read default rewrite prompt")
		return ""
	}
	return val
}

func isOn(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
