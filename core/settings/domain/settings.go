package domain

import "context"

// Setting represents a dynamic configuration value stored in the database.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository defines the contract for persisting dynamic settings.
type ISettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	// InitSchema creates the necessary tables
	InitSchema(ctx context.Context) error
}

// Keys toggled at runtime without a restart.
const (
	KeySchedulerPaused      = "scheduler_paused"
	KeyDefaultRewritePrompt = "ai_default_rewrite_prompt"
)
