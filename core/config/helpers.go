package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns a map of the non-secret settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_debug":                    Global.App.Debug,
		"app_version":                  Global.App.Version,
		"db_driver":                    Global.Database.Driver,
		"valkey_enabled":               Global.Database.ValkeyEnabled,
		"scheduler_enabled":            Global.Scheduler.Enabled,
		"scheduler_parallel":           Global.Scheduler.Parallel,
		"scheduler_dispatch_delay":     Global.Scheduler.DispatchDelay.String(),
		"scheduler_fetch_timeout":      Global.Scheduler.FetchTimeout.String(),
		"scheduler_stale_lock_minutes": Global.Scheduler.StaleLockMinutes,
		"history_retention_days":       Global.Scheduler.HistoryRetention,
		"ai_provider":                  Global.AI.Provider,
		"ai_model":                     Global.AI.Model,
		"telegram_configured":          Global.Telegram.BotToken != "",
		"apify_configured":             Global.Apify.Token != "",
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "2m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
