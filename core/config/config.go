package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Scheduler  SchedulerConfig
	Telegram   TelegramConfig
	Apify      ApifyConfig
	AI         AIConfig
	MCP        MCPConfig
	WorkerPool WorkerPoolConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type SchedulerConfig struct {
	Enabled           bool
	DispatchDelay     time.Duration
	FetchTimeout      time.Duration
	StaleLockMinutes  int
	LockTTL           time.Duration
	Parallel          bool
	HistoryRetention  int // days, 0 keeps everything
	HousekeepingEvery string
}

type TelegramConfig struct {
	BotToken    string
	ChatID      string
	APIEndpoint string
}

type ApifyConfig struct {
	Token        string
	ActorID      string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
}

type AIConfig struct {
	Provider    string // openai | gemini
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

type MCPConfig struct {
	Port string
	Host string
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := false
	if v := os.Getenv("APP_DEBUG"); v == "true" || v == "1" || v == "on" {
		debug = true
	} else if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		debug = true
	}

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbDriver := getEnv("DB_DRIVER", "sqlite")
	dbName := filepath.Join(pathsCfg.Storages, "tweetcast.db")
	if dbDriver == "postgres" {
		dbName = getEnv("DB_NAME", "tweetcast")
	}
	dbCfg := DatabaseConfig{
		Driver:          dbDriver,
		Name:            getEnv("DB_PATH", dbName),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "tweetcast:"),
	}

	schedCfg := SchedulerConfig{
		Enabled:           getEnvBool("SCHEDULER_ENABLED", true),
		DispatchDelay:     getEnvDuration("SCHEDULER_DISPATCH_DELAY", 2*time.Second),
		FetchTimeout:      getEnvDuration("SCHEDULER_FETCH_TIMEOUT", 6*time.Minute),
		StaleLockMinutes:  getEnvInt("SCHEDULER_STALE_LOCK_MINUTES", 5),
		LockTTL:           getEnvDuration("SCHEDULER_LOCK_TTL", 5*time.Minute),
		Parallel:          getEnvBool("SCHEDULER_PARALLEL", false),
		HistoryRetention:  getEnvInt("HISTORY_RETENTION_DAYS", 0),
		HousekeepingEvery: getEnv("SCHEDULER_HOUSEKEEPING_EVERY", "@every 5m"),
	}

	tgCfg := TelegramConfig{
		BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChatID:      getEnv("TELEGRAM_CHAT_ID", ""),
		APIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", ""),
	}

	apifyCfg := ApifyConfig{
		Token:        getEnv("APIFY_TOKEN", ""),
		ActorID:      getEnv("APIFY_ACTOR_ID", "kaitoeasyapi~twitter-x-data-tweet-scraper-pay-per-result-cheapest"),
		BaseURL:      getEnv("APIFY_BASE_URL", "https://api.apify.com/v2"),
		PollInterval: getEnvDuration("APIFY_POLL_INTERVAL", 5*time.Second),
		MaxPolls:     getEnvInt("APIFY_MAX_POLLS", 60),
	}

	aiCfg := AIConfig{
		Provider:    getEnv("AI_PROVIDER", "openai"),
		APIKey:      getEnv("AI_API_KEY", ""),
		BaseURL:     getEnv("AI_BASE_URL", ""),
		Model:       getEnv("AI_MODEL", "openai/gpt-4o-mini"),
		Temperature: getEnvFloat("AI_TEMPERATURE", 0.7),
		MaxTokens:   getEnvInt("AI_MAX_TOKENS", 500),
		TopP:        getEnvFloat("AI_TOP_P", 1),
	}

	cfg := &Config{
		App:        appCfg,
		Paths:      pathsCfg,
		Database:   dbCfg,
		Scheduler:  schedCfg,
		Telegram:   tgCfg,
		Apify:      apifyCfg,
		AI:         aiCfg,
		MCP:        MCPConfig{Port: getEnv("MCP_PORT", "8080"), Host: getEnv("MCP_HOST", "localhost")},
		WorkerPool: WorkerPoolConfig{Size: getEnvInt("SCHEDULE_WORKER_POOL_SIZE", 4), QueueSize: getEnvInt("SCHEDULE_WORKER_QUEUE_SIZE", 64)},
	}

	Global = cfg
	return cfg, nil
}
