package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	coreDB "github.com/AzielCF/az-tweetcast/core/database"
	settingsApp "github.com/AzielCF/az-tweetcast/core/settings/application"
	"github.com/AzielCF/az-tweetcast/infrastructure/valkey"
	"github.com/AzielCF/az-tweetcast/pkg/utils"
	"github.com/AzielCF/az-tweetcast/schedules/application"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/AzielCF/az-tweetcast/schedules/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	appDB       *gorm.DB
	vkClient    *valkey.Client
	serverID    string
	settingsSvc *settingsApp.SettingsService

	// Stores
	scheduleRepo *repository.ScheduleGormRepository
	historyRepo  *repository.HistoryGormRepository
	runRepo      *repository.RunGormRepository
	lockRepo     domain.ExecutionLock

	// Services
	scheduleService *application.ScheduleService
	executor        *application.Executor
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tweetcast",
	Short: "Post trending tweets to Telegram on a schedule",
	Long: `tweetcast searches X/Twitter through Apify for each configured schedule,
picks a content-mixed batch and posts it to a Telegram channel at the
schedule's fire times.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize flags first, before any subcommands are added
	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig builds config.Global from the environment, then applies flag overrides.
func initEnvConfig() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	if envPort := viper.GetString("app_port"); envPort != "" {
		cfg.App.Port = envPort
	}
	if envDebug := viper.GetBool("app_debug"); envDebug {
		cfg.App.Debug = envDebug
	}
	if envDriver := viper.GetString("db_driver"); envDriver != "" && envDriver != cfg.Database.Driver {
		cfg.Database.Driver = envDriver
		if envDriver == "postgres" && os.Getenv("DB_PATH") == "" {
			cfg.Database.Name = viper.GetString("db_name")
			if cfg.Database.Name == "" {
				cfg.Database.Name = "tweetcast"
			}
		}
	}
	if envBasicAuth := viper.GetString("app_basic_auth"); envBasicAuth != "" {
		cfg.App.BasicAuth = strings.Split(envBasicAuth, ",")
	}
	if viper.IsSet("scheduler_parallel") {
		cfg.Scheduler.Parallel = viper.GetBool("scheduler_parallel")
	}
}

func initFlags() {
	flags := rootCmd.PersistentFlags()

	flags.StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	flags.BoolP("debug", "d", false, "hide or displaying log with --debug <true/false> | example: --debug=true")
	flags.String("db-driver", "", `database driver --db-driver <sqlite|postgres> | example: --db-driver=postgres`)
	flags.StringP("basic-auth", "b", "", "basic auth credential | -b=yourUsername:yourPassword")
	flags.Bool("parallel-schedules", false, "run matched schedules on the worker pool --parallel-schedules <true/false>")

	_ = viper.BindPFlag("app_port", flags.Lookup("port"))
	_ = viper.BindPFlag("app_debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("db_driver", flags.Lookup("db-driver"))
	_ = viper.BindPFlag("app_basic_auth", flags.Lookup("basic-auth"))
	_ = viper.BindPFlag("scheduler_parallel", flags.Lookup("parallel-schedules"))
}

func initApp() {
	cfg := coreconfig.Global
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}
	appDB = db
	serverID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	// 1. Stores
	scheduleRepo = repository.NewScheduleGormRepository(db)
	historyRepo = repository.NewHistoryGormRepository(db)
	runRepo = repository.NewRunGormRepository(db)
	settingsSvc = settingsApp.NewSettingsService(db)
	lockRepo = buildLock(ctx, cfg)

	if err := initSchema(ctx); err != nil {
		logrus.Fatalf("failed to init schema: %v", err)
	}

	// 2. Outbound integrations; each one is optional until a schedule needs it
	dispatcher := application.NewDispatcher(buildSender(cfg), historyRepo,
		application.WithDispatchDelay(cfg.Scheduler.DispatchDelay),
		application.WithRuntimeSettings(settingsSvc),
		application.WithRewriter(buildRewriter(ctx, cfg)),
	)

	// 3. Services
	executor = application.NewExecutor(scheduleRepo, historyRepo, lockRepo, buildFetcher(cfg), dispatcher, application.ExecutorConfig{
		FetchTimeout:  cfg.Scheduler.FetchTimeout,
		DefaultChatID: cfg.Telegram.ChatID,
	}, application.WithRunStore(runRepo))
	scheduleService = application.NewScheduleService(scheduleRepo, historyRepo, runRepo)

	logrus.Debugf("[APP] Initialized as %s (db=%s, valkey=%t)", serverID, cfg.Database.Driver, vkClient != nil)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of all database connections and services.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if vkClient != nil {
		vkClient.Close()
	}
	if err := coreDB.Close(appDB); err != nil {
		logrus.WithError(err).Error("[APP] Failed to close database")
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
