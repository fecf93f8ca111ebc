package main

import (
	"os"

	"github.com/lshigami/bandscore/config"
	"github.com/lshigami/bandscore/database"
	"github.com/lshigami/bandscore/internal/logger"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/lshigami/bandscore/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// @title BandScore Mock Exam API
// @version 1.0
// @description Timed IELTS-style mock exams: attempts, answer recording, scoring and manual grading.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()
	if err := rootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// coreModule wires storage, repositories and services. Every command builds on it.
var coreModule = fx.Options(
	fx.Provide(
		config.NewConfig,
		database.NewDatabase,
	),
	fx.Provide(
		repository.NewExamRepository,
		repository.NewTestAttemptRepository,
		repository.NewUserAnswerRepository,
	),
	fx.Provide(
		service.NewSystemClock,
		service.NewAttemptLocks,
		service.NewScoreConverterService,
		service.NewScoringEngine,
		service.NewStatisticsCache,
		service.NewAttemptService,
		service.NewAnswerRecorder,
		service.NewManualGradingService,
		service.NewGeminiLLMService,
		service.NewGradingAssistantService,
		service.NewExamCatalogService,
		service.NewExamImportService,
	),
	fx.Invoke(func(cfg *config.Config) {
		logger.Configure(cfg.Log.Level, cfg.Log.Format)
	}),
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bandscore",
		Short:         "IELTS-style mock exam service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (defaults to ./.env)")
	root.PersistentFlags().String("db-driver", "", "Database driver (postgres, sqlite)")
	root.PersistentFlags().String("db-path", "", "SQLite database path")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	bindFlag(root, "CONFIG_FILE", "config")
	bindFlag(root, "DATABASE_DRIVER", "db-driver")
	bindFlag(root, "DATABASE_PATH", "db-path")
	bindFlag(root, "LOG_LEVEL", "log-level")

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), seedCmd(), expireCmd())
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

// bindFlag lets a persistent flag override the matching config key when it is set.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Fatal().Err(err).Str("flag", flag).Msg("Failed to bind flag")
	}
}

// runTask builds the core graph, runs task once and returns its error.
func runTask(task interface{}) error {
	app := fx.New(coreModule, fx.NopLogger, fx.Invoke(task))
	return app.Err()
}
