package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibedev/vira/internal/adapter/handler"
	"github.com/vibedev/vira/internal/domain/repository"
	"github.com/vibedev/vira/internal/infrastructure/config"
	"github.com/vibedev/vira/internal/infrastructure/observability"
	infraopenai "github.com/vibedev/vira/internal/infrastructure/openai"
	"github.com/vibedev/vira/internal/infrastructure/persistence/memory"
	"github.com/vibedev/vira/internal/infrastructure/persistence/sqlite"
	"github.com/vibedev/vira/internal/infrastructure/queue"
	"github.com/vibedev/vira/internal/infrastructure/server"
	infraslack "github.com/vibedev/vira/internal/infrastructure/slack"
	"github.com/vibedev/vira/internal/usecase/event"
	"github.com/vibedev/vira/internal/usecase/reply"
)

// version is set at build time via -ldflags.
var version = "dev"

// startupTimeout bounds the Slack identity lookup at boot.
const startupTimeout = 30 * time.Second

func main() {
	// Setup logger
	logger := setupLogger("info", "json")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Recreate the logger with the configured level and format
	logger = setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("configuration loaded",
		"environment", cfg.Environment,
		"storage_type", cfg.Storage.Type,
		"server_port", cfg.Server.Port,
		"streaming", cfg.OpenAI.Streaming,
	)

	// Initialize telemetry
	telemetry, err := observability.NewTelemetry(observability.ServiceName, version)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	// Initialize the queue store based on storage type
	var queueRepo repository.QueueRepository
	var sqliteDB *sqlite.DB

	switch cfg.Storage.Type {
	case "sqlite":
		sqliteDB, err = sqlite.NewDB(cfg.Storage.SQLite.Path)
		if err != nil {
			logger.Error("failed to initialize SQLite database", "error", err, "path", cfg.Storage.SQLite.Path)
			os.Exit(1)
		}

		// Run migrations
		if err := sqliteDB.Migrate(context.Background()); err != nil {
			logger.Error("failed to run database migrations", "error", err)
			sqliteDB.Close()
			os.Exit(1)
		}

		queueRepo = sqlite.NewQueueRepository(sqliteDB.DB)
		logger.Info("SQLite storage initialized", "path", cfg.Storage.SQLite.Path)

	case "memory", "":
		queueRepo = memory.NewQueueRepository()
		logger.Info("in-memory storage initialized")

	default:
		logger.Error("unknown storage type", "type", cfg.Storage.Type)
		os.Exit(1)
	}

	// Initialize infrastructure clients
	verifier := infraslack.NewSignatureVerifier(cfg.Slack.SigningSecret)
	slackClient := infraslack.NewClient(cfg.Slack.BotToken, cfg.Slack.AppID)
	slackClient.SetMetrics(telemetry.Metrics)

	identityCtx, cancelIdentity := context.WithTimeout(context.Background(), startupTimeout)
	identity, err := slackClient.ResolveIdentity(identityCtx)
	cancelIdentity()
	if err != nil {
		logger.Error("failed to resolve bot identity", "error", err)
		os.Exit(1)
	}
	logger.Info("bot identity resolved",
		"user_id", identity.UserID,
		"team_id", identity.TeamID,
	)

	engine := infraopenai.NewEngine(cfg.OpenAI.APIKey, infraopenai.Options{
		Model:       cfg.OpenAI.Model,
		Streaming:   cfg.OpenAI.Streaming,
		Temperature: cfg.OpenAI.Temperature,
		TokenBudget: cfg.OpenAI.TokenBudget,
	}, telemetry.Metrics)

	// Create a slog adapter for use cases
	useCaseLogger := &slogAdapter{logger: logger}

	// Replies from a non-production install carry a visible marker
	envTag := ""
	if !cfg.IsProduction() {
		envTag = cfg.Environment + " build"
	}

	// Initialize use cases
	classifier := event.NewClassifier(identity, slackClient, useCaseLogger)
	taskClassifier := reply.NewTaskClassifier(engine, identity, useCaseLogger)
	replyDispatcher := reply.NewDispatcher(slackClient, envTag, useCaseLogger)
	processUC := reply.NewProcessEventUseCase(slackClient, engine, taskClassifier, replyDispatcher, identity, useCaseLogger)

	// Initialize the work queue
	dispatcher := queue.NewDispatcher(queueRepo, processUC.Execute, useCaseLogger, queue.Options{
		MaxConcurrent:  int64(cfg.Queue.MaxConcurrent),
		MaxAttempts:    cfg.Queue.MaxAttempts,
		RetryBaseDelay: cfg.Queue.RetryBaseDelay,
		Metrics:        telemetry.Metrics,
	})

	// Only the production install mirrors --dev traffic
	var forwarder handler.DevForwarder
	if cfg.IsProduction() && cfg.Slack.DevMirrorURL != "" {
		forwarder = infraslack.NewDevMirror(cfg.Slack.DevMirrorURL, verifier)
		logger.Info("dev mirror enabled", "url", cfg.Slack.DevMirrorURL)
	}

	// Initialize handlers
	ready := handler.NewReadyHandler()
	if sqliteDB != nil {
		ready.AddChecker("database", sqliteDB)
	}

	handlers := &server.Handlers{
		SlackEvents: handler.NewSlackEventsHandler(
			classifier,
			dispatcher,
			slackClient,
			forwarder,
			handler.HelpMessage(slackClient.AboutLink()),
			useCaseLogger,
			telemetry.Metrics,
		),
		Health:  handler.NewHealthHandler(),
		Ready:   ready,
		Metrics: handler.NewMetricsHandler(),
	}

	// Setup router and server
	router := server.NewRouter(handlers, server.RouterOptions{
		Verifier:       verifier,
		Metrics:        telemetry.Metrics,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)
	srv := server.New(cfg.Server, router, logger)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the queue before the server so recovered items begin
	// processing before new traffic arrives
	if err := dispatcher.Start(ctx); err != nil {
		logger.Error("failed to start work queue", "error", err)
		os.Exit(1)
	}

	logger.Info("starting vira",
		"version", version,
		"port", cfg.Server.Port,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	// Drain in-flight work before closing storage
	dispatcher.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down telemetry", "error", err)
	}
	cancelShutdown()

	// Close SQLite database if it was initialized
	if sqliteDB != nil {
		if err := sqliteDB.Close(); err != nil {
			logger.Error("failed to close SQLite database", "error", err)
		} else {
			logger.Info("SQLite database closed successfully")
		}
	}

	logger.Info("vira stopped")
}

// setupLogger creates and configures the logger.
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// slogAdapter adapts slog.Logger to the event.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Info(msg, keysAndValues...)
}

func (a *slogAdapter) Warn(msg string, keysAndValues ...any) {
	a.logger.Warn(msg, keysAndValues...)
}

func (a *slogAdapter) Error(msg string, keysAndValues ...any) {
	a.logger.Error(msg, keysAndValues...)
}
