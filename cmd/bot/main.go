package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrbot/internal/config"
	"qrbot/internal/handler"
	"qrbot/internal/middleware"
	"qrbot/internal/qrcode"
	"qrbot/internal/repository"
	"qrbot/internal/repository/jsonfile"
	"qrbot/internal/repository/postgres"
	"qrbot/internal/router"
	"qrbot/internal/service"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting QR Bot",
		zap.String("registry", cfg.Registry.Backend),
		zap.Int("admins", len(cfg.AdminIDs)),
	)

	// Initialize registry
	userRepo, closeRepo, err := openRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open user registry", zap.Error(err))
	}
	defer closeRepo()

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			fields := []zap.Field{zap.Error(err)}
			if c != nil && c.Sender() != nil {
				fields = append(fields, zap.Int64("user_id", c.Sender().ID))
			}
			logger.Error("Telegram error", fields...)
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized", zap.String("username", bot.Me.Username))

	messenger := handler.NewMessenger(bot, cfg.PrimaryAdmin(), logger)

	// Initialize services
	userService := service.NewUserService(userRepo)
	convService := service.NewConversationService(cfg.ConversationTTL, logger)
	broadcastService := service.NewBroadcastService(userRepo, messenger, service.BroadcastOptions{
		Workers:     cfg.Broadcast.Workers,
		RatePerSec:  cfg.Broadcast.RatePerSec,
		SendTimeout: cfg.SendTimeout,
		ListenerTTL: cfg.ConversationTTL,
	}, logger)
	qrService := service.NewQRService(qrcode.NewCodec(cfg.QRSize))

	r := router.New(
		router.Options{AdminIDs: cfg.AdminIDs, SendTimeout: cfg.SendTimeout},
		userService,
		convService,
		broadcastService,
		qrService,
		messenger,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize handler
	bot.Use(
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.RateLimit(middleware.RateLimitOptions{
			Interval: cfg.UserCooldown,
			Burst:    3,
			Exclude:  map[string]struct{}{"inline_query": {}},
			Notice:   "⏳ Slow down a little, then send that again.",
		}, logger),
	)
	h := handler.NewHandler(ctx, bot, r, logger)
	h.RegisterHandlers()
	if err := h.PublishCommands(); err != nil {
		logger.Warn("Failed to publish command menu", zap.Error(err))
	}

	logger.Info("Handlers registered")

	// Expire abandoned conversations in background
	go convService.Run(ctx, time.Minute)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	r.AnnounceStartup(ctx)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	bot.Stop()
	cancel()

	logger.Info("Bot stopped gracefully")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

// openRegistry returns the configured user repository and its cleanup
func openRegistry(cfg *config.Config, logger *zap.Logger) (repository.UserRepository, func(), error) {
	if cfg.Registry.Backend == config.BackendFile {
		logger.Info("Using file registry", zap.String("path", cfg.Registry.File))
		return jsonfile.NewUserRepo(cfg.Registry.File, logger), func() {}, nil
	}

	// Connect to database with retries
	db, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Database connection established")

	// Run migrations
	if err := runMigrations(db, cfg.Registry.MigrationsPath, logger); err != nil {
		db.Close()
		return nil, nil, err
	}

	return postgres.NewUserRepo(db), func() { db.Close() }, nil
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB, path string, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}

	return nil
}
