package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"library-catalog/internal/bot"
	"library-catalog/internal/config"
	"library-catalog/internal/library"
	"library-catalog/internal/storage"
	"library-catalog/internal/storage/pg"
	"library-catalog/internal/storage/stubs"
	"library-catalog/internal/webui"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	svc    *library.Service
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting Library Catalog...")

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.svc = library.NewService(app.db, logger)

	// Initialize bot
	if err := app.initBot(); err != nil {
		return nil, err
	}

	// Initialize HTTP server
	if err := app.initHTTPServer(); err != nil {
		return nil, err
	}

	return app, nil
}

// newLogger builds a development logger when APP_ENV=development and a
// production (JSON) logger otherwise, at the configured level
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zapCfg.Build()
}

// initDatabase initializes the database connection. An unreachable database
// is not fatal: the front-ends start anyway and report the failure per request.
func (a *App) initDatabase() error {
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		a.db = stubs.NewMockDB()
		return nil
	}

	a.logger.Info("Connecting to PostgreSQL",
		zap.String("host", a.config.PostgresHost),
		zap.Int("port", a.config.PostgresPort),
		zap.String("database", a.config.PostgresDatabase),
		zap.String("user", a.config.PostgresUser),
		zap.String("sslmode", a.config.PostgresSSLMode),
	)
	postgresDB, err := pg.NewPostgresDB(a.config.PostgresDSN(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to set up PostgreSQL: %w", err)
	}
	a.db = postgresDB

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := postgresDB.Ping(ctx); err != nil {
		a.logger.Warn("Database is unreachable, schema will be applied once it is back", zap.Error(err))
		return nil
	}

	// Initialize database schema
	if err := postgresDB.Initialize(ctx); err != nil {
		if errors.Is(err, storage.ErrConnectivity) {
			a.logger.Warn("Lost database connection during schema setup, will retry", zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")
	return nil
}

// initBot initializes the Telegram bot when a token is configured
func (a *App) initBot() error {
	if a.config.TelegramToken == "" {
		a.logger.Info("TELEGRAM_BOT_TOKEN not set, chat front-end disabled")
		return nil
	}

	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.svc, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the web front-end and the webhook endpoint
func (a *App) initHTTPServer() error {
	if !a.config.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	web, err := webui.NewServer(a.svc, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create web front-end: %w", err)
	}

	router := web.Router()
	if a.bot != nil && a.config.WebhookMode {
		router.POST("/telegram-webhook", a.handleWebhook)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start HTTP server in background
	go func() {
		a.logger.Info("Starting HTTP server", zap.Int("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

func (a *App) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		a.logger.Warn("Error decoding webhook update", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	// Process update in background to respond quickly to Telegram
	go a.bot.HandleWebhookUpdate(update)

	c.Status(http.StatusOK)
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if a.bot != nil {
		// Start bot in appropriate mode
		if a.config.WebhookMode {
			a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
			if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
				return fmt.Errorf("failed to setup webhook: %w", err)
			}
			a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook")
		} else {
			// Polling mode: actively poll Telegram servers
			go func() {
				if err := a.bot.Start(); err != nil {
					a.logger.Error("Bot stopped", zap.Error(err))
				}
			}()
		}
	}

	// Wait for interrupt signal
	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	defer func() { _ = a.logger.Sync() }()

	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if a.bot != nil {
		a.bot.Stop()
	}

	// Close database
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
