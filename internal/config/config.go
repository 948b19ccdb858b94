package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"go.uber.org/zap/zapcore"
)

// Config holds the application configuration
type Config struct {
	// HTTP server configuration (web shell)
	Port int

	// Telegram configuration (chat shell). Empty token disables the bot.
	TelegramToken string
	WebhookMode   bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL    string // URL for webhook (required if WebhookMode is true)

	// PostgreSQL configuration
	PostgresHost     string
	PostgresPort     int
	PostgresDatabase string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	UseMockDB bool

	LogLevel    zapcore.Level
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	port, err := intFromEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	config.Port = port

	// Telegram bot token (optional)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		if config.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required when WEBHOOK_MODE is true")
		}
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// PostgreSQL configuration (required if not using mock)
	if !config.UseMockDB {
		config.PostgresHost = os.Getenv("POSTGRES_HOST")
		if config.PostgresHost == "" {
			return nil, fmt.Errorf("POSTGRES_HOST is required when USE_MOCK_DB is not set")
		}

		port, err := intFromEnv("POSTGRES_PORT", 5432)
		if err != nil {
			return nil, err
		}
		config.PostgresPort = port

		config.PostgresDatabase = os.Getenv("POSTGRES_DATABASE")
		if config.PostgresDatabase == "" {
			config.PostgresDatabase = "library_db"
		}

		config.PostgresUser = os.Getenv("POSTGRES_USER")
		if config.PostgresUser == "" {
			config.PostgresUser = "postgres"
		}

		config.PostgresPassword = os.Getenv("POSTGRES_PASSWORD")
		// Password is optional, can be empty

		config.PostgresSSLMode = os.Getenv("POSTGRES_SSLMODE")
		if config.PostgresSSLMode == "" {
			config.PostgresSSLMode = "disable"
		}
	}

	config.LogLevel = zapcore.InfoLevel
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		level, err := zapcore.ParseLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		config.LogLevel = level
	}
	config.Development = os.Getenv("APP_ENV") == "development"

	return config, nil
}

// PostgresDSN builds the connection URL for the configured database
func (c *Config) PostgresDSN() string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDatabase,
	}
	query := url.Values{}
	query.Set("sslmode", c.PostgresSSLMode)
	query.Set("connect_timeout", "10")
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func intFromEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
