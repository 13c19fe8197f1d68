// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the server, the Telegram API client, and optional observability features.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Hosted bot (the server can host more at runtime; this one is wired
	// from the environment at startup).
	BotToken string
	BotName  string

	// BaseURL is the public URL Telegram delivers webhooks to,
	// e.g. "https://bots.example.com". Route segments are appended to it.
	BaseURL string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	InstanceID      string

	// Telegram API Configuration
	APIBaseURL    string
	APITimeout    time.Duration
	APIMaxRetries int

	// Data Configuration
	DataDir         string        // Directory for the SQLite update-report log
	ReportRetention time.Duration // How long report rows are kept (default: 7 days)

	// Sentry (optional)
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
	SentrySampleRate  float64

	// Better Stack log shipping (optional)
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics endpoint Basic Auth (empty password = no auth)
	MetricsUsername string
	MetricsPassword string
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first, then reads from env vars.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken: getEnv(EnvBotToken, ""),
		BotName:  getEnv(EnvBotName, "telehost-bot"),
		BaseURL:  getEnv(EnvBaseURL, ""),

		Port:            getEnv(EnvPort, "8080"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, 30*time.Second),
		InstanceID:      getEnv(EnvInstanceID, ""),

		APIBaseURL:    getEnv(EnvAPIBaseURL, "https://api.telegram.org"),
		APITimeout:    getDurationEnv(EnvAPITimeout, APIRequest),
		APIMaxRetries: getIntEnv(EnvAPIMaxRetries, 3),

		DataDir:         getEnv(EnvDataDir, "./data"),
		ReportRetention: getDurationEnv(EnvReportRetention, 168*time.Hour),

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:     getEnv(EnvSentryRelease, ""),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
func (c *Config) Validate() error {
	var errs []error

	if c.BotToken == "" {
		errs = append(errs, errors.New(EnvBotToken+" is required"))
	}
	if c.BotName == "" {
		errs = append(errs, errors.New(EnvBotName+" is required"))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New(EnvBaseURL+" is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvAPITimeout, c.APITimeout))
	}
	if c.APIMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvAPIMaxRetries, c.APIMaxRetries))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required"))
	}
	if c.ReportRetention <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvReportRetention, c.ReportRetention))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SQLitePath returns the full path to the SQLite report log file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "reports.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
