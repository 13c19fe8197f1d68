// Package config defines environment variable keys for configuration.
package config

//nolint:gosec // Environment variable keys are not credentials.
const (
	// Core (Required)
	EnvBotToken = "TELEHOST_BOT_TOKEN"
	EnvBotName  = "TELEHOST_BOT_NAME"
	EnvBaseURL  = "TELEHOST_BASE_URL"

	// Server
	EnvPort            = "TELEHOST_PORT"
	EnvLogLevel        = "TELEHOST_LOG_LEVEL"
	EnvShutdownTimeout = "TELEHOST_SHUTDOWN_TIMEOUT"
	EnvInstanceID      = "TELEHOST_INSTANCE_ID"

	// Telegram API
	EnvAPIBaseURL    = "TELEHOST_API_BASE_URL"
	EnvAPITimeout    = "TELEHOST_API_TIMEOUT"
	EnvAPIMaxRetries = "TELEHOST_API_MAX_RETRIES"

	// Data
	EnvDataDir         = "TELEHOST_DATA_DIR"
	EnvReportRetention = "TELEHOST_REPORT_RETENTION"

	// Sentry Feature
	EnvSentryDSN         = "TELEHOST_SENTRY_DSN"
	EnvSentryEnvironment = "TELEHOST_SENTRY_ENVIRONMENT"
	EnvSentryRelease     = "TELEHOST_SENTRY_RELEASE"
	EnvSentrySampleRate  = "TELEHOST_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "TELEHOST_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "TELEHOST_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "TELEHOST_METRICS_USERNAME"
	EnvMetricsPassword = "TELEHOST_METRICS_PASSWORD"
)
