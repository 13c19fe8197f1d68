// Package config provides centralized timeout constants for the application.
//
// These values are tuned around Telegram webhook delivery behavior:
//   - Telegram expects a quick 200 from the webhook endpoint; slow or failing
//     endpoints get throttled and eventually disabled on the Telegram side.
//   - Update handlers may perform their own outbound API calls, so the
//     processing budget is far larger than the HTTP acknowledgment window.
package config

import "time"

// Webhook HTTP server timeouts
const (
	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Telegram sends small JSON payloads, so this can be short.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 30 * time.Second

	// WebhookHTTPIdle is the idle timeout for keep-alive connections from
	// Telegram's delivery infrastructure.
	WebhookHTTPIdle = 120 * time.Second

	// WebhookProcessing is the per-update processing budget applied to
	// handler invocations. Handlers exceeding it see context cancellation.
	WebhookProcessing = 60 * time.Second
)

// Telegram Bot API client timeouts
const (
	// APIRequest is the timeout for a single Bot API HTTP request.
	APIRequest = 30 * time.Second

	// APIRetryInitial is the initial delay before retrying a failed API
	// request. Uses exponential backoff: 1s -> 2s -> 4s -> 8s.
	APIRetryInitial = time.Second
)

// Shutdown coordination
const (
	// ShutdownPollInterval is how often the coordinator re-checks its
	// registered conditions once a termination signal has been received.
	ShutdownPollInterval = 500 * time.Millisecond

	// ReadinessCheckTimeout bounds dependency checks in the /readyz handler.
	ReadinessCheckTimeout = 3 * time.Second
)
