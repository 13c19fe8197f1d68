package telegram

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// retryWithBackoff retries fn with exponential backoff and jitter.
// Stops immediately when fn returns a permanentError (e.g. 400/403/404).
//
// maxRetries: maximum number of retry attempts (0 = no retry, just try once)
// initialDelay: initial delay before first retry
//
// Backoff formula: delay = initialDelay * 2^attempt ± 25% jitter
func retryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var p *permanentError
		if errors.As(err, &p) {
			return p.Unwrap()
		}

		// Don't delay after the last attempt
		if attempt == maxRetries {
			break
		}

		delay := time.Duration(float64(initialDelay) * math.Pow(2, float64(attempt)))
		delay += jitter(delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// jitter returns a random offset in [-delay/4, +delay/4].
func jitter(delay time.Duration) time.Duration {
	half := int64(delay) / 2
	if half <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(half))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64() - half/2)
}
