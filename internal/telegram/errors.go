package telegram

import (
	"fmt"
)

// APIError is returned when the Bot API answers with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int // seconds, set on 429 responses
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api: %s failed: %d %s", e.Method, e.Code, e.Description)
}

// IsPermanent reports whether retrying the request cannot help.
// Client errors are permanent except 429 (rate limited).
func (e *APIError) IsPermanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != 429
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}
