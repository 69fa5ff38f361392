package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
	}
}

// WithBackoff executes a function with exponential backoff retry logic.
// The operation is attempted at most MaxRetries+1 times; delays between
// attempts double each time with added jitter.
func WithBackoff(ctx context.Context, config Config, operation func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryableError(lastErr) {
			return lastErr
		}

		if attempt == config.MaxRetries {
			return fmt.Errorf("failed after %d attempts: %w", config.MaxRetries+1, lastErr)
		}

		baseDelay := config.BaseDelay * time.Duration(1<<attempt)
		jitter := time.Duration(rand.Int63n(int64(config.BaseDelay)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay + jitter):
		}
	}

	return lastErr
}

// isRetryableError determines if an error is worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Network-level errors are generally retryable
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "no such host") {
		return true
	}

	// 5xx server errors and 429 rate limiting are worth retrying; other
	// 4xx client errors are not.
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "status 429") {
		return true
	}
	if strings.Contains(errStr, "status 4") {
		return false
	}

	// Malformed payloads won't get better on retry.
	if strings.Contains(errStr, "parse") || strings.Contains(errStr, "invalid") {
		return false
	}

	return true
}

// HTTPStatusRetryable checks if an HTTP status code is retryable
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
