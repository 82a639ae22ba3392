package platform

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// Retry policy for platform API calls.
const (
	MaxRetries     = 3
	InitialBackoff = time.Second
	MaxBackoff     = 30 * time.Second
)

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, server errors, timeouts).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusTooManyRequests || statusErr.Status >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{"connection reset", "connection refused", "temporary failure", "eof"} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
