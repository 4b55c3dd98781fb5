package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RecoveryAction determines how a provider call failure should be handled.
type RecoveryAction int

const (
	// NoRetry — the error is not recoverable (bad request, auth failure).
	NoRetry RecoveryAction = iota
	// RetrySameCall — transient error (rate limit, connection reset); retry
	// the identical request after a backoff.
	RetrySameCall
)

// RetryAttempts is the number of retries after the initial call, giving
// four calls in total with nominal 1s/2s/4s backoff between them.
const RetryAttempts = 3

// ClassifyError determines the recovery action for a provider call error.
func ClassifyError(err error) RecoveryAction {
	if err == nil {
		return NoRetry
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NoRetry
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return RetrySameCall
		case statusErr.StatusCode >= 500:
			return RetrySameCall
		default:
			return NoRetry
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NoRetry
		}
		return RetrySameCall
	}

	return NoRetry
}

// StatusError wraps an HTTP response status from a provider call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "provider returned status " + http.StatusText(e.StatusCode) + ": " + e.Body
}

// withRetry runs fn, retrying up to RetryAttempts times with exponential
// backoff (1s, 2s, 4s) when ClassifyError says the failure is transient.
func withRetry(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	policy := backoff.WithMaxRetries(bo, RetryAttempts)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if ClassifyError(err) == NoRetry {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}
