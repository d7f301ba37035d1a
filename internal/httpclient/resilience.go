package httpclient

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// RetryConfig configures the optional retry transport.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int
	// InitialBackoff is the first backoff duration.
	InitialBackoff time.Duration
	// MaxBackoff caps the backoff.
	MaxBackoff time.Duration
	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64
	// RetryableStatusCodes are HTTP status codes worth retrying.
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// NewRetryTransport wraps base with exponential-backoff retries on transient
// upstream failures. A nil base uses http.DefaultTransport.
func NewRetryTransport(base http.RoundTripper, cfg RetryConfig) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{base: base, cfg: cfg}
}

type retryTransport struct {
	base http.RoundTripper
	cfg  RetryConfig
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= t.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := t.calculateBackoff(attempt)
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}

			req = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req.Body = body
			}
		}

		resp, lastErr = t.base.RoundTrip(req)
		if lastErr != nil {
			if isRetryableError(lastErr) {
				continue
			}
			return nil, lastErr
		}

		// Hand the final attempt back untouched so the caller can still
		// read the body.
		if t.isRetryableStatus(resp.StatusCode) && attempt < t.cfg.MaxRetries {
			lastErr = &statusError{code: resp.StatusCode}
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func (t *retryTransport) calculateBackoff(attempt int) time.Duration {
	backoff := float64(t.cfg.InitialBackoff) * math.Pow(t.cfg.BackoffMultiplier, float64(attempt-1))
	if backoff > float64(t.cfg.MaxBackoff) {
		backoff = float64(t.cfg.MaxBackoff)
	}
	if t.cfg.Jitter > 0 {
		backoff += backoff * t.cfg.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(backoff)
}

func (t *retryTransport) isRetryableStatus(code int) bool {
	for _, retryable := range t.cfg.RetryableStatusCodes {
		if code == retryable {
			return true
		}
	}
	return false
}

// isRetryableError matches transient network failures: timeouts plus refused
// or reset connections. Context cancellation is never retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
