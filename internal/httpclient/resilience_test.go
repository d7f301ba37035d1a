package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	cfg.Jitter = 0
	return cfg
}

func TestRetryTransportRetriesTransientStatus(t *testing.T) {
	attempts := 0
	rt := NewRetryTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return jsonResponse(http.StatusServiceUnavailable, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{"success":true}`), nil
	}), fastRetryConfig())

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/x", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryTransportDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	rt := NewRetryTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusBadRequest, `{}`), nil
	}), fastRetryConfig())

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/x", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip error: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryTransportRetriesRefusedConnections(t *testing.T) {
	attempts := 0
	rt := NewRetryTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return nil, &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
		}
		return jsonResponse(http.StatusOK, `{"success":true}`), nil
	}), fastRetryConfig())

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/x", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip error: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryTransportDoesNotRetryCancellation(t *testing.T) {
	attempts := 0
	rt := NewRetryTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return nil, context.Canceled
	}), fastRetryConfig())

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/x", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryTransportReturnsFinalAttemptReadable(t *testing.T) {
	rt := NewRetryTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `{"message":"down"}`), nil
	}), fastRetryConfig())

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/x", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip error: %v", err)
	}
	defer resp.Body.Close()

	// The exhausted response body must still be readable by the caller.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read final body: %v", err)
	}
	if !strings.Contains(string(data), "down") {
		t.Fatalf("body = %s", data)
	}
}
