package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/revuly/revuly-go/internal/localstore"
	"github.com/revuly/revuly-go/internal/notify"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestClient(t *testing.T, rt roundTripperFunc) (*Client, *localstore.Store) {
	t.Helper()
	creds := localstore.New("", "", testLogger())
	c := New(Config{
		BaseURL:         "https://api.example.com/v1",
		TokenCookie:     "revuly_token",
		ProtectedPrefix: "/app",
		Transport:       rt,
	}, creds, testLogger())
	return c, creds
}

func TestRequestAttachesBearerAndBaselineHeaders(t *testing.T) {
	var got *http.Request
	c, creds := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		got = r
		return jsonResponse(http.StatusOK, `{"success":true,"message":"","data":null}`), nil
	})
	creds.Set("revuly_token", "tok-123")

	env, err := c.Get(context.Background(), "reviews/cafe", nil, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !env.Success {
		t.Fatal("expected success envelope")
	}

	if auth := got.Header.Get("Authorization"); auth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q, want Bearer tok-123", auth)
	}
	if accept := got.Header.Get("Accept"); accept != "application/json" {
		t.Fatalf("Accept = %q", accept)
	}
	if ct := got.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if got.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID to be set")
	}
	if got.URL.String() != "https://api.example.com/v1/reviews/cafe" {
		t.Fatalf("URL = %s", got.URL)
	}
}

func TestRequestWithoutCredentialOmitsAuthorization(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		got = r
		return jsonResponse(http.StatusOK, `{"success":true,"message":"","data":null}`), nil
	})

	if _, err := c.Post(context.Background(), "login", map[string]string{"email": "a@b.c"}, nil); err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if auth := got.Header.Get("Authorization"); auth != "" {
		t.Fatalf("Authorization = %q, want empty", auth)
	}
}

func TestCallerHeadersWinOnConflict(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		got = r
		return jsonResponse(http.StatusOK, `{"success":true,"message":"","data":null}`), nil
	})

	headers := map[string]string{"Accept": "text/plain", "X-Custom": "yes"}
	if _, err := c.Get(context.Background(), "x", nil, headers); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if accept := got.Header.Get("Accept"); accept != "text/plain" {
		t.Fatalf("Accept = %q, caller header must win", accept)
	}
	if got.Header.Get("X-Custom") != "yes" {
		t.Fatal("custom header not forwarded")
	}
}

func TestGetBodyBecomesQueryParameters(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		got = r
		return jsonResponse(http.StatusOK, `{"success":true,"message":"","data":null}`), nil
	})

	body := map[string]any{"page": 2, "limit": 18}
	if _, err := c.Get(context.Background(), "reviews/cafe", body, nil); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	q := got.URL.Query()
	if q.Get("page") != "2" || q.Get("limit") != "18" {
		t.Fatalf("query = %q, want page=2 limit=18", got.URL.RawQuery)
	}
	if got.Body != nil {
		t.Fatal("GET must not carry a request body")
	}
}

func TestAbsoluteURLTakesPrecedence(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		got = r
		return jsonResponse(http.StatusOK, `{"success":true,"message":"","data":null}`), nil
	})

	if _, err := c.Get(context.Background(), "https://cdn.example.org/meta", nil, nil); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.URL.Host != "cdn.example.org" {
		t.Fatalf("host = %q, want cdn.example.org", got.URL.Host)
	}
}

func TestFailureEnvelopeSurfacesMessageAndStillResolves(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":false,"message":"No business found","data":null}`), nil
	})
	rec := &notify.Recorder{}
	c.SetHooks(Hooks{Notifier: rec, Location: func() string { return "/app/dashboard" }})

	env, err := c.Get(context.Background(), "reviews/gone", nil, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if env.Success {
		t.Fatal("expected failure envelope")
	}
	if errs := rec.Errors(); len(errs) != 1 || errs[0] != "No business found" {
		t.Fatalf("notifications = %v, want the envelope message once", errs)
	}
}

func TestTokenExpiryInsideProtectedSectionDestroysSession(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":false,"message":"Token has expired at 2026-08-29T10:00:00Z","data":null}`), nil
	})

	rec := &notify.Recorder{}
	var logouts, reloads atomic.Int32
	c.SetHooks(Hooks{
		Notifier:         rec,
		Location:         func() string { return "/app/dashboard" },
		OnSessionExpired: func() { logouts.Add(1) },
		Reload:           func() { reloads.Add(1) },
	})

	env, err := c.Get(context.Background(), "reviews/cafe", nil, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if env.Success {
		t.Fatal("expected failure envelope")
	}

	if got := logouts.Load(); got != 1 {
		t.Fatalf("logouts = %d, want exactly 1", got)
	}
	if got := reloads.Load(); got != 1 {
		t.Fatalf("reloads = %d, want exactly 1", got)
	}
	if errs := rec.Errors(); len(errs) != 1 || errs[0] != sessionExpiredNotice {
		t.Fatalf("notifications = %v, want one generic notice", errs)
	}
}

func TestUnauthorizedMarkerHandledLikeExpiry(t *testing.T) {
	for _, msg := range []string{"Unauthorized access", "Invalid token"} {
		c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"success":false,"message":"`+msg+`","data":null}`), nil
		})
		var logouts atomic.Int32
		c.SetHooks(Hooks{
			Location:         func() string { return "/app/reviews" },
			OnSessionExpired: func() { logouts.Add(1) },
		})

		if _, err := c.Get(context.Background(), "x", nil, nil); err != nil {
			t.Fatalf("%s: Get error: %v", msg, err)
		}
		if logouts.Load() != 1 {
			t.Fatalf("%s: expected exactly one logout", msg)
		}
	}
}

func TestTokenExpiryOutsideProtectedSectionIsIgnored(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":false,"message":"Token has expired at noon","data":null}`), nil
	})

	rec := &notify.Recorder{}
	var logouts atomic.Int32
	c.SetHooks(Hooks{
		Notifier:         rec,
		Location:         func() string { return "/business/cafe" },
		OnSessionExpired: func() { logouts.Add(1) },
	})

	if _, err := c.Get(context.Background(), "x", nil, nil); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if logouts.Load() != 0 {
		t.Fatal("logout fired outside the protected section")
	}
	if len(rec.Errors()) != 0 {
		t.Fatalf("notifications = %v, want none", rec.Errors())
	}
}

func TestEmptyProtectedPrefixDoesNotMatchEverywhere(t *testing.T) {
	creds := localstore.New("", "", testLogger())
	c := New(Config{
		BaseURL:     "https://api.example.com/v1",
		TokenCookie: "revuly_token",
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"success":false,"message":"Token has expired at noon","data":null}`), nil
		}),
	}, creds, testLogger())

	rec := &notify.Recorder{}
	var logouts atomic.Int32
	c.SetHooks(Hooks{
		Notifier:         rec,
		Location:         func() string { return "/business/cafe" },
		OnSessionExpired: func() { logouts.Add(1) },
	})

	if _, err := c.Get(context.Background(), "x", nil, nil); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	// An unset prefix falls back to /app instead of matching every path.
	if logouts.Load() != 0 {
		t.Fatal("logout fired outside the default protected section")
	}

	c.SetHooks(Hooks{
		Notifier:         rec,
		Location:         func() string { return "/app/dashboard" },
		OnSessionExpired: func() { logouts.Add(1) },
	})
	if _, err := c.Get(context.Background(), "x", nil, nil); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if logouts.Load() != 1 {
		t.Fatal("logout must still fire inside the default protected section")
	}
}

func TestSignatureVerificationQuirkSoftFails(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"message":"Signature verification failed","code":401}`), nil
	})
	rec := &notify.Recorder{}
	c.SetHooks(Hooks{Notifier: rec})

	env, err := c.Get(context.Background(), "reviews/cafe", nil, nil)
	if err != nil {
		t.Fatalf("soft-fail must resolve, got error: %v", err)
	}
	if env.Success {
		t.Fatal("synthetic envelope must report failure")
	}
	if env.Message != "Invalid Token!" {
		t.Fatalf("message = %q, want Invalid Token!", env.Message)
	}
	if string(env.Data) != "[]" {
		t.Fatalf("data = %s, want []", env.Data)
	}
	if len(rec.Errors()) != 0 {
		t.Fatalf("soft-fail must be silent, got %v", rec.Errors())
	}
}

func TestTransportErrorNotifiesAndRejects(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"message":"database unavailable","code":500}`), nil
	})
	rec := &notify.Recorder{}
	c.SetHooks(Hooks{Notifier: rec})

	_, err := c.Get(context.Background(), "reviews/cafe", nil, nil)
	if err == nil {
		t.Fatal("expected an error for a transport-level failure")
	}
	if errs := rec.Errors(); len(errs) != 1 || errs[0] != "database unavailable" {
		t.Fatalf("notifications = %v", errs)
	}
}

func TestTransportErrorWithoutEnvelopeFallsBack(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	})
	rec := &notify.Recorder{}
	c.SetHooks(Hooks{Notifier: rec})

	_, err := c.Get(context.Background(), "x", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errs := rec.Errors(); len(errs) != 1 || errs[0] != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("notifications = %v, want status text fallback", errs)
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		return jsonResponse(http.StatusOK, `{"success":true,"message":"","data":null}`), nil
	})

	if _, err := c.Post(context.Background(), "login", map[string]string{"email": "a@b.c"}, nil); err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if gotBody != `{"email":"a@b.c"}` {
		t.Fatalf("body = %s", gotBody)
	}
}
