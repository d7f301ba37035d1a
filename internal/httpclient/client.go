// Package httpclient implements the authenticated API client. It is the
// single chokepoint for classifying server and transport errors: domain
// services and controllers only ever branch on the envelope's success flag.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/revuly/revuly-go/internal/domain"
	"github.com/revuly/revuly-go/internal/localstore"
	"github.com/revuly/revuly-go/internal/notify"
)

// Server-reported markers that force the session back to a clean
// unauthenticated state when seen inside the protected section.
const (
	markerTokenExpired = "Token has expired at"
	markerUnauthorized = "Unauthorized access"
	markerInvalidToken = "Invalid token"

	// markerBadSignature is a known backend quirk: the call soft-fails with
	// a synthetic envelope instead of an error.
	markerBadSignature = "Signature verification failed"

	sessionExpiredNotice = "Oops! Something went wrong, Please try again later."
	syntheticTokenNotice = "Invalid Token!"
)

const (
	maxResponseBytes       = 8 << 20
	defaultProtectedPrefix = "/app"
)

// Hooks connect the client to its collaborators. Location reports the
// current path so expiry handling only fires inside the protected section;
// OnSessionExpired clears the session; Reload forces the UI back to a clean
// unauthenticated state. All fields are optional.
type Hooks struct {
	Notifier         notify.Notifier
	Location         func() string
	OnSessionExpired func()
	Reload           func()
}

// Config configures the client.
type Config struct {
	// BaseURL is the API origin relative paths resolve against.
	BaseURL string

	// TokenCookie is the store key holding the bearer credential.
	TokenCookie string

	// ProtectedPrefix marks the authenticated app section. Empty means
	// the "/app" default; an empty prefix would match every location.
	ProtectedPrefix string

	// Timeout bounds each call. Zero means the 30s default; negative
	// disables the bound.
	Timeout time.Duration

	// Transport overrides the underlying round tripper (tests, retry).
	Transport http.RoundTripper
}

// Client issues authenticated requests against the configured API origin.
type Client struct {
	baseURL         string
	tokenCookie     string
	protectedPrefix string
	creds           *localstore.Store
	httpClient      *http.Client
	hooks           Hooks
	log             *logrus.Logger
}

// New creates a Client reading its credential from creds. Hooks are attached
// afterwards via SetHooks since the session store that feeds them is built
// on top of this client.
func New(cfg Config, creds *localstore.Store, log *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	} else if timeout < 0 {
		timeout = 0
	}
	if cfg.ProtectedPrefix == "" {
		cfg.ProtectedPrefix = defaultProtectedPrefix
	}

	// Cookie jar so server-set cookies ride along with cross-origin calls.
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		tokenCookie:     cfg.TokenCookie,
		protectedPrefix: cfg.ProtectedPrefix,
		creds:           creds,
		httpClient: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: cfg.Transport,
		},
		log: log,
	}
}

// SetHooks attaches the collaborator hooks.
func (c *Client) SetHooks(h Hooks) {
	c.hooks = h
}

// Request performs one API call and classifies the outcome.
//
// A transport-level failure returns a non-nil error, except for the
// signature-verification quirk which resolves with a synthetic failure
// envelope. An application-level failure (success=false) still returns the
// envelope with a nil error so callers branch on the flag.
func (c *Client) Request(ctx context.Context, method, path string, body any, headers map[string]string) (*domain.Envelope, error) {
	reqURL, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if method == http.MethodGet {
		if body != nil {
			params, qerr := queryFromBody(body)
			if qerr != nil {
				return nil, qerr
			}
			if enc := params.Encode(); enc != "" {
				reqURL += "?" + enc
			}
		}
	} else if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return nil, fmt.Errorf("marshal request body: %w", merr)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, payload)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, headers)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.notifyError(err.Error())
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.notifyError(err.Error())
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.classifyTransportError(resp.StatusCode, raw)
	}

	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.notifyError("unexpected response from server")
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	if !env.Success {
		c.classifyFailure(env.Message)
	}
	return &env, nil
}

// Get issues a GET request; body, when present, is sent as query parameters.
func (c *Client) Get(ctx context.Context, path string, body any, headers map[string]string) (*domain.Envelope, error) {
	return c.Request(ctx, http.MethodGet, path, body, headers)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, headers map[string]string) (*domain.Envelope, error) {
	return c.Request(ctx, http.MethodPost, path, body, headers)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, headers map[string]string) (*domain.Envelope, error) {
	return c.Request(ctx, http.MethodPut, path, body, headers)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, headers map[string]string) (*domain.Envelope, error) {
	return c.Request(ctx, http.MethodPatch, path, body, headers)
}

// Delete issues a DELETE request with a JSON body.
func (c *Client) Delete(ctx context.Context, path string, body any, headers map[string]string) (*domain.Envelope, error) {
	return c.Request(ctx, http.MethodDelete, path, body, headers)
}

// resolveURL joins path onto the base URL. A caller-supplied absolute URL
// takes precedence.
func (c *Client) resolveURL(path string) (string, error) {
	if strings.Contains(path, "://") {
		if _, err := url.Parse(path); err != nil {
			return "", fmt.Errorf("invalid URL %q: %w", path, err)
		}
		return path, nil
	}
	return c.baseURL + strings.TrimPrefix(path, "/"), nil
}

func (c *Client) setHeaders(req *http.Request, extra map[string]string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if token := c.creds.GetString(c.tokenCookie); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Caller-supplied headers win on conflict.
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

// classifyFailure handles an application-level failure (success=false).
// Expiry and unauthorized markers destroy the session, but only while the
// client is inside the protected section; anything else surfaces as-is.
func (c *Client) classifyFailure(message string) {
	if strings.Contains(message, markerTokenExpired) ||
		strings.Contains(message, markerUnauthorized) ||
		strings.Contains(message, markerInvalidToken) {
		if strings.Contains(c.location(), c.protectedPrefix) {
			c.expireSession()
		}
		return
	}
	c.notifyError(message)
}

// classifyTransportError handles a non-2xx response. The signature
// verification quirk resolves with a synthetic failure envelope; everything
// else surfaces and returns the extracted error.
func (c *Client) classifyTransportError(status int, raw []byte) (*domain.Envelope, error) {
	apiErr := extractAPIError(status, raw)

	if apiErr.Message == markerBadSignature {
		return &domain.Envelope{
			Success: false,
			Message: syntheticTokenNotice,
			Data:    json.RawMessage(`[]`),
		}, nil
	}

	c.notifyError(apiErr.Message)
	return nil, apiErr
}

func (c *Client) expireSession() {
	c.log.Warn("httpclient: session invalidated by server, logging out")
	if c.hooks.OnSessionExpired != nil {
		c.hooks.OnSessionExpired()
	}
	c.notifyError(sessionExpiredNotice)
	if c.hooks.Reload != nil {
		c.hooks.Reload()
	}
}

func (c *Client) notifyError(msg string) {
	if c.hooks.Notifier != nil {
		c.hooks.Notifier.Error(msg)
	}
}

func (c *Client) location() string {
	if c.hooks.Location != nil {
		return c.hooks.Location()
	}
	return ""
}

// extractAPIError pulls the backend's error body out of a failed response,
// falling back to the raw body or status text.
func extractAPIError(status int, raw []byte) *domain.APIError {
	var apiErr domain.APIError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Code == 0 {
			apiErr.Code = status
		}
		return &apiErr
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &domain.APIError{Code: status, Message: msg}
}

// queryFromBody flattens a GET body into query parameters.
func queryFromBody(body any) (url.Values, error) {
	if v, ok := body.(url.Values); ok {
		return v, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query parameters: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("query body must be an object: %w", err)
	}

	params := url.Values{}
	for k, v := range fields {
		if v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			// JSON numbers decode as float64; render integers without
			// a fractional part.
			if val == float64(int64(val)) {
				params.Set(k, fmt.Sprintf("%d", int64(val)))
			} else {
				params.Set(k, fmt.Sprintf("%v", val))
			}
		default:
			params.Set(k, fmt.Sprintf("%v", val))
		}
	}
	return params, nil
}
