// Package api implements the shared HTTP request pipeline used by every
// typed service: bearer-token injection, response envelope unwrapping,
// 401 detection with a single retry after a coordinated token refresh,
// and redirection to the login surface on unrecoverable auth failure.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mbathio/find-and-returned/internal/observability"
	"github.com/mbathio/find-and-returned/internal/storage"
)

const defaultTimeout = 10 * time.Second

// envelope is the uniform response wrapper returned by every endpoint.
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Navigator abstracts the navigation surface the client redirects
// through when a session becomes unrecoverable. The web client used
// window.location; here the UI layer injects its own implementation.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	Store         *storage.SessionStore
	Navigator     Navigator
	LoginPath     string
	RatePerSecond float64 // 0 disables outbound rate limiting
	RateBurst     int
}

// Client is the single shared request-sending abstraction. All methods
// are safe for concurrent use; at most one token refresh is in flight
// at any time regardless of how many requests hit a 401 together.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *storage.SessionStore
	nav        Navigator
	loginPath  string
	limiter    *rate.Limiter

	mu          sync.Mutex
	tokenScheme string
	refreshing  bool
	waiters     []chan refreshResult
}

// New creates a client for the given API base URL.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/auth"
	}

	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		store:       opts.Store,
		nav:         opts.Navigator,
		loginPath:   loginPath,
		tokenScheme: "Bearer",
	}
	if opts.RatePerSecond > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c
}

// Get issues a GET request and unwraps the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	mkBody := func() (io.Reader, string) {
		if payload == nil {
			return nil, ""
		}
		return bytes.NewReader(payload), "application/json"
	}
	return c.send(ctx, method, path, mkBody, out)
}

// send runs the full pipeline: attach credentials, issue the request,
// and on a 401 obtain a fresh token and re-issue exactly once. mkBody
// must return a fresh reader per call so the retry can resend the body.
func (c *Client) send(ctx context.Context, method, path string, mkBody func() (io.Reader, string), out any) error {
	reqID := uuid.NewString()
	ctx = observability.WithRequestID(ctx, reqID)
	log := observability.FromContext(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return transportError(err)
		}
	}

	token := c.store.AccessToken()
	status, body, err := c.roundTrip(ctx, method, path, mkBody, token, reqID)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		// Drop the rejected token, unless another caller already
		// replaced it, then go through the refresh protocol.
		if token != "" {
			if cerr := c.store.ClearAccessTokenIf(token); cerr != nil {
				log.Warn("failed to clear rejected token", slog.String("error", cerr.Error()))
			}
		}

		fresh, rerr := c.freshToken(ctx)
		if rerr != nil {
			log.Warn("token refresh failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.String("error", rerr.Error()))
			return rerr
		}

		observability.APIRequestRetriesTotal.Inc()
		log.Debug("retrying request with refreshed token",
			slog.String("method", method),
			slog.String("path", path))

		status, body, err = c.roundTrip(ctx, method, path, mkBody, fresh, reqID)
		if err != nil {
			return err
		}
	}

	if status >= 400 {
		return errorFromResponse(status, body)
	}
	return unwrap(body, out)
}

// roundTrip issues a single HTTP request. Transport failures come back
// as a typed *Error with status 500.
func (c *Client) roundTrip(ctx context.Context, method, path string, mkBody func() (io.Reader, string), token, reqID string) (int, []byte, error) {
	reqBody, contentType := mkBody()

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	if token != "" {
		req.Header.Set("Authorization", c.scheme()+" "+token)
	}

	log := observability.FromContext(ctx)
	log.Debug("api request", slog.String("method", method), slog.String("path", path))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(method, path, "transport").Inc()
		log.Warn("api transport error",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return 0, nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, transportError(err)
	}

	statusLabel := strconv.Itoa(resp.StatusCode)
	observability.APIRequestDuration.WithLabelValues(method, path, statusLabel).Observe(time.Since(start).Seconds())
	observability.APIRequestsTotal.WithLabelValues(method, path, statusLabel).Inc()
	log.Debug("api response",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	return resp.StatusCode, body, nil
}

// unwrap decodes the response envelope and unmarshals its data field
// into out. A nil out discards the data.
func unwrap(body []byte, out any) error {
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) scheme() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenScheme
}

func (c *Client) setScheme(scheme string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenScheme = scheme
}

// clearAuthAndRedirect wipes the persisted session and navigates to the
// login surface, carrying the current path as a post-login redirect
// target. Nothing happens when the UI is already on the login path.
func (c *Client) clearAuthAndRedirect() {
	if err := c.store.ClearSession(); err != nil {
		observability.Warn("failed to clear session storage", slog.String("error", err.Error()))
	}
	if c.nav == nil {
		return
	}

	current := c.nav.CurrentPath()
	if strings.Contains(current, c.loginPath) {
		return
	}

	target := c.loginPath
	if current != "" && current != "/" {
		target += "?redirect=" + url.QueryEscape(current)
	}
	c.nav.Navigate(target)
}
