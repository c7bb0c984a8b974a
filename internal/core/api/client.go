// Package api implements the request dispatcher: it builds and sends one
// HTTP request at a time against the backend, attaching auth and CSRF
// headers, enforcing a timeout, tracking rate-limit windows, and running the
// 401 refresh-and-retry protocol.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lunaalba-client/internal/core/ratelimit"
	"lunaalba-client/internal/core/session"
	"lunaalba-client/internal/shared/httpclient"
	"lunaalba-client/internal/shared/logs"
	"lunaalba-client/internal/shared/metrics"
)

// DefaultTimeout tolerates mobile network latency.
const DefaultTimeout = 15 * time.Second

// A 401 from these endpoints is terminal; retrying login/signup is
// nonsensical and retrying refresh would recurse.
var noRetryEndpoints = []string{"/auth/login", "/auth/signup", "/auth/refresh"}

func isNoRetryEndpoint(endpoint string) bool {
	for _, e := range noRetryEndpoints {
		if strings.Contains(endpoint, e) {
			return true
		}
	}
	return false
}

// Client dispatches requests for one logical session. It owns the rotating
// CSRF token; the session it was created with holds the auth tokens.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	session    *session.Session
	tracker    *ratelimit.Tracker
	log        *slog.Logger

	csrfMu    sync.Mutex
	csrfToken string

	refreshGroup singleflight.Group
}

type Option func(*Client)

// WithTimeout overrides the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient substitutes the underlying transport, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a dispatcher for the given backend base URL. The cookie jar
// carries the backend's refresh cookie for contexts where the refresh token
// is cookie-borne rather than body-borne.
func New(baseURL string, sess *session.Session, tracker *ratelimit.Tracker, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		httpClient: &http.Client{
			Transport: tunedTransport(),
			Jar:       jar,
		},
		baseURL: baseURL,
		timeout: DefaultTimeout,
		session: sess,
		tracker: tracker,
		log:     logs.Component("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tunedTransport returns a configured HTTP transport.
func tunedTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// BaseURL returns the configured backend base path. Empty means no remote
// backend is configured.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the session owned by this dispatcher.
func (c *Client) Session() *session.Session {
	return c.session
}

// CSRFToken returns the last CSRF token seen from the server.
func (c *Client) CSRFToken() string {
	c.csrfMu.Lock()
	defer c.csrfMu.Unlock()
	return c.csrfToken
}

func (c *Client) setCSRFToken(token string) {
	c.csrfMu.Lock()
	c.csrfToken = token
	c.csrfMu.Unlock()
}

// Request performs one verb+endpoint+body call. The body is JSON-encoded;
// nil means no body. Every failure mode resolves to an Outcome, never a
// panic or an error return.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) Outcome {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.log.Error("failed to encode request body", "endpoint", endpoint, "error", err)
			return Outcome{Err: msgNetwork, Status: 0}
		}
		payload = b
	}
	return c.do(ctx, method, endpoint, payload, "application/json", false)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, endpoint string) Outcome {
	return c.Request(ctx, http.MethodGet, endpoint, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) Outcome {
	return c.Request(ctx, http.MethodPost, endpoint, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any) Outcome {
	return c.Request(ctx, http.MethodPut, endpoint, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string) Outcome {
	return c.Request(ctx, http.MethodDelete, endpoint, nil)
}

// Upload POSTs a multipart form. contentType must be the multipart writer's
// boundary-bearing content type; JSON encoding is skipped entirely. The form
// is buffered so the request can be replayed after a token refresh.
func (c *Client) Upload(ctx context.Context, endpoint string, form io.Reader, contentType string) Outcome {
	payload, err := io.ReadAll(form)
	if err != nil {
		c.log.Error("failed to read upload form", "endpoint", endpoint, "error", err)
		return Outcome{Err: msgNetwork, Status: 0}
	}
	return c.do(ctx, http.MethodPost, endpoint, payload, contentType, false)
}

// do runs the full dispatch protocol. retried marks a replay after a
// successful refresh; a replay that 401s again is terminal.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, contentType string, retried bool) Outcome {
	m := metrics.GetAPIClient()
	start := time.Now()
	defer func() {
		m.Requests.Observe(time.Since(start).Seconds())
	}()

	// Local pre-check: no network call for an endpoint already known to be
	// exhausted. The server remains authoritative; this only avoids hammering.
	if c.tracker.IsBlocked(endpoint) {
		wait := c.tracker.RetryAfter(endpoint)
		m.RateLimitBlocks.Inc()
		m.Outcomes.WithLabelValues(ClassRateLimited).Inc()
		c.log.Debug("request blocked by local rate limit window", "endpoint", endpoint, "wait", wait)
		return Outcome{
			Err:    fmt.Sprintf("too many requests, please try again in %s", wait.Round(time.Second)),
			Status: http.StatusTooManyRequests,
		}
	}

	if err := c.tracker.Wait(ctx); err != nil {
		class, msg := classifyTransportError(err)
		m.Outcomes.WithLabelValues(class).Inc()
		return Outcome{Err: msg, Status: 0}
	}

	// The deadline cancels the underlying transport, so the connection is
	// actually released when the server never responds.
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(rctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		m.Outcomes.WithLabelValues(ClassNetwork).Inc()
		c.log.Error("failed to build request", "endpoint", endpoint, "error", err)
		return Outcome{Err: msgNetwork, Status: 0}
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	httpclient.ApplyDefaultHeaders(req)
	if !c.session.IsExpired() {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessToken())
	}
	if csrf := c.CSRFToken(); csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		class, msg := classifyTransportError(err)
		m.Outcomes.WithLabelValues(class).Inc()
		c.log.Warn("request failed before a response was obtained",
			"method", method, "endpoint", endpoint, "class", class, "error", err)
		return Outcome{Err: msg, Status: 0}
	}
	defer resp.Body.Close()

	c.tracker.RecordResponse(endpoint, resp.Header)
	if tok := resp.Header.Get("X-CSRF-Token"); tok != "" {
		c.setCSRFToken(tok)
	}

	if resp.StatusCode == http.StatusUnauthorized && !retried && !isNoRetryEndpoint(endpoint) {
		// Drain so the connection can be reused before the retry.
		io.Copy(io.Discard, resp.Body)
		if err := c.refreshSession(ctx); err == nil {
			m.RetriedRequests.Inc()
			c.log.Info("replaying request after token refresh", "method", method, "endpoint", endpoint)
			return c.do(ctx, method, endpoint, payload, contentType, true)
		}
		c.session.Clear(ctx)
		m.Outcomes.WithLabelValues(ClassAuthExpired).Inc()
		return Outcome{Err: msgAuthExpired, Status: http.StatusUnauthorized}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		// The server is authoritative on timing; pass Retry-After through
		// verbatim rather than computing a local estimate.
		retryAfter := resp.Header.Get("Retry-After")
		if retryAfter == "" {
			retryAfter = "60"
		}
		m.Outcomes.WithLabelValues(ClassRateLimited).Inc()
		c.log.Warn("server rate limit exceeded", "endpoint", endpoint, "retry_after", retryAfter)
		return Outcome{
			Err:    fmt.Sprintf("rate limit exceeded, please try again in %s seconds", retryAfter),
			Status: http.StatusTooManyRequests,
		}
	}

	// The body is a single-read stream; it is read exactly once here and
	// every later step works from the bytes.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		m.Outcomes.WithLabelValues(ClassNetwork).Inc()
		c.log.Warn("failed to read response body", "endpoint", endpoint, "error", err)
		return Outcome{Err: msgNetwork, Status: resp.StatusCode}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		m.Outcomes.WithLabelValues(ClassOK).Inc()
		var data json.RawMessage
		if len(raw) > 0 && json.Valid(raw) {
			data = raw
		}
		return Outcome{Data: data, Status: resp.StatusCode}
	}

	msg := msgServerError
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		msg = env.Message
	}
	m.Outcomes.WithLabelValues(ClassServerError).Inc()
	c.log.Debug("request returned an error status",
		"method", method, "endpoint", endpoint, "status", resp.StatusCode, "message", msg)
	return Outcome{Err: msg, Status: resp.StatusCode}
}
