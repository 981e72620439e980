package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/metrics"
	"github.com/huddle/client/internal/models"
)

const (
	// RefreshPath is the endpoint used to exchange a refresh token.
	RefreshPath = "/auth/refresh"

	// maxReplays bounds how many times one caller request is re-sent.
	maxReplays = 1

	maxBodyBytes = 4 << 20

	defaultTimeout = 15 * time.Second
)

// TokenSource reads and updates the persisted session tokens. Empty strings
// mean no token is stored.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SaveRefreshed(ctx context.Context, tokens models.TokenPair) error
	Clear(ctx context.Context) error
}

// Request describes one backend call. It is never modified by the client.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	// Anonymous requests carry no bearer token and are never refreshed.
	Anonymous bool
}

// attempt is one transmission of a Request. Replays are new attempts with a
// higher retry count.
type attempt struct {
	req    Request
	retry  int
	access string
}

func (a attempt) replay() attempt {
	return attempt{req: a.req, retry: a.retry + 1}
}

type refreshOutcome int

const (
	outcomeNone refreshOutcome = iota
	outcomeRefreshed
	outcomeReused
)

// Client sends JSON requests to the Huddle backend, attaching the persisted
// bearer token and refreshing it once when the backend answers 401.
type Client struct {
	baseURL   string
	http      *http.Client
	base      http.RoundTripper
	tokens    TokenSource
	limiter   *rate.Limiter
	logger    *slog.Logger
	onExpired func()

	refreshes singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.base = rt
		}
	}
}

// WithRateLimit throttles outbound attempts to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSessionExpiredHook registers fn to run after an unrecoverable refresh
// failure, once the tokens have been cleared.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// New constructs a Client rooted at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		panic("httpclient: token source must not be nil")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		base:    http.DefaultTransport,
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.Transport = otelhttp.NewTransport(&loggingTransport{next: c.base, logger: c.logger})
	return c
}

// SetSessionExpiredHook replaces the hook registered with WithSessionExpiredHook.
// It must be called before the client is shared between goroutines.
func (c *Client) SetSessionExpiredHook(fn func()) {
	c.onExpired = fn
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes the envelope data into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	env, err := c.send(ctx, attempt{req: req})
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s response data: %w", req.Method, req.Path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, a attempt) (Envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Envelope{}, &TransportError{Method: a.req.Method, Path: a.req.Path, Err: err}
		}
	}

	if !a.req.Anonymous {
		access, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return Envelope{}, fmt.Errorf("read access token: %w", err)
		}
		a.access = access
	}

	httpReq, err := c.newRequest(ctx, a)
	if err != nil {
		return Envelope{}, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Envelope{}, &TransportError{Method: a.req.Method, Path: a.req.Path, Err: err}
	}
	env, err := readEnvelope(resp)
	if err != nil {
		return Envelope{}, &TransportError{Method: a.req.Method, Path: a.req.Path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized && !a.req.Anonymous && a.retry < maxReplays {
		return c.refreshAndReplay(ctx, a, env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return env, &APIError{Method: a.req.Method, Path: a.req.Path, Status: resp.StatusCode, Envelope: env}
	}
	return env, nil
}

func (c *Client) refreshAndReplay(ctx context.Context, a attempt, unauthorized Envelope) (Envelope, error) {
	logger := logging.FromContext(ctx)
	if logger == slog.Default() {
		logger = c.logger
	}

	// Refreshes never overlap: callers arriving while one is in flight share
	// its outcome, and later callers find the rotated token already stored.
	// The flight is detached from the caller so one caller giving up cannot
	// fail the refresh for everyone sharing it.
	flight := c.refreshes.DoChan("refresh", func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout())
		defer cancel()

		current, err := c.tokens.AccessToken(flightCtx)
		if err != nil {
			return outcomeNone, fmt.Errorf("read access token: %w", err)
		}
		if current != "" && current != a.access {
			metrics.ObserveRefresh(metrics.RefreshReused)
			return outcomeReused, nil
		}

		refreshToken, err := c.tokens.RefreshToken(flightCtx)
		if err != nil {
			return outcomeNone, fmt.Errorf("read refresh token: %w", err)
		}
		if refreshToken == "" {
			return outcomeNone, nil
		}
		if err := c.refresh(flightCtx, refreshToken); err != nil {
			metrics.ObserveRefresh(metrics.RefreshFailed)
			// Only a refresh the backend rejected ends the session. Transport
			// failures leave the stored tokens for the next attempt.
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				logger.Warn("token refresh did not complete, keeping session", "path", a.req.Path, "error", err)
				return outcomeNone, err
			}
			logger.Warn("token refresh rejected, clearing session", "path", a.req.Path, "error", err)
			c.expire(flightCtx)
			return outcomeNone, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		metrics.ObserveRefresh(metrics.RefreshSucceeded)
		return outcomeRefreshed, nil
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return Envelope{}, &TransportError{Method: a.req.Method, Path: a.req.Path, Err: ctx.Err()}
	}
	if res.Err != nil {
		return Envelope{}, res.Err
	}
	if res.Val.(refreshOutcome) == outcomeNone {
		return unauthorized, &APIError{Method: a.req.Method, Path: a.req.Path, Status: http.StatusUnauthorized, Envelope: unauthorized}
	}

	logger.Debug("session refreshed, replaying request", "path", a.req.Path)
	return c.send(ctx, a.replay())
}

// refreshTimeout bounds a detached refresh flight.
func (c *Client) refreshTimeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return defaultTimeout
}

func (c *Client) refresh(ctx context.Context, refreshToken string) error {
	env, err := c.send(ctx, attempt{
		req: Request{
			Method:    http.MethodPost,
			Path:      RefreshPath,
			Body:      map[string]string{"refresh_token": refreshToken},
			Anonymous: true,
		},
		retry: maxReplays,
	})
	if err != nil {
		return err
	}

	var payload struct {
		Tokens models.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if payload.Tokens.AccessToken == "" {
		return errors.New("refresh response did not include an access token")
	}

	if err := c.tokens.SaveRefreshed(ctx, payload.Tokens); err != nil {
		return fmt.Errorf("persist refreshed tokens: %w", err)
	}
	return nil
}

func (c *Client) expire(ctx context.Context) {
	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("failed to clear tokens after refresh failure", "error", err)
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) newRequest(ctx context.Context, a attempt) (*http.Request, error) {
	target := c.baseURL + a.req.Path
	if len(a.req.Query) > 0 {
		target += "?" + a.req.Query.Encode()
	}

	var body io.Reader
	if a.req.Body != nil {
		buf, err := json.Marshal(a.req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", a.req.Method, a.req.Path, err)
		}
		body = bytes.NewReader(buf)
	}

	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)

	httpReq, err := http.NewRequestWithContext(ctx, a.req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", a.req.Method, a.req.Path, err)
	}

	for key, values := range a.req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if a.access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.access)
	}
	return httpReq, nil
}

func readEnvelope(resp *http.Response) (Envelope, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Envelope{}, fmt.Errorf("read response body: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if len(bytes.TrimSpace(raw)) == 0 {
		return Envelope{Success: ok, Message: http.StatusText(resp.StatusCode)}, nil
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Proxies and crashed upstreams answer with plain text or HTML.
		return Envelope{Success: false, Message: http.StatusText(resp.StatusCode)}, nil
	}
	return env, nil
}
