// Package gateway is the HTTP client for the inventory backend. It owns the
// session cookie jar, paces and retries requests, and normalises backend JSON
// into the canonical catalog and ledger shapes.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/config"
	"github.com/3btraders/ims/internal/infrastructure/logger"
)

const tracerName = "github.com/3btraders/ims/gateway"

// RequestObserver receives one call per finished request and per retry.
type RequestObserver interface {
	ObserveRequest(method, endpoint string, status int, d time.Duration)
	ObserveRetry(endpoint string)
}

// RetryConfig configures retry behavior for reads. Writes are never retried:
// a write that timed out may still have been applied by the backend.
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// Client talks to the backend on behalf of one operator session.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiPrefix  string
	cookieName string
	limiter    *rate.Limiter
	retry      RetryConfig
	observer   safeObserver
	tracer     trace.Tracer
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithObserver reports request metrics to o.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = safeObserver{o} }
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithLogger sets the base logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying transport client. Its cookie jar is
// replaced when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client for the configured backend.
func NewClient(cfg config.GatewayConfig, cookieName string, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:    base,
		apiPrefix:  strings.TrimRight(cfg.APIPrefix, "/"),
		cookieName: cookieName,
		retry: RetryConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			MaxDelay:   5 * time.Second,
			Multiplier: 2.0,
		},
		tracer: otel.Tracer(tracerName),
		logger: zap.NewNop(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for self-signed dev backends
				},
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout,
		}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	c.logger = c.logger.Named("gateway")
	return c, nil
}

// Request is one call to the backend.
type Request struct {
	Method string
	Path   string
	// Endpoint is the low-cardinality label used for metrics and spans, for
	// example "/sales/:id". Defaults to Path.
	Endpoint string
	Query    url.Values
	Body     any
}

// Response is a completed backend call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// envelope is the common wrapper most endpoints answer with.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Do executes the request. Non-2xx answers, and 2xx answers whose envelope
// says success=false, are returned as remote DomainErrors carrying the
// backend's message verbatim.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Endpoint == "" {
		req.Endpoint = req.Path
	}
	u := c.buildURL(req.Path, req.Query)

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = json.Marshal(req.Body); err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "gateway "+req.Method+" "+req.Endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", u.Path),
		))
	defer span.End()

	maxRetries := 0
	if req.Method == http.MethodGet {
		maxRetries = c.retry.MaxRetries
	}

	var (
		resp *Response
		err  error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.observer.observeRetry(req.Endpoint)
			select {
			case <-ctx.Done():
				return nil, c.fail(span, shared.NewRemoteError(0, "", ctx.Err()))
			case <-time.After(c.backoff(attempt)):
			}
		}

		resp, err = c.attempt(ctx, req, u, body)
		if !shouldRetry(resp, err) {
			break
		}
		logger.WithLogger(ctx, c.logger).Debug("Retrying backend read",
			zap.String("endpoint", req.Endpoint), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	if err != nil {
		return nil, c.fail(span, shared.NewRemoteError(0, "", err))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if remote := remoteError(resp); remote != nil {
		return resp, c.fail(span, remote)
	}
	return resp, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// attempt performs a single round trip with a fresh body reader.
func (c *Client) attempt(ctx context.Context, req Request, u *url.URL, body []byte) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "3BTraders-IMS/1.0")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id := logger.GetRequestID(ctx); id != "" {
		httpReq.Header.Set(logger.RequestIDHeader, id)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.observer.observeRequest(req.Method, req.Endpoint, 0, duration)
		logger.WithLogger(ctx, c.logger).Debug("Backend request failed",
			zap.String("method", req.Method), zap.String("path", u.Path),
			zap.Duration("duration", duration), zap.Error(err))
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	c.observer.observeRequest(req.Method, req.Endpoint, httpResp.StatusCode, duration)
	logger.WithLogger(ctx, c.logger).Debug("Backend request",
		zap.String("method", req.Method), zap.String("path", u.Path),
		zap.Int("status", httpResp.StatusCode), zap.Duration("duration", duration))

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Duration:   duration,
	}, nil
}

func shouldRetry(resp *Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

func remoteError(resp *Response) *shared.DomainError {
	var env envelope
	_ = json.Unmarshal(resp.Body, &env)
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return shared.NewRemoteError(resp.StatusCode, msg, nil)
	}
	if env.Success != nil && !*env.Success {
		return shared.NewRemoteError(resp.StatusCode, msg, nil)
	}
	return nil
}

func (c *Client) buildURL(path string, query url.Values) *url.URL {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + c.apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.retry.RetryDelay) * math.Pow(c.retry.Multiplier, float64(attempt-1))
	if delay > float64(c.retry.MaxDelay) {
		delay = float64(c.retry.MaxDelay)
	}
	// ±25% jitter
	jitter := delay * 0.25
	return time.Duration(delay + (rand.Float64()*2-1)*jitter)
}

// getJSON issues a GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path, endpoint string, query url.Values, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Endpoint: endpoint, Query: query})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// send issues a write and decodes the body into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path, endpoint string, body, out any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Endpoint: endpoint, Body: body})
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return decode(resp, out)
}

func decode(resp *Response, out any) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return shared.NewRemoteError(resp.StatusCode, "Malformed response from backend", err)
	}
	return nil
}

// safeObserver makes a missing observer a no-op.
type safeObserver struct{ RequestObserver }

func (o safeObserver) observeRequest(method, endpoint string, status int, d time.Duration) {
	if o.RequestObserver != nil {
		o.ObserveRequest(method, endpoint, status, d)
	}
}

func (o safeObserver) observeRetry(endpoint string) {
	if o.RequestObserver != nil {
		o.ObserveRetry(endpoint)
	}
}
