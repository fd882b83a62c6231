package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds a single request including redirects and body.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes int64 = 1 << 20

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "wkd-tester"

	maxRedirects = 10
)

// Client is the HTTP Fetcher. It follows redirects, never retries and keeps
// the platform's TLS verification.
type Client struct {
	httpClient   *http.Client
	maxBodyBytes int64
	userAgent    string
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxBodyBytes sets the response body cap.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying client. The redirect policy is kept
// unless the supplied client sets its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if hc.CheckRedirect == nil {
			hc.CheckRedirect = limitRedirects
		}
		c.httpClient = hc
	}
}

// NewClient builds a Client with instrumented transport and default limits.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:       DefaultTimeout,
			Transport:     otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: limitRedirects,
		},
		maxBodyBytes: DefaultMaxBodyBytes,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues req and reads the whole body.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, &TransportError{Kind: KindOther, URL: req.URL, Message: MessageInvalidURL, Err: err}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		te := NewTransportError(req.URL, MessageFetchFailed, err)
		c.debug(ctx, "fetch failed", req, "kind", te.Kind, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, te
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, NewTransportError(req.URL, MessageBodyFailed, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, &TransportError{
			Kind:    KindOther,
			URL:     req.URL,
			Message: MessageBodyFailed,
			Err:     fmt.Errorf("response body exceeds %d bytes", c.maxBodyBytes),
		}
	}

	c.debug(ctx, "fetch completed", req,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) debug(ctx context.Context, msg string, req Request, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.DebugContext(ctx, msg, append([]any{"http_method", req.Method, "url", req.URL}, args...)...)
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return nil
}
