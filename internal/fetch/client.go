// Package fetch provides the shared outbound HTTP client for livewatch.
//
// Every outbound call (upstream status queries, notification delivery and
// the keep-alive self-ping) goes through [Client], which applies a
// per-request timeout, a response body size limit and a pooled transport.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// DefaultTimeout applies to requests that do not set a positive Timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent when no User-Agent header is supplied.
// The upstream live API rejects requests without a browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// connection pooling limits; livewatch talks to a handful of hosts sequentially
const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 90 * time.Second
)

// Request describes a single outbound HTTP call.
type Request struct {
	// Method defaults to GET when empty.
	Method string

	URL string

	// Body is sent as-is. nil means no body.
	Body []byte

	Headers map[string]string

	// Timeout bounds the whole call including reading the body.
	// Zero or negative selects DefaultTimeout.
	Timeout time.Duration
}

// Response holds the result of an HTTP request made by [Client].
//
// Response captures the body (limited to 1MB), status code, latency, and any
// error that occurred.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// OK reports whether the request completed with a 2xx status.
func (r Response) OK() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns the transport error, or an error describing a non-2xx status.
// It returns nil when [Response.OK] is true.
func (r Response) Err() error {
	if r.Error != nil {
		return r.Error
	}
	if !r.OK() {
		return fmt.Errorf("unexpected status %d", r.StatusCode)
	}
	return nil
}

// Client is an HTTP client wrapper with per-request timeouts.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so every tier of a resolution and every notification gets its own budget.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new [Client] that sends userAgent on every request
// that does not set one explicitly. An empty userAgent selects
// [DefaultUserAgent].
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		userAgent: userAgent,
	}
}

// Do performs req and returns a structured [Response].
//
// Do always returns a Response; errors are captured in the Error field
// rather than returned separately.
func (c *Client) Do(ctx context.Context, req Request) Response {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	limitedReader := io.LimitReader(resp.Body, maxResponseBodySize)
	respBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       respBody,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Get is shorthand for a GET [Client.Do] without a body.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) Response {
	return c.Do(ctx, Request{URL: url, Timeout: timeout})
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil receiver. After Close, the client
// remains usable but new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
