// Package api is a typed client for the box score backend.
//
// The backend owns query parsing, SQL execution and storage. This package only
// knows its request/response contract: four endpoints that all answer with a
// ResultPage. Failures are never retried; a non-2xx status is returned as an
// *APIError and transport failures are wrapped with the method and URL.
package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the backend origin used when none is configured.
const DefaultBaseURL = "http://localhost:3000"

// Client contains shared configuration and HTTP plumbing for backend calls.
type Client struct {
	// BaseURL is the backend origin, without a trailing slash.
	BaseURL string

	// HTTPClient performs the requests. Its Timeout is zero unless set with
	// WithTimeout: slow responses are not treated as failures.
	HTTPClient *http.Client

	// UserAgent is added to each request.
	UserAgent string

	logger *slog.Logger
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithBaseURL sets the backend origin.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.BaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTPClient = h } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.UserAgent = ua } }

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.HTTPClient.Timeout = d } }

// WithLogger sets the logger used for request/response debug events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client with safe defaults. Options can override defaults.
func New(opts ...Option) *Client {
	c := &Client{
		BaseURL: DefaultBaseURL,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				MaxIdleConns:          20,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		UserAgent: "leapstats/0.1",
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, f := range opts {
		f(c)
	}
	return c
}
