package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/marketdash/internal/version"
)

// Client defaults.
const (
	DefaultClientTimeout = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryBackoff  = time.Second
)

// Client calls the dashboard HTTP API. Reads are retried on 429 and 5xx;
// commands are sent once.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the server at baseURL. token may be empty
// when the server runs without auth.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		userAgent:    version.UserAgent(),
		httpClient:   &http.Client{Timeout: DefaultClientTimeout},
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "api_client")
	return c
}

// WithTimeout bounds each HTTP exchange.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets how many times a read is retried and the first backoff.
// The backoff doubles per retry.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient replaces the underlying HTTP client. WithTimeout applied
// afterwards modifies hc.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}
