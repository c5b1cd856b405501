package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/tpwatch/internal/version"
)

// Default client settings.
const (
	DefaultBatchSize   = 200
	DefaultParallelism = 10
)

// Client provides access to the GW2 REST API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries  int
	retryDelay  time.Duration
	batchSize   int
	parallelism int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		userAgent: version.UserAgent(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:      slog.Default(),
		maxRetries:  3,
		retryDelay:  time.Second,
		batchSize:   DefaultBatchSize,
		parallelism: DefaultParallelism,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Redirects are handled by doRequest so that only one hop is ever taken.
	if c.httpClient.CheckRedirect == nil {
		c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets how many times a retryable failure is retried, and the fixed delay between attempts.
func WithRetries(max int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryDelay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBatchSize sets the maximum number of IDs per request.
func WithBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithParallelism sets the maximum number of batch requests in flight.
func WithParallelism(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.parallelism = n
		}
	}
}
