// Package lookup fetches bibliographic metadata from Crossref and Open
// Library. Requests are sequential, paced by a fixed delay, and retried a
// bounded number of times.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultCrossrefURL is the Crossref REST API base URL.
	DefaultCrossrefURL = "https://api.crossref.org"

	// DefaultOpenLibraryURL is the Open Library base URL.
	DefaultOpenLibraryURL = "https://openlibrary.org"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxRetries is the number of attempts per request.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the pause between attempts of one request.
	DefaultRetryDelay = time.Second

	// DefaultRequestDelay is the minimum spacing between any two requests.
	DefaultRequestDelay = time.Second

	userAgentBase = "refmend/1.0"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4096
)

// Service is the pair of lookups the enricher needs. Client and
// CachedService implement it.
type Service interface {
	LookupByTitleOrDOI(ctx context.Context, doi, title string) (*Work, error)
	LookupByISBN(ctx context.Context, isbn string) (*Book, error)
}

// Client is a paced, retrying HTTP client for Crossref and Open Library.
type Client struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	crossrefURL    string
	openLibraryURL string
	mailto         string
	maxRetries     int
	retryDelay     time.Duration
	logger         *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithCrossrefURL sets a custom Crossref base URL (for testing).
func WithCrossrefURL(u string) ClientOption {
	return func(c *Client) {
		c.crossrefURL = u
	}
}

// WithOpenLibraryURL sets a custom Open Library base URL (for testing).
func WithOpenLibraryURL(u string) ClientOption {
	return func(c *Client) {
		c.openLibraryURL = u
	}
}

// WithMailto adds a contact address to the User-Agent, which Crossref
// uses to route requests to its polite pool.
func WithMailto(addr string) ClientOption {
	return func(c *Client) {
		c.mailto = addr
	}
}

// WithRetries sets the number of attempts per request and the pause
// between them.
func WithRetries(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithRequestDelay sets the minimum spacing between requests. Zero
// disables pacing.
func WithRequestDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = newLimiter(d)
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a lookup client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		limiter:        newLimiter(DefaultRequestDelay),
		crossrefURL:    DefaultCrossrefURL,
		openLibraryURL: DefaultOpenLibraryURL,
		maxRetries:     DefaultMaxRetries,
		retryDelay:     DefaultRetryDelay,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

func (c *Client) userAgent() string {
	if c.mailto == "" {
		return userAgentBase
	}
	return fmt.Sprintf("%s (mailto:%s)", userAgentBase, c.mailto)
}

// getJSON fetches endpoint and decodes the JSON body into out, retrying
// transient failures up to maxRetries times.
func (c *Client) getJSON(ctx context.Context, service, endpoint string, params url.Values, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		err := c.fetch(ctx, service, endpoint, params, out)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		c.logger.Debug("lookup attempt failed",
			"service", service, "attempt", attempt, "max", c.maxRetries, "error", err)
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", service, ErrRetriesExhausted, c.maxRetries, lastErr)
}

func (c *Client) fetch(ctx context.Context, service, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", service, ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(service, resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", service, ErrInvalidResponse, err)
	}
	return nil
}
