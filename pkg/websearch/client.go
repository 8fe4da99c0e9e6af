// Package websearch provides a client for a general web-search HTTP surface
// returning HTML/text. Requests are spaced out and rotate through a small
// pool of client identities to reduce throttling.
package websearch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client performs free-text searches.
type Client interface {
	// Search runs a query and returns the raw response text.
	Search(ctx context.Context, query string) (string, error)
}

// defaultUserAgents is the identity pool used when none is configured.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
}

// maxResponseBytes caps how much of a search response is read.
const maxResponseBytes = 1 << 20

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithMinInterval sets the minimum gap between outbound requests.
func WithMinInterval(d time.Duration) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithUserAgents replaces the identity pool.
func WithUserAgents(agents []string) Option {
	return func(c *client) {
		if len(agents) > 0 {
			c.userAgents = agents
		}
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgents []string
	next       atomic.Uint64
}

// NewClient creates a search client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Minimum 500ms between outbound requests.
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		userAgents: defaultUserAgents,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Search(ctx context.Context, query string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "websearch: rate limiter wait")
	}

	q := url.Values{}
	q.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "websearch: create request")
	}
	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "websearch: search")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("websearch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", eris.Wrap(err, "websearch: read response")
	}

	return string(body), nil
}

// nextUserAgent rotates through the identity pool.
func (c *client) nextUserAgent() string {
	n := c.next.Add(1)
	return c.userAgents[int(n-1)%len(c.userAgents)]
}
