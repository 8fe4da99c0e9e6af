// Package brewerydir provides a client for an Open Brewery DB-compatible
// brewery directory API: proximity search over a public brewery dataset.
package brewerydir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client searches the brewery directory by proximity.
type Client interface {
	// SearchByDistance returns up to perPage breweries ordered by distance
	// from the given coordinates.
	SearchByDistance(ctx context.Context, lat, lng float64, perPage int) ([]Brewery, error)
}

// Brewery is a directory record. The upstream API serializes coordinates as
// strings.
type Brewery struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BreweryType  string `json:"brewery_type"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state_province"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	LatitudeRaw  string `json:"latitude"`
	LongitudeRaw string `json:"longitude"`
}

// Coordinates parses the string-encoded coordinates. ok is false when the
// record has no usable location.
func (b Brewery) Coordinates() (lat, lng float64, ok bool) {
	if b.LatitudeRaw == "" || b.LongitudeRaw == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(b.LatitudeRaw, 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(b.LongitudeRaw, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRequestsPerHour sets the hourly request budget.
func WithRequestsPerHour(n int) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(n)/3600.0), 1)
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a directory client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Directory budget: 100 requests/hour.
		limiter: rate.NewLimiter(rate.Limit(100.0/3600.0), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) SearchByDistance(ctx context.Context, lat, lng float64, perPage int) ([]Brewery, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "brewerydir: rate limiter wait")
	}

	if perPage <= 0 {
		perPage = 10
	}

	q := url.Values{}
	q.Set("by_dist", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("per_page", strconv.Itoa(perPage))

	reqURL := c.baseURL + "/breweries?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "brewerydir: create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "brewerydir: search by distance")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("brewerydir: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "brewerydir: read response")
	}

	var breweries []Brewery
	if err := json.Unmarshal(body, &breweries); err != nil {
		return nil, eris.Wrap(err, "brewerydir: parse response")
	}

	return breweries, nil
}
