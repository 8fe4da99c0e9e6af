// Package overpass provides a client for an Overpass-QL geographic database
// API, used to find craft-brewery and winery tagged features near a point.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client queries the geographic database.
type Client interface {
	// FindVenues returns brewery/winery tagged features within radiusKM of
	// the given point.
	FindVenues(ctx context.Context, lat, lng, radiusKM float64) ([]Element, error)
}

// Element is a returned map feature. Ways and relations carry their
// coordinates in Center.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *Center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

// Center holds the representative point of a non-node element.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinates returns the element's point, preferring the center for ways.
func (e Element) Coordinates() (lat, lng float64) {
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon
	}
	return e.Lat, e.Lon
}

// Name returns the feature name tag, if present.
func (e Element) Name() string {
	return strings.TrimSpace(e.Tags["name"])
}

type response struct {
	Elements []Element `json:"elements"`
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithInterval sets the minimum gap between queries.
func WithInterval(d time.Duration) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an Overpass client for the given interpreter URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Public interpreters expect roughly one query every two seconds.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) FindVenues(ctx context.Context, lat, lng, radiusKM float64) ([]Element, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limiter wait")
	}

	query := buildVenueQuery(lat, lng, radiusKM)

	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: query")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read response")
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}

	return parsed.Elements, nil
}

// buildVenueQuery assembles the Overpass-QL query for craft brewery and
// winery features within the radius.
func buildVenueQuery(lat, lng, radiusKM float64) string {
	radiusM := int(radiusKM * 1000)
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusM, lat, lng)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];(")
	for _, filter := range []string{
		`["craft"="brewery"]`,
		`["craft"="winery"]`,
		`["microbrewery"="yes"]`,
		`["shop"="wine"]["winery"="yes"]`,
	} {
		for _, kind := range []string{"node", "way"} {
			b.WriteString(kind)
			b.WriteString(filter)
			b.WriteString(around)
			b.WriteString(";")
		}
	}
	b.WriteString(");out center;")
	return b.String()
}
