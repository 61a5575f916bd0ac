// Package osm geocodes addresses with OpenStreetMap services (Nominatim and
// Photon).
package osm

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

	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "grid-feasibility-service/1.0"
)

// Option configures a provider client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithRateLimit sets the requests-per-second limit. Public Nominatim allows 1.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithUserAgent identifies the application, as the OSM usage policies require.
func WithUserAgent(ua string) Option {
	return func(c *client) { c.userAgent = ua }
}

// WithCity appends the city to every query, so "Allee 1" resolves locally.
func WithCity(city string) Option {
	return func(c *client) { c.city = city }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *client) { c.logger = l }
}

// client is the HTTP plumbing shared by the providers.
type client struct {
	provider   string
	baseURL    string
	userAgent  string
	city       string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func newClient(provider, baseURL string, opts []Option) client {
	c := client{
		provider:   provider,
		baseURL:    baseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(1, 1),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *client) query(address string) string {
	if c.city == "" {
		return address
	}
	return address + ", " + c.city
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
func (c *client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.GeocodeAPIDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.count("error")
		return fmt.Errorf("%s geocode request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.count("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s API error: status %d: %s", c.provider, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.count("error")
		return fmt.Errorf("decode %s response: %w", c.provider, err)
	}
	return nil
}

func (c *client) record(found bool) {
	if found {
		c.count("success")
	} else {
		c.count("empty")
	}
}

func (c *client) count(outcome string) {
	if c.metrics != nil {
		c.metrics.GeocodeRequests.WithLabelValues(c.provider, outcome).Inc()
	}
}
