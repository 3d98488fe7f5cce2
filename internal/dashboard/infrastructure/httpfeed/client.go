package httpfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	collector "cragwatch/internal/collector/domain"
	occupancy "cragwatch/internal/occupancy/domain"
)

// Client fetches samples and status from a remote collector over HTTP, for
// deployments that split the scraper and the dashboard into two processes.
type Client struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient builds a feed client against the collector's base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Samples fetches the full retained sample window.
func (c *Client) Samples(ctx context.Context) ([]occupancy.Sample, error) {
	var samples []occupancy.Sample
	if err := c.getJSON(ctx, "/samples.json", &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Status fetches the collector's last scrape status.
func (c *Client) Status(ctx context.Context) (collector.Status, error) {
	var status collector.Status
	if err := c.getJSON(ctx, "/status.json", &status); err != nil {
		return collector.Status{}, err
	}
	return status, nil
}

// getJSON issues a GET with a cache-busting timestamp parameter, so stale
// proxies between dashboard and collector never serve yesterday's data.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path + "?t=" + strconv.FormatInt(c.now().UnixNano(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("httpfeed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpfeed: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpfeed: %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpfeed: %s: decode: %w", path, err)
	}
	return nil
}
