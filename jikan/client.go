// Package jikan implements the access layer for the upstream anime
// catalog API: a rate-limited single-flight request scheduler and a
// typed HTTP client over the two read-only query endpoints.
package jikan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"anidex/config"
	"anidex/models"
)

// maxBodySize caps how much of an upstream response body is decoded.
const maxBodySize = 4 << 20

// Client queries the upstream catalog through the shared scheduler.
// Every call funnels through it, so network concurrency stays at one
// in-flight request however many strategies run at once.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	sched     *Scheduler
	metrics   *Metrics
	logger    *slog.Logger
}

// NewClient builds a catalog client configured from cfg.
func NewClient(cfg *config.Config, sched *Scheduler, metrics *Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		sched:   sched,
		metrics: metrics,
		logger:  logger,
	}
}

// WithTransport replaces the underlying HTTP transport. Intended for tests.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.http.Transport = rt
	return c
}

// TopParams are the parameters of the ranked-listing endpoint.
type TopParams struct {
	Limit int
	Type  string // optional content-type filter, e.g. "tv"
}

// SearchParams are the parameters of the general search endpoint.
type SearchParams struct {
	Query    string
	GenreID  int
	OrderBy  string
	Sort     string
	Limit    int
	MinScore float64
}

// Top fetches the top-ranked catalog listing.
func (c *Client) Top(ctx context.Context, p TopParams) (*models.Page, error) {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Type != "" {
		q.Set("type", p.Type)
	}
	return c.scheduled(ctx, "/top/anime", q)
}

// Search queries the general search/filter endpoint.
func (c *Client) Search(ctx context.Context, p SearchParams) (*models.Page, error) {
	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.GenreID > 0 {
		q.Set("genres", strconv.Itoa(p.GenreID))
	}
	if p.OrderBy != "" {
		q.Set("order_by", p.OrderBy)
		q.Set("sort", p.Sort)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.MinScore > 0 {
		q.Set("min_score", strconv.FormatFloat(p.MinScore, 'f', -1, 64))
	}
	return c.scheduled(ctx, "/anime", q)
}

func (c *Client) scheduled(ctx context.Context, path string, q url.Values) (*models.Page, error) {
	return c.sched.Schedule(func() (*models.Page, error) {
		return c.get(ctx, path, q)
	})
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*models.Page, error) {
	target := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		classified := classifyError(err)
		c.metrics.IncRequest(path, "error")
		c.metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}
	defer resp.Body.Close()

	c.metrics.ObserveDuration(time.Since(start))
	c.metrics.IncRequest(path, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		c.metrics.IncError("rate_limited")
		return nil, ErrRateLimited{Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("non-2xx response",
			slog.Int("status", resp.StatusCode),
			slog.String("url", target),
		)
		c.metrics.IncError("upstream_status")
		return nil, ErrStatus{Code: resp.StatusCode}
	}

	var page models.Page
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}
