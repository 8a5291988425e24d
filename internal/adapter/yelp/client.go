// Package yelp fetches search pages and business details from the Yelp
// Fusion API and caches the raw responses on disk.
package yelp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/restaurant-staging-etl/internal/config"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
)

// ErrRateLimited is returned when the API answers 429 and the retry budget is spent.
var ErrRateLimited = errors.New("yelp rate limit exceeded")

const (
	endpointSearch  = "search"
	endpointDetails = "details"
)

// Document is a decoded response together with the body it was decoded from.
type Document[T any] struct {
	Value T
	Raw   []byte
	// Cached is set when the document came from disk instead of the network.
	Cached bool
}

// Fetcher is the part of the Fusion API the extract stages use.
type Fetcher interface {
	Search(ctx context.Context, offset int) (Document[domain.SearchPage], error)
	Details(ctx context.Context, id string) (Document[domain.BusinessDetail], error)
}

// RetryPolicy controls how 429 responses are retried. The wait before retry n
// is InitialDelay * 2^n.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// Client calls the Fusion API over HTTP.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	radius     int
	pageSize   int
	retry      RetryPolicy
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Fusion API client from the pipeline configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: cfg.YelpAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.YelpTimeout,
		},
		baseURL:  cfg.YelpBaseURL,
		radius:   cfg.SearchRadiusMeters,
		pageSize: cfg.SearchPageSize,
		retry: RetryPolicy{
			MaxRetries:   cfg.RetryMax,
			InitialDelay: cfg.RetryInitialDelay,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Search fetches one page of restaurants around the reference point, best rated first.
func (c *Client) Search(ctx context.Context, offset int) (Document[domain.SearchPage], error) {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(domain.ReferenceLat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(domain.ReferenceLon, 'f', -1, 64)},
		"radius":     {strconv.Itoa(c.radius)},
		"categories": {"restaurants"},
		"limit":      {strconv.Itoa(c.pageSize)},
		"offset":     {strconv.Itoa(offset)},
		"sort_by":    {"rating"},
	}
	u := c.baseURL + "/businesses/search?" + params.Encode()
	return fetch[domain.SearchPage](ctx, c, u, endpointSearch)
}

// Details fetches the detail document (including opening hours) of one business.
func (c *Client) Details(ctx context.Context, id string) (Document[domain.BusinessDetail], error) {
	u := c.baseURL + "/businesses/" + url.PathEscape(id)
	return fetch[domain.BusinessDetail](ctx, c, u, endpointDetails)
}

func fetch[T any](ctx context.Context, c *Client, fullURL, endpoint string) (Document[T], error) {
	var body []byte
	attempt := 0

	op := func() error {
		attempt++
		b, err := c.do(ctx, fullURL, endpoint)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("rate limited, backing off",
			"endpoint", endpoint,
			"attempt", attempt,
			"wait", wait,
		)
	}

	if err := backoff.RetryNotify(op, c.backoffPolicy(ctx), notify); err != nil {
		if errors.Is(err, ErrRateLimited) {
			return Document[T]{}, fmt.Errorf("%s after %d attempts: %w", endpoint, attempt, err)
		}
		return Document[T]{}, err
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return Document[T]{}, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return Document[T]{Value: v, Raw: body}, nil
}

func (c *Client) backoffPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.retry.InitialDelay << 10
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retry.MaxRetries)), ctx)
}

func (c *Client) do(ctx context.Context, fullURL, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.metrics.FetchRequests.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		c.metrics.FetchRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("yelp API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	c.metrics.FetchRequests.WithLabelValues(endpoint, "success").Inc()
	return body, nil
}
