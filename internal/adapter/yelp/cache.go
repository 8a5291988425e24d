package yelp

import (
	"context"
	"fmt"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/rawstore"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
)

// CachedClient wraps a Fetcher with the on-disk raw store. Documents already
// on disk are served from there; fetched documents are written before they
// are returned, so a rerun never refetches them.
type CachedClient struct {
	inner   Fetcher
	store   *rawstore.Store
	metrics *observability.Metrics
}

// NewCachedClient creates a cache decorator around a fetcher.
func NewCachedClient(inner Fetcher, store *rawstore.Store, metrics *observability.Metrics) *CachedClient {
	return &CachedClient{inner: inner, store: store, metrics: metrics}
}

func (c *CachedClient) Search(ctx context.Context, offset int) (Document[domain.SearchPage], error) {
	page, ok, err := c.store.ReadPage(offset)
	if err != nil {
		return Document[domain.SearchPage]{}, err
	}
	if ok {
		c.metrics.FetchCache.WithLabelValues(endpointSearch, "hit").Inc()
		return Document[domain.SearchPage]{Value: page, Cached: true}, nil
	}
	c.metrics.FetchCache.WithLabelValues(endpointSearch, "miss").Inc()

	doc, err := c.inner.Search(ctx, offset)
	if err != nil {
		return doc, err
	}
	if err := c.store.WritePage(offset, doc.Raw); err != nil {
		return doc, fmt.Errorf("cache search page %d: %w", offset, err)
	}
	return doc, nil
}

func (c *CachedClient) Details(ctx context.Context, id string) (Document[domain.BusinessDetail], error) {
	if c.store.HasDetail(id) {
		d, err := c.store.ReadDetail(id)
		if err != nil {
			return Document[domain.BusinessDetail]{}, err
		}
		c.metrics.FetchCache.WithLabelValues(endpointDetails, "hit").Inc()
		return Document[domain.BusinessDetail]{Value: d, Cached: true}, nil
	}
	c.metrics.FetchCache.WithLabelValues(endpointDetails, "miss").Inc()

	doc, err := c.inner.Details(ctx, id)
	if err != nil {
		return doc, err
	}
	if err := c.store.WriteDetail(id, doc.Raw); err != nil {
		return doc, fmt.Errorf("cache details %q: %w", id, err)
	}
	return doc, nil
}
