package yelp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/rawstore"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
)

// --- mock for cache tests ---

type countingFetcher struct {
	searchCalls  int
	detailsCalls int
	err          error
}

func (f *countingFetcher) Search(_ context.Context, offset int) (Document[domain.SearchPage], error) {
	f.searchCalls++
	if f.err != nil {
		return Document[domain.SearchPage]{}, f.err
	}
	return Document[domain.SearchPage]{
		Value: domain.SearchPage{Businesses: []domain.Business{{ID: "r1"}}, Total: 1},
		Raw:   []byte(`{"businesses":[{"id":"r1"}],"total":1}`),
	}, nil
}

func (f *countingFetcher) Details(_ context.Context, id string) (Document[domain.BusinessDetail], error) {
	f.detailsCalls++
	if f.err != nil {
		return Document[domain.BusinessDetail]{}, f.err
	}
	return Document[domain.BusinessDetail]{
		Value: domain.BusinessDetail{ID: id},
		Raw:   []byte(`{"id":"` + id + `"}`),
	}, nil
}

func newCached(t *testing.T, inner Fetcher) (*CachedClient, *rawstore.Store, *observability.Metrics) {
	t.Helper()
	dir := t.TempDir()
	store := rawstore.New(dir, filepath.Join(dir, "details"))
	m := observability.NewMetricsForTesting()
	return NewCachedClient(inner, store, m), store, m
}

// --- CachedClient tests ---

func TestCachedClient_SearchCacheHit(t *testing.T) {
	inner := &countingFetcher{}
	cached, store, m := newCached(t, inner)

	first, err := cached.Search(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.FileExists(t, store.PagePath(0))

	second, err := cached.Search(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Value.Businesses[0].ID, second.Value.Businesses[0].ID)

	assert.Equal(t, 1, inner.searchCalls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchCache.WithLabelValues(endpointSearch, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchCache.WithLabelValues(endpointSearch, "miss")))
}

func TestCachedClient_DifferentOffsetsMiss(t *testing.T) {
	inner := &countingFetcher{}
	cached, _, _ := newCached(t, inner)

	_, err := cached.Search(context.Background(), 0)
	require.NoError(t, err)
	_, err = cached.Search(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.searchCalls)
}

func TestCachedClient_DetailsCacheHit(t *testing.T) {
	inner := &countingFetcher{}
	cached, store, _ := newCached(t, inner)

	_, err := cached.Details(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, store.HasDetail("r1"))

	doc, err := cached.Details(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, doc.Cached)
	assert.Equal(t, "r1", doc.Value.ID)
	assert.Equal(t, 1, inner.detailsCalls)
}

func TestCachedClient_ErrorNotCached(t *testing.T) {
	inner := &countingFetcher{err: errors.New("boom")}
	cached, store, _ := newCached(t, inner)

	_, err := cached.Details(context.Background(), "r1")
	require.Error(t, err)
	assert.False(t, store.HasDetail("r1"))

	_, err = cached.Details(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, 2, inner.detailsCalls)
}
