package yelp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
)

const (
	testAPIKey        = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		radius:     5000,
		pageSize:   50,
		retry:      RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond},
		metrics:    metrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Search_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "28.6024", q.Get("latitude"))
		assert.Equal(t, "-81.2001", q.Get("longitude"))
		assert.Equal(t, "5000", q.Get("radius"))
		assert.Equal(t, "restaurants", q.Get("categories"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "100", q.Get("offset"))
		assert.Equal(t, "rating", q.Get("sort_by"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"businesses":[{"id":"r1","name":"Curry House","rating":4.5}],"total":1,"region":{}}`))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	doc, err := testClient(srv.URL, m).Search(context.Background(), 100)
	require.NoError(t, err)

	require.Len(t, doc.Value.Businesses, 1)
	assert.Equal(t, "r1", doc.Value.Businesses[0].ID)
	assert.Equal(t, 1, doc.Value.Total)
	assert.False(t, doc.Cached)
	assert.Contains(t, string(doc.Raw), `"region"`, "raw body is kept verbatim")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues(endpointSearch, "success")))
}

func TestClient_Details_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/r1", r.URL.Path)
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"id":"r1","hours":[{"open":[{"day":0,"start":"1100","end":"0200"}],"hours_type":"REGULAR"}]}`))
	}))
	defer srv.Close()

	doc, err := testClient(srv.URL, observability.NewMetricsForTesting()).Details(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", doc.Value.ID)
	require.Len(t, doc.Value.Hours, 1)
	assert.Equal(t, "REGULAR", doc.Value.Hours[0].HoursType)
}

func TestClient_RateLimited_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"r1"}`))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	doc, err := testClient(srv.URL, m).Details(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", doc.Value.ID)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues(endpointDetails, "rate_limited")))
}

func TestClient_RateLimited_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, observability.NewMetricsForTesting()).Search(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(4), calls.Load(), "one attempt plus three retries")
}

func TestClient_APIError_NotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, observability.NewMetricsForTesting()).Search(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"businesses":`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, observability.NewMetricsForTesting()).Search(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode search response")
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.Details(context.Background(), "r1")
	require.Error(t, err)
}

func TestClient_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.retry = RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Search(ctx, 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
