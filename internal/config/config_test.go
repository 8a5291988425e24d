package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "yelp-test-key"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "raw"), cfg.RawDir)
	assert.Equal(t, filepath.Join("data", "raw", "details"), cfg.DetailsDir)
	assert.Equal(t, filepath.Join("data", "staging"), cfg.StagingDir)
	assert.Equal(t, filepath.Join("data", "reports"), cfg.ReportDir)
	assert.Equal(t, "https://api.yelp.com/v3", cfg.YelpBaseURL)
	assert.Equal(t, 30*time.Second, cfg.YelpTimeout)
	assert.Equal(t, 5000, cfg.SearchRadiusMeters)
	assert.Equal(t, 50, cfg.SearchPageSize)
	assert.Equal(t, 200, cfg.SearchTarget)
	assert.Equal(t, 1000, cfg.SearchMaxOffset)
	assert.Equal(t, time.Second, cfg.SearchPageDelay)
	assert.Equal(t, 200, cfg.DetailsMaxBusinesses)
	assert.Equal(t, 350*time.Millisecond, cfg.DetailsPause)
	assert.Equal(t, 5, cfg.RetryMax)
	assert.Equal(t, time.Second, cfg.RetryInitialDelay)
	assert.Empty(t, cfg.YelpAPIKey)
	assert.Empty(t, cfg.PostgresURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "restaurant-views", cfg.KafkaTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.PublishEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("RAW_DIR", "/tmp/raw")
	t.Setenv("STAGING_DIR", "/tmp/staging")
	t.Setenv("YELP_API_KEY", testAPIKey)
	t.Setenv("YELP_BASE_URL", "http://localhost:9999/v3/")
	t.Setenv("YELP_TIMEOUT", "5s")
	t.Setenv("SEARCH_RADIUS_METERS", "8000")
	t.Setenv("SEARCH_TARGET_RESTAURANTS", "100")
	t.Setenv("SEARCH_PAGE_DELAY", "0s")
	t.Setenv("RETRY_MAX", "3")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("POSTGRES_URL", "postgres://etl@localhost/eats")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "views")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/raw", cfg.RawDir)
	assert.Equal(t, filepath.Join("/tmp/raw", "details"), cfg.DetailsDir)
	assert.Equal(t, "/tmp/staging", cfg.StagingDir)
	assert.Equal(t, testAPIKey, cfg.YelpAPIKey)
	assert.Equal(t, "http://localhost:9999/v3", cfg.YelpBaseURL)
	assert.Equal(t, 5*time.Second, cfg.YelpTimeout)
	assert.Equal(t, 8000, cfg.SearchRadiusMeters)
	assert.Equal(t, 100, cfg.SearchTarget)
	assert.Equal(t, time.Duration(0), cfg.SearchPageDelay)
	assert.Equal(t, 3, cfg.RetryMax)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryInitialDelay)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "views", cfg.KafkaTopic)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.PublishEnabled())

	assert.NoError(t, cfg.RequireYelp())
	assert.NoError(t, cfg.RequirePostgres())
	assert.NoError(t, cfg.RequireKafka())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"YELP_TIMEOUT", "soon"},
		{"YELP_TIMEOUT", "0s"},
		{"SEARCH_PAGE_DELAY", "-1s"},
		{"RETRY_INITIAL_DELAY", "0"},
		{"SEARCH_PAGE_SIZE", "51"},
		{"SEARCH_RADIUS_METERS", "abc"},
		{"SEARCH_MAX_OFFSET", "-50"},
		{"RETRY_MAX", "100"},
		{"LOG_FORMAT", "xml"},
		{"SHUTDOWN_TIMEOUT", "-2s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_BrokerListTrimsBlanks(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , broker1:9092,, ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PublishEnabled())
}

func TestRequireChecks(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.RequireYelp(), ErrMissingAPIKey)
	assert.ErrorIs(t, cfg.RequirePostgres(), ErrMissingDatabaseURL)
	assert.ErrorIs(t, cfg.RequireKafka(), ErrMissingBrokers)
}
