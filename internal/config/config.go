package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Missing-credential errors. They are returned by the Require* checks so
// stages that never touch the network or the database run without secrets.
var (
	ErrMissingAPIKey      = errors.New("YELP_API_KEY is required")
	ErrMissingDatabaseURL = errors.New("POSTGRES_URL is required")
	ErrMissingBrokers     = errors.New("KAFKA_BROKERS is required")
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	RawDir     string
	DetailsDir string
	StagingDir string
	ReportDir  string

	// Yelp Fusion API.
	YelpAPIKey  string
	YelpBaseURL string
	YelpTimeout time.Duration

	// Search extraction.
	SearchRadiusMeters int
	SearchPageSize     int
	SearchTarget       int
	SearchMaxOffset    int
	SearchPageDelay    time.Duration

	// Detail extraction.
	DetailsMaxBusinesses int
	DetailsPause         time.Duration

	// Rate-limit retry policy.
	RetryMax          int
	RetryInitialDelay time.Duration

	PostgresURL string

	KafkaBrokers []string
	KafkaTopic   string

	CuisineMapFile  string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	MetricsTextfile string
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	rawDir := sharedcfg.EnvOrDefault("RAW_DIR", filepath.Join("data", "raw"))

	cfg := &Config{
		RawDir:      rawDir,
		DetailsDir:  sharedcfg.EnvOrDefault("DETAILS_DIR", filepath.Join(rawDir, "details")),
		StagingDir:  sharedcfg.EnvOrDefault("STAGING_DIR", filepath.Join("data", "staging")),
		ReportDir:   sharedcfg.EnvOrDefault("REPORT_DIR", filepath.Join("data", "reports")),
		YelpAPIKey:  os.Getenv("YELP_API_KEY"),
		YelpBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("YELP_BASE_URL", "https://api.yelp.com/v3"), "/"),
		PostgresURL: os.Getenv("POSTGRES_URL"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "restaurant-views"),

		CuisineMapFile:  os.Getenv("CUISINE_MAP_FILE"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.ShutdownTimeout, err = sharedcfg.ParseShutdownTimeout(); err != nil {
		return nil, err
	}
	if cfg.YelpTimeout, err = parsePositiveDuration("YELP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.SearchPageDelay, err = parseDuration("SEARCH_PAGE_DELAY", "1s"); err != nil {
		return nil, err
	}
	if cfg.DetailsPause, err = parseDuration("DETAILS_PAUSE", "350ms"); err != nil {
		return nil, err
	}
	if cfg.RetryInitialDelay, err = parsePositiveDuration("RETRY_INITIAL_DELAY", "1s"); err != nil {
		return nil, err
	}

	if cfg.SearchRadiusMeters, err = parseIntRange("SEARCH_RADIUS_METERS", 5000, 1, 40000); err != nil {
		return nil, err
	}
	if cfg.SearchPageSize, err = parseIntRange("SEARCH_PAGE_SIZE", 50, 1, 50); err != nil {
		return nil, err
	}
	if cfg.SearchTarget, err = parseIntRange("SEARCH_TARGET_RESTAURANTS", 200, 1, 1000); err != nil {
		return nil, err
	}
	if cfg.SearchMaxOffset, err = parseIntRange("SEARCH_MAX_OFFSET", 1000, 0, 1000); err != nil {
		return nil, err
	}
	if cfg.DetailsMaxBusinesses, err = parseIntRange("DETAILS_MAX_BUSINESSES", 200, 1, 5000); err != nil {
		return nil, err
	}
	if cfg.RetryMax, err = parseIntRange("RETRY_MAX", 5, 0, 20); err != nil {
		return nil, err
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", cfg.LogFormat)
	}

	return cfg, nil
}

// RequireYelp reports whether the API credentials needed by the extract stages are present.
func (c *Config) RequireYelp() error {
	if c.YelpAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// RequirePostgres reports whether the sink connection string is present.
func (c *Config) RequirePostgres() error {
	if c.PostgresURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// RequireKafka reports whether the view publisher can be constructed.
func (c *Config) RequireKafka() error {
	if len(c.KafkaBrokers) == 0 {
		return ErrMissingBrokers
	}
	if c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required")
	}
	return nil
}

// PublishEnabled reports whether derived views should also go to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := parseDuration(key, fallback)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}
