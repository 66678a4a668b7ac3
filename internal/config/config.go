package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all engine settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Satellite label used in CDN URL paths, e.g. "GOES16".
	SatelliteLabel string

	// Web imagery sources, tried in this priority order.
	CDNHost     string
	MirrorHost  string
	ArchiveHost string

	// Raw radiance bucket endpoint, e.g. "https://noaa-goes16.s3.amazonaws.com".
	BucketURL string

	FetchTimeout time.Duration

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	CacheSize int
	CacheTTL  time.Duration

	// SearchWindowHours bounds the expanding time-window search for raw data.
	SearchWindowHours int

	BatchConcurrency int

	OutputDir string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	fetchTimeout, err := durationEnv("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	retryInitial, err := durationEnv("RETRY_INITIAL_DELAY", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	retryMax, err := durationEnv("RETRY_MAX_DELAY", 15*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationEnv("CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SatelliteLabel: envOrDefault("SATELLITE_LABEL", "GOES16"),

		CDNHost:     envOrDefault("CDN_HOST", "cdn.star.nesdis.noaa.gov"),
		MirrorHost:  envOrDefault("MIRROR_HOST", "cdn-backup.star.nesdis.noaa.gov"),
		ArchiveHost: envOrDefault("ARCHIVE_HOST", "archive.star.nesdis.noaa.gov"),

		BucketURL: envOrDefault("BUCKET_URL", "https://noaa-goes16.s3.amazonaws.com"),

		FetchTimeout: fetchTimeout,

		RetryMaxAttempts:  intEnv("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: retryInitial,
		RetryMaxDelay:     retryMax,

		CacheSize: intEnv("CACHE_SIZE", 256),
		CacheTTL:  cacheTTL,

		SearchWindowHours: intEnv("SEARCH_WINDOW_HOURS", 6),

		BatchConcurrency: intEnv("BATCH_CONCURRENCY", 5),

		OutputDir: envOrDefault("OUTPUT_DIR", "imagery"),
	}

	if cfg.CDNHost == "" {
		return nil, errors.New("CDN_HOST is required")
	}
	if cfg.BucketURL == "" {
		return nil, errors.New("BUCKET_URL is required")
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, errors.New("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.BatchConcurrency < 1 {
		return nil, errors.New("BATCH_CONCURRENCY must be at least 1")
	}
	if cfg.SearchWindowHours < 0 {
		return nil, errors.New("SEARCH_WINDOW_HOURS must not be negative")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
