package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/student-map/internal/pacing"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding service.
	GeocoderURL       string
	GeocoderTimeout   time.Duration
	GeocoderCacheSize int

	// Pipeline pacing.
	BatchSize    int
	RecordDelay  time.Duration
	BatchDelay   time.Duration
	PacingMode   string
	RateLimitRPS float64

	ColumnsFile    string
	MaxUploadBytes int64
	CORSOrigins    []string

	// Site publication is enabled when KafkaBrokers is non-empty.
	KafkaBrokers    []string
	KafkaSitesTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("GEOCODER_CACHE_SIZE", 1000)
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid GEOCODER_CACHE_SIZE: must be >= 0")
	}

	batchSize, err := parseInt("BATCH_SIZE", 10)
	if err != nil || batchSize < 1 || batchSize > 500 {
		return nil, errors.New("invalid BATCH_SIZE: must be 1-500")
	}

	recordDelay, err := parseDuration("RECORD_DELAY", "100ms")
	if err != nil {
		return nil, err
	}
	batchDelay, err := parseDuration("BATCH_DELAY", "500ms")
	if err != nil {
		return nil, err
	}

	rps, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RATE_LIMIT_RPS", "10"), 64)
	if err != nil || rps <= 0 {
		return nil, errors.New("invalid RATE_LIMIT_RPS: must be a positive number")
	}

	maxUpload, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, errors.New("invalid MAX_UPLOAD_BYTES: must be a positive integer")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderURL:       sharedcfg.EnvOrDefault("GEOCODER_URL", "http://localhost:7878/search/"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderCacheSize: cacheSize,

		BatchSize:    batchSize,
		RecordDelay:  recordDelay,
		BatchDelay:   batchDelay,
		PacingMode:   sharedcfg.EnvOrDefault("PACING_MODE", pacing.ModeFixed),
		RateLimitRPS: rps,

		ColumnsFile:    os.Getenv("COLUMNS_FILE"),
		MaxUploadBytes: maxUpload,
		CORSOrigins:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		KafkaBrokers:    sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSitesTopic: sharedcfg.EnvOrDefault("KAFKA_SITES_TOPIC", "student-map-sites"),
	}

	if err := validateGeocoderURL(cfg.GeocoderURL); err != nil {
		return nil, err
	}
	switch cfg.PacingMode {
	case pacing.ModeFixed, pacing.ModeTokenBucket, pacing.ModeNone:
	default:
		return nil, fmt.Errorf("invalid PACING_MODE %q: must be fixed, token_bucket or none", cfg.PacingMode)
	}
	if cfg.BatchDelay < cfg.RecordDelay {
		return nil, errors.New("invalid BATCH_DELAY: must be >= RECORD_DELAY")
	}

	return cfg, nil
}

// PublishEnabled reports whether aggregated sites are written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func validateGeocoderURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid GEOCODER_URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative duration", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
