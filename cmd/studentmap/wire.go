package main

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/student-map/internal/adapter/addok"
	"github.com/couchcryptid/student-map/internal/adapter/kafka"
	"github.com/couchcryptid/student-map/internal/adapter/xlsx"
	"github.com/couchcryptid/student-map/internal/config"
	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/locator"
	"github.com/couchcryptid/student-map/internal/observability"
	"github.com/couchcryptid/student-map/internal/pacing"
	"github.com/couchcryptid/student-map/internal/pipeline"
)

// app holds the components shared by locate and serve.
type app struct {
	extractor *xlsx.Extractor
	locator   *locator.Service
	writer    *kafka.Writer
}

func newApp(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	extractor, err := newExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}

	client, err := addok.NewClient(cfg.GeocoderURL, cfg.GeocoderTimeout, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}
	var geocoder domain.Geocoder = client
	if cfg.GeocoderCacheSize > 0 {
		geocoder = addok.NewCachedGeocoder(client, cfg.GeocoderCacheSize, metrics)
	}

	pacer, err := pacing.New(pacing.Options{
		Mode:        cfg.PacingMode,
		RecordDelay: cfg.RecordDelay,
		BatchDelay:  cfg.BatchDelay,
		RPS:         cfg.RateLimitRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("pacing: %w", err)
	}
	p := pipeline.New(geocoder, pacer, logger, metrics, cfg.BatchSize)

	a := &app{extractor: extractor}
	var publisher locator.Publisher
	if cfg.PublishEnabled() {
		a.writer = kafka.NewWriter(cfg, logger, metrics)
		publisher = a.writer
		logger.Info("site publication enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSitesTopic)
	}
	a.locator = locator.New(p, publisher, logger)

	logger.Debug("geocoder configured",
		"url", cfg.GeocoderURL,
		"timeout", cfg.GeocoderTimeout,
		"cache_size", cfg.GeocoderCacheSize,
		"pacing", cfg.PacingMode,
	)
	return a, nil
}

func newExtractor(cfg *config.Config, logger *slog.Logger) (*xlsx.Extractor, error) {
	cols, err := xlsx.LoadColumns(cfg.ColumnsFile)
	if err != nil {
		return nil, fmt.Errorf("column aliases: %w", err)
	}
	return xlsx.NewExtractor(cols, logger), nil
}

func (a *app) Close() error {
	if a.writer == nil {
		return nil
	}
	return a.writer.Close()
}
