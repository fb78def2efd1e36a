package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/student-map/internal/config"
	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes aggregated sites to a Kafka topic, one message per site,
// keyed by the site's coordinate key.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sites topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSitesTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishSites writes every site of a run in a single batch. Failed writes are
// retried with exponential backoff before giving up.
func (w *Writer) PublishSites(ctx context.Context, runID string, sites []domain.AggregatedSite) error {
	if len(sites) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(sites))
	publishedAt := time.Now().UTC()
	for i := range sites {
		msg, err := serializeToMessage(runID, sites[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			w.metrics.SitesPublished.Add(float64(len(msgs)))
			w.logger.Info("sites published", "run_id", runID, "sites", len(msgs))
			return nil
		}
		w.logger.Warn("publish sites failed", "run_id", runID, "attempt", attempt, "error", err)
		if attempt == maxAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish %d sites: %w", len(msgs), err)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// SiteMessage is the JSON value of a published site.
type SiteMessage struct {
	RunID       string               `json:"run_id"`
	Key         string               `json:"key"`
	Latitude    float64              `json:"latitude"`
	Longitude   float64              `json:"longitude"`
	DisplayName string               `json:"display_name"`
	Count       int                  `json:"count"`
	Tier        domain.Tier          `json:"tier"`
	Students    []domain.SiteStudent `json:"students"`
	PublishedAt time.Time            `json:"published_at"`
}

func serializeToMessage(runID string, site domain.AggregatedSite, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(SiteMessage{
		RunID:       runID,
		Key:         site.Key,
		Latitude:    site.Latitude,
		Longitude:   site.Longitude,
		DisplayName: site.DisplayName,
		Count:       site.Count(),
		Tier:        site.Tier(),
		Students:    site.Students,
		PublishedAt: publishedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize site %s: %w", site.Key, err)
	}
	return kafkago.Message{
		Key:   []byte(site.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "tier", Value: []byte(site.Tier())},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
