package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/observability"
	"github.com/couchcryptid/student-map/internal/pacing"
	"github.com/google/uuid"
)

// ProgressFunc receives a snapshot after every record. It runs on the
// pipeline goroutine and must not block for long.
type ProgressFunc func(domain.Progress)

// Pipeline geocodes roster records in ordered batches, one lookup at a time.
type Pipeline struct {
	geocoder  domain.Geocoder
	pacer     pacing.Policy
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// New creates a Pipeline. batchSize below one is treated as one.
func New(g domain.Geocoder, pacer pacing.Policy, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Pipeline{
		geocoder:  g,
		pacer:     pacer,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness reports whether the geocoder behind the pipeline is reachable.
// Geocoders that cannot tell are assumed ready.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if rc, ok := p.geocoder.(interface {
		CheckReadiness(context.Context) error
	}); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

// Run geocodes records in input order and reports progress through onProgress,
// which may be nil.
//
// An empty slice fails with domain.ErrEmptyInput before any lookup. A run
// that resolves nothing returns its full result together with
// domain.ErrZeroResolutions. If ctx ends mid-run, the partial result is
// returned with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, records []domain.RawRecord, onProgress ProgressFunc) (domain.RunResult, error) {
	if len(records) == 0 {
		p.metrics.Runs.WithLabelValues("empty_input").Inc()
		return domain.RunResult{}, domain.ErrEmptyInput
	}
	if onProgress == nil {
		onProgress = func(domain.Progress) {}
	}

	id := uuid.New().String()
	r := &run{
		logger: p.logger.With("run_id", id),
		result: domain.RunResult{
			RunID:     id,
			Total:     len(records),
			Resolved:  make([]domain.ResolvedLocation, 0, len(records)),
			Failed:    []domain.FailedLookup{},
			StartedAt: domain.Now(),
		},
	}

	p.metrics.RunsInFlight.Inc()
	defer p.metrics.RunsInFlight.Dec()

	r.logger.Info("geocoding run started", "records", len(records), "batch_size", p.batchSize)

	err := p.runBatches(ctx, r, records, onProgress)
	return p.finish(r, err)
}

func (p *Pipeline) runBatches(ctx context.Context, r *run, records []domain.RawRecord, onProgress ProgressFunc) error {
	batches := chunk(records, p.batchSize)

	for i, batch := range batches {
		p.metrics.BatchSize.Observe(float64(len(batch)))
		r.logger.Debug("batch started", "batch", i+1, "of", len(batches), "size", len(batch))

		for _, rec := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.processRecord(ctx, r, rec); err != nil {
				return err
			}
			onProgress(r.snapshot())

			if err := p.pacer.AfterRecord(ctx); err != nil {
				return err
			}
		}

		if i < len(batches)-1 {
			if err := p.pacer.AfterBatch(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) finish(r *run, err error) (domain.RunResult, error) {
	res := r.result
	res.FinishedAt = domain.Now()
	p.metrics.RunDuration.Observe(res.Duration().Seconds())

	attrs := []any{
		"processed", r.processed,
		"resolved", len(res.Resolved),
		"failed", len(res.Failed),
		"skipped", res.Skipped,
		"duration", res.Duration(),
	}

	switch {
	case err != nil:
		p.metrics.Runs.WithLabelValues("cancelled").Inc()
		r.logger.Warn("geocoding run interrupted", append(attrs, "error", err)...)
		return res, err
	case len(res.Resolved) == 0:
		p.metrics.Runs.WithLabelValues("zero_resolutions").Inc()
		r.logger.Warn("geocoding run resolved nothing", attrs...)
		return res, domain.ErrZeroResolutions
	default:
		p.metrics.Runs.WithLabelValues("ok").Inc()
		r.logger.Info("geocoding run finished", attrs...)
		return res, nil
	}
}

// run is the accumulator of a single Run call. It never escapes the pipeline
// goroutine; callers only ever see Progress values and the final result.
type run struct {
	logger    *slog.Logger
	result    domain.RunResult
	processed int
}

func (r *run) snapshot() domain.Progress {
	return domain.Progress{
		Processed:     r.processed,
		Total:         r.result.Total,
		Resolved:      len(r.result.Resolved),
		Failed:        len(r.result.Failed),
		Skipped:       r.result.Skipped,
		StatusMessage: domain.ProgressMessage(r.processed, r.result.Total),
	}
}

func chunk(records []domain.RawRecord, size int) [][]domain.RawRecord {
	batches := make([][]domain.RawRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}
