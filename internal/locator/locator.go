// Package locator runs a roster through the geocoding pipeline and turns the
// outcome into map-ready sites.
package locator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/pipeline"
)

// Runner geocodes a batch of records.
type Runner interface {
	Run(ctx context.Context, records []domain.RawRecord, onProgress pipeline.ProgressFunc) (domain.RunResult, error)
	CheckReadiness(ctx context.Context) error
}

// Publisher receives the sites of every successful run.
type Publisher interface {
	PublishSites(ctx context.Context, runID string, sites []domain.AggregatedSite) error
}

// Options narrow what a run reports.
type Options struct {
	// School keeps only students from this high school. Empty keeps everyone.
	School string
}

// Report is everything a renderer needs for one run.
type Report struct {
	Result     domain.RunResult        `json:"result"`
	Sites      []domain.AggregatedSite `json:"sites"`
	Center     domain.Point            `json:"center"`
	Attributes []string                `json:"attributes"`
	Summary    string                  `json:"summary"`
	Published  bool                    `json:"published"`
}

// Service is safe for concurrent use when its Runner and Publisher are.
type Service struct {
	runner    Runner
	publisher Publisher
	logger    *slog.Logger
}

// New creates a Service. publisher may be nil to disable publication.
func New(runner Runner, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{runner: runner, publisher: publisher, logger: logger}
}

// CheckReadiness reports whether runs can currently make progress.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.runner.CheckReadiness(ctx)
}

// Locate geocodes records and aggregates the resolved locations.
//
// When nothing resolves, the report still carries the run result (and so the
// failed lookups) alongside domain.ErrZeroResolutions. A cancelled run returns
// the partial report with the context error and is never published.
// Publication failures are logged and leave Published false.
func (s *Service) Locate(ctx context.Context, records []domain.RawRecord, opts Options, onProgress pipeline.ProgressFunc) (Report, error) {
	result, err := s.runner.Run(ctx, records, onProgress)
	if errors.Is(err, domain.ErrEmptyInput) {
		return Report{}, err
	}

	all := domain.Aggregate(result.Resolved)
	report := Report{
		Result:     result,
		Sites:      domain.FilterByAttribute(all, opts.School),
		Center:     domain.Center(result.Resolved),
		Attributes: domain.Attributes(all),
	}
	if err != nil {
		report.Summary = domain.ErrorMessage(err)
		return report, err
	}
	report.Summary = domain.SummaryMessage(len(result.Resolved), len(result.Failed))

	if s.publisher != nil {
		if perr := s.publisher.PublishSites(ctx, result.RunID, all); perr != nil {
			s.logger.Error("publish sites", "run_id", result.RunID, "error", perr)
		} else {
			report.Published = true
		}
	}

	s.logger.Info("locate finished",
		"run_id", result.RunID,
		"sites", len(all),
		"shown", len(report.Sites),
		"school", opts.School,
	)
	return report, nil
}
