package domain

import (
	"errors"
	"time"
)

var (
	// ErrEmptyInput means the roster had no data rows. Nothing is geocoded.
	ErrEmptyInput = errors.New("roster has no data rows")

	// ErrZeroResolutions means a run finished without resolving a single city.
	// It usually points at a wrong column mapping or an unreachable geocoder
	// rather than a roster of genuinely unknown towns.
	ErrZeroResolutions = errors.New("no city could be geocoded")
)

// RawRecord is one roster row as produced by the spreadsheet extractor.
type RawRecord struct {
	Student    string `json:"student"`
	City       string `json:"city"`
	HighSchool string `json:"high_school,omitempty"`
}

// ResolvedLocation is a roster row paired with the coordinates of its city.
type ResolvedLocation struct {
	Name        string    `json:"name"`
	City        string    `json:"city"`
	HighSchool  string    `json:"high_school,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	DisplayName string    `json:"display_name"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// FailureReason explains why a lookup produced no location.
type FailureReason string

const (
	ReasonNotFound       FailureReason = "not_found"
	ReasonTransportError FailureReason = "transport_error"
)

// FailedLookup records a roster row whose city could not be placed on the map.
type FailedLookup struct {
	Student string        `json:"student"`
	City    string        `json:"city"`
	Reason  FailureReason `json:"reason"`
}

// Progress is a point-in-time snapshot of a pipeline run. Snapshots are values;
// the pipeline never reads them back.
type Progress struct {
	Processed     int    `json:"processed"`
	Total         int    `json:"total"`
	Resolved      int    `json:"resolved"`
	Failed        int    `json:"failed"`
	Skipped       int    `json:"skipped"`
	StatusMessage string `json:"status"`
}

// Done reports whether every record of the run has been processed.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Processed == p.Total
}

// Percent returns the completion ratio as a whole percentage.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Processed * 100 / p.Total
}

// RunResult is the outcome of a pipeline run.
type RunResult struct {
	RunID      string             `json:"run_id"`
	Total      int                `json:"total"`
	Resolved   []ResolvedLocation `json:"resolved"`
	Failed     []FailedLookup     `json:"failed"`
	Skipped    int                `json:"skipped"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// Duration returns the wall time of the run.
func (r RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
