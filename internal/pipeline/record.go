package pipeline

import (
	"context"

	"github.com/couchcryptid/student-map/internal/domain"
)

// processRecord looks up one record and files it as resolved, failed or
// skipped. It returns an error only when ctx ended during the lookup; the
// record is then left unprocessed.
func (p *Pipeline) processRecord(ctx context.Context, r *run, rec domain.RawRecord) error {
	if !rec.HasCity() {
		r.result.Skipped++
		r.processed++
		p.metrics.Records.WithLabelValues("skipped").Inc()
		r.logger.Debug("record skipped, no city", "student", rec.Student)
		return nil
	}

	res := p.geocoder.Lookup(ctx, rec.City)
	if res.Status == domain.LookupTransportError && ctx.Err() != nil {
		return ctx.Err()
	}

	r.processed++

	if res.OK() {
		loc, err := domain.Resolve(rec, res.Result)
		if err == nil {
			r.result.Resolved = append(r.result.Resolved, loc)
			p.metrics.Records.WithLabelValues("resolved").Inc()
			r.logger.Debug("city resolved", "student", rec.Student, "city", rec.City,
				"lat", loc.Latitude, "lon", loc.Longitude)
			return nil
		}
		r.logger.Warn("geocoder returned unusable coordinates", "city", rec.City, "error", err)
		res = domain.NotFound()
	}

	failed := domain.Fail(rec, res.Reason())
	r.result.Failed = append(r.result.Failed, failed)
	p.metrics.Records.WithLabelValues(string(failed.Reason)).Inc()

	attrs := []any{"student", rec.Student, "city", rec.City, "reason", failed.Reason}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	}
	r.logger.Warn("city not geocoded", attrs...)
	return nil
}
