// Package pacing decides how long the pipeline waits between geocoding calls.
// Policies are shared across runs and are safe for concurrent use.
package pacing

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Policy is consulted by the pipeline after every record and after every
// batch except the last. Both methods block until the pause is over or ctx is
// done, in which case they return ctx.Err().
type Policy interface {
	AfterRecord(ctx context.Context) error
	AfterBatch(ctx context.Context) error
}

// Fixed waits a constant duration after each record and each batch.
type Fixed struct {
	clock  clockwork.Clock
	record time.Duration
	batch  time.Duration
}

// NewFixed creates a Fixed policy. A nil clock means real time.
func NewFixed(clock clockwork.Clock, record, batch time.Duration) *Fixed {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Fixed{clock: clock, record: record, batch: batch}
}

func (f *Fixed) AfterRecord(ctx context.Context) error {
	return sleep(ctx, f.clock, f.record)
}

func (f *Fixed) AfterBatch(ctx context.Context) error {
	return sleep(ctx, f.clock, f.batch)
}

// TokenBucket spaces records with a rate limiter shared by every run using
// the policy, so concurrent uploads together stay under the limit. The batch
// pause is a plain sleep on top.
type TokenBucket struct {
	limiter *rate.Limiter
	clock   clockwork.Clock
	batch   time.Duration
}

// NewTokenBucket allows rps lookups per second with a burst of one.
func NewTokenBucket(clock clockwork.Clock, rps float64, batch time.Duration) *TokenBucket {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		clock:   clock,
		batch:   batch,
	}
}

func (t *TokenBucket) AfterRecord(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

func (t *TokenBucket) AfterBatch(ctx context.Context) error {
	return sleep(ctx, t.clock, t.batch)
}

// None never waits. Used in tests and against a local geocoder.
type None struct{}

func (None) AfterRecord(ctx context.Context) error { return ctx.Err() }
func (None) AfterBatch(ctx context.Context) error  { return ctx.Err() }

// Mode names accepted by New.
const (
	ModeFixed       = "fixed"
	ModeTokenBucket = "token_bucket"
	ModeNone        = "none"
)

// Options configures New.
type Options struct {
	Mode        string
	RecordDelay time.Duration
	BatchDelay  time.Duration
	RPS         float64
	Clock       clockwork.Clock
}

// New builds the policy named by opts.Mode.
func New(opts Options) (Policy, error) {
	switch opts.Mode {
	case ModeFixed, "":
		return NewFixed(opts.Clock, opts.RecordDelay, opts.BatchDelay), nil
	case ModeTokenBucket:
		if opts.RPS <= 0 {
			return nil, fmt.Errorf("token bucket pacing needs a positive rate, got %g", opts.RPS)
		}
		return NewTokenBucket(opts.Clock, opts.RPS, opts.BatchDelay), nil
	case ModeNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown pacing mode %q", opts.Mode)
	}
}

func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
