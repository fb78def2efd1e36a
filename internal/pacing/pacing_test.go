package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed_AfterRecordWaitsForDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewFixed(clock, 100*time.Millisecond, 500*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- p.AfterRecord(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(99 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("returned before the record delay elapsed")
	default:
	}

	clock.Advance(time.Millisecond)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("did not return after the record delay")
	}
}

func TestFixed_AfterBatchUsesBatchDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewFixed(clock, 100*time.Millisecond, 500*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- p.AfterBatch(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(100 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("batch pause ended after the record delay")
	default:
	}

	clock.Advance(400 * time.Millisecond)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("did not return after the batch delay")
	}
}

func TestFixed_Cancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewFixed(clock, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.AfterRecord(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pause ignored cancellation")
	}
}

func TestFixed_ZeroDelay(t *testing.T) {
	p := NewFixed(clockwork.NewFakeClock(), 0, 0)
	require.NoError(t, p.AfterRecord(context.Background()))
	require.NoError(t, p.AfterBatch(context.Background()))
}

func TestFixed_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewFixed(clockwork.NewFakeClock(), 0, 0)
	require.ErrorIs(t, p.AfterRecord(ctx), context.Canceled)
}

func TestTokenBucket_AfterRecord(t *testing.T) {
	p := NewTokenBucket(nil, 1000, 0)

	start := time.Now()
	for range 3 {
		require.NoError(t, p.AfterRecord(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestTokenBucket_CancelledWhileWaiting(t *testing.T) {
	p := NewTokenBucket(nil, 0.001, 0)
	require.NoError(t, p.AfterRecord(context.Background()), "first token is available immediately")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, p.AfterRecord(ctx))
}

func TestNone(t *testing.T) {
	var p Policy = None{}
	require.NoError(t, p.AfterRecord(context.Background()))
	require.NoError(t, p.AfterBatch(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.AfterBatch(ctx), context.Canceled)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    Policy
		wantErr bool
	}{
		{"fixed", Options{Mode: ModeFixed, RecordDelay: time.Millisecond}, &Fixed{}, false},
		{"default is fixed", Options{}, &Fixed{}, false},
		{"token bucket", Options{Mode: ModeTokenBucket, RPS: 5}, &TokenBucket{}, false},
		{"token bucket without rate", Options{Mode: ModeTokenBucket}, nil, true},
		{"none", Options{Mode: ModeNone}, None{}, false},
		{"unknown", Options{Mode: "adaptive"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}
