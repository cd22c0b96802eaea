package logger

import (
	"context"
	"sync/atomic"
)

type contextKey string

const (
	networkCounterKey contextKey = "network_attempt_counter"
	networkElapsedKey contextKey = "network_elapsed_nanos"
)

// WithNetworkCounter attaches an attempt counter and an elapsed time
// accumulator to ctx. The request pipeline updates both on every attempt.
func WithNetworkCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, networkCounterKey, &counter)
	ctx = context.WithValue(ctx, networkElapsedKey, &elapsed)
	return ctx
}

// IncrementNetworkCounter is a no-op when ctx carries no counter.
func IncrementNetworkCounter(ctx context.Context) {
	if counter, ok := ctx.Value(networkCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetNetworkCounter returns the number of network attempts recorded in ctx.
func GetNetworkCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(networkCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

func AddNetworkElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(networkElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetNetworkElapsed returns the accumulated attempt time in nanoseconds.
func GetNetworkElapsed(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(networkElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}
