package http

import (
	"context"
	"math/rand/v2"
	"time"
)

// maxDelayUnits stops the doubling long before delay*unit can overflow.
const maxDelayUnits = int64(1) << 40

// Sleeper waits between attempts. Sleep must return ctx.Err() as soon as ctx
// is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// timerSleeper suspends on a timer and stops it on cancellation.
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// JitterSource returns an integer drawn uniformly from [0, n].
type JitterSource func(n int64) int64

func defaultJitter(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return rand.Int64N(n + 1)
}

// RetryState belongs to exactly one logical call.
type RetryState struct {
	Attempts int
	// Delay is the current delay in backoff units. It starts at 1.
	Delay int64
	// Jitter is the total jitter added so far, in backoff units.
	Jitter int64
}

func NewRetryState() *RetryState {
	return &RetryState{Delay: 1}
}

// Next doubles the delay, draws jitter from [0, delay/4] and returns the
// number of units to wait before the next attempt.
func (s *RetryState) Next(jitter JitterSource) int64 {
	if s.Delay < maxDelayUnits {
		s.Delay *= 2
	}
	if jitter == nil {
		jitter = defaultJitter
	}
	j := jitter(s.Delay / 4)
	if j < 0 {
		j = 0
	} else if j > s.Delay/4 {
		j = s.Delay / 4
	}
	s.Jitter += j
	return s.Delay + j
}
