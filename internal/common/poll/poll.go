// Package poll waits for a condition with a fixed interval and deadline.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the deadline passes before the condition holds.
var ErrTimeout = errors.New("poll deadline exceeded")

// Condition reports done=true to stop polling. A non-nil error also stops
// polling and is returned as is.
type Condition func(ctx context.Context) (done bool, err error)

// Result describes how a wait ended.
type Result struct {
	Attempts int
	Elapsed  time.Duration
}

// Until checks cond immediately, then every interval, until it reports done,
// returns an error, ctx is cancelled, or timeout elapses (ErrTimeout).
func Until(ctx context.Context, interval, timeout time.Duration, cond Condition) (Result, error) {
	start := time.Now()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	res := Result{}
	for {
		res.Attempts++
		done, err := cond(ctx)
		res.Elapsed = time.Since(start)
		if err != nil || done {
			return res, err
		}

		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-deadline.C:
			return res, ErrTimeout
		case <-ticker.C:
		}
	}
}

// Signal waits for ch to deliver or close, bounded by timeout.
func Signal[T any](ctx context.Context, ch <-chan T, timeout time.Duration) (T, error) {
	var zero T
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v, ok := <-ch:
		if !ok {
			return zero, nil
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, ErrTimeout
	}
}
