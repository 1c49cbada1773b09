package service

import (
	"context"
	"time"
)

// RaceResult tags the outcome of racing a task against a deadline.
type RaceResult[T any] struct {
	Value    T
	Err      error
	TimedOut bool
}

// RaceDeadline runs fn concurrently with a timer and returns whichever
// resolves first. The losing task is abandoned, not cancelled: fn receives
// the caller's context untouched, because the provider's own cancellation
// primitive surfaces as a confusing error rather than a clean abort. A late
// completion is dropped on the floor; callers guard their own state writes
// with a liveness check.
func RaceDeadline[T any](ctx context.Context, deadline time.Duration, fn func(context.Context) (T, error)) RaceResult[T] {
	done := make(chan RaceResult[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- RaceResult[T]{Value: v, Err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case res := <-done:
		return res
	case <-timer.C:
		return RaceResult[T]{TimedOut: true}
	case <-ctx.Done():
		return RaceResult[T]{Err: ctx.Err()}
	}
}

// sleepCtx waits for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
