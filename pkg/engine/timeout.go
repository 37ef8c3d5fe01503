package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation or point script.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when zygomys runs past its time limit.
	ErrTimeout = errors.New("engine: evaluation timed out")

	// ErrSuperseded is returned when a newer evaluation started on the same
	// engine before this one finished.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

type evalResult struct {
	result *Result
	errors []EvalError
	err    error
}

// await runs fn on its own goroutine and waits at most timeout for it.
// A panic inside fn is reported as an error naming what was running. On
// timeout or cancellation the goroutine is abandoned; its result is
// dropped into a buffered channel nobody reads.
func await(ctx context.Context, what string, timeout time.Duration, fn func() evalResult) evalResult {
	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during %s: %v", what, r)}
			}
		}()
		ch <- fn()
	}()
	return wait(ctx, ch, timeout)
}

func wait(ctx context.Context, ch <-chan evalResult, timeout time.Duration) evalResult {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res
	case <-timer.C:
		return evalResult{err: fmt.Errorf("%w after %s", ErrTimeout, timeout)}
	case <-ctx.Done():
		return evalResult{err: ctx.Err()}
	}
}
