// Package watchdog races one unit of work against a timer to detect hangs.
// It does not cancel the work: a timed-out fn keeps running in its goroutine
// and its result is discarded.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrTimeout is returned when fn does not finish within the timeout.
var ErrTimeout = errors.New("watchdog: timed out")

// Run calls fn and waits at most timeout for it. timeout <= 0 calls fn
// inline. fn receives ctx; it is up to fn to honor it.
func Run(ctx context.Context, timeout time.Duration, name string, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- fn(ctx) }()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-done:
		log.Printf("watchdog: name=%s finished in %s", name, time.Since(start).Round(time.Millisecond))
		return err
	case <-t.C:
		log.Printf("watchdog: name=%s still running after %s", name, timeout)
		return fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
