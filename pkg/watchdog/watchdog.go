package watchdog

import (
	"context"
	"log/slog"
	"time"
)

// New returns a loop that calls onTimeout once if input stays quiet for longer
// than timeout. The loop ends when input is closed, ctx is done or it has fired.
func New[T any](timeout time.Duration, input <-chan T, onTimeout func()) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		t := time.NewTimer(timeout)
		defer t.Stop()
		slog.Debug("watchdog started", "timeout", timeout, "module", "watchdog")
		for {
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-input:
				if !ok {
					return nil
				}
				t.Reset(timeout)
			case <-t.C:
				slog.Error("watchdog timeout, no samples received", "timeout", timeout, "module", "watchdog")
				onTimeout()
				return nil
			}
		}
	}
}
