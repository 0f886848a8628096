package watcher

import (
	"context"
	"log/slog"
	"time"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// EventSource delivers bursts of file events.
type EventSource interface {
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// IndexFunc handles one burst, normally with a single incremental run.
type IndexFunc func(ctx context.Context, events []FileEvent) error

// Run calls fn once per burst until ctx is done or the event channel
// closes. Bursts that queue up while fn runs are merged into the next
// call. A fatal error from fn ends the loop; other errors are logged.
func Run(ctx context.Context, src EventSource, fn IndexFunc) error {
	events := src.Events()
	errs := src.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
		case burst, ok := <-events:
			if !ok {
				return nil
			}
			burst = drain(events, burst)

			start := time.Now()
			slog.Info("watch_burst", slog.Int("events", len(burst)))
			if err := fn(ctx, burst); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if amerrors.IsFatal(err) {
					return err
				}
				slog.Warn("watch_index_failed", slog.String("error", err.Error()))
				continue
			}
			slog.Debug("watch_index_complete", slog.Duration("duration", time.Since(start)))
		}
	}
}

// drain appends every burst already queued on events.
func drain(events <-chan []FileEvent, burst []FileEvent) []FileEvent {
	for {
		select {
		case more, ok := <-events:
			if !ok {
				return burst
			}
			burst = append(burst, more...)
		default:
			return burst
		}
	}
}
