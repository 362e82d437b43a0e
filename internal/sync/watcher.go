package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nhle/task-notifier/internal/source"
)

// defaultInterval is used when a Watcher is created without one.
const defaultInterval = 15 * time.Minute

// RunFunc performs one reconciliation.
type RunFunc func(ctx context.Context) error

// Watcher runs a RunFunc on a fixed interval until its context ends.
// Runs never overlap: a tick that arrives while a run is in progress is
// dropped.
type Watcher struct {
	run      RunFunc
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a Watcher. A non-positive interval uses 15 minutes.
func NewWatcher(run RunFunc, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{run: run, interval: interval, logger: logger}
}

// Watch runs immediately and then on every tick. A failed run is logged
// and retried on the next tick, except for authentication failures and
// operator aborts, which stop the loop. Cancelling ctx returns nil.
func (w *Watcher) Watch(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.runOnce(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			if err := w.runOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// runOnce returns an error only when the loop should stop.
func (w *Watcher) runOnce(ctx context.Context) error {
	err := w.run(ctx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return nil
	case source.IsAuthError(err), errors.Is(err, ErrAborted):
		return err
	default:
		w.logger.Error("run failed, retrying next tick", "error", err, "interval", w.interval)
		return nil
	}
}
