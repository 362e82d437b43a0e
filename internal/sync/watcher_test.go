package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-notifier/internal/source"
)

func TestWatcherRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	w := NewWatcher(func(context.Context) error {
		runs++
		if runs == 3 {
			cancel()
		}
		return nil
	}, time.Millisecond, nil)

	require.NoError(t, w.Watch(ctx))
	assert.Equal(t, 3, runs)
}

func TestWatcherSurvivesTransientErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	w := NewWatcher(func(context.Context) error {
		runs++
		if runs == 2 {
			cancel()
		}
		return errors.New("connection reset")
	}, time.Millisecond, nil)

	require.NoError(t, w.Watch(ctx))
	assert.Equal(t, 2, runs)
}

func TestWatcherStopsOnFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth", &source.AuthError{SourceType: source.SourceTypeNotion, Message: "expired"}},
		{"aborted", ErrAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := 0
			w := NewWatcher(func(context.Context) error {
				runs++
				return tt.err
			}, time.Millisecond, nil)

			err := w.Watch(context.Background())
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, runs)
		})
	}
}

func TestNewWatcherDefaultsInterval(t *testing.T) {
	w := NewWatcher(func(context.Context) error { return nil }, 0, nil)
	assert.Equal(t, defaultInterval, w.interval)
}
