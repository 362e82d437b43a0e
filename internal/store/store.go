package store

import (
	"context"
	"fmt"

	"github.com/nhle/task-notifier/internal/model"
)

// State maps a record id to the discriminator it was last notified with
// (its title in checkbox mode, its status id in status mode). A record id
// present with an unchanged discriminator must not be notified again.
type State map[string]string

// Clone returns an independent copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Store persists notification state between runs. It is read once at
// run start and written by the reconciler only. No locking is done: one
// run at a time is assumed.
type Store interface {
	// Load returns the persisted state. A store that has never been
	// written returns an empty state, not an error.
	Load(ctx context.Context) (State, error)

	// Save replaces the persisted state.
	Save(ctx context.Context, state State) error

	// RecordDelivery appends a sent message to the delivery history.
	// Backends without history treat it as a no-op.
	RecordDelivery(ctx context.Context, n model.Notification) error

	// GetDeliveries returns the most recent deliveries, newest first.
	GetDeliveries(ctx context.Context, limit int) ([]model.Notification, error)

	// Close releases the backend's resources.
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg model.StateConfig) (Store, error) {
	switch cfg.Backend {
	case model.BackendJSON, "":
		return NewJSONStore(cfg.Path), nil
	case model.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
