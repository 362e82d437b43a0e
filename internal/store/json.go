package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nhle/task-notifier/internal/model"
)

// JSONStore keeps the state in a human-editable JSON object file:
//
//	{
//	  "<record-id>": "<discriminator>"
//	}
//
// Save truncates and rewrites the file in place. A crash mid-write can
// leave it truncated or empty.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path. The file and
// its directory are created on the first Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the state file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields an empty state.
func (s *JSONStore) Load(_ context.Context) (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file %s: %w", s.path, err)
	}

	state := State{}
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	return state, nil
}

// Save writes the state with sorted keys and two-space indentation,
// leaving non-ASCII text unescaped.
func (s *JSONStore) Save(_ context.Context, state State) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state directory %s: %w", dir, err)
		}
	}

	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file %s: %w", s.path, err)
	}
	return nil
}

// RecordDelivery is a no-op: the JSON backend keeps no history.
func (s *JSONStore) RecordDelivery(context.Context, model.Notification) error {
	return nil
}

// GetDeliveries always returns an empty history.
func (s *JSONStore) GetDeliveries(context.Context, int) ([]model.Notification, error) {
	return nil, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error {
	return nil
}

// encodeState renders state deterministically so that saving what was
// loaded reproduces the same bytes.
func encodeState(state State) ([]byte, error) {
	if state == nil {
		state = State{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// encoding/json sorts map keys.
	if err := enc.Encode(state); err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return buf.Bytes(), nil
}
