package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/task-notifier/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
// Unlike JSONStore it replaces the state atomically and keeps a delivery
// history.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// stateRow is one row of notification_state.
type stateRow struct {
	RecordID      string `db:"record_id"`
	Discriminator string `db:"discriminator"`
}

// Load reads the full notification state.
func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	var rows []stateRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT record_id, discriminator FROM notification_state",
	)
	if err != nil {
		return nil, fmt.Errorf("querying notification state: %w", err)
	}

	state := make(State, len(rows))
	for _, r := range rows {
		state[r.RecordID] = r.Discriminator
	}
	return state, nil
}

// Save replaces the notification state in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, state State) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notification_state"); err != nil {
		return fmt.Errorf("clearing notification state: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO notification_state (record_id, discriminator, updated_at)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing state insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for id, disc := range state {
		if _, err := stmt.ExecContext(ctx, id, disc, now); err != nil {
			return fmt.Errorf("saving state for %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// RecordDelivery inserts a delivery history row. Generates a UUID if ID
// is empty.
func (s *SQLiteStore) RecordDelivery(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, record_id, kind, message, sent_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.RecordID, string(n.Kind), n.Message, n.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording delivery for %s: %w", n.RecordID, err)
	}
	return nil
}

// GetDeliveries returns up to limit deliveries, newest first. A
// non-positive limit returns all of them.
func (s *SQLiteStore) GetDeliveries(ctx context.Context, limit int) ([]model.Notification, error) {
	query := "SELECT id, record_id, kind, message, sent_at FROM deliveries ORDER BY sent_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var out []model.Notification
	if err := s.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	return out, nil
}
