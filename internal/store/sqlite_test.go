package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-notifier/internal/model"
	"github.com/nhle/task-notifier/internal/store"
	"github.com/nhle/task-notifier/tests/testutil"
)

func TestSQLiteStoreSaveReplacesState(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	state, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, s.Save(ctx, store.State{"p1": "st-1", "p2": "st-2"}))
	require.NoError(t, s.Save(ctx, store.State{"p2": "st-3"}))

	state, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.State{"p2": "st-3"}, state)
}

func TestSQLiteStoreSeededState(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewSeededStore(t, store.State{"p1": "Ship report"})

	state, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.State{"p1": "Ship report"}, state)
}

func TestSQLiteStoreRecordsDeliveries(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	older := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordDelivery(ctx, model.Notification{
		RecordID: "p1",
		Kind:     model.KindTask,
		Message:  "first",
		SentAt:   older,
	}))
	require.NoError(t, s.RecordDelivery(ctx, model.Notification{
		RecordID: "p2",
		Kind:     model.KindMeeting,
		Message:  "second",
		SentAt:   older.Add(time.Hour),
	}))

	got, err := s.GetDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].RecordID)
	assert.Equal(t, model.KindMeeting, got[0].Kind)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, "first", got[1].Message)

	limited, err := s.GetDeliveries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "state.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, store.State{"p1": "Ship report"}))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	state, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.State{"p1": "Ship report"}, state)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := store.Open(model.StateConfig{Backend: model.BackendJSON, Path: filepath.Join(dir, "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &store.JSONStore{}, s)

	s, err = store.Open(model.StateConfig{Backend: model.BackendSQLite, Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = store.Open(model.StateConfig{Backend: "redis"})
	assert.Error(t, err)
}
