package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run := Run{
		ID:        "run-1",
		StartedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Duration:  90 * time.Second,
		Results:   map[string]bool{"acme/tool": true, "other/repo": false},
		Status:    "partial",
	}
	require.NoError(t, store.Record(ctx, run))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	require.Equal(t, "run-1", got.ID)
	require.True(t, got.StartedAt.Equal(run.StartedAt))
	require.Equal(t, run.Duration, got.Duration)
	require.Equal(t, "partial", got.Status)
	require.Equal(t, run.Results, got.Results)
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := Run{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Duration:  time.Second,
			Results:   map[string]bool{"p": true},
			Status:    "success",
		}
		require.NoError(t, store.Record(ctx, run))
	}

	runs, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first
	require.Equal(t, "e", runs[0].ID)
	require.Equal(t, "d", runs[1].ID)
	require.Equal(t, "c", runs[2].ID)
}

func TestStore_DuplicateIDRejected(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run := Run{
		ID:        "dup",
		StartedAt: time.Now(),
		Results:   map[string]bool{},
		Status:    "success",
	}
	require.NoError(t, store.Record(ctx, run))
	require.Error(t, store.Record(ctx, run), "primary key should reject duplicate run IDs")
}

func TestStore_EmptyRecent(t *testing.T) {
	store := testStore(t)

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestStore_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)

	run := Run{ID: "r1", StartedAt: time.Now(), Results: map[string]bool{"p": true}, Status: "success"}
	require.NoError(t, store.Record(ctx, run))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "r1", runs[0].ID)
}
