package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/studentperf/engine"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func sampleRun() Run {
	return Run{
		Source:     "https://example.test/student.zip#student-mat.csv",
		RowsBefore: 395,
		RowsAfter:  395,
		Columns:    33,
		GroupBy:    "Mjob",
		Measure:    "G3",
		Stats: []engine.ColumnStats{
			engine.DescribeValues("G3", []float64{6, 10, 15}),
			engine.DescribeValues("single", []float64{4}),
		},
		GroupMeans: GroupMeansFrom([]engine.Group{
			{Key: "at_home", Value: 9.836735, Count: 59},
			{Key: "health", Value: 12.167, Count: 34},
		}),
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpenTwiceKeepsMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	first, err := Open(path)
	require.NoError(t, err)
	_, err = first.SaveRun(context.Background(), sampleRun())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSaveAndGetRun(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	id, err := store.SaveRun(ctx, sampleRun())
	require.NoError(t, err)
	assert.Len(t, id, 36, "generated ids are UUIDs")

	run, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Mjob", run.GroupBy)
	assert.Equal(t, 395, run.RowsBefore)
	assert.False(t, run.CreatedAt.IsZero())

	require.Len(t, run.Stats, 2)
	assert.Equal(t, "G3", run.Stats[0].Key)
	assert.Equal(t, 3, run.Stats[0].Count)
	assert.InDelta(t, 31.0/3, run.Stats[0].Mean, 1e-9)
	assert.True(t, math.IsNaN(run.Stats[1].Std), "NaN round-trips through NULL")

	require.Len(t, run.GroupMeans, 2)
	assert.Equal(t, GroupMean{Key: "at_home", Mean: 9.836735, Count: 59}, run.GroupMeans[0])
}

func TestSaveRunDuplicateID(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	run := sampleRun()
	run.ID = "fixed-id"
	_, err := store.SaveRun(ctx, run)
	require.NoError(t, err)

	_, err = store.SaveRun(ctx, run)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	means, err := store.GroupMeans(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Len(t, means, 2, "failed save leaves the first run intact")
}

func TestSaveRunValidation(t *testing.T) {
	store := openTempStore(t)
	_, err := store.SaveRun(context.Background(), Run{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.SaveRun(ctx, sampleRun())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		run := sampleRun()
		run.ID = id
		run.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := store.SaveRun(ctx, run)
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, base.Add(2*time.Hour), runs[0].CreatedAt)
	assert.Empty(t, runs[0].Stats)
}

func TestGetRunNotFound(t *testing.T) {
	store := openTempStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractUp(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (x INT);\n", extractUp(content))
	assert.Equal(t, "SELECT 1;", extractUp("SELECT 1;"))
}

func TestApplyMigrationsSkipsApplied(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"002_extra.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE extra (id INTEGER);\n")},
		"notes.txt":     {Data: []byte("ignored")},
	}

	require.NoError(t, applyMigrations(ctx, store.sqlDB, fsys))
	require.NoError(t, applyMigrations(ctx, store.sqlDB, fsys), "second pass must not re-create the table")

	var n int
	require.NoError(t, store.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 2, n)
}
