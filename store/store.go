// Package store keeps a SQLite history of analysis runs: the describe
// table and the grouped means of every run.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/spektr-org/studentperf/engine"
	"github.com/spektr-org/studentperf/store/migrations"
)

var (
	// ErrNotFound is returned when a run id does not exist.
	ErrNotFound = errors.New("run not found")
	// ErrAlreadyExists is returned when saving a run id twice.
	ErrAlreadyExists = errors.New("run already exists")
)

// Run is one persisted analysis.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Source     string
	RowsBefore int
	RowsAfter  int
	Columns    int
	GroupBy    string
	Measure    string
	Stats      []engine.ColumnStats
	GroupMeans []GroupMean
}

// GroupMean is one row of a grouped aggregate.
type GroupMean struct {
	Key   string
	Mean  float64
	Count int
}

// GroupMeansFrom converts engine groups into storable rows.
func GroupMeansFrom(groups []engine.Group) []GroupMean {
	out := make([]GroupMean, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupMean{Key: g.Key, Mean: g.Value, Count: g.Count})
	}
	return out
}

// Store persists runs in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating when missing) a SQLite store and applies embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRun inserts a run with its statistics and group means in one
// transaction. An empty ID gets a new UUID and a zero CreatedAt gets the
// current time; the stored id is returned.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(run.Source) == "" {
		return "", fmt.Errorf("run source is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source, rows_before, rows_after, columns, group_by, measure)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().UnixMilli(), run.Source,
		run.RowsBefore, run.RowsAfter, run.Columns, run.GroupBy, run.Measure,
	); err != nil {
		if isUniqueViolation(err) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, st := range run.Stats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO column_stats (run_id, position, column_name, count, mean, std, min, q25, q50, q75, max)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, st.Key, st.Count,
			nullFloat(st.Mean), nullFloat(st.Std), nullFloat(st.Min),
			nullFloat(st.Q25), nullFloat(st.Q50), nullFloat(st.Q75), nullFloat(st.Max),
		); err != nil {
			return "", fmt.Errorf("insert column stats %s: %w", st.Key, err)
		}
	}

	for i, gm := range run.GroupMeans {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_means (run_id, position, group_key, mean, count) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, gm.Key, nullFloat(gm.Mean), gm.Count,
		); err != nil {
			return "", fmt.Errorf("insert group mean %s: %w", gm.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs first, without stats or group
// means. limit <= 0 means 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, created_at, source, rows_before, rows_after, columns, group_by, measure
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt int64
		if err := rows.Scan(&run.ID, &createdAt, &run.Source, &run.RowsBefore, &run.RowsAfter,
			&run.Columns, &run.GroupBy, &run.Measure); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt = time.UnixMilli(createdAt).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run with its stats and group means.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Run{}, fmt.Errorf("storage is not configured")
	}

	var run Run
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, created_at, source, rows_before, rows_after, columns, group_by, measure
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &createdAt, &run.Source, &run.RowsBefore, &run.RowsAfter,
		&run.Columns, &run.GroupBy, &run.Measure)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()

	if run.Stats, err = s.columnStats(ctx, id); err != nil {
		return Run{}, err
	}
	if run.GroupMeans, err = s.GroupMeans(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

// GroupMeans returns the group means of a run in stored order.
func (s *Store) GroupMeans(ctx context.Context, runID string) ([]GroupMean, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT group_key, mean, count FROM group_means WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list group means: %w", err)
	}
	defer rows.Close()

	var out []GroupMean
	for rows.Next() {
		var gm GroupMean
		var mean sql.NullFloat64
		if err := rows.Scan(&gm.Key, &mean, &gm.Count); err != nil {
			return nil, fmt.Errorf("scan group mean: %w", err)
		}
		gm.Mean = fromNull(mean)
		out = append(out, gm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group means: %w", err)
	}
	return out, nil
}

func (s *Store) columnStats(ctx context.Context, runID string) ([]engine.ColumnStats, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT column_name, count, mean, std, min, q25, q50, q75, max
		 FROM column_stats WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list column stats: %w", err)
	}
	defer rows.Close()

	var out []engine.ColumnStats
	for rows.Next() {
		var st engine.ColumnStats
		var vals [7]sql.NullFloat64
		if err := rows.Scan(&st.Key, &st.Count,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6]); err != nil {
			return nil, fmt.Errorf("scan column stats: %w", err)
		}
		st.Mean, st.Std, st.Min = fromNull(vals[0]), fromNull(vals[1]), fromNull(vals[2])
		st.Q25, st.Q50, st.Q75, st.Max = fromNull(vals[3]), fromNull(vals[4]), fromNull(vals[5]), fromNull(vals[6])
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column stats: %w", err)
	}
	return out, nil
}

// NaN has no SQL representation; it round-trips through NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
