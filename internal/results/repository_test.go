package results_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/platform"
	"codeberg.org/mutker/wearsim/internal/results"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRepository(t *testing.T) (results.Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.db")
	cfg := results.DefaultConfig()
	cfg.DBPath = path

	repo, err := results.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	return repo, path
}

func querydb(t *testing.T, path, query string, args ...any) *sql.Rows {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	t.Cleanup(func() { rows.Close() })
	return rows
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo, path := openRepository(t)

	require.NoError(t, repo.Record("chip", 0, 120.5))
	require.NoError(t, repo.Record("chip", 1, 98.25))
	require.NoError(t, repo.Record("core0", 0, 120.5))
	require.NoError(t, repo.Close())

	rows := querydb(t, path, "SELECT component, trial, ttf_seconds FROM ttf_samples ORDER BY component, trial")
	type row struct {
		component string
		trial     int
		ttf       float64
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.component, &r.trial, &r.ttf))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []row{
		{"chip", 0, 120.5},
		{"chip", 1, 98.25},
		{"core0", 0, 120.5},
	}, got)
}

func TestRepositoryBatching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	cfg := results.Config{DBPath: path, BatchSize: 4}

	repo, err := results.NewRepository(cfg, logger.Default())
	require.NoError(t, err)

	// More records than one batch, not a multiple of the batch size.
	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Record("chip", i, float64(i)))
	}
	require.NoError(t, repo.Close())

	rows := querydb(t, path, "SELECT COUNT(*) FROM ttf_samples")
	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 10, count, "Expected the final partial batch flushed on close")
}

func TestRepositoryRejectsEmptyPath(t *testing.T) {
	_, err := results.NewRepository(results.DefaultConfig(), logger.Default())
	require.Error(t, err)
}

func TestSchemaVersionRecorded(t *testing.T) {
	repo, path := openRepository(t)
	require.NoError(t, repo.Close())

	rows := querydb(t, path, "SELECT version FROM schema_versions")
	require.True(t, rows.Next())
	var version int
	require.NoError(t, rows.Scan(&version))
	assert.Equal(t, results.SchemaVersion, version)
}

func TestReopenKeepsSchema(t *testing.T) {
	repo, path := openRepository(t)
	require.NoError(t, repo.Record("chip", 0, 1))
	require.NoError(t, repo.Close())

	cfg := results.DefaultConfig()
	cfg.DBPath = path
	repo, err := results.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Record("chip", 1, 2))
	require.NoError(t, repo.Close())

	rows := querydb(t, path, "SELECT COUNT(*) FROM ttf_samples")
	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 2, count)
}

func TestStore(t *testing.T) {
	a := platform.NewUnit("core0", 0, platform.KindGeneric, platform.Redundancy{}, nil, nil)
	root := platform.NewGroup("chip", 0, a)
	root.Lifetimes().Record(10)
	root.Lifetimes().Record(20)
	a.Lifetimes().Record(10)

	repo, path := openRepository(t)
	require.NoError(t, results.Store(repo, root))
	require.NoError(t, repo.Close())

	rows := querydb(t, path, "SELECT component, trial, ttf_seconds FROM ttf_samples ORDER BY component, trial")
	var (
		components []string
		ttfs       []float64
	)
	for rows.Next() {
		var (
			component string
			trial     int
			ttf       float64
		)
		require.NoError(t, rows.Scan(&component, &trial, &ttf))
		components = append(components, component)
		ttfs = append(ttfs, ttf)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []string{"chip", "chip", "core0"}, components)
	assert.Equal(t, []float64{10, 20, 10}, ttfs)
}
