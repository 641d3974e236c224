package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"photosearch/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitDatabaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := InitDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('processed') WHERE name = 'output'").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInitDatabaseMigratesOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	old, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE processed (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		routine TEXT NOT NULL,
		width INTEGER,
		height INTEGER,
		created_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	db, err := InitDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = RecordProcessed(db, types.ProcessRecord{Source: "a.png", Output: "out.png", Routine: "blur", Success: true})
	require.NoError(t, err)
}

func TestRecordProcessed(t *testing.T) {
	db := openTestDB(t)

	records := []types.ProcessRecord{
		{Source: "a.png", Output: "a_blur.png", Routine: "blur", Width: 10, Height: 20, Success: true},
		{Source: "b.png", Routine: "blur", Success: false, Error: "decode failed"},
		{Source: "c.png", Output: "c_edges.png", Routine: "edges", Width: 5, Height: 5, Success: true},
	}
	for _, rec := range records {
		id, err := RecordProcessed(db, rec)
		require.NoError(t, err)
		assert.Positive(t, id)
	}

	recent, err := RecentProcessed(db, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c.png", recent[0].Source)
	assert.Equal(t, "b.png", recent[1].Source)
	assert.False(t, recent[1].Success)
	assert.Equal(t, "decode failed", recent[1].Error)
	assert.NotEmpty(t, recent[0].CreatedAt)

	stats, err := GetProcessedStats(db, "")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, map[string]int{"blur": 2, "edges": 1}, stats.ByRoutine)

	stats, err = GetProcessedStats(db, "blur")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalImages)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, map[string]int{"blur": 2}, stats.ByRoutine)
}

func TestStatsEmpty(t *testing.T) {
	db := openTestDB(t)

	stats, err := GetProcessedStats(db, "")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalImages)
	assert.Zero(t, stats.ErrorCount)
	assert.Empty(t, stats.ByRoutine)
}

func TestFindByHash(t *testing.T) {
	db := openTestDB(t)

	for _, rec := range []types.ProcessRecord{
		{Source: "a.png", Routine: "blur", Hash: "0f0f0f0f0f0f0f0f", Success: true},
		{Source: "b.png", Routine: "blur", Hash: "ffffffffffffffff", Success: true},
		{Source: "copy-of-a.png", Routine: "edges", Hash: "0f0f0f0f0f0f0f0f", Success: true},
	} {
		_, err := RecordProcessed(db, rec)
		require.NoError(t, err)
	}

	matches, err := FindByHash(db, "0f0f0f0f0f0f0f0f")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a.png", matches[0].Source)
	assert.Equal(t, "copy-of-a.png", matches[1].Source)

	matches, err = FindByHash(db, "0000000000000000")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
