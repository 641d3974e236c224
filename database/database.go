package database

import (
	"database/sql"
	"fmt"
	"time"

	"photosearch/logging"
	"photosearch/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer; batch workers share this handle
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS favorites (
		id TEXT PRIMARY KEY,
		photo TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS processed (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		routine TEXT NOT NULL,
		width INTEGER,
		height INTEGER,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_processed_routine ON processed(routine);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Columns added after the first schema
	for _, col := range []struct{ name, def string }{
		{"output", "TEXT"},
		{"success", "INTEGER NOT NULL DEFAULT 1"},
		{"error", "TEXT"},
		{"hash", "TEXT"},
	} {
		if err := addColumnIfMissing(db, "processed", col.name, col.def); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func addColumnIfMissing(db *sql.DB, table, column, definition string) error {
	var hasColumn bool
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?", table), column).Scan(&hasColumn)
	if err != nil {
		return fmt.Errorf("error checking for %s column: %w", column, err)
	}

	if hasColumn {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, column, definition))
	if err != nil {
		return fmt.Errorf("error adding %s column: %w", column, err)
	}
	logging.DebugLog("Added '%s' column to %s table", column, table)

	return nil
}

// RecordProcessed stores the outcome of processing one image
func RecordProcessed(db *sql.DB, rec types.ProcessRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().Format(time.RFC3339)
	}

	stmt, err := db.Prepare(`
		INSERT INTO processed (
			source, output, routine, width, height, hash, success, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("cannot prepare statement for %s: %w", rec.Source, err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(
		rec.Source,
		rec.Output,
		rec.Routine,
		rec.Width,
		rec.Height,
		rec.Hash,
		rec.Success,
		rec.Error,
		createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("cannot insert data for %s: %w", rec.Source, err)
	}

	return res.LastInsertId()
}

const selectProcessed = `
	SELECT id, source, COALESCE(output, ''), routine, width, height, COALESCE(hash, ''),
		success, COALESCE(error, ''), created_at
	FROM processed`

// RecentProcessed returns up to limit history records, newest first
func RecentProcessed(db *sql.DB, limit int) ([]types.ProcessRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(selectProcessed+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return scanProcessed(rows)
}

// FindByHash returns the history records whose source image had the given
// average hash, oldest first
func FindByHash(db *sql.DB, hash string) ([]types.ProcessRecord, error) {
	rows, err := db.Query(selectProcessed+" WHERE hash = ? ORDER BY id", hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query hash %s: %w", hash, err)
	}
	return scanProcessed(rows)
}

func scanProcessed(rows *sql.Rows) ([]types.ProcessRecord, error) {
	defer rows.Close()

	var records []types.ProcessRecord
	for rows.Next() {
		var rec types.ProcessRecord
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Output, &rec.Routine, &rec.Width, &rec.Height,
			&rec.Hash, &rec.Success, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to read history row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ProcessedStats contains statistics about the processing history
type ProcessedStats struct {
	TotalImages int
	ErrorCount  int
	ByRoutine   map[string]int
}

// GetProcessedStats retrieves statistics about processed images, optionally for one routine
func GetProcessedStats(db *sql.DB, routine string) (*ProcessedStats, error) {
	stats := ProcessedStats{ByRoutine: make(map[string]int)}

	var where string
	var args []interface{}
	if routine != "" {
		where = " WHERE routine = ?"
		args = append(args, routine)
	}

	err := db.QueryRow("SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) FROM processed"+where, args...).
		Scan(&stats.TotalImages, &stats.ErrorCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get total images: %w", err)
	}

	rows, err := db.Query("SELECT routine, COUNT(*) FROM processed"+where+" GROUP BY routine", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count routines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to read routine count: %w", err)
		}
		stats.ByRoutine[name] = count
	}

	return &stats, rows.Err()
}
