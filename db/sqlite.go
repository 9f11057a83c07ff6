package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/NancyGarg/transcribe-ai/logger"
)

// RecordingsSchema creates the recordings table. position keeps library order
// (0 is the newest entry).
const RecordingsSchema = `
CREATE TABLE IF NOT EXISTS recordings (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	file_path TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	transcript TEXT,
	transcript_segments TEXT,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_recordings_position ON recordings(position);
`

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies the schema. ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive for the lifetime of the pool.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec(RecordingsSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create recordings table: %w", err)
	}

	logger.Debug("SQLite database opened", logger.String("path", path))
	return conn, nil
}
