package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

// ErrNotFound is returned by lookups that require an existing record.
var ErrNotFound = errors.New("record not found")

// RecordingRepository persists the recording library as a whole collection.
type RecordingRepository interface {
	Load(ctx context.Context) ([]model.RecordingEntry, error)
	SaveAll(ctx context.Context, entries []model.RecordingEntry) error
	DeleteOne(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	// Get returns nil, nil when id is not stored.
	Get(ctx context.Context, id string) (*model.RecordingEntry, error)
}

// SQLRecordingRepository stores recordings in a database/sql table.
type SQLRecordingRepository struct {
	DB *sql.DB
}

// NewSQLRecordingRepository creates a repository over an open database that
// already has the recordings table.
func NewSQLRecordingRepository(db *sql.DB) *SQLRecordingRepository {
	return &SQLRecordingRepository{DB: db}
}

const recordingColumns = `id, title, file_path, duration_ms, created_at, updated_at, mode, status, transcript, transcript_segments, error_message`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecording(row rowScanner) (*model.RecordingEntry, error) {
	var (
		e          model.RecordingEntry
		mode       string
		status     string
		transcript sql.NullString
		errMsg     sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Title, &e.FilePath, &e.DurationMs, &e.CreatedAt, &e.UpdatedAt,
		&mode, &status, &transcript, &e.TranscriptSegments, &errMsg); err != nil {
		return nil, err
	}
	e.Mode = model.RecordingMode(mode)
	e.Status = model.RecordingStatus(status)
	e.Transcript = transcript.String
	e.ErrorMessage = errMsg.String
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Load returns every recording in library order.
func (r *SQLRecordingRepository) Load(ctx context.Context) ([]model.RecordingEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer rows.Close()

	entries := []model.RecordingEntry{}
	for rows.Next() {
		e, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recordings: %w", err)
	}
	return entries, nil
}

// SaveAll replaces the table contents with entries in one transaction.
func (r *SQLRecordingRepository) SaveAll(ctx context.Context, entries []model.RecordingEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Warn("Rollback failed", logger.ErrorField(err))
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recordings`); err != nil {
		return fmt.Errorf("failed to clear recordings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO recordings (position, `+recordingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.ID, e.Title, e.FilePath, e.DurationMs, e.CreatedAt, e.UpdatedAt,
			string(e.Mode), string(e.Status), nullString(e.Transcript), e.TranscriptSegments, nullString(e.ErrorMessage)); err != nil {
			return fmt.Errorf("failed to insert recording %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recordings: %w", err)
	}
	return nil
}

// DeleteOne removes one recording. Deleting a missing id is not an error.
func (r *SQLRecordingRepository) DeleteOne(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recording %s: %w", id, err)
	}
	return nil
}

// ClearAll removes every recording.
func (r *SQLRecordingRepository) ClearAll(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM recordings`); err != nil {
		return fmt.Errorf("failed to clear recordings: %w", err)
	}
	return nil
}

// Get retrieves one recording by id.
func (r *SQLRecordingRepository) Get(ctx context.Context, id string) (*model.RecordingEntry, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	e, err := scanRecording(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recording %s: %w", id, err)
	}
	return e, nil
}
