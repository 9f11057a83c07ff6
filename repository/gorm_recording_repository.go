package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/NancyGarg/transcribe-ai/model"
)

// RecordingRow is the GORM model for the recordings table.
type RecordingRow struct {
	ID                 string         `gorm:"primaryKey;size:64"`
	Position           int            `gorm:"not null;index"`
	Title              string         `gorm:"size:255;not null"`
	FilePath           string         `gorm:"size:1024;not null"`
	DurationMs         int64          `gorm:"not null;default:0"`
	CreatedAt          int64          `gorm:"autoCreateTime:false;not null"`
	UpdatedAt          int64          `gorm:"autoUpdateTime:false;not null"`
	Mode               string         `gorm:"size:32;not null"`
	Status             string         `gorm:"size:32;not null"`
	Transcript         string         `gorm:"type:text"`
	TranscriptSegments model.Segments `gorm:"type:json"`
	ErrorMessage       string         `gorm:"type:text"`
}

// TableName overrides the default table name.
func (RecordingRow) TableName() string {
	return "recordings"
}

func toRow(position int, e model.RecordingEntry) RecordingRow {
	return RecordingRow{
		ID:                 e.ID,
		Position:           position,
		Title:              e.Title,
		FilePath:           e.FilePath,
		DurationMs:         e.DurationMs,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
		Mode:               string(e.Mode),
		Status:             string(e.Status),
		Transcript:         e.Transcript,
		TranscriptSegments: e.TranscriptSegments,
		ErrorMessage:       e.ErrorMessage,
	}
}

func (r RecordingRow) entry() model.RecordingEntry {
	return model.RecordingEntry{
		ID:                 r.ID,
		Title:              r.Title,
		FilePath:           r.FilePath,
		DurationMs:         r.DurationMs,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		Mode:               model.RecordingMode(r.Mode),
		Status:             model.RecordingStatus(r.Status),
		Transcript:         r.Transcript,
		TranscriptSegments: r.TranscriptSegments,
		ErrorMessage:       r.ErrorMessage,
	}
}

// GormRecordingRepository stores recordings through GORM (MySQL).
type GormRecordingRepository struct {
	db *gorm.DB
}

// NewGormRecordingRepository creates a repository. The caller migrates
// RecordingRow, e.g. through db.ConnectGorm.
func NewGormRecordingRepository(db *gorm.DB) *GormRecordingRepository {
	return &GormRecordingRepository{db: db}
}

// Load returns every recording in library order.
func (r *GormRecordingRepository) Load(ctx context.Context) ([]model.RecordingEntry, error) {
	var rows []RecordingRow
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	entries := make([]model.RecordingEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.entry()
	}
	return entries, nil
}

// SaveAll replaces the table contents in one transaction.
func (r *GormRecordingRepository) SaveAll(ctx context.Context, entries []model.RecordingEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&RecordingRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear recordings: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		rows := make([]RecordingRow, len(entries))
		for i, e := range entries {
			rows[i] = toRow(i, e)
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("failed to insert recordings: %w", err)
		}
		return nil
	})
}

// DeleteOne removes one recording. Deleting a missing id is not an error.
func (r *GormRecordingRepository) DeleteOne(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&RecordingRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete recording %s: %w", id, err)
	}
	return nil
}

// ClearAll removes every recording.
func (r *GormRecordingRepository) ClearAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&RecordingRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear recordings: %w", err)
	}
	return nil
}

// Get retrieves one recording by id.
func (r *GormRecordingRepository) Get(ctx context.Context, id string) (*model.RecordingEntry, error) {
	var row RecordingRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recording %s: %w", id, err)
	}
	e := row.entry()
	return &e, nil
}
