// Package archive keeps a history of finished jobs in a SQL database.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zulandar/takehome/internal/models"
	"gorm.io/gorm"
)

// DefaultLimit is the page size used when callers pass a non-positive limit.
const DefaultLimit = 50

// MaxLimit caps a single history page.
const MaxLimit = 500

// ErrNotFound is returned by Get for unknown job ids.
var ErrNotFound = errors.New("archive: job not found")

// Store reads and writes JobArchive rows.
type Store struct {
	db *gorm.DB
}

// New wraps an opened and migrated database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FromRecord converts a job record to its archive row.
func FromRecord(rec models.JobRecord) (models.JobArchive, error) {
	states, err := json.Marshal(rec.StageStates)
	if err != nil {
		return models.JobArchive{}, fmt.Errorf("archive: marshal stage states: %w", err)
	}
	row := models.JobArchive{
		JobID:       rec.JobID,
		Status:      string(rec.Status),
		JobRole:     rec.JobRole,
		JobLevel:    rec.JobLevel,
		Language:    rec.Language,
		OutputDir:   rec.OutputDir,
		IndexURL:    rec.IndexURL,
		Error:       rec.Error,
		StageStates: string(states),
		LogCount:    len(rec.Logs),
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt(),
	}
	if n := len(rec.Logs); n > 0 {
		row.LastLog = rec.Logs[n-1]
	}
	return row, nil
}

// Save inserts or replaces the row for rec.
func (s *Store) Save(ctx context.Context, rec models.JobRecord) error {
	row, err := FromRecord(rec)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("archive: save %s: %w", rec.JobID, err)
	}
	return nil
}

// Get returns the row for jobID.
func (s *Store) Get(ctx context.Context, jobID string) (models.JobArchive, error) {
	var row models.JobArchive
	err := s.db.WithContext(ctx).First(&row, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return row, fmt.Errorf("archive: get %s: %w", jobID, err)
	}
	return row, nil
}

// Filter narrows Recent.
type Filter struct {
	Status string
	Limit  int
}

// Recent returns finished jobs, newest first.
func (s *Store) Recent(ctx context.Context, f Filter) ([]models.JobArchive, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	q := s.db.WithContext(ctx).Order("started_at DESC, job_id DESC").Limit(limit)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var rows []models.JobArchive
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	return rows, nil
}

// Counts returns the number of archived jobs per status.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	type row struct {
		Status string
		Count  int
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&models.JobArchive{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("archive: counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
