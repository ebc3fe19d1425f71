package models

import "time"

// JobArchive is the persisted summary of a finished job.
type JobArchive struct {
	JobID       string     `gorm:"primaryKey;size:32" json:"job_id"`
	Status      string     `gorm:"size:16;index" json:"status"`
	JobRole     string     `gorm:"size:128;index" json:"job_role"`
	JobLevel    string     `gorm:"size:64" json:"job_level"`
	Language    string     `gorm:"size:32" json:"language"`
	OutputDir   string     `gorm:"size:512" json:"output_dir,omitempty"`
	IndexURL    string     `gorm:"size:512" json:"index_url,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StageStates string     `gorm:"type:text" json:"stage_states"` // JSON object
	LogCount    int        `gorm:"default:0" json:"log_count"`
	LastLog     string     `gorm:"type:text" json:"last_log,omitempty"`
	StartedAt   time.Time  `gorm:"index" json:"started_at"`
	FinishedAt  *time.Time `gorm:"index" json:"finished_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
