package models

import (
	"maps"
	"time"
)

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	StatusInitializing JobStatus = "initializing"
	StatusRunning      JobStatus = "running"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// transitions lists the statuses reachable from each status in one step.
var transitions = map[JobStatus][]JobStatus{
	StatusInitializing: {StatusRunning, StatusFailed},
	StatusRunning:      {StatusCompleted, StatusFailed},
}

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal single step.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StageState is the per-stage status shown to clients.
type StageState string

const (
	StagePending StageState = "pending"
	StageActive  StageState = "active"
	StageDone    StageState = "done"
	StageError   StageState = "error"
)

// StageID identifies a pipeline stage.
type StageID string

// JobRequest is the input of one generation job.
type JobRequest struct {
	JobRole  string `json:"job_role"`
	JobLevel string `json:"job_level"`
	Language string `json:"language"`
}

// JobRecord is the observable state of one job.
type JobRecord struct {
	JobID       string                 `json:"job_id"`
	Status      JobStatus              `json:"status"`
	Progress    string                 `json:"progress"`
	ActiveStage StageID                `json:"active_stage,omitempty"`
	StageStates map[StageID]StageState `json:"stage_states"`
	Logs        []string               `json:"logs"`
	OutputDir   string                 `json:"output_dir,omitempty"`
	IndexURL    string                 `json:"index_url,omitempty"`
	Error       string                 `json:"error,omitempty"`
	JobRole     string                 `json:"job_role"`
	JobLevel    string                 `json:"job_level"`
	Language    string                 `json:"language"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	FailedAt    *time.Time             `json:"failed_at,omitempty"`
}

// Clone returns a deep copy that shares no mutable state with r.
func (r *JobRecord) Clone() JobRecord {
	c := *r
	c.Logs = append(make([]string, 0, len(r.Logs)), r.Logs...)
	c.StageStates = maps.Clone(r.StageStates)
	if c.StageStates == nil {
		c.StageStates = map[StageID]StageState{}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.FailedAt != nil {
		t := *r.FailedAt
		c.FailedAt = &t
	}
	return c
}

// FinishedAt returns the terminal timestamp, if any.
func (r *JobRecord) FinishedAt() *time.Time {
	if r.CompletedAt != nil {
		return r.CompletedAt
	}
	return r.FailedAt
}
