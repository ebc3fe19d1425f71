// Package jobs holds the process-scoped registry of generation jobs.
package jobs

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zulandar/takehome/internal/models"
)

var (
	// ErrDuplicateJob is returned by Create when the id is already registered.
	ErrDuplicateJob = errors.New("jobs: duplicate job id")
	// ErrJobNotFound is returned by Get for unknown ids.
	ErrJobNotFound = errors.New("jobs: job not found")
)

// initialProgress is the progress text of a freshly created job.
const initialProgress = "Starting background process..."

// Tracker maps job ids to their records. One writer per job and any number
// of readers may use it concurrently; a single lock guards the whole table.
type Tracker struct {
	mu     sync.RWMutex
	jobs   map[string]*models.JobRecord
	stages []models.StageID
	logger zerolog.Logger
}

// NewTracker returns an empty tracker. Every created record starts with a
// pending entry for each of the given stages.
func NewTracker(stages []models.StageID, logger zerolog.Logger) *Tracker {
	return &Tracker{
		jobs:   make(map[string]*models.JobRecord),
		stages: append([]models.StageID(nil), stages...),
		logger: logger,
	}
}

// NewJobID derives a job id from the submission time and the role/level
// pair: YYYYMMDDHHMMSS_NNNN. Identical role and level within the same second
// yield the same id; Create rejects the second one.
func NewJobID(req models.JobRequest, now time.Time) string {
	h := fnv.New32a()
	h.Write([]byte(req.JobRole + req.JobLevel))
	return fmt.Sprintf("%s_%04d", now.Format("20060102150405"), h.Sum32()%10000)
}

// Create registers a new job in the initializing state, started at
// startedAt. The record is visible to Get as soon as Create returns.
func (t *Tracker) Create(jobID string, req models.JobRequest, startedAt time.Time) (models.JobRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.jobs[jobID]; ok {
		return models.JobRecord{}, fmt.Errorf("%w: %s", ErrDuplicateJob, jobID)
	}

	states := make(map[models.StageID]models.StageState, len(t.stages))
	for _, id := range t.stages {
		states[id] = models.StagePending
	}
	rec := &models.JobRecord{
		JobID:       jobID,
		Status:      models.StatusInitializing,
		Progress:    initialProgress,
		StageStates: states,
		Logs:        []string{},
		JobRole:     req.JobRole,
		JobLevel:    req.JobLevel,
		Language:    req.Language,
		StartedAt:   startedAt,
	}
	t.jobs[jobID] = rec
	return rec.Clone(), nil
}

// Get returns a snapshot of the job's record.
func (t *Tracker) Get(jobID string) (models.JobRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.jobs[jobID]
	if !ok {
		return models.JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return rec.Clone(), nil
}

// Update applies mutate to the live record under the lock. Unknown ids are
// logged and ignored. The mutator sees a private copy of the logs, so lines
// it appends are kept while shrinking or rewriting earlier lines is
// reverted. Status only moves forward along the state machine, and
// output_dir never changes once set.
func (t *Tracker) Update(jobID string, mutate func(*models.JobRecord)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.jobs[jobID]
	if !ok {
		t.logger.Warn().Str("job_id", jobID).Msg("update for unknown job ignored")
		return false
	}

	prevStatus := rec.Status
	prevLogs := rec.Logs
	prevDir := rec.OutputDir

	rec.Logs = append(make([]string, 0, len(prevLogs)), prevLogs...)
	mutate(rec)

	if rec.Status != prevStatus && !prevStatus.CanTransition(rec.Status) {
		t.logger.Warn().Str("job_id", jobID).
			Str("from", string(prevStatus)).Str("to", string(rec.Status)).
			Msg("illegal status transition reverted")
		rec.Status = prevStatus
	}
	if !isPrefix(prevLogs, rec.Logs) {
		t.logger.Warn().Str("job_id", jobID).Msg("log rewrite reverted")
		rec.Logs = prevLogs
	}
	if prevDir != "" && rec.OutputDir != prevDir {
		rec.OutputDir = prevDir
	}
	return true
}

// AppendLogs appends lines to the job's log. Unknown ids are ignored.
func (t *Tracker) AppendLogs(jobID string, lines ...string) {
	if len(lines) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.jobs[jobID]
	if !ok {
		t.logger.Warn().Str("job_id", jobID).Msg("log lines for unknown job ignored")
		return
	}
	rec.Logs = append(rec.Logs, lines...)
}

// List returns snapshots of every job, newest first.
func (t *Tracker) List() []models.JobRecord {
	t.mu.RLock()
	out := make([]models.JobRecord, 0, len(t.jobs))
	for _, rec := range t.jobs {
		out = append(out, rec.Clone())
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].JobID > out[j].JobID
	})
	return out
}

// IDs returns the known job ids in ascending order.
func (t *Tracker) IDs() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.jobs))
	for id := range t.jobs {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// ActiveOutputDirs returns the output directories of jobs that have not
// reached a terminal status.
func (t *Tracker) ActiveOutputDirs() map[string]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	dirs := make(map[string]bool)
	for _, rec := range t.jobs {
		if rec.OutputDir != "" && !rec.Status.IsTerminal() {
			dirs[rec.OutputDir] = true
		}
	}
	return dirs
}

// isPrefix reports whether prev is an unchanged prefix of next.
func isPrefix(prev, next []string) bool {
	if len(next) < len(prev) {
		return false
	}
	for i := range prev {
		if prev[i] != next[i] {
			return false
		}
	}
	return true
}
