package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zulandar/takehome/internal/jobs"
	"github.com/zulandar/takehome/internal/logcapture"
	"github.com/zulandar/takehome/internal/metrics"
	"github.com/zulandar/takehome/internal/models"
)

// ErrInvalidRequest is returned by Create when role or level is missing.
var ErrInvalidRequest = errors.New("job role and level are required")

const finishTimeout = 15 * time.Second

// Archiver persists finished jobs.
type Archiver interface {
	Save(ctx context.Context, rec models.JobRecord) error
}

// Notifier announces finished jobs.
type Notifier interface {
	Notify(ctx context.Context, rec models.JobRecord) error
}

// RunnerOpts configures a Runner.
type RunnerOpts struct {
	Tracker    *jobs.Tracker
	Stages     []Stage
	OutputRoot string
	Logger     zerolog.Logger

	// DefaultLanguage fills requests without a language.
	DefaultLanguage string

	// MaxConcurrent bounds executing pipelines. 0 runs every job on its own
	// goroutine immediately.
	MaxConcurrent int

	Archive  Archiver // optional
	Notifier Notifier // optional

	// Echo, when set, receives a copy of every job log line.
	Echo io.Writer

	// OnStage, when set, is called after every stage state change.
	OnStage func(jobID string, stage Stage, state models.StageState)
}

// Runner executes jobs against a fixed stage list.
type Runner struct {
	tracker     *jobs.Tracker
	stages      []Stage
	outputRoot  string
	logger      zerolog.Logger
	defaultLang string
	archive     Archiver
	notifier    Notifier
	echo        io.Writer
	onStage     func(string, Stage, models.StageState)
	sem         chan struct{}
	now         func() time.Time
	wg          sync.WaitGroup
}

// NewRunner validates opts and returns a Runner.
func NewRunner(opts RunnerOpts) (*Runner, error) {
	if opts.Tracker == nil {
		return nil, fmt.Errorf("pipeline: tracker is required")
	}
	if len(opts.Stages) == 0 {
		return nil, fmt.Errorf("pipeline: at least one stage is required")
	}
	seen := make(map[models.StageID]bool)
	for i, st := range opts.Stages {
		if st.ID == "" {
			return nil, fmt.Errorf("pipeline: stages[%d] has no id", i)
		}
		if seen[st.ID] {
			return nil, fmt.Errorf("pipeline: duplicate stage id %q", st.ID)
		}
		if st.Run == nil {
			return nil, fmt.Errorf("pipeline: stage %q has no run function", st.ID)
		}
		seen[st.ID] = true
	}
	if opts.OutputRoot == "" {
		opts.OutputRoot = "output"
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "Korean"
	}

	r := &Runner{
		tracker:     opts.Tracker,
		stages:      append([]Stage(nil), opts.Stages...),
		outputRoot:  opts.OutputRoot,
		logger:      opts.Logger,
		defaultLang: opts.DefaultLanguage,
		archive:     opts.Archive,
		notifier:    opts.Notifier,
		echo:        opts.Echo,
		onStage:     opts.OnStage,
		now:         time.Now,
	}
	if opts.MaxConcurrent > 0 {
		r.sem = make(chan struct{}, opts.MaxConcurrent)
	}
	return r, nil
}

// StageIDs returns the stage ids in execution order.
func StageIDs(stages []Stage) []models.StageID {
	ids := make([]models.StageID, len(stages))
	for i, st := range stages {
		ids[i] = st.ID
	}
	return ids
}

// Descriptors returns the client-facing stage list in execution order.
func (r *Runner) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.stages))
	for i, st := range r.stages {
		out[i] = st.Describe()
	}
	return out
}

// StageCount returns the number of stages.
func (r *Runner) StageCount() int {
	return len(r.stages)
}

// OutputRoot returns the directory under which job directories are created.
func (r *Runner) OutputRoot() string {
	return r.outputRoot
}

// Create normalizes req and registers a new job without running it.
func (r *Runner) Create(req models.JobRequest) (string, error) {
	req.JobRole = strings.TrimSpace(req.JobRole)
	req.JobLevel = strings.TrimSpace(req.JobLevel)
	req.Language = strings.TrimSpace(req.Language)
	if req.JobRole == "" || req.JobLevel == "" {
		return "", ErrInvalidRequest
	}
	if req.Language == "" {
		req.Language = r.defaultLang
	}

	started := r.now()
	jobID := jobs.NewJobID(req, started)
	if _, err := r.tracker.Create(jobID, req, started); err != nil {
		return "", err
	}
	metrics.JobSubmitted()
	r.logger.Info().Str("job_id", jobID).Str("role", req.JobRole).Str("level", req.JobLevel).Msg("job accepted")
	return jobID, nil
}

// Submit creates a job and starts it on its own goroutine. It returns as
// soon as the job is registered.
func (r *Runner) Submit(ctx context.Context, req models.JobRequest) (string, error) {
	jobID, err := r.Create(req)
	if err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.sem != nil {
			r.tracker.Update(jobID, func(rec *models.JobRecord) {
				rec.Progress = "Waiting for a free worker slot..."
			})
			select {
			case r.sem <- struct{}{}:
				defer func() { <-r.sem }()
			case <-ctx.Done():
				r.abandon(ctx, jobID, ctx.Err())
				return
			}
		}
		r.Run(ctx, jobID)
	}()
	return jobID, nil
}

// Wait blocks until every job started by Submit has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Run executes the pipeline for a created job and finalizes its record.
// It returns the error that failed the job, or nil when it completed.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	rec, err := r.tracker.Get(jobID)
	if err != nil {
		return err
	}
	req := models.JobRequest{JobRole: rec.JobRole, JobLevel: rec.JobLevel, Language: rec.Language}
	logger := r.logger.With().Str("job_id", jobID).Logger()

	sink := logcapture.NewSink(func(lines ...string) {
		r.tracker.AppendLogs(jobID, lines...)
	}, r.echo)

	metrics.JobStarted()
	r.tracker.Update(jobID, func(rec *models.JobRecord) {
		rec.Status = models.StatusRunning
		rec.Progress = "Initializing agents..."
	})
	fmt.Fprintf(sink, "🚀 Generating take-home assignments for %s (%s), language: %s\n", req.JobRole, req.JobLevel, req.Language)
	logger.Info().Msg("pipeline started")

	layout, runErr := r.execute(ctx, jobID, req, rec.StartedAt, sink, logger)
	if runErr != nil {
		fmt.Fprintf(sink, "❌ Generation failed: %v\n", runErr)
	} else {
		fmt.Fprintf(sink, "🎉 All stages finished. Portal: %s\n", layout.IndexURL())
	}
	sink.Close()

	final := r.finish(jobID, layout, runErr)
	if runErr != nil {
		logger.Error().Err(runErr).Msg("pipeline failed")
	} else {
		logger.Info().Str("index_url", final.IndexURL).Msg("pipeline completed")
	}
	r.afterFinish(ctx, final, logger)
	return runErr
}

// execute runs the configuration check and every stage in order.
func (r *Runner) execute(ctx context.Context, jobID string, req models.JobRequest, started time.Time, out io.Writer, logger zerolog.Logger) (Layout, error) {
	for _, st := range r.stages {
		if st.Validate == nil {
			continue
		}
		if err := st.Validate(); err != nil {
			return Layout{}, fmt.Errorf("configuration error: %w", err)
		}
	}

	layout := NewLayout(r.outputRoot, jobID, req, started)
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return Layout{}, fmt.Errorf("create output root: %w", err)
	}
	if err := os.Mkdir(layout.Dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return Layout{}, fmt.Errorf("output directory %s already exists", layout.Dir)
		}
		return Layout{}, fmt.Errorf("create output directory: %w", err)
	}
	r.tracker.Update(jobID, func(rec *models.JobRecord) {
		rec.OutputDir = layout.Dir
	})
	fmt.Fprintf(out, "📁 Output directory: %s\n", layout.Dir)

	job := &Job{ID: jobID, Request: req, Layout: layout, Out: out, Logger: logger}

	for _, st := range r.stages {
		if missing := missingArtifacts(layout, st.Requires); len(missing) > 0 {
			if st.Policy == Tolerated {
				fmt.Fprintf(out, "⚠️  Skipping %s: %s not found\n", st.Name, strings.Join(missing, ", "))
				logger.Warn().Str("stage", string(st.ID)).Strs("missing", missing).Msg("stage skipped")
				metrics.StageSkipped(string(st.ID))
				continue
			}
			err := fmt.Errorf("%s cannot run: %s not found", st.Name, strings.Join(missing, ", "))
			r.setStage(jobID, st, models.StageError)
			return layout, err
		}

		r.tracker.Update(jobID, func(rec *models.JobRecord) {
			rec.ActiveStage = st.ID
			rec.StageStates[st.ID] = models.StageActive
			rec.Progress = st.Progress
		})
		r.notifyStage(jobID, st, models.StageActive)
		fmt.Fprintf(out, "%s %s: %s\n", st.Icon, st.Name, st.Progress)

		start := time.Now()
		err := runStage(ctx, st, job)
		elapsed := time.Since(start)

		if err == nil {
			metrics.ObserveStage(string(st.ID), "done", elapsed)
			r.setStage(jobID, st, models.StageDone)
			fmt.Fprintf(out, "✅ %s finished in %s\n", st.Name, elapsed.Round(time.Millisecond))
			continue
		}

		metrics.ObserveStage(string(st.ID), "error", elapsed)
		r.setStage(jobID, st, models.StageError)
		if st.Policy == Fatal {
			return layout, err
		}
		fmt.Fprintf(out, "⚠️  %s error: %v\n", st.Name, err)
		logger.Warn().Err(err).Str("stage", string(st.ID)).Msg("tolerated stage failed")
	}
	return layout, nil
}

func (r *Runner) setStage(jobID string, st Stage, state models.StageState) {
	r.tracker.Update(jobID, func(rec *models.JobRecord) {
		rec.StageStates[st.ID] = state
	})
	r.notifyStage(jobID, st, state)
}

func (r *Runner) notifyStage(jobID string, st Stage, state models.StageState) {
	if r.onStage != nil {
		r.onStage(jobID, st, state)
	}
}

// finish moves the job to its terminal status and returns the final record.
func (r *Runner) finish(jobID string, layout Layout, runErr error) models.JobRecord {
	now := r.now()
	r.tracker.Update(jobID, func(rec *models.JobRecord) {
		if runErr != nil {
			rec.Status = models.StatusFailed
			rec.Error = runErr.Error()
			rec.Progress = "Error: " + runErr.Error()
			rec.FailedAt = &now
			return
		}
		rec.Status = models.StatusCompleted
		rec.Progress = "Generation complete!"
		rec.IndexURL = layout.IndexURL()
		rec.CompletedAt = &now
	})
	rec, _ := r.tracker.Get(jobID)
	metrics.JobFinished(string(rec.Status))
	return rec
}

// abandon fails a job that never started executing.
func (r *Runner) abandon(ctx context.Context, jobID string, cause error) {
	now := r.now()
	msg := fmt.Sprintf("job abandoned before start: %v", cause)
	r.tracker.Update(jobID, func(rec *models.JobRecord) {
		rec.Status = models.StatusFailed
		rec.Error = msg
		rec.Progress = "Error: " + msg
		rec.FailedAt = &now
		rec.Logs = append(rec.Logs, "❌ "+msg)
	})
	rec, _ := r.tracker.Get(jobID)
	r.afterFinish(ctx, rec, r.logger.With().Str("job_id", jobID).Logger())
}

// afterFinish archives and announces a finished job. Failures are logged
// and never change the job's outcome.
func (r *Runner) afterFinish(ctx context.Context, rec models.JobRecord, logger zerolog.Logger) {
	if r.archive == nil && r.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if r.archive != nil {
		if err := r.archive.Save(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("archive job")
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("notify job finished")
		}
	}
}

// missingArtifacts returns the required paths absent from the job directory.
func missingArtifacts(layout Layout, required []string) []string {
	var missing []string
	for _, rel := range required {
		if _, err := os.Stat(layout.Path(rel)); err != nil {
			missing = append(missing, rel)
		}
	}
	return missing
}
