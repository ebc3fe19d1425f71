// Package pipeline runs a job's ordered stages and reports their progress
// through the job tracker.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/zulandar/takehome/internal/models"
)

// Policy decides what a stage failure does to the job.
type Policy int

const (
	// Fatal stage failures abort the job.
	Fatal Policy = iota
	// Tolerated stage failures are logged and the pipeline continues.
	Tolerated
)

func (p Policy) String() string {
	if p == Tolerated {
		return "tolerated"
	}
	return "fatal"
}

// Stage is one unit of work in the pipeline.
type Stage struct {
	ID       models.StageID
	Name     string
	Icon     string
	Role     string
	Progress string // progress text while the stage is active
	Policy   Policy

	// Requires lists artifacts, relative to the job directory, that must
	// exist before the stage runs.
	Requires []string

	// Validate, when set, checks the stage's configuration before any stage
	// of the job runs.
	Validate func() error

	Run func(ctx context.Context, job *Job) error
}

// Descriptor is the client-facing description of a stage.
type Descriptor struct {
	ID       models.StageID `json:"id"`
	Name     string         `json:"name"`
	Icon     string         `json:"icon"`
	Role     string         `json:"role"`
	Optional bool           `json:"optional"`
}

// Describe returns the stage's descriptor.
func (s Stage) Describe() Descriptor {
	return Descriptor{ID: s.ID, Name: s.Name, Icon: s.Icon, Role: s.Role, Optional: s.Policy == Tolerated}
}

// Job is what a stage sees of the job it runs for. Out is the job's log
// sink: everything written to it is sanitized into the job's log lines.
type Job struct {
	ID      string
	Request models.JobRequest
	Layout  Layout
	Out     io.Writer
	Logger  zerolog.Logger
}

// Printf writes one line to the job log.
func (j *Job) Printf(format string, args ...any) {
	fmt.Fprintf(j.Out, format+"\n", args...)
}

// runStage calls st.Run, converting a panic into an error.
func runStage(ctx context.Context, st Stage, job *Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s panicked: %v", st.Name, p)
		}
	}()
	return st.Run(ctx, job)
}
