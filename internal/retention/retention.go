// Package retention removes old job output directories on a cron schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow)
// plus descriptors such as "@daily".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("retention: schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Result summarizes one sweep.
type Result struct {
	Removed []string
	Kept    int
	Skipped int // directories of running jobs
}

// Sweep removes directories directly under root whose modification time is
// older than maxAge. Directories listed in active are never removed. Plain
// files are left alone. A missing root is not an error.
func Sweep(root string, maxAge time.Duration, active map[string]bool, now time.Time) (Result, error) {
	var res Result
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("retention: read %s: %w", root, err)
	}

	inUse := make(map[string]bool, len(active))
	for dir, ok := range active {
		if ok {
			inUse[filepath.Clean(dir)] = true
		}
	}

	cutoff := now.Add(-maxAge)
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if inUse[filepath.Clean(dir)] {
			res.Skipped++
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			res.Kept++
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("retention: remove %s: %w", dir, err))
			continue
		}
		res.Removed = append(res.Removed, dir)
	}
	sort.Strings(res.Removed)
	return res, errors.Join(errs...)
}

// Sweeper runs Sweep on a schedule.
type Sweeper struct {
	Root   string
	MaxAge time.Duration
	// Active returns the output directories of jobs still running.
	Active func() map[string]bool
	Logger zerolog.Logger

	now  func() time.Time
	cron *cron.Cron
}

// RunOnce sweeps immediately.
func (s *Sweeper) RunOnce() (Result, error) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	var active map[string]bool
	if s.Active != nil {
		active = s.Active()
	}
	res, err := Sweep(s.Root, s.MaxAge, active, now())
	ev := s.Logger.Info()
	if err != nil {
		ev = s.Logger.Warn().Err(err)
	}
	ev.Str("root", s.Root).
		Int("removed", len(res.Removed)).
		Int("kept", res.Kept).
		Int("skipped", res.Skipped).
		Msg("retention sweep")
	return res, err
}

// Start schedules sweeps until ctx is done.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	s.cron = cron.New(cron.WithParser(cronParser))
	s.cron.Schedule(sched, cron.FuncJob(func() { _, _ = s.RunOnce() }))
	s.cron.Start()
	s.Logger.Info().Str("schedule", schedule).Dur("max_age", s.MaxAge).Msg("retention scheduled")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
