// Package notify announces finished jobs to chat platforms and message buses.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/zulandar/takehome/internal/models"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorError   = "#e53935"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// Event is the platform-neutral rendering of a finished job.
type Event struct {
	JobID    string
	Title    string
	Body     string
	Color    string
	Fields   []Field
	Link     string
	Finished time.Time

	// Record is the job the event was rendered from.
	Record models.JobRecord
}

// Field is one key/value row of an Event.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Sender delivers one event to one destination.
type Sender interface {
	Name() string
	Send(ctx context.Context, evt Event) error
}

// FormatJob renders a finished job record. baseURL prefixes the portal link.
func FormatJob(rec models.JobRecord, baseURL string) Event {
	evt := Event{
		JobID:  rec.JobID,
		Record: rec,
		Fields: []Field{
			{Name: "Role", Value: rec.JobRole, Short: true},
			{Name: "Level", Value: rec.JobLevel, Short: true},
			{Name: "Language", Value: rec.Language, Short: true},
			{Name: "Job", Value: rec.JobID, Short: true},
		},
	}
	if t := rec.FinishedAt(); t != nil {
		evt.Finished = *t
		evt.Fields = append(evt.Fields, Field{Name: "Duration", Value: t.Sub(rec.StartedAt).Round(time.Second).String(), Short: true})
	}

	if rec.Status == models.StatusCompleted {
		evt.Title = fmt.Sprintf("Take-home set ready: %s %s", rec.JobLevel, rec.JobRole)
		evt.Color = ColorSuccess
		if rec.IndexURL != "" {
			evt.Link = baseURL + rec.IndexURL
			evt.Body = evt.Link
		}
		return evt
	}

	evt.Title = fmt.Sprintf("Take-home generation failed: %s %s", rec.JobLevel, rec.JobRole)
	evt.Color = ColorError
	evt.Body = rec.Error
	return evt
}

// Multi fans a finished job out to every sender. Failures of one sender do not
// stop the others; they are logged and joined into the returned error.
type Multi struct {
	senders []Sender
	baseURL string
	log     zerolog.Logger
}

// NewMulti returns a notifier over senders. baseURL is the public address of
// the front door, used for portal links.
func NewMulti(baseURL string, log zerolog.Logger, senders ...Sender) *Multi {
	return &Multi{senders: senders, baseURL: baseURL, log: log}
}

// Len reports how many senders are configured.
func (m *Multi) Len() int { return len(m.senders) }

// Notify sends rec to all senders.
func (m *Multi) Notify(ctx context.Context, rec models.JobRecord) error {
	if !rec.Status.IsTerminal() {
		return nil
	}
	evt := FormatJob(rec, m.baseURL)
	var errs []error
	for _, s := range m.senders {
		if err := s.Send(ctx, evt); err != nil {
			m.log.Warn().Err(err).Str("job_id", rec.JobID).Str("sender", s.Name()).Msg("notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.log.Debug().Str("job_id", rec.JobID).Str("sender", s.Name()).Msg("notification sent")
	}
	return errors.Join(errs...)
}

// backoff returns the wait before retry attempt n (0-based).
func backoff(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
