package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject completion events are published on.
const DefaultSubject = "jobs.complete"

// CompletionEvent is the JSON payload published for every finished job.
type CompletionEvent struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	JobRole     string    `json:"job_role"`
	JobLevel    string    `json:"job_level"`
	Language    string    `json:"language"`
	Result      string    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// publisher abstracts *nats.Conn for tests.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATS publishes a CompletionEvent per finished job.
type NATS struct {
	conn    publisher
	close   func()
	subject string
}

// NewNATS connects to url. An empty subject means DefaultSubject.
func NewNATS(url, subject string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("takehome"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: nats connect %s: %w", url, err)
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{conn: nc, close: nc.Close, subject: subject}, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) Send(ctx context.Context, evt Event) error {
	data, err := json.Marshal(completionEvent(evt))
	if err != nil {
		return fmt.Errorf("nats: marshal: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", n.subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats: flush: %w", err)
	}
	return nil
}

// Close closes the connection.
func (n *NATS) Close() {
	if n.close != nil {
		n.close()
	}
}

func completionEvent(evt Event) CompletionEvent {
	rec := evt.Record
	ce := CompletionEvent{
		JobID:       rec.JobID,
		Status:      string(rec.Status),
		JobRole:     rec.JobRole,
		JobLevel:    rec.JobLevel,
		Language:    rec.Language,
		Result:      evt.Link,
		Error:       rec.Error,
		CompletedAt: evt.Finished,
	}
	return ce
}
