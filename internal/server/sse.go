package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/takehome/internal/models"
)

// heartbeatInterval keeps idle proxies from closing the stream.
const heartbeatInterval = 15 * time.Second

// logEvent carries one new log line.
type logEvent struct {
	Index int    `json:"index"`
	Line  string `json:"line"`
}

// statusEvent is a JobRecord without its logs.
type statusEvent struct {
	JobID       string                               `json:"job_id"`
	Status      models.JobStatus                     `json:"status"`
	Progress    string                               `json:"progress"`
	ActiveStage models.StageID                       `json:"active_stage,omitempty"`
	StageStates map[models.StageID]models.StageState `json:"stage_states"`
	IndexURL    string                               `json:"index_url,omitempty"`
	Error       string                               `json:"error,omitempty"`
	LogCount    int                                  `json:"log_count"`
}

func toStatusEvent(rec models.JobRecord) statusEvent {
	return statusEvent{
		JobID:       rec.JobID,
		Status:      rec.Status,
		Progress:    rec.Progress,
		ActiveStage: rec.ActiveStage,
		StageStates: rec.StageStates,
		IndexURL:    rec.IndexURL,
		Error:       rec.Error,
		LogCount:    len(rec.Logs),
	}
}

// sameStatus reports whether two snapshots would render the same status event.
func sameStatus(a, b statusEvent) bool {
	if a.Status != b.Status || a.Progress != b.Progress || a.ActiveStage != b.ActiveStage ||
		a.IndexURL != b.IndexURL || a.Error != b.Error || len(a.StageStates) != len(b.StageStates) {
		return false
	}
	for k, v := range a.StageStates {
		if b.StageStates[k] != v {
			return false
		}
	}
	return true
}

// handleEvents streams a job's new log lines and status changes, ending
// once the job reaches a terminal status. ?since=N skips the first N lines.
func handleEvents(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		rec, err := d.Tracker.Get(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Job not found"})
			return
		}

		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		sent := 0
		if n, err := strconv.Atoi(c.Query("since")); err == nil {
			sent = max(0, min(n, len(rec.Logs)))
		}

		var last statusEvent
		first := true
		emit := func(rec models.JobRecord) {
			for ; sent < len(rec.Logs); sent++ {
				writeSSE(c.Writer, "log", logEvent{Index: sent, Line: rec.Logs[sent]})
			}
			st := toStatusEvent(rec)
			if first || !sameStatus(st, last) {
				writeSSE(c.Writer, "status", st)
				last, first = st, false
			}
			c.Writer.Flush()
		}

		emit(rec)
		if rec.Status.IsTerminal() {
			writeSSE(c.Writer, "done", map[string]string{"status": string(rec.Status)})
			c.Writer.Flush()
			return
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(d.PollInterval)
		heartbeat := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				rec, err := d.Tracker.Get(id)
				if err != nil {
					return
				}
				emit(rec)
				if rec.Status.IsTerminal() {
					writeSSE(c.Writer, "done", map[string]string{"status": string(rec.Status)})
					c.Writer.Flush()
					return
				}
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
