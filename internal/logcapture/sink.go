package logcapture

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Sink is an io.Writer that collects a job's output. Complete lines are
// sanitized and handed to appendFn; a trailing partial line is held until
// more output arrives or the sink is flushed. Write never splits a line
// across two appends.
type Sink struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	appendFn func(lines ...string)
	mirror   io.Writer
}

// NewSink creates a sink delivering cleaned lines to appendFn. If mirror is
// non-nil every cleaned line is also written to it.
func NewSink(appendFn func(lines ...string), mirror io.Writer) *Sink {
	return &Sink{appendFn: appendFn, mirror: mirror}
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(p)
	data := s.buf.Bytes()
	idx := bytes.LastIndexByte(data, '\n')
	if idx < 0 {
		return len(p), nil
	}

	complete := string(data[:idx+1])
	rest := append([]byte(nil), data[idx+1:]...)
	s.buf.Reset()
	s.buf.Write(rest)

	s.emit(complete)
	return len(p), nil
}

// Flush emits any buffered partial line.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf.Len() == 0 {
		return nil
	}
	pending := s.buf.String()
	s.buf.Reset()
	s.emit(pending)
	return nil
}

// Close flushes the sink.
func (s *Sink) Close() error {
	return s.Flush()
}

// emit must be called with mu held.
func (s *Sink) emit(text string) {
	lines := Lines(text)
	if len(lines) == 0 {
		return
	}
	s.appendFn(lines...)
	if s.mirror != nil {
		io.WriteString(s.mirror, strings.Join(lines, "\n")+"\n")
	}
}
