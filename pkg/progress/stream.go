package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/soypete/autopilot/pkg/article"
)

// ErrStreamClosed is returned for events written after the terminal event.
var ErrStreamClosed = errors.New("progress stream already terminated")

// errIncomplete is reported by Close when no terminal event was written.
var errIncomplete = errors.New("stream closed before completion")

// Stream writes events as newline-delimited JSON and flushes after each one.
// Exactly one terminal event is ever written.
type Stream struct {
	mu       sync.Mutex
	w        io.Writer
	flusher  http.Flusher
	jobID    string
	last     int
	terminal bool
}

// NewStream wraps w. If w is an http.Flusher every event is flushed.
func NewStream(w io.Writer, jobID string) *Stream {
	s := &Stream{w: w, jobID: jobID}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

// SetJobID sets the job id carried by failure events.
func (s *Stream) SetJobID(id string) {
	s.mu.Lock()
	s.jobID = id
	s.mu.Unlock()
}

// Emit writes one event.
func (s *Stream) Emit(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(e)
}

func (s *Stream) write(e Event) error {
	if s.terminal {
		return ErrStreamClosed
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	data = append(data, '\n')

	if e.Terminal() {
		s.terminal = true
	} else {
		s.last = e.Progress
	}

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Complete writes the terminal success event.
func (s *Stream) Complete(res *article.Result) error {
	return s.Emit(Complete(res))
}

// Fail writes the terminal error event at the last reported progress.
func (s *Stream) Fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(Failure(s.jobID, err, s.last))
}

// Done reports whether the terminal event was written.
func (s *Stream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Close writes a failure terminal if the stream was never completed.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return nil
	}
	return s.write(Failure(s.jobID, errIncomplete, s.last))
}
