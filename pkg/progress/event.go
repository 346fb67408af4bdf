// Package progress carries generation progress from the pipeline to
// clients: the event type, an NDJSON stream writer, a tolerant decoder and
// pub/sub buses for detached jobs.
package progress

import (
	"github.com/soypete/autopilot/pkg/article"
)

// Terminal statuses.
const (
	StatusComplete = "complete"
	StatusError    = "error"
)

// Event is one progress line. The terminal success event inlines the result.
type Event struct {
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
	Heartbeat bool   `json:"heartbeat,omitempty"`
	*article.Result
}

// Step reports a stage boundary.
func Step(stage string, progress int, status string) Event {
	return Event{Status: status, Progress: progress, Stage: stage}
}

// Heartbeat is a keepalive that repeats the current progress.
func Heartbeat(stage string, progress int, status string) Event {
	return Event{Status: status, Progress: progress, Stage: stage, Heartbeat: true}
}

// Failure is the terminal error event.
func Failure(jobID string, err error, progress int) Event {
	msg := "generation failed"
	if err != nil {
		msg = err.Error()
	}
	return Event{
		Status:   StatusError,
		Progress: progress,
		Error:    msg,
		Result:   &article.Result{Success: false, JobID: jobID},
	}
}

// Complete is the terminal success event.
func Complete(res *article.Result) Event {
	return Event{Status: StatusComplete, Progress: 100, Result: res}
}

// Terminal reports whether e ends a stream.
func (e Event) Terminal() bool {
	return e.Status == StatusComplete || e.Status == StatusError
}

// Sink receives events.
type Sink interface {
	Emit(Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Emit(e Event) error { return f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) error { return nil })

// Multi sends each event to every sink and returns the first error.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Emit(e); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
