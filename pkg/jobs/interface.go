// Package jobs tracks generation jobs through their lifecycle.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status represents job status
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusPublishing Status = "publishing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// TypeBlogPost is the job type of an article generation.
const TypeBlogPost = "blog_post"

var (
	// ErrInvalidTransition is returned for a status change the lifecycle
	// does not allow.
	ErrInvalidTransition = errors.New("invalid job transition")
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("job not found")
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusGenerating, StatusFailed},
	StatusGenerating: {StatusPublishing, StatusCompleted, StatusFailed},
	StatusPublishing: {StatusCompleted, StatusFailed},
}

// Terminal reports whether s is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job represents one generation request.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AccountID   string          `json:"accountId,omitempty"`
	Status      Status          `json:"status"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Filter narrows List.
type Filter struct {
	AccountID string
	Status    Status
	Limit     int
}

// Manager defines the interface for job management operations.
type Manager interface {
	// Create stores a new pending job. input is marshalled to JSON.
	Create(ctx context.Context, jobType, accountID string, input any) (*Job, error)

	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns jobs, newest first.
	List(ctx context.Context, f Filter) ([]*Job, error)

	// Transition moves a job to status. A non-nil output replaces the
	// stored output and a non-nil cause is recorded as the job error.
	Transition(ctx context.Context, id string, to Status, output any, cause error) (*Job, error)
}

// apply validates and performs a transition on j in place.
func apply(j *Job, to Status, output any, cause error, at time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	if output != nil {
		raw, err := json.Marshal(output)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		j.Output = raw
	}
	if cause != nil {
		j.Error = cause.Error()
	}
	j.Status = to
	if to == StatusGenerating && j.StartedAt == nil {
		t := at
		j.StartedAt = &t
	}
	if to.Terminal() {
		t := at
		j.CompletedAt = &t
	}
	return nil
}

func marshalInput(input any) (json.RawMessage, error) {
	if input == nil {
		return nil, nil
	}
	if raw, ok := input.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}
	return raw, nil
}

func cloneJob(j *Job) *Job {
	cp := *j
	cp.Input = append(json.RawMessage(nil), j.Input...)
	cp.Output = append(json.RawMessage(nil), j.Output...)
	return &cp
}
