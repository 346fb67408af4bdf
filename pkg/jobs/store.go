package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soypete/autopilot/pkg/storage"
)

// StoreManager persists jobs through storage.JobStore.
type StoreManager struct {
	store storage.JobStore
	// serializes read-validate-write of a transition
	mu sync.Mutex
}

var _ Manager = (*StoreManager)(nil)

// NewStoreManager creates a storage-backed job manager.
func NewStoreManager(store storage.JobStore) *StoreManager {
	return &StoreManager{store: store}
}

// Create creates a new job with a UUID and stores it.
func (m *StoreManager) Create(ctx context.Context, jobType, accountID string, input any) (*Job, error) {
	raw, err := marshalInput(input)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		AccountID: accountID,
		Status:    StatusPending,
		Input:     raw,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.CreateJob(ctx, toRecord(job)); err != nil {
		return nil, fmt.Errorf("failed to create job in database: %w", err)
	}
	return job, nil
}

// Get retrieves a job by ID.
func (m *StoreManager) Get(ctx context.Context, id string) (*Job, error) {
	rec, err := m.store.GetJob(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return fromRecord(rec), nil
}

// List returns jobs from the database.
func (m *StoreManager) List(ctx context.Context, f Filter) ([]*Job, error) {
	recs, err := m.store.ListJobs(ctx, storage.JobFilter{
		AccountID: f.AccountID,
		Status:    string(f.Status),
		Limit:     f.Limit,
	})
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, len(recs))
	for i, rec := range recs {
		jobs[i] = fromRecord(rec)
	}
	return jobs, nil
}

// Transition validates and stores a status change.
func (m *StoreManager) Transition(ctx context.Context, id string, to Status, output any, cause error) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(job, to, output, cause, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := m.store.UpdateJob(ctx, toRecord(job)); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return job, nil
}

func toRecord(j *Job) *storage.JobRecord {
	return &storage.JobRecord{
		ID:          j.ID,
		Type:        j.Type,
		AccountID:   j.AccountID,
		Status:      string(j.Status),
		Input:       j.Input,
		Output:      j.Output,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

func fromRecord(r *storage.JobRecord) *Job {
	return &Job{
		ID:          r.ID,
		Type:        r.Type,
		AccountID:   r.AccountID,
		Status:      Status(r.Status),
		Input:       r.Input,
		Output:      r.Output,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}
