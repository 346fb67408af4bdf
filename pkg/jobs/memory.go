package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryManager keeps jobs in process memory.
type MemoryManager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

var _ Manager = (*MemoryManager)(nil)

// NewMemoryManager creates an empty manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{jobs: make(map[string]*Job)}
}

// Create creates a new job
func (m *MemoryManager) Create(_ context.Context, jobType, accountID string, input any) (*Job, error) {
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
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return cloneJob(job), nil
}

// Get retrieves a job by ID
func (m *MemoryManager) Get(_ context.Context, id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneJob(job), nil
}

// List returns matching jobs, newest first
func (m *MemoryManager) List(_ context.Context, f Filter) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if f.AccountID != "" && job.AccountID != f.AccountID {
			continue
		}
		if f.Status != "" && job.Status != f.Status {
			continue
		}
		jobs = append(jobs, cloneJob(job))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if f.Limit > 0 && len(jobs) > f.Limit {
		jobs = jobs[:f.Limit]
	}
	return jobs, nil
}

// Transition updates a job's status, output and error
func (m *MemoryManager) Transition(_ context.Context, id string, to Status, output any, cause error) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := cloneJob(job)
	if err := apply(next, to, output, cause, time.Now()); err != nil {
		return nil, err
	}
	m.jobs[id] = next
	return cloneJob(next), nil
}

// CleanupOldJobs removes finished jobs older than the given age.
func (m *MemoryManager) CleanupOldJobs(olderThan time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, job := range m.jobs {
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
