package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/config"
	"github.com/soypete/autopilot/pkg/database"
	"github.com/soypete/autopilot/pkg/storage"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusGenerating, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusGenerating, StatusPublishing, true},
		{StatusGenerating, StatusCompleted, true},
		{StatusGenerating, StatusFailed, true},
		{StatusGenerating, StatusGenerating, false},
		{StatusPublishing, StatusCompleted, true},
		{StatusPublishing, StatusFailed, true},
		{StatusPublishing, StatusGenerating, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusGenerating, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func managers(t *testing.T) map[string]Manager {
	db, err := database.New(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "jobs.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	store := storage.NewSQLStore(db)
	t.Cleanup(func() { store.Close() })

	return map[string]Manager{
		"memory":       NewMemoryManager(),
		"store/sqlite": NewStoreManager(store),
		"store/memory": NewStoreManager(storage.NewMemoryStore()),
	}
}

func TestManagers_Lifecycle(t *testing.T) {
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			job, err := m.Create(ctx, TypeBlogPost, "acct-1", map[string]string{"topic": "koffie"})
			require.NoError(t, err)
			assert.Equal(t, StatusPending, job.Status)
			assert.JSONEq(t, `{"topic":"koffie"}`, string(job.Input))

			_, err = m.Transition(ctx, job.ID, StatusCompleted, nil, nil)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			job, err = m.Transition(ctx, job.ID, StatusGenerating, nil, nil)
			require.NoError(t, err)
			require.NotNil(t, job.StartedAt)
			assert.Nil(t, job.CompletedAt)

			job, err = m.Transition(ctx, job.ID, StatusPublishing, nil, nil)
			require.NoError(t, err)

			job, err = m.Transition(ctx, job.ID, StatusCompleted, map[string]bool{"success": true}, nil)
			require.NoError(t, err)
			require.NotNil(t, job.CompletedAt)

			got, err := m.Get(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, got.Status)
			assert.JSONEq(t, `{"success":true}`, string(got.Output))

			_, err = m.Transition(ctx, job.ID, StatusFailed, nil, errors.New("late"))
			assert.ErrorIs(t, err, ErrInvalidTransition)

			_, err = m.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestManagers_FailRecordsError(t *testing.T) {
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job, err := m.Create(ctx, TypeBlogPost, "acct-2", nil)
			require.NoError(t, err)

			_, err = m.Transition(ctx, job.ID, StatusGenerating, nil, nil)
			require.NoError(t, err)
			failed, err := m.Transition(ctx, job.ID, StatusFailed, nil, errors.New("writer timeout"))
			require.NoError(t, err)
			assert.Equal(t, "writer timeout", failed.Error)

			list, err := m.List(ctx, Filter{AccountID: "acct-2", Status: StatusFailed})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, job.ID, list[0].ID)
		})
	}
}

func TestMemoryManager_CleanupOldJobs(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()

	old, _ := m.Create(ctx, TypeBlogPost, "a", nil)
	_, _ = m.Transition(ctx, old.ID, StatusFailed, nil, errors.New("x"))
	running, _ := m.Create(ctx, TypeBlogPost, "a", nil)

	past := time.Now().Add(-2 * time.Hour)
	m.mu.Lock()
	m.jobs[old.ID].CompletedAt = &past
	m.mu.Unlock()

	assert.Equal(t, 1, m.CleanupOldJobs(time.Hour))
	_, err := m.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(ctx, running.ID)
	assert.NoError(t, err)
}
