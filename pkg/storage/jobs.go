package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/soypete/autopilot/pkg/database"
)

const jobColumns = `id, type, account_id, status, input, output, error, created_at, started_at, completed_at`

func scanJob(row scanner) (*JobRecord, error) {
	job := &JobRecord{}
	var input, output string
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.AccountID,
		&job.Status,
		&input,
		&output,
		&job.Error,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Input = decodeRaw(input)
	job.Output = decodeRaw(output)
	job.StartedAt = database.TimePtr(startedAt)
	job.CompletedAt = database.TimePtr(completedAt)
	return job, nil
}

// CreateJob creates a new job.
func (s *SQLStore) CreateJob(ctx context.Context, job *JobRecord) error {
	job.ID = newID(job.ID)
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now()
	}
	job.CreatedAt = job.CreatedAt.UTC()

	_, err := s.exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID,
		job.Type,
		job.AccountID,
		job.Status,
		encodeRaw(job.Input, "{}"),
		encodeRaw(job.Output, ""),
		job.Error,
		job.CreatedAt,
		database.NullTime(job.StartedAt),
		database.NullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *SQLStore) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	job, err := scanJob(s.queryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "job", id)
	}
	return job, nil
}

// UpdateJob updates a job.
func (s *SQLStore) UpdateJob(ctx context.Context, job *JobRecord) error {
	res, err := s.exec(ctx, `
		UPDATE jobs SET
			status = $2,
			output = $3,
			error = $4,
			started_at = $5,
			completed_at = $6
		WHERE id = $1`,
		job.ID,
		job.Status,
		encodeRaw(job.Output, ""),
		job.Error,
		database.NullTime(job.StartedAt),
		database.NullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return mustAffect(res, "job", job.ID)
}

// ListJobs retrieves jobs with optional filtering, newest first.
func (s *SQLStore) ListJobs(ctx context.Context, f JobFilter) ([]*JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	argIdx := 1

	if f.AccountID != "" {
		query += fmt.Sprintf(" AND account_id = $%d", argIdx)
		args = append(args, f.AccountID)
		argIdx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
		if f.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIdx)
			args = append(args, f.Offset)
		}
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// staleJobAge is how long a job may sit in a running state before
// FailStaleJobs marks it failed.
const staleJobAge = 30 * time.Minute

// FailStaleJobs marks jobs that were left running by a crashed process as
// failed. It returns the number of rows changed.
func (s *SQLStore) FailStaleJobs(ctx context.Context, running []string) (int64, error) {
	var total int64
	cutoff := now().Add(-staleJobAge)
	for _, status := range running {
		res, err := s.exec(ctx, `
			UPDATE jobs SET status = 'failed', error = 'interrupted', completed_at = $1
			WHERE status = $2 AND created_at < $3`, now(), status, cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to fail stale jobs: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
