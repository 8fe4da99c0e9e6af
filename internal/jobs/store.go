// Package jobs runs large imports asynchronously on a PostgreSQL-backed
// queue. Terminal jobs are kept so clients can poll results after the fact.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/brewtrail/brewtrail/internal/db"
	"github.com/brewtrail/brewtrail/internal/model"
)

// ErrNotFound signals an unknown job id.
var ErrNotFound = eris.New("jobs: job not found")

const jobColumns = `id, user_id, file_name, payload, status, progress, result,
	error, attempts, run_after, created_at, updated_at`

// Store is the job persistence interface.
type Store interface {
	Insert(ctx context.Context, job *model.ImportJob) error
	Get(ctx context.Context, id string) (*model.ImportJob, error)
	// ClaimNext atomically moves the oldest runnable waiting job to active
	// and returns it. Returns (nil, nil) when the queue is empty.
	ClaimNext(ctx context.Context) (*model.ImportJob, error)
	UpdateProgress(ctx context.Context, id string, progress model.JobProgress) error
	Complete(ctx context.Context, id string, summary *model.ImportSummary) error
	// Retry returns a failed attempt to waiting with a delayed run_after.
	Retry(ctx context.Context, id string, reason string, runAfter time.Time) error
	// Fail marks the job terminally failed.
	Fail(ctx context.Context, id string, reason string) error
	List(ctx context.Context, limit int) ([]model.ImportJob, error)
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a job store backed by the given pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, job *model.ImportJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_jobs (id, user_id, file_name, payload, status, run_after)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.UserID, job.FileName, job.Payload, job.Status, job.RunAfter)
	return eris.Wrap(err, "jobs: insert")
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.ImportJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM import_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "jobs: get")
	}
	return job, nil
}

// ClaimNext uses SKIP LOCKED so concurrent workers never claim the same
// job. The attempt counter is bumped at claim time.
func (s *PostgresStore) ClaimNext(ctx context.Context) (*model.ImportJob, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE import_jobs
		 SET status = $1, attempts = attempts + 1, updated_at = now()
		 WHERE id = (
			SELECT id FROM import_jobs
			WHERE status = $2 AND run_after <= now()
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		model.JobStatusActive, model.JobStatusWaiting)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "jobs: claim next")
	}
	return job, nil
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, id string, progress model.JobProgress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return eris.Wrap(err, "jobs: marshal progress")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE import_jobs SET progress = $2, updated_at = now() WHERE id = $1`,
		id, raw)
	return eris.Wrap(err, "jobs: update progress")
}

func (s *PostgresStore) Complete(ctx context.Context, id string, summary *model.ImportSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "jobs: marshal result")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE import_jobs
		 SET status = $2, result = $3, error = '', updated_at = now()
		 WHERE id = $1`,
		id, model.JobStatusCompleted, raw)
	return eris.Wrap(err, "jobs: complete")
}

func (s *PostgresStore) Retry(ctx context.Context, id string, reason string, runAfter time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE import_jobs
		 SET status = $2, error = $3, run_after = $4, updated_at = now()
		 WHERE id = $1`,
		id, model.JobStatusWaiting, reason, runAfter)
	return eris.Wrap(err, "jobs: retry")
}

func (s *PostgresStore) Fail(ctx context.Context, id string, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE import_jobs
		 SET status = $2, error = $3, updated_at = now()
		 WHERE id = $1`,
		id, model.JobStatusFailed, reason)
	return eris.Wrap(err, "jobs: fail")
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]model.ImportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM import_jobs
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: list")
	}
	defer rows.Close()

	var out []model.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "jobs: scan")
		}
		out = append(out, *job)
	}
	return out, eris.Wrap(rows.Err(), "jobs: rows")
}

func scanJob(row pgx.Row) (*model.ImportJob, error) {
	var (
		job          model.ImportJob
		progressJSON []byte
		resultJSON   []byte
	)
	err := row.Scan(
		&job.ID, &job.UserID, &job.FileName, &job.Payload, &job.Status,
		&progressJSON, &resultJSON, &job.Error, &job.Attempts,
		&job.RunAfter, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(progressJSON) > 0 {
		if err := json.Unmarshal(progressJSON, &job.Progress); err != nil {
			return nil, eris.Wrap(err, "jobs: unmarshal progress")
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, eris.Wrap(err, "jobs: unmarshal result")
		}
	}
	return &job, nil
}
