package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"momo/internal/model"
)

const (
	queryUpsertJob = `INSERT INTO jobs (
			name, interval_raw, interval_ms, concurrency, max_running, running,
			immediate, handler_name, payload, last_started, last_finished, last_outcome, last_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (name) DO UPDATE SET
			interval_raw = EXCLUDED.interval_raw,
			interval_ms = EXCLUDED.interval_ms,
			concurrency = EXCLUDED.concurrency,
			max_running = EXCLUDED.max_running,
			immediate = EXCLUDED.immediate,
			handler_name = EXCLUDED.handler_name,
			payload = EXCLUDED.payload`

	queryFindJob = `SELECT name, interval_raw, interval_ms, concurrency, max_running, running,
			immediate, handler_name, payload, last_started, last_finished, last_outcome, last_error
		FROM jobs WHERE name = $1`

	queryListJobs = `SELECT name, interval_raw, interval_ms, concurrency, max_running, running,
			immediate, handler_name, payload, last_started, last_finished, last_outcome, last_error
		FROM jobs ORDER BY name`

	queryDeleteJob = `DELETE FROM jobs WHERE name = $1`

	queryIncrementRunning = `UPDATE jobs SET running = running + 1 WHERE name = $1 RETURNING running`

	queryDecrementRunning = `UPDATE jobs SET running = GREATEST(running - 1, 0) WHERE name = $1`

	queryUpdateExecutionInfo = `UPDATE jobs SET last_started = $2, last_finished = $3, last_outcome = $4, last_error = $5 WHERE name = $1`

	schemaJobs = `CREATE TABLE IF NOT EXISTS jobs (
		name text PRIMARY KEY,
		interval_raw text NOT NULL,
		interval_ms bigint NOT NULL,
		concurrency integer NOT NULL,
		max_running integer NOT NULL,
		running integer NOT NULL DEFAULT 0,
		immediate boolean NOT NULL DEFAULT false,
		handler_name text NOT NULL,
		payload jsonb,
		last_started timestamptz,
		last_finished timestamptz,
		last_outcome text,
		last_error text
	)`
)

// PostgresStore is the Job Store's durable implementation. Job.Payload
// (the handler-opaque metadata) is kept as JSONB — the closest
// idiomatic stand-in, among the libraries this pack actually imports,
// for the "document store" the original design assumes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, schemaJobs); err != nil {
		return nil, fmt.Errorf("failed ensuring jobs schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, job model.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed marshaling payload for job %q: %w", job.Name, err)
	}

	_, err = s.pool.Exec(ctx, queryUpsertJob,
		job.Name,
		job.IntervalRaw,
		job.IntervalMS,
		job.Concurrency,
		job.MaxRunning,
		job.Running,
		job.Immediate,
		job.HandlerName,
		payload,
		job.ExecutionInfo.LastStarted,
		job.ExecutionInfo.LastFinished,
		nullableString(string(job.ExecutionInfo.LastOutcome)),
		nullableString(job.ExecutionInfo.LastError),
	)
	if err != nil {
		return fmt.Errorf("failed saving job %q: %w", job.Name, err)
	}
	return nil
}

func (s *PostgresStore) FindOne(ctx context.Context, name string) (model.Job, error) {
	row := s.pool.QueryRow(ctx, queryFindJob, name)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Job{}, model.ErrJobNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("failed finding job %q: %w", name, err)
	}
	return job, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, queryListJobs)
	if err != nil {
		return nil, fmt.Errorf("failed listing jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed scanning job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, queryDeleteJob, name); err != nil {
		return fmt.Errorf("failed deleting job %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) IncrementRunning(ctx context.Context, name string) (int, error) {
	var running int
	err := s.pool.QueryRow(ctx, queryIncrementRunning, name).Scan(&running)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrJobNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed incrementing running count for job %q: %w", name, err)
	}
	return running, nil
}

func (s *PostgresStore) DecrementRunning(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, queryDecrementRunning, name); err != nil {
		return fmt.Errorf("failed decrementing running count for job %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) UpdateExecutionInfo(ctx context.Context, name string, info model.ExecutionInfo) error {
	_, err := s.pool.Exec(ctx, queryUpdateExecutionInfo,
		name, info.LastStarted, info.LastFinished, nullableString(string(info.LastOutcome)), nullableString(info.LastError))
	if err != nil {
		return fmt.Errorf("failed updating execution info for job %q: %w", name, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (model.Job, error) {
	var (
		job          model.Job
		payload      []byte
		lastStarted  *time.Time
		lastFinished *time.Time
		lastOutcome  *string
		lastError    *string
	)

	err := row.Scan(
		&job.Name,
		&job.IntervalRaw,
		&job.IntervalMS,
		&job.Concurrency,
		&job.MaxRunning,
		&job.Running,
		&job.Immediate,
		&job.HandlerName,
		&payload,
		&lastStarted,
		&lastFinished,
		&lastOutcome,
		&lastError,
	)
	if err != nil {
		return model.Job{}, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return model.Job{}, fmt.Errorf("failed unmarshaling payload: %w", err)
		}
	}

	job.ExecutionInfo = model.ExecutionInfo{
		LastStarted:  lastStarted,
		LastFinished: lastFinished,
	}
	if lastOutcome != nil {
		job.ExecutionInfo.LastOutcome = model.Outcome(*lastOutcome)
	}
	if lastError != nil {
		job.ExecutionInfo.LastError = *lastError
	}

	return job, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
