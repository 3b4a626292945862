package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	schemaExecutions = `CREATE TABLE IF NOT EXISTS executions (
		schedule_id text PRIMARY KEY,
		name text NOT NULL,
		last_alive timestamptz NOT NULL,
		executions jsonb NOT NULL DEFAULT '{}'::jsonb
	)`

	queryAddSchedule = `INSERT INTO executions (schedule_id, name, last_alive, executions)
		VALUES ($1, $2, $3, '{}'::jsonb)
		ON CONFLICT (schedule_id) DO UPDATE SET name = EXCLUDED.name, last_alive = EXCLUDED.last_alive`

	queryLiveEntries = `SELECT schedule_id, last_alive FROM executions WHERE name = $1 AND last_alive > $2`

	queryPing = `UPDATE executions SET last_alive = $2 WHERE schedule_id = $1`

	queryDeleteOne = `DELETE FROM executions WHERE schedule_id = $1`

	queryDeleteDead = `DELETE FROM executions WHERE name = $1 AND last_alive < $2`

	queryCountRunning = `SELECT COALESCE(SUM((executions->$1)::int), 0) FROM executions WHERE executions ? $1`

	queryGetExecutions = `SELECT executions FROM executions WHERE schedule_id = $1 FOR UPDATE`

	queryPutExecutions = `UPDATE executions SET executions = $2 WHERE schedule_id = $1`
)

// PostgresLedger is the Executions Ledger's durable implementation,
// grounded on the teacher's executions_repository: a single table
// keyed by the schedule instance's identifier.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(ctx context.Context, pool *pgxpool.Pool) (*PostgresLedger, error) {
	if _, err := pool.Exec(ctx, schemaExecutions); err != nil {
		return nil, fmt.Errorf("failed ensuring executions schema: %w", err)
	}
	return &PostgresLedger{pool: pool}, nil
}

func (l *PostgresLedger) AddSchedule(ctx context.Context, scheduleID, name string) error {
	_, err := l.pool.Exec(ctx, queryAddSchedule, scheduleID, name, time.Now())
	if err != nil {
		return fmt.Errorf("failed adding schedule %q: %w", scheduleID, err)
	}
	return nil
}

func (l *PostgresLedger) IsActiveSchedule(ctx context.Context, scheduleID, name string, pingIntervalMS int64) (bool, error) {
	threshold := time.Now().Add(-2 * time.Duration(pingIntervalMS) * time.Millisecond)

	rows, err := l.pool.Query(ctx, queryLiveEntries, name, threshold)
	if err != nil {
		return false, fmt.Errorf("failed reading live schedule entries for %q: %w", name, err)
	}
	defer rows.Close()

	type candidate struct {
		id        string
		lastAlive time.Time
	}
	var live []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.lastAlive); err != nil {
			return false, fmt.Errorf("failed scanning schedule entry: %w", err)
		}
		live = append(live, c)
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	if len(live) == 0 {
		if err := l.AddSchedule(ctx, scheduleID, name); err != nil {
			return false, err
		}
		return true, nil
	}

	sort.Slice(live, func(i, j int) bool {
		if !live[i].lastAlive.Equal(live[j].lastAlive) {
			return live[i].lastAlive.Before(live[j].lastAlive)
		}
		return live[i].id < live[j].id
	})

	return live[0].id == scheduleID, nil
}

func (l *PostgresLedger) Ping(ctx context.Context, scheduleID string) error {
	tag, err := l.pool.Exec(ctx, queryPing, scheduleID, time.Now())
	if err != nil {
		return fmt.Errorf("failed pinging schedule %q: %w", scheduleID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotRegistered
	}
	return nil
}

func (l *PostgresLedger) DeleteOne(ctx context.Context, scheduleID string) error {
	if _, err := l.pool.Exec(ctx, queryDeleteOne, scheduleID); err != nil {
		return fmt.Errorf("failed deleting schedule %q: %w", scheduleID, err)
	}
	return nil
}

func (l *PostgresLedger) DeleteDead(ctx context.Context, name string, olderThanMS int64) (int, error) {
	threshold := time.Now().Add(-time.Duration(olderThanMS) * time.Millisecond)
	tag, err := l.pool.Exec(ctx, queryDeleteDead, name, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed deleting dead schedules named %q: %w", name, err)
	}
	return int(tag.RowsAffected()), nil
}

func (l *PostgresLedger) CountRunning(ctx context.Context, jobName string) (int, error) {
	var total int
	if err := l.pool.QueryRow(ctx, queryCountRunning, jobName).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed counting running executions for job %q: %w", jobName, err)
	}
	return total, nil
}

func (l *PostgresLedger) IncrementExecution(ctx context.Context, scheduleID, jobName string) error {
	return l.mutateExecutions(ctx, scheduleID, jobName, 1)
}

func (l *PostgresLedger) DecrementExecution(ctx context.Context, scheduleID, jobName string) error {
	return l.mutateExecutions(ctx, scheduleID, jobName, -1)
}

func (l *PostgresLedger) mutateExecutions(ctx context.Context, scheduleID, jobName string, delta int) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, queryGetExecutions, scheduleID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrScheduleNotRegistered
	}
	if err != nil {
		return fmt.Errorf("failed reading executions for schedule %q: %w", scheduleID, err)
	}

	counts := make(map[string]int)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &counts); err != nil {
			return fmt.Errorf("failed unmarshaling executions: %w", err)
		}
	}
	counts[jobName] += delta
	if counts[jobName] < 0 {
		counts[jobName] = 0
	}

	updated, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed marshaling executions: %w", err)
	}

	if _, err := tx.Exec(ctx, queryPutExecutions, scheduleID, updated); err != nil {
		return fmt.Errorf("failed writing executions for schedule %q: %w", scheduleID, err)
	}

	return tx.Commit(ctx)
}
