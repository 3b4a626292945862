// Package ledger defines the Executions Ledger collaborator: the
// shared record of live schedule instances and the active-schedule
// election that drives takeover.
package ledger

import "context"

// ExecutionsLedger is the collaborator §6 of the design names.
// IsActiveSchedule has the side effect of claiming the name for
// scheduleID when no instance currently holds it.
type ExecutionsLedger interface {
	AddSchedule(ctx context.Context, scheduleID, name string) error
	IsActiveSchedule(ctx context.Context, scheduleID, name string, pingInterval int64) (bool, error)
	Ping(ctx context.Context, scheduleID string) error
	DeleteOne(ctx context.Context, scheduleID string) error
	DeleteDead(ctx context.Context, name string, olderThanMS int64) (int, error)
	CountRunning(ctx context.Context, jobName string) (int, error)
	IncrementExecution(ctx context.Context, scheduleID, jobName string) error
	DecrementExecution(ctx context.Context, scheduleID, jobName string) error
}
