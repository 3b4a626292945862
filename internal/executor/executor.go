// Package executor runs a single invocation of a job's handler and
// accounts for it in the Job Store and Executions Ledger, per the Job
// Executor's protocol: increment-then-call-then-always-decrement.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"momo/internal/eventbus"
	"momo/internal/ledger"
	"momo/internal/model"
	"momo/internal/store"
)

const maxCapturedErrorLength = 2000

// Executor runs handler invocations for one schedule instance.
type Executor struct {
	store      store.JobStore
	ledger     ledger.ExecutionsLedger
	events     eventbus.Publisher
	scheduleID string
	log        *zap.Logger
}

func New(jobStore store.JobStore, executionsLedger ledger.ExecutionsLedger, events eventbus.Publisher, scheduleID string, log *zap.Logger) *Executor {
	return &Executor{store: jobStore, ledger: executionsLedger, events: events, scheduleID: scheduleID, log: log}
}

// Run executes handler once on behalf of job, observing the
// cluster-wide cap: if job.MaxRunning > 0 and the pre-increment
// running count already meets it, the invocation is aborted before
// the handler is ever called and model.OutcomeMaxRunningReached is
// returned.
func (e *Executor) Run(ctx context.Context, job model.Job, handler model.Handler) (model.Outcome, error) {
	if job.MaxRunning > 0 {
		running, err := e.ledger.CountRunning(ctx, job.Name)
		if err != nil {
			return "", fmt.Errorf("failed checking running count for job %q: %w", job.Name, err)
		}
		if running >= job.MaxRunning {
			return model.OutcomeMaxRunningReached, nil
		}
	}

	if _, err := e.store.IncrementRunning(ctx, job.Name); err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.OutcomeNotFound, nil
		}
		return "", fmt.Errorf("failed incrementing running count for job %q: %w", job.Name, err)
	}
	if err := e.ledger.IncrementExecution(ctx, e.scheduleID, job.Name); err != nil {
		e.log.Warn("failed incrementing ledger execution count", zap.String("job", job.Name), zap.Error(err))
	}

	started := time.Now()

	outcome, handlerErr := e.invoke(ctx, job, handler)

	finished := time.Now()

	if err := e.store.DecrementRunning(ctx, job.Name); err != nil {
		e.log.Error("failed decrementing store running count", zap.String("job", job.Name), zap.Error(err))
	}
	if err := e.ledger.DecrementExecution(ctx, e.scheduleID, job.Name); err != nil {
		e.log.Warn("failed decrementing ledger execution count", zap.String("job", job.Name), zap.Error(err))
	}

	info := model.ExecutionInfo{
		LastStarted:  &started,
		LastFinished: &finished,
		LastOutcome:  outcome,
	}
	if handlerErr != nil {
		info.LastError = truncate(handlerErr.Error(), maxCapturedErrorLength)
	}
	if err := e.store.UpdateExecutionInfo(ctx, job.Name, info); err != nil {
		e.log.Error("failed updating execution info", zap.String("job", job.Name), zap.Error(err))
	}

	e.publishEvent(ctx, job.Name, outcome, handlerErr, started, finished)

	return outcome, handlerErr
}

func (e *Executor) invoke(ctx context.Context, job model.Job, handler model.Handler) (outcome model.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("job handler panicked", zap.String("job", job.Name), zap.Any("recover", r))
			outcome = model.OutcomeFailed
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := handler(ctx, job); err != nil {
		return model.OutcomeFailed, err
	}
	return model.OutcomeFinished, nil
}

func (e *Executor) publishEvent(ctx context.Context, jobName string, outcome model.Outcome, handlerErr error, started, finished time.Time) {
	event := eventbus.ExecutionEvent{
		JobName:    jobName,
		ScheduleID: e.scheduleID,
		Outcome:    outcome,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if handlerErr != nil {
		event.Error = truncate(handlerErr.Error(), maxCapturedErrorLength)
	}
	if err := e.events.Publish(ctx, event); err != nil {
		e.log.Debug("failed publishing execution event", zap.String("job", jobName), zap.Error(err))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
