// Package jobscheduler implements the Job Scheduler: one instance per
// (schedule, job), owning a single timer.Handle and the set of
// pending invocations that timer's ticks have launched.
package jobscheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"momo/internal/executor"
	"momo/internal/interval"
	"momo/internal/model"
	"momo/internal/store"
	"momo/internal/timer"
)

// JobScheduler owns at most one active timer for a single job name on
// one schedule instance.
type JobScheduler struct {
	name   string
	store  store.JobStore
	exec   *executor.Executor
	log    *zap.Logger
	nowFn  func() time.Time
	getter func() (model.Handler, bool)

	mu                   sync.Mutex
	handle               *timer.Handle
	pending              sync.WaitGroup
	unexpectedErrorCount int64
}

// New builds a JobScheduler for job name. getHandler resolves the
// in-process callable for the job's HandlerName; it returns false if
// no handler is registered for that name.
func New(name string, jobStore store.JobStore, exec *executor.Executor, getHandler func() (model.Handler, bool), log *zap.Logger) *JobScheduler {
	return &JobScheduler{
		name:   name,
		store:  jobStore,
		exec:   exec,
		log:    log,
		nowFn:  time.Now,
		getter: getHandler,
	}
}

// Start arms the timer per the delay law in §4.2, using the job's
// persisted interval and last execution info. A non-parsable interval
// at this point is a programmer error and is returned to the caller,
// not absorbed; a missing job definition is logged and simply leaves
// no timer armed.
func (s *JobScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()

	job, err := s.store.FindOne(ctx, s.name)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			s.log.Warn("job definition not found, scheduler not armed", zap.String("job", s.name))
			return nil
		}
		return err
	}

	intervalMS := job.IntervalMS
	if job.IntervalRaw != "" {
		intervalMS, err = interval.Parse(job.IntervalRaw)
		if err != nil {
			return err
		}
	}
	if intervalMS <= 0 {
		return fmt.Errorf("%w: job %q has no positive interval", model.ErrNonParsableInterval, s.name)
	}

	delay := computeDelay(intervalMS, job.Immediate, job.ExecutionInfo.LastFinished, s.nowFn())
	period := time.Duration(intervalMS) * time.Millisecond

	s.handle = timer.Start(delay, period, s.executeConcurrently)
	return nil
}

// Stop cancels the timer, if any, and awaits settlement of every
// invocation this scheduler has launched. After Stop returns, no
// further invocation originates from this scheduler until Start is
// called again.
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	s.pending.Wait()
}

func (s *JobScheduler) stopTimerLocked() {
	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}
}

// ExecuteOnce bypasses the timer entirely: loads the job, runs exactly
// one invocation through the Executor, and returns its outcome.
// Intended for ad-hoc runs via Schedule.Run.
func (s *JobScheduler) ExecuteOnce(ctx context.Context) (model.Outcome, error) {
	job, err := s.store.FindOne(ctx, s.name)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.OutcomeNotFound, nil
		}
		return "", err
	}

	handler, ok := s.getter()
	if !ok {
		s.log.Warn("no handler registered for job, skipping", zap.String("job", s.name))
		return model.OutcomeNotFound, nil
	}

	return s.exec.Run(ctx, job, handler)
}

// executeConcurrently is the periodic tick action: it computes how
// many invocations capacity allows and launches each one tracked in
// the pending set, per §4.4.
func (s *JobScheduler) executeConcurrently() {
	ctx := context.Background()

	job, err := s.store.FindOne(ctx, s.name)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			s.log.Warn("job definition disappeared, skipping tick", zap.String("job", s.name))
			return
		}
		s.countUnexpected()
		s.log.Error("failed loading job definition for tick", zap.String("job", s.name), zap.Error(err))
		return
	}

	handler, ok := s.getter()
	if !ok {
		s.log.Warn("no handler registered for job, skipping tick", zap.String("job", s.name))
		return
	}

	numToExecute := job.Concurrency
	if job.MaxRunning > 0 {
		headroom := job.MaxRunning - job.Running
		if headroom < 0 {
			headroom = 0
		}
		if job.Concurrency < headroom {
			numToExecute = job.Concurrency
		} else {
			numToExecute = headroom
		}
	}

	for i := 0; i < numToExecute; i++ {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()

			if _, err := s.exec.Run(ctx, job, handler); err != nil {
				s.countUnexpected()
				s.log.Error("job invocation failed", zap.String("job", s.name), zap.Error(err))
			}
		}()
	}
}

func (s *JobScheduler) countUnexpected() {
	s.mu.Lock()
	s.unexpectedErrorCount++
	s.mu.Unlock()
}

// UnexpectedErrorCount returns the number of unexpected errors
// observed since creation. It never affects scheduling.
func (s *JobScheduler) UnexpectedErrorCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unexpectedErrorCount
}
