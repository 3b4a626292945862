// Package schedule implements the Schedule component: the set of Job
// Schedulers owned by one running instance, plus the liveness ping
// that elects one instance per schedule name as active.
package schedule

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"momo/internal/executor"
	"momo/internal/interval"
	"momo/internal/jobscheduler"
	"momo/internal/ledger"
	"momo/internal/model"
	"momo/internal/store"
)

// Definition is the caller-supplied shape for Schedule.DefineJob.
type Definition struct {
	Name        string
	IntervalRaw string
	Concurrency int
	MaxRunning  int
	Immediate   bool
	HandlerName string
	Payload     any
	Handler     model.Handler
}

// Description is what List and Get return: the persisted definition
// plus, if the job is currently started, its live status.
type Description struct {
	Job     model.Job
	Started bool
}

// Schedule owns the set of Job Schedulers for one instance.
type Schedule struct {
	scheduleID string
	store      store.JobStore
	ledger     ledger.ExecutionsLedger
	exec       *executor.Executor
	log        *zap.Logger

	mu         sync.RWMutex
	schedulers map[string]*jobscheduler.JobScheduler
	handlers   map[string]model.Handler
	started    map[string]bool
}

// New builds a Schedule backed by the given store, ledger, and
// executor. exec is expected to already be bound to scheduleID.
func New(scheduleID string, jobStore store.JobStore, executionsLedger ledger.ExecutionsLedger, exec *executor.Executor, log *zap.Logger) *Schedule {
	return &Schedule{
		scheduleID: scheduleID,
		store:      jobStore,
		ledger:     executionsLedger,
		exec:       exec,
		log:        log,
		schedulers: make(map[string]*jobscheduler.JobScheduler),
		handlers:   make(map[string]model.Handler),
		started:    make(map[string]bool),
	}
}

// DefineJob validates the interval, upserts the definition in the Job
// Store, and replaces any existing Job Scheduler for that name — the
// old one is fully stopped (pending drained) before the new one
// becomes callable.
func (s *Schedule) DefineJob(ctx context.Context, def Definition) error {
	if def.Concurrency <= 0 {
		return model.ErrInvalidConcurrency
	}
	if def.MaxRunning < 0 {
		return model.ErrInvalidMaxRunning
	}

	intervalMS, err := interval.Parse(def.IntervalRaw)
	if err != nil {
		return err
	}

	job := model.Job{
		Name:        def.Name,
		IntervalRaw: def.IntervalRaw,
		IntervalMS:  intervalMS,
		Concurrency: def.Concurrency,
		MaxRunning:  def.MaxRunning,
		Immediate:   def.Immediate,
		HandlerName: def.HandlerName,
		Payload:     def.Payload,
	}

	if err := s.store.Save(ctx, job); err != nil {
		return fmt.Errorf("failed saving job %q: %w", def.Name, err)
	}

	s.mu.Lock()
	if old, ok := s.schedulers[def.Name]; ok {
		old.Stop()
	}
	s.handlers[def.Name] = def.Handler
	sched := jobscheduler.New(def.Name, s.store, s.exec, s.handlerGetter(def.Name), s.log)
	s.schedulers[def.Name] = sched
	delete(s.started, def.Name)
	s.mu.Unlock()

	return nil
}

func (s *Schedule) handlerGetter(name string) func() (model.Handler, bool) {
	return func() (model.Handler, bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		h, ok := s.handlers[name]
		return h, ok
	}
}

// RemoveJob stops the scheduler for name (awaiting drainage) and
// deletes the definition from the Job Store.
func (s *Schedule) RemoveJob(ctx context.Context, name string) error {
	s.mu.Lock()
	sched, ok := s.schedulers[name]
	delete(s.schedulers, name)
	delete(s.handlers, name)
	delete(s.started, name)
	s.mu.Unlock()

	if ok {
		sched.Stop()
	}

	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed deleting job %q: %w", name, err)
	}
	return nil
}

// Start starts the named job's scheduler.
func (s *Schedule) Start(ctx context.Context, name string) error {
	s.mu.RLock()
	sched, ok := s.schedulers[name]
	s.mu.RUnlock()
	if !ok {
		return model.ErrJobNotFound
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.started[name] = true
	s.mu.Unlock()
	return nil
}

// StartAll starts every job scheduler currently defined. Individual
// failures are logged and do not stop the rest from starting.
func (s *Schedule) StartAll(ctx context.Context) {
	for _, name := range s.jobNames() {
		if err := s.Start(ctx, name); err != nil {
			s.log.Error("failed starting job", zap.String("job", name), zap.Error(err))
		}
	}
}

// Stop stops the named job's scheduler, awaiting drainage.
func (s *Schedule) Stop(name string) error {
	s.mu.RLock()
	sched, ok := s.schedulers[name]
	s.mu.RUnlock()
	if !ok {
		return model.ErrJobNotFound
	}

	sched.Stop()

	s.mu.Lock()
	s.started[name] = false
	s.mu.Unlock()
	return nil
}

// StopAll stops every job scheduler in parallel, waiting for all to
// drain.
func (s *Schedule) StopAll() {
	names := s.jobNames()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := s.Stop(name); err != nil {
				s.log.Error("failed stopping job", zap.String("job", name), zap.Error(err))
			}
		}(name)
	}
	wg.Wait()
}

// Cancel stops the named job and removes it from the local scheduler
// set without deleting its definition from the Job Store.
func (s *Schedule) Cancel(name string) error {
	s.mu.Lock()
	sched, ok := s.schedulers[name]
	delete(s.schedulers, name)
	delete(s.handlers, name)
	delete(s.started, name)
	s.mu.Unlock()

	if !ok {
		return model.ErrJobNotFound
	}
	sched.Stop()
	return nil
}

// List returns a description of every job in the Job Store, including
// jobs that have no scheduler on this instance (Started is false for
// those).
func (s *Schedule) List(ctx context.Context) ([]Description, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed listing jobs: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Description, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, Description{Job: job, Started: s.started[job.Name]})
	}
	return out, nil
}

// Get returns the description of a single job.
func (s *Schedule) Get(ctx context.Context, name string) (Description, error) {
	job, err := s.store.FindOne(ctx, name)
	if err != nil {
		return Description{}, err
	}

	s.mu.RLock()
	started := s.started[name]
	s.mu.RUnlock()

	return Description{Job: job, Started: started}, nil
}

// Count returns the number of jobs known locally, optionally filtered
// to only started jobs.
func (s *Schedule) Count(startedOnly bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !startedOnly {
		return len(s.schedulers)
	}

	count := 0
	for _, started := range s.started {
		if started {
			count++
		}
	}
	return count
}

// Run executes name once, bypassing the timer, and returns its
// outcome. Intended for ad-hoc runs.
func (s *Schedule) Run(ctx context.Context, name string) (model.Outcome, error) {
	s.mu.RLock()
	sched, ok := s.schedulers[name]
	s.mu.RUnlock()
	if !ok {
		return model.OutcomeNotFound, nil
	}

	return sched.ExecuteOnce(ctx)
}

// Disconnect stops every job and removes this instance's own
// execution ledger entry.
func (s *Schedule) Disconnect(ctx context.Context) error {
	s.StopAll()
	return s.ledger.DeleteOne(ctx, s.scheduleID)
}

func (s *Schedule) jobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.schedulers))
	for name := range s.schedulers {
		names = append(names, name)
	}
	return names
}
