package store

import (
	"context"
	"sync"

	"momo/internal/model"
)

// MemoryStore is an in-process JobStore, grounded in the same pattern
// the pack uses for its test/fallback repositories: a mutex-guarded
// map standing in for the persistence driver. Useful for unit tests
// and single-instance runs.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]model.Job)}
}

func (s *MemoryStore) FindOne(_ context.Context, name string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return model.Job{}, model.ErrJobNotFound
	}
	return job, nil
}

// Save upserts a job definition. Like PostgresStore's ON CONFLICT
// clause, it leaves Running and ExecutionInfo untouched for a job
// that already exists: those columns belong to the executor, not to
// whoever is redefining the job.
func (s *MemoryStore) Save(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[job.Name]; ok {
		job.Running = existing.Running
		job.ExecutionInfo = existing.ExecutionInfo
	}
	s.jobs[job.Name] = job
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, name)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (s *MemoryStore) IncrementRunning(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return 0, model.ErrJobNotFound
	}
	job.Running++
	s.jobs[name] = job
	return job.Running, nil
}

func (s *MemoryStore) DecrementRunning(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return model.ErrJobNotFound
	}
	if job.Running > 0 {
		job.Running--
	}
	s.jobs[name] = job
	return nil
}

func (s *MemoryStore) UpdateExecutionInfo(_ context.Context, name string, info model.ExecutionInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return model.ErrJobNotFound
	}
	job.ExecutionInfo = info
	s.jobs[name] = job
	return nil
}
