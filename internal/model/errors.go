package model

import (
	"errors"
	"fmt"
)

// Error taxonomy, per the scheduler's error handling design. Callers
// should compare against these with errors.Is.
var (
	ErrJobNotFound         = errors.New("job not found")
	ErrNonParsableInterval = errors.New("interval string could not be parsed")
	ErrMaxRunningReached   = errors.New("cluster running cap reached")
	ErrJobAlreadyScheduled = errors.New("job already scheduled")
	ErrInvalidConcurrency  = errors.New("concurrency must be a positive integer")
	ErrInvalidMaxRunning   = errors.New("maxRunning must be zero or a positive integer")
)

// UnexpectedError pairs a job name with the root cause of a handler
// or store error. The scheduling loop does not construct it: the Job
// Scheduler logs such errors as they are and counts them in its
// UnexpectedErrorCount.
type UnexpectedError struct {
	JobName string
	Cause   error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error running job %q: %v", e.JobName, e.Cause)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Cause
}
