// Package model holds the data types shared by the store, ledger,
// executor and scheduler packages.
package model

import (
	"context"
	"time"
)

// Outcome classifies how a single handler invocation ended.
type Outcome string

const (
	OutcomeFinished          Outcome = "finished"
	OutcomeFailed            Outcome = "failed"
	OutcomeNotFound          Outcome = "notFound"
	OutcomeMaxRunningReached Outcome = "maxRunningReached"
)

// ExecutionInfo records the last invocation bookkeeping for a Job.
type ExecutionInfo struct {
	LastStarted  *time.Time
	LastFinished *time.Time
	LastOutcome  Outcome
	LastError    string
}

// Job is a job definition as stored in the Job Store. Running is a
// cluster-wide counter maintained by executors, not by callers.
type Job struct {
	Name          string
	IntervalRaw   string
	IntervalMS    int64
	Concurrency   int
	MaxRunning    int
	Running       int
	Immediate     bool
	HandlerName   string
	Payload       any
	ExecutionInfo ExecutionInfo
}

// Handler is the opaque, in-process callable a Job's HandlerName
// resolves to. The store never sees this value.
type Handler func(ctx context.Context, job Job) error
