// Package eventbus publishes executor outcomes for observability. It
// is purely additive: nothing in the scheduling protocol depends on
// it, and a Publisher failure is logged, never propagated.
package eventbus

import (
	"context"
	"time"

	"momo/internal/model"
)

// ExecutionEvent is the message shape published on every settled
// invocation.
type ExecutionEvent struct {
	JobName    string        `json:"jobName"`
	ScheduleID string        `json:"scheduleId"`
	Outcome    model.Outcome `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Publisher is the event bus's outbound side.
type Publisher interface {
	Publish(ctx context.Context, event ExecutionEvent) error
	Close() error
}

// Subscriber is the event bus's inbound side, used by the standalone
// event-listener binary.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(ExecutionEvent)) error
	Close() error
}
