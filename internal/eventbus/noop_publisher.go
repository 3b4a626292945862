package eventbus

import "context"

// NoopPublisher discards every event. Used when no NATS URL is
// configured, so the executor always has a Publisher to call.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ExecutionEvent) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }
