package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	// StreamName is the JetStream stream execution events are
	// published to and consumed from.
	StreamName = "MOMO_EXECUTIONS"
	// Subject is the single subject every execution event is
	// published on; the event's Outcome field carries what a consumer
	// would otherwise filter subjects on.
	Subject = "momo.executions"
)

// NATSPublisher publishes execution events to a JetStream stream,
// grounded on the teacher's retrying-connect NATS publisher.
type NATSPublisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log *zap.Logger
}

// NewNATSPublisher connects to natsURL, retrying with backoff, and
// ensures the execution-events stream exists.
func NewNATSPublisher(ctx context.Context, log *zap.Logger, natsURL string) (*NATSPublisher, error) {
	nc, err := connectWithRetry(log, natsURL)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed creating jetstream context: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{Subject},
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed ensuring stream %q: %w", StreamName, err)
	}

	return &NATSPublisher{nc: nc, js: js, log: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event ExecutionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed marshaling execution event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(publishCtx, Subject, data); err != nil {
		return fmt.Errorf("failed publishing execution event for job %q: %w", event.JobName, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil && !p.nc.IsClosed() {
		p.nc.Close()
	}
	return nil
}

func connectWithRetry(log *zap.Logger, url string) (*nats.Conn, error) {
	const maxAttempts = 5
	retryDelay := time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		nc, err := nats.Connect(url,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.Timeout(10*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Warn("nats disconnected", zap.Error(err))
				}
			}),
			nats.ReconnectHandler(func(*nats.Conn) {
				log.Info("nats reconnected", zap.String("url", url))
			}),
		)
		if err == nil {
			return nc, nil
		}

		lastErr = err
		log.Warn("failed connecting to nats, retrying",
			zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(retryDelay)
		retryDelay *= 2
	}

	return nil, fmt.Errorf("failed connecting to nats at %q after %d attempts: %w", url, maxAttempts, lastErr)
}
