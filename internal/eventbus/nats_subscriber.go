package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// NATSSubscriber consumes execution events from the stream a
// NATSPublisher writes to. It is used by cmd/eventlistener, not by
// any part of the scheduling protocol itself.
type NATSSubscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	log      *zap.Logger
}

func NewNATSSubscriber(ctx context.Context, log *zap.Logger, natsURL, durableName string) (*NATSSubscriber, error) {
	nc, err := connectWithRetry(log, natsURL)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed creating jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{Subject},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed ensuring stream %q: %w", StreamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   durableName,
		AckPolicy: jetstream.AckExplicitPolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed creating consumer %q: %w", durableName, err)
	}

	return &NATSSubscriber{nc: nc, js: js, consumer: consumer, log: log}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, handler func(ExecutionEvent)) error {
	consumeCtx, err := s.consumer.Consume(func(msg jetstream.Msg) {
		defer msg.Ack()

		var event ExecutionEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			s.log.Error("failed unmarshaling execution event", zap.Error(err))
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("failed starting consumer: %w", err)
	}

	<-ctx.Done()
	consumeCtx.Stop()
	return nil
}

func (s *NATSSubscriber) Close() error {
	if s.nc != nil && !s.nc.IsClosed() {
		s.nc.Close()
	}
	return nil
}
