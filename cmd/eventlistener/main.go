// Command eventlistener subscribes to Momo's execution event bus and
// logs what it receives. It mirrors the teacher's separate worker
// binary: a standalone process with no role in scheduling correctness.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"momo/internal/eventbus"
	"momo/internal/logging"
)

func main() {
	natsURL := flag.String("nats-url", "nats://localhost:4222", "NATS server URL")
	durableName := flag.String("durable", "momo-eventlistener", "durable JetStream consumer name")
	pretty := flag.Bool("pretty", false, "use a colorized console logger instead of JSON")
	flag.Parse()

	log, err := logging.New(*pretty)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sub, err := eventbus.NewNATSSubscriber(ctx, log, *natsURL, *durableName)
	if err != nil {
		log.Error("failed creating execution event subscriber", zap.Error(err))
		os.Exit(1)
	}
	defer sub.Close()

	log.Info("event listener started", zap.String("nats_url", *natsURL))

	if err := sub.Subscribe(ctx, func(event eventbus.ExecutionEvent) {
		log.Info("execution settled",
			zap.String("job", event.JobName),
			zap.String("scheduleId", event.ScheduleID),
			zap.String("outcome", string(event.Outcome)),
			zap.String("error", event.Error),
			zap.Time("startedAt", event.StartedAt),
			zap.Time("finishedAt", event.FinishedAt),
		)
	}); err != nil {
		log.Error("subscription ended with an error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("event listener stopped")
}
