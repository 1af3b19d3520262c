package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailpilot/internal/config"
	"mailpilot/internal/mqhandler"
	"mailpilot/pkg/mq"
	"mailpilot/pkg/outbox"
)

// RunWorker consumes "email.received" and dispatches outbox events until ctx
// is done.
func RunWorker(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting worker", zap.String("queue", cfg.Worker.Queue))

	infra, err := OpenInfra(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	engine := NewEngine(cfg, infra, logger)

	dispatcher := outbox.NewDispatcher(engine.Outbox, infra.Publisher, logger.Named("outbox")).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go dispatcher.Start(ctx)

	handler := mqhandler.NewEmailReceivedHandler(
		engine.Emails,
		engine.Processor,
		engine.RetryCount,
		cfg.Worker.MaxRetries,
		logger.Named("email_received"),
	)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, mq.RoutingEmailReceived, logger)
	if err != nil {
		return fmt.Errorf("init consumer: %w", err)
	}
	defer consumer.Close()
	consumer.SetHandler(handler.Handle)
	consumer.SetDLQPublisher(infra.Publisher)

	logger.Info("Worker running")
	if err := consumer.StartConsuming(ctx); err != nil {
		return err
	}

	logger.Info("Worker shutdown complete")
	return nil
}
