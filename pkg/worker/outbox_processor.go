package worker

import (
	"context"
	"time"

	"github.com/mindease/booking-api/internal/repository"
	"github.com/mindease/booking-api/pkg/logger"
	"github.com/mindease/booking-api/pkg/messaging"
	"github.com/mindease/booking-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel      string
	BatchSize    int
	PollInterval time.Duration
}

// OutboxProcessor drains pending outbox events to the message broker. The
// ledger write and the event enqueue happen in the request path; delivery is
// at-least-once from here on, so consumers must tolerate replays.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.Channel == "" {
		config.Channel = "appointments"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "outbox batch failed")
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	events, err := p.repo.GetPending(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		start := time.Now()
		msg := messaging.Message{Type: event.EventType, Payload: event.Payload}

		if err := p.broker.Publish(ctx, p.config.Channel, msg); err != nil {
			p.logger.Error(err, "failed to publish event", "event_id", event.ID.String())
			if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				p.logger.Error(markErr, "failed to mark event failed", "event_id", event.ID.String())
			}
			p.observe(func(m *metrics.Metrics) { m.OutboxEventsFailed.Inc() })
			continue
		}

		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", event.ID.String())
			continue
		}
		p.observe(func(m *metrics.Metrics) {
			m.OutboxEventsProcessed.Inc()
			m.OutboxProcessingLatency.Observe(time.Since(start).Seconds())
		})
	}
	return nil
}

func (p *OutboxProcessor) observe(fn func(*metrics.Metrics)) {
	if p.metrics != nil {
		fn(p.metrics)
	}
}
