package publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/cart-api/internal/repository"
	"github.com/fjod/cart-api/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
)

const batchSize = 100

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPublisher relays committed outbox rows to Kafka. Delivery is
// at-least-once: a row is marked processed only after the broker accepted it.
type OutboxPublisher struct {
	repo      repository.OutboxRepository
	writer    MessageWriter
	breaker   *circuitbreaker.Breaker
	logger    *slog.Logger
	eventTick time.Duration
}

func NewOutboxPublisher(repo repository.OutboxRepository, topic string, logger *slog.Logger, brokers ...string) *OutboxPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return newOutboxPublisher(repo, w, logger, time.Second)
}

func newOutboxPublisher(repo repository.OutboxRepository, w MessageWriter, logger *slog.Logger, tick time.Duration) *OutboxPublisher {
	return &OutboxPublisher{
		repo:   repo,
		writer: w,
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "kafka-outbox",
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		}, logger),
		logger:    logger,
		eventTick: tick,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *OutboxPublisher) Close() error {
	return p.writer.Close()
}

func (p *OutboxPublisher) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		err := p.breaker.Execute(func() error {
			return p.publish(ctx, event)
		})
		if errors.Is(err, circuitbreaker.ErrOpen) {
			p.logger.WarnContext(ctx, "kafka breaker open, postponing outbox batch", "pending", len(events))
			return
		}
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark outbox event as processed", "event_id", event.ID, "error", err)
		}
	}
}

func (p *OutboxPublisher) publish(ctx context.Context, event *repository.OutboxEvent) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AggregateID), // user id keeps a user's events ordered
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
}
