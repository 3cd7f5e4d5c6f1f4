package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fjod/cart-api/internal/service"
	"github.com/segmentio/kafka-go"
)

// CheckoutCompletedEvent is the part of a checkout event the cart cares about.
type CheckoutCompletedEvent struct {
	UserID int64 `json:"user_id"`
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type CartArchiver interface {
	ReplaceCart(ctx context.Context, userID int64, itemIDs []int64) error
}

// CheckoutConsumer archives a user's active cart once their checkout
// completes, leaving the purchased lines behind as history.
type CheckoutConsumer struct {
	carts  CartArchiver
	reader MessageReader
	logger *slog.Logger
}

func NewCheckoutConsumer(carts CartArchiver, topic string, logger *slog.Logger, brokers ...string) *CheckoutConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "cart-api",
		MaxBytes: 10e6, // 10MB
	})
	return &CheckoutConsumer{carts: carts, reader: reader, logger: logger}
}

func (c *CheckoutConsumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.processMessage(ctx)
	}
}

func (c *CheckoutConsumer) Close() error {
	return c.reader.Close()
}

func (c *CheckoutConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.ErrorContext(ctx, "error reading checkout message", "error", err)
		return
	}

	var event CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.WarnContext(ctx, "error parsing checkout message", "offset", m.Offset, "error", err)
		return
	}
	if event.UserID <= 0 {
		c.logger.WarnContext(ctx, "checkout message without user id", "offset", m.Offset)
		return
	}

	if err := c.carts.ReplaceCart(ctx, event.UserID, nil); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.logger.WarnContext(ctx, "checkout for unknown user, skipping", "user_id", event.UserID)
			return
		}
		c.logger.ErrorContext(ctx, "failed to archive cart after checkout", "user_id", event.UserID, "error", err)
		return
	}

	c.logger.InfoContext(ctx, "cart archived after checkout", "user_id", event.UserID)
}
