package events

import (
	"context"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/messages"
	"github.com/venuedesk/service-billing/internal/platform/kafka"
)

// OrderHandler records a point-of-sale order on its session.
type OrderHandler interface {
	HandleOrderPlaced(ctx context.Context, event messages.OrderPlacedEvent) error
}

// POSEventConsumer listens to point-of-sale events and records orders on sessions.
type POSEventConsumer struct {
	consumer *kafka.Consumer
	orders   OrderHandler
	logger   *zap.Logger
}

// NewPOSEventConsumer creates a new consumer for point-of-sale events.
func NewPOSEventConsumer(
	brokers []string,
	groupID string,
	orders OrderHandler,
	logger *zap.Logger,
) *POSEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, messages.TopicPOSEvents, logger)
	return &POSEventConsumer{
		consumer: consumer,
		orders:   orders,
		logger:   logger,
	}
}

// Start begins consuming POS events. It blocks until the context is cancelled.
func (c *POSEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *POSEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from pos topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return kafka.Unprocessable(err)
	}

	c.logger.Info("received pos event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, messages.POSOrderPlaced):
		return c.handleOrderPlaced(ctx, cloudEvent)

	default:
		c.logger.Debug("ignoring unhandled pos event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// handleOrderPlaced processes an OrderPlacedEvent.
func (c *POSEventConsumer) handleOrderPlaced(ctx context.Context, ce kafka.CloudEvent) error {
	var event messages.OrderPlacedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse OrderPlacedEvent data", zap.Error(err))
		return kafka.Unprocessable(err)
	}

	return c.orders.HandleOrderPlaced(ctx, event)
}

// Close closes the underlying Kafka consumer.
func (c *POSEventConsumer) Close() error {
	return c.consumer.Close()
}
