package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message. A returned error is retried in place;
// wrap it with Unprocessable to commit past the message instead.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

type unprocessableError struct{ err error }

func (e *unprocessableError) Error() string { return e.err.Error() }
func (e *unprocessableError) Unwrap() error { return e.err }

// Unprocessable marks a handler error as one no retry can fix, such as a
// payload that does not decode. The consumer logs it and commits the offset.
func Unprocessable(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(&unprocessableError{err: err})
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader     *kafkago.Reader
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewConsumer creates a group consumer.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger:     logger,
		newBackOff: handlerBackOff,
	}
}

// handlerBackOff never gives up: a failing message holds its partition until
// it is handled or the consumer is stopped.
func handlerBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Consume blocks, dispatching messages to handler until ctx is cancelled.
// Offsets are committed in order, only once their message has been handled.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			return err
		}

		if err := c.process(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit offset", zap.Error(err))
		}
	}
}

// process runs handler until it succeeds or reports the message
// unprocessable. The only error it returns is ctx's.
func (c *Consumer) process(ctx context.Context, msg kafkago.Message, handler MessageHandler) error {
	fields := []zap.Field{
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	}

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			return handler(ctx, msg)
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			c.logger.Warn("message handler failed, retrying",
				append(fields, zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(err))...,
			)
		},
	)

	var unprocessable *unprocessableError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &unprocessable):
		c.logger.Error("skipping unprocessable message", append(fields, zap.Error(unprocessable.err))...)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return err
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
