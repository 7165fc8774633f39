// Package amqp publishes and consumes month-close events over RabbitMQ.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"lifeledger/internal/core"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishMonthClosed publishes the savings record of a freshly closed month.
func (c *Client) PublishMonthClosed(ctx context.Context, rec core.MonthlySavingsRecord) error {
	env, err := NewEnvelope(KindMonthClosed, MonthClosedMessage{Record: rec})
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published month closed event",
		"month", rec.Month,
		"transferred_to_savings", rec.TransferredToSavings,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishMonthReverted announces that the last close was undone.
func (c *Client) PublishMonthReverted(ctx context.Context, month core.Month) error {
	env, err := NewEnvelope(KindMonthReverted, MonthRevertedMessage{Month: month})
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published month reverted event",
		"month", month,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, env *Envelope) error {
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ConsumeEvents consumes month events, dispatching by envelope kind.
// Undecodable messages are rejected without requeue; handler errors
// requeue the delivery.
func (c *Client) ConsumeEvents(
	ctx context.Context,
	onClosed func(*MonthClosedMessage) error,
	onReverted func(*MonthRevertedMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming month events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := c.dispatch(ctx, env, onClosed, onReverted); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"kind", env.Kind)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
		}
	}
}

func (c *Client) dispatch(
	ctx context.Context,
	env *Envelope,
	onClosed func(*MonthClosedMessage) error,
	onReverted func(*MonthRevertedMessage) error,
) error {
	switch env.Kind {
	case KindMonthClosed:
		msg, err := env.MonthClosed()
		if err != nil {
			return fmt.Errorf("decode month closed payload: %w", err)
		}
		slog.InfoContext(ctx, "Processing month closed event", "month", msg.Record.Month)
		return onClosed(msg)
	case KindMonthReverted:
		msg, err := env.MonthReverted()
		if err != nil {
			return fmt.Errorf("decode month reverted payload: %w", err)
		}
		slog.InfoContext(ctx, "Processing month reverted event", "month", msg.Month)
		return onReverted(msg)
	default:
		// Unknown kinds are skipped, not requeued; a newer publisher may
		// emit events this consumer does not know yet.
		slog.WarnContext(ctx, "Skipping unknown event kind", "kind", env.Kind)
		return nil
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
