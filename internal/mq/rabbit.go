// Package mq carries the optional RabbitMQ wakeup channel. Postgres is the
// source of truth for jobs; the broker only tells idle workers that a claim
// attempt is worth making, so a lost message costs at most one poll interval.
package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"server/internal/domain"
	"server/internal/infra"
)

const (
	// WakeupExchange fans a wakeup out to every worker process.
	WakeupExchange = "generation.wakeup"
)

type Client struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger infra.Logger
}

func New(url string, logger infra.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("mq: connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mq: open channel: %w", err)
	}
	c := &Client{conn: conn, ch: ch, logger: logger}
	if err := c.setupTopology(); err != nil {
		c.Close()
		return nil, fmt.Errorf("mq: declare topology: %w", err)
	}
	return c, nil
}

// setupTopology declares the wakeup exchange. Idempotent.
func (c *Client) setupTopology() error {
	return c.ch.ExchangeDeclare(WakeupExchange, "fanout", false, false, false, false, nil)
}

// NotifyJobReady broadcasts that a job of the given type was enqueued.
// Failures are logged and swallowed; workers fall back to polling.
func (c *Client) NotifyJobReady(ctx context.Context, jobType domain.JobType) {
	err := c.ch.PublishWithContext(ctx,
		WakeupExchange,
		"", // fanout ignores the routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(jobType),
		})
	if err != nil {
		c.logger.Warn().Err(err).Str("job_type", string(jobType)).Msg("mq: wakeup publish failed")
	}
}

// ConsumeWakeups binds a process-private queue to the wakeup exchange and
// returns a channel that fires once per broadcast. The queue is exclusive and
// auto-deleted, so nothing accumulates while the process is down.
func (c *Client) ConsumeWakeups() (<-chan amqp.Delivery, error) {
	q, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("mq: declare wakeup queue: %w", err)
	}
	if err := c.ch.QueueBind(q.Name, "", WakeupExchange, false, nil); err != nil {
		return nil, fmt.Errorf("mq: bind wakeup queue: %w", err)
	}
	return c.ch.Consume(
		q.Name,
		"",
		true, // auto-ack, a wakeup carries no state worth redelivering
		true,
		false,
		false,
		nil,
	)
}

func (c *Client) Close() {
	c.ch.Close()
	c.conn.Close()
}
