package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/sehyunkim/finbook/internal/jobs"
)

// Client publishes and consumes report jobs over a durable direct exchange.
// Messages are persistent and acknowledged manually, so an unprocessed job
// survives a worker restart.
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

// PublishReportJob publishes a report job as a persistent JSON message.
func (c *Client) PublishReportJob(ctx context.Context, job *jobs.ReportJob) error {
	body, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
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
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	jobs.MarkPublished(job.Period)

	slog.InfoContext(ctx, "published report job",
		"job_id", job.JobID,
		"user_id", job.UserID,
		"period", job.Period,
		"queue", c.queueName)

	return nil
}

// Start consumes report jobs until ctx is cancelled. Retryable handler errors
// requeue the job until its retry budget runs out; permanent errors and
// undecodable messages are dropped.
func (c *Client) Start(ctx context.Context, handler jobs.Handler) error {
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

	slog.InfoContext(ctx, "consuming report jobs", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "stopping job consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			job, err := jobs.ReportJobFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "failed to unmarshal job", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, job); err != nil {
				c.settleFailure(ctx, delivery, job, err)
				continue
			}

			delivery.Ack(false)
			slog.InfoContext(ctx, "processed report job",
				"job_id", job.JobID,
				"user_id", job.UserID,
				"period", job.Period)
		}
	}
}

// settleFailure decides what happens to a delivery whose handler errored.
// Permanent failures and exhausted retry budgets drop the message; anything
// else is republished with a bumped retry count and the original acked, so a
// poison job can never circle the queue forever.
func (c *Client) settleFailure(ctx context.Context, delivery amqp091.Delivery, job *jobs.ReportJob, err error) {
	if !jobs.Retryable(err) {
		slog.ErrorContext(ctx, "dropping job after permanent failure",
			"error", err,
			"job_id", job.JobID,
			"user_id", job.UserID)
		delivery.Nack(false, false)
		return
	}
	if job.RetryCount >= job.MaxRetries {
		slog.ErrorContext(ctx, "dropping job after exhausting retries",
			"error", err,
			"job_id", job.JobID,
			"retries", job.RetryCount)
		delivery.Nack(false, false)
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	job.Error = err.Error()
	if pubErr := c.PublishReportJob(ctx, job); pubErr != nil {
		slog.ErrorContext(ctx, "failed to republish job, requeueing delivery",
			"error", pubErr,
			"job_id", job.JobID)
		delivery.Nack(false, true)
		return
	}
	delivery.Ack(false)
	slog.WarnContext(ctx, "report job requeued for retry",
		"job_id", job.JobID,
		"user_id", job.UserID,
		"retry", job.RetryCount)
}

// Stop is a no-op beyond closing the underlying channel and connection.
func (c *Client) Stop(ctx context.Context) error { return c.Close() }

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

var _ jobs.Publisher = (*Client)(nil)
var _ jobs.Consumer = (*Client)(nil)
