package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitDispatcher publishes seed tasks to a durable queue consumed by cmd/seed-worker.
type RabbitDispatcher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu sync.Mutex // serializes publishes on ch
}

func NewRabbitDispatcher(url, queue string) (*RabbitDispatcher, error) {
	conn, ch, err := openChannel(url, queue)
	if err != nil {
		return nil, err
	}
	return &RabbitDispatcher{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue publishes the task as a persistent JSON message.
func (d *RabbitDispatcher) Enqueue(ctx context.Context, task SeedTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ch.PublishWithContext(ctx,
		"",      // default exchange
		d.queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    task.ID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (d *RabbitDispatcher) Close() {
	if d == nil {
		return
	}
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

// Consume delivers tasks from the queue to handler until ctx is cancelled. A failed task is redelivered
// once; malformed messages are dropped.
func Consume(ctx context.Context, url, queue string, prefetch int, handler Handler, logger *logrus.Logger) error {
	conn, ch, err := openChannel(url, queue)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	logger.WithField("queue", queue).Info("seed worker listening")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return amqp.ErrClosed
			}
			handleDelivery(ctx, msg, handler, logger)
		}
	}
}

func handleDelivery(ctx context.Context, msg amqp.Delivery, handler Handler, logger *logrus.Logger) {
	var task SeedTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		logger.WithError(err).WithField("messageId", msg.MessageId).Warn("dropping malformed seed task")
		_ = msg.Nack(false, false)
		return
	}
	if err := handler(ctx, task); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"taskId":      task.ID,
			"userId":      task.UserID.Hex(),
			"redelivered": msg.Redelivered,
		}).Warn("goal start seeding failed")
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	_ = msg.Ack(false)
}

func openChannel(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
