package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultQueue = "itemreserve.notifications"

// AMQP publishes notifications as JSON messages on a RabbitMQ queue for a
// downstream delivery worker. Publishing is best-effort.
type AMQP struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *slog.Logger
}

func NewAMQP(url, queue string, log *slog.Logger) (*AMQP, error) {
	if queue == "" {
		queue = defaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQP{conn: conn, ch: ch, queue: queue, log: log}, nil
}

func (a *AMQP) Notify(ctx context.Context, n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		a.log.Error("notify marshal failed", "err", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = a.ch.PublishWithContext(pubCtx,
		"",      // default exchange
		a.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		a.log.Error("notify publish failed", "kind", n.Kind, "user_id", n.UserID, "err", err)
	}
}

func (a *AMQP) Close() error {
	if err := a.ch.Close(); err != nil {
		a.conn.Close()
		return err
	}
	return a.conn.Close()
}
