package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

type StatusUpdate struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// ErrRejected marks an update that can never be applied. Such deliveries are
// dropped; any other handler error requeues the delivery once.
var ErrRejected = errors.New("status update rejected")

type StatusHandler func(ctx context.Context, update StatusUpdate) error

// StatusConsumer applies order status updates received from the broker.
type StatusConsumer struct {
	conn    *amqp.Connection
	queue   string
	handler StatusHandler
}

func NewStatusConsumer(conn *amqp.Connection, queue string, handler StatusHandler) *StatusConsumer {
	return &StatusConsumer{conn: conn, queue: queue, handler: handler}
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (c *StatusConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	log.Info().Str("queue", q.Name).Msg("Status consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *StatusConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var update StatusUpdate
	if err := json.Unmarshal(d.Body, &update); err != nil {
		log.Error().Err(err).Msg("Failed to decode status update, dropping message")
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Msg("Failed to nack message")
		}
		return
	}

	if err := c.handler(ctx, update); err != nil {
		requeue := !errors.Is(err, ErrRejected) && !d.Redelivered
		log.Warn().
			Err(err).
			Int64("order_id", update.OrderID).
			Str("status", update.Status).
			Bool("requeue", requeue).
			Msg("Failed to apply status update")
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			log.Error().Err(nackErr).Msg("Failed to nack message")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Int64("order_id", update.OrderID).Msg("Failed to ack message")
	}
}
