package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const TypeOrderPlaced = "order.placed"

type OrderPlacedItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderPlaced struct {
	OrderID         int64             `json:"order_id"`
	CustomerID      int64             `json:"customer_id"`
	Status          string            `json:"status"`
	TotalAmount     string            `json:"total_amount"`
	PaymentMethod   string            `json:"payment_method"`
	DeliveryAddress string            `json:"delivery_address"`
	PlacedAt        time.Time         `json:"placed_at"`
	Items           []OrderPlacedItem `json:"items"`
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
}

// Channel is the part of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher opens a channel per message on a shared connection.
type AMQPPublisher struct {
	openChannel func() (Channel, error)
	queue       string
}

func NewAMQPPublisher(conn *amqp.Connection, queue string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPPublisher{
		openChannel: func() (Channel, error) { return conn.Channel() },
		queue:       queue,
	}, nil
}

func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlaced) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", TypeOrderPlaced, err)
	}

	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.PlacedAt,
		Type:         TypeOrderPlaced,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for order %d: %w", TypeOrderPlaced, event.OrderID, err)
	}
	return nil
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error {
	return nil
}
