package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeAcknowledger struct {
	acked, nacked bool
	requeue       bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(uint64, bool) error {
	return nil
}

func TestAMQPPublisher_PublishOrderPlaced(t *testing.T) {
	ch := &fakeChannel{}
	publisher := &AMQPPublisher{
		openChannel: func() (Channel, error) { return ch, nil },
		queue:       "order_events",
	}

	placedAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	event := OrderPlaced{
		OrderID:     12,
		CustomerID:  4,
		Status:      "Processing",
		TotalAmount: "8198.00",
		PlacedAt:    placedAt,
		Items:       []OrderPlacedItem{{ProductID: 1, Quantity: 2, UnitPrice: "2499.00"}},
	}

	require.NoError(t, publisher.PublishOrderPlaced(context.Background(), event))
	require.Len(t, ch.published, 1)
	assert.True(t, ch.closed)
	assert.Equal(t, "order_events", ch.keys[0])

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, TypeOrderPlaced, msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event.OrderID, decoded.OrderID)
	assert.Equal(t, "8198.00", decoded.TotalAmount)
	assert.Equal(t, event.Items, decoded.Items)
}

func TestAMQPPublisher_Errors(t *testing.T) {
	t.Run("channel", func(t *testing.T) {
		publisher := &AMQPPublisher{
			openChannel: func() (Channel, error) { return nil, amqp.ErrClosed },
			queue:       "q",
		}
		err := publisher.PublishOrderPlaced(context.Background(), OrderPlaced{OrderID: 1})
		require.ErrorIs(t, err, amqp.ErrClosed)
	})

	t.Run("publish", func(t *testing.T) {
		publishErr := errors.New("flow control")
		ch := &fakeChannel{err: publishErr}
		publisher := &AMQPPublisher{openChannel: func() (Channel, error) { return ch, nil }, queue: "q"}

		err := publisher.PublishOrderPlaced(context.Background(), OrderPlaced{OrderID: 1})
		require.ErrorIs(t, err, publishErr)
		assert.True(t, ch.closed)
	})
}

func TestStatusConsumer_HandleDelivery(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		redelivered bool
		handlerErr  error
		wantAck     bool
		wantRequeue bool
		wantCalled  bool
	}{
		{name: "applied", body: `{"order_id": 7, "status": "Paid"}`, wantAck: true, wantCalled: true},
		{
			name:       "handler rejects",
			body:       `{"order_id": 7, "status": "Bogus"}`,
			handlerErr: fmt.Errorf("%w: invalid transition", ErrRejected),
			wantCalled: true,
		},
		{
			name:        "transient failure is requeued",
			body:        `{"order_id": 7, "status": "Paid"}`,
			handlerErr:  errors.New("connection reset"),
			wantRequeue: true,
			wantCalled:  true,
		},
		{
			name:        "transient failure on redelivery is dropped",
			body:        `{"order_id": 7, "status": "Paid"}`,
			redelivered: true,
			handlerErr:  errors.New("connection reset"),
			wantCalled:  true,
		},
		{name: "malformed json", body: `{"order_id":`, wantCalled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StatusUpdate
			called := false
			consumer := &StatusConsumer{
				queue: "order_status_updates",
				handler: func(_ context.Context, u StatusUpdate) error {
					called = true
					got = u
					return tt.handlerErr
				},
			}

			ack := &fakeAcknowledger{}
			consumer.handleDelivery(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				Body:         []byte(tt.body),
				Redelivered:  tt.redelivered,
			})

			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
			if tt.wantAck {
				assert.Equal(t, StatusUpdate{OrderID: 7, Status: "Paid"}, got)
			}
		})
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.PublishOrderPlaced(context.Background(), OrderPlaced{}))
}
