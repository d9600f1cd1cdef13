// Package events announces order lifecycle changes to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

const (
	OrderCreated   = "order.created"
	OrderPaid      = "order.paid"
	OrderShipped   = "order.shipped"
	OrderDelivered = "order.delivered"
)

var queues = []string{OrderCreated, OrderPaid, OrderShipped, OrderDelivered}

const publishTimeout = 3 * time.Second

type Event struct {
	EventName    string          `json:"eventName"`
	EventID      string          `json:"eventId"`
	OrderID      string          `json:"orderId"`
	UserFacingID string          `json:"userFacingId"`
	UserID       string          `json:"userId"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

// New stamps an event with a fresh id and the current time.
func New(name, orderID, userFacingID, userID string, total decimal.Decimal) Event {
	return Event{
		EventName:    name,
		EventID:      uuid.NewString(),
		OrderID:      orderID,
		UserFacingID: userFacingID,
		UserID:       userID,
		TotalPrice:   total,
		OccurredAt:   time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Rabbit publishes events as persistent JSON messages on the default
// exchange, one durable queue per event name.
type Rabbit struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   channel
}

func Dial(url string) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("declare %s: %w", q, err)
		}
	}

	return &Rabbit{conn: conn, ch: ch}, nil
}

func (p *Rabbit) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.EventName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, "", ev.EventName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s for order[%s]: %w", ev.EventName, ev.OrderID, err)
	}
	return nil
}

func (p *Rabbit) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
