// Package events publishes order lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"microshop/internal/domain"
)

const (
	ExchangeName = "microshop.orders"
	ExchangeType = "topic"

	RoutingOrderCreated = "order.created"
)

// OrderCreated is the payload of RoutingOrderCreated.
type OrderCreated struct {
	OrderID    int64           `json:"orderId"`
	AccountID  int64           `json:"accountId"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	Date       time.Time       `json:"date"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type Publisher interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, domain.Order) error { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
	now  func() time.Time
}

// Dial connects to the broker and declares the exchange, retrying while the
// broker container starts.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*RabbitPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("rabbitmq not ready", slog.Int("attempt", attempt), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return &RabbitPublisher{conn: conn, ch: ch, now: time.Now}, nil
}

func (p *RabbitPublisher) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	body, err := json.Marshal(OrderCreated{
		OrderID:    order.ID,
		AccountID:  order.AccountID,
		TotalCost:  order.TotalCost,
		Date:       order.Date,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingOrderCreated,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
