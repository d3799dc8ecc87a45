package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/zimmart/storefront-go/internal/order"
)

// Publisher emits OrderPlaced for downstream fulfillment. A single attempt
// is made per order; failures are logged.
type Publisher struct {
	mu     sync.Mutex
	ch     *amqp.Channel
	logger *zap.Logger
	now    func() time.Time
}

func NewPublisher(conn *amqp.Connection, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return &Publisher{ch: ch, logger: logger, now: time.Now}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) OrderPlaced(ctx context.Context, o *order.Order) {
	if err := p.PublishOrderPlaced(ctx, o); err != nil {
		p.logger.Warn("publish OrderPlaced failed",
			zap.Int64("order_number", o.Number),
			zap.Error(err))
	}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	env := NewOrderPlacedEnvelope(o, middleware.GetReqID(ctx), p.now())
	if err := env.Validate(orderPlacedEventName, orderPlacedEventVersion); err != nil {
		return fmt.Errorf("invalid OrderPlaced for order %s: %w", o.ID, err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced: %w", err)
	}

	return p.publishJSON(ctx, OrderPlacedRoutingKey, env.EventID, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}
