package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"campushub/internal/domain"
)

const (
	ExchangeName = "campushub.registrations"
	ExchangeKind = "topic"
)

// registrationMessage is the JSON body of every registration.* message.
type registrationMessage struct {
	Type         string               `json:"type"`
	OccurredAt   time.Time            `json:"occurred_at"`
	Registration *domain.Registration `json:"registration"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// connector opens a channel with the exchange declared, plus the connection
// that owns it.
type connector func() (channel, io.Closer, error)

// Publisher sends registration events to a durable topic exchange. When the
// broker drops the channel, the next publish redials once before failing.
type Publisher struct {
	connect connector
	mu      sync.Mutex
	conn    io.Closer
	channel channel
	// down is set while the broker is unreachable, so the outage is logged once.
	down   bool
	logger *slog.Logger
	now    func() time.Time
}

var _ domain.RegistrationEventPublisher = (*Publisher)(nil)

func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{connect: dialer(url), logger: logger, now: time.Now}
	if err := p.reconnect(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialer(url string) connector {
	return func() (channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
		}

		if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
		}
		return ch, conn, nil
	}
}

// reconnect replaces the channel and connection. Callers hold mu, except NewPublisher.
func (p *Publisher) reconnect() error {
	p.closeLocked()
	ch, conn, err := p.connect()
	if err != nil {
		return err
	}
	p.channel, p.conn = ch, conn
	return nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, reg *domain.Registration) error {
	body, err := json.Marshal(registrationMessage{Type: routingKey, OccurredAt: p.now().UTC(), Registration: reg})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    reg.ID,
		Timestamp:    p.now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		err = p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg)
		if err != nil && !isClosed(err) {
			return fmt.Errorf("publish message: %w", err)
		}
	}
	if p.channel == nil || err != nil {
		if rerr := p.redial(err); rerr != nil {
			return fmt.Errorf("publish message: %w", rerr)
		}
		if err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg); err != nil {
			return fmt.Errorf("publish message: %w", err)
		}
	}

	p.logger.Debug("published registration event", "routing_key", routingKey, "registration_id", reg.ID)
	return nil
}

// redial reconnects after the channel was lost with cause. The first failure of an
// outage is logged at error level; later ones only at debug.
func (p *Publisher) redial(cause error) error {
	if !p.down {
		p.logger.Error("rabbitmq channel lost, reconnecting", "error", cause)
	}
	if err := p.reconnect(); err != nil {
		if !p.down {
			p.logger.Error("rabbitmq reconnect failed, registration events are dropped until the broker is back", "error", err)
		} else {
			p.logger.Debug("rabbitmq still unreachable", "error", err)
		}
		p.down = true
		return err
	}
	if p.down {
		p.logger.Info("rabbitmq connection restored")
	}
	p.down = false
	return nil
}

// isClosed reports whether err means the channel or its connection is gone.
// Channel exceptions close the channel, so any AMQP error qualifies.
func isClosed(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr)
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// NoopPublisher drops events. It is used when no broker is configured.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (n NoopPublisher) Publish(ctx context.Context, routingKey string, reg *domain.Registration) error {
	n.Logger.Debug("registration event dropped (no broker)", "routing_key", routingKey, "registration_id", reg.ID)
	return nil
}
