package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errPublisherClosed = errors.New("publisher closed")

// ErrBrokerUnavailable is returned by Publish while the connection is down.
// Callers park the event; a reconnect runs in the background.
var ErrBrokerUnavailable = errors.New("rabbitmq connection is down")

type channelSource interface {
	Channel() (*amqp.Channel, error)
	IsOpen() bool
}

// Publisher publishes messages to the auctions exchange.
// amqp channels are not safe for concurrent publishing, so calls are serialised.
type Publisher struct {
	conn channelSource
	log  *zap.Logger

	mu      sync.Mutex
	channel *amqp.Channel
	closed  bool

	reconnecting atomic.Bool
}

// NewPublisher creates a new publisher and declares the topic exchange.
func NewPublisher(conn *Connection, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{conn: conn, log: log}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := declareExchange(ch); err != nil {
		ch.Close()
		return err
	}
	p.channel = ch
	return nil
}

// Publish sends a message to the exchange with the given routing key.
// It returns once the client has written the message; it does not wait for a broker confirm.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte, correlationID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errPublisherClosed
	}
	if p.channel == nil || p.channel.IsClosed() {
		if !p.conn.IsOpen() {
			p.reconnect()
			return ErrBrokerUnavailable
		}
		if err := p.openChannel(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	p.log.Debug("publishing event",
		zap.String("routing_key", routingKey),
		zap.String("correlation_id", correlationID))

	return p.channel.PublishWithContext(
		ctx,
		ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
		},
	)
}

// reconnect redials in the background, at most once at a time. Publish keeps
// failing fast until the connection is back.
func (p *Publisher) reconnect() {
	if !p.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer p.reconnecting.Store(false)

		ch, err := p.conn.Channel()
		if err != nil {
			p.log.Warn("rabbitmq reconnect failed", zap.Error(err))
			return
		}
		ch.Close()
		p.log.Info("rabbitmq connection restored")
	}()
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel.Close()
	}
	return nil
}
