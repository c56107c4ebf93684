package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/resilience"
)

// ExchangeName is the topic exchange auction events are published to.
const ExchangeName = "auctions"

// dialTimeout bounds the TCP and handshake phase of a single dial.
const dialTimeout = 5 * time.Second

// Connection wraps an AMQP connection with reconnect logic.
type Connection struct {
	URL string

	// dialMu serialises redials. mu only guards the conn pointer, so IsOpen
	// never waits on a dial in progress.
	dialMu sync.Mutex
	mu     sync.Mutex
	conn   *amqp.Connection
	log    *zap.Logger
}

// Connect establishes a connection to RabbitMQ with retries.
func Connect(ctx context.Context, url string, log *zap.Logger) (*Connection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Connection{URL: url, log: log}
	if err := c.dial(ctx, 30); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) dial(ctx context.Context, attempts int) error {
	policy := resilience.Policy{
		Interval:    2 * time.Second,
		MaxAttempts: attempts,
		Classify:    func(error) resilience.Class { return resilience.Transient },
		Logger:      c.log.With(zap.String("component", "rabbitmq")),
	}
	conn, res := resilience.Do(ctx, policy, func(context.Context) (*amqp.Connection, error) {
		return amqp.DialConfig(c.URL, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
	})
	if !res.OK() {
		return fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", res.Attempts, res.Err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Info("connected to rabbitmq")
	return nil
}

func (c *Connection) current() *amqp.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Channel opens a new AMQP channel, redialing once if the connection was lost.
func (c *Connection) Channel() (*amqp.Channel, error) {
	conn := c.current()
	if conn == nil || conn.IsClosed() {
		c.dialMu.Lock()
		defer c.dialMu.Unlock()

		if conn = c.current(); conn == nil || conn.IsClosed() {
			c.log.Warn("rabbitmq connection closed, redialing")
			if err := c.dial(context.Background(), 1); err != nil {
				return nil, err
			}
			conn = c.current()
		}
	}
	return conn.Channel()
}

// IsOpen reports whether the underlying connection is usable.
func (c *Connection) IsOpen() bool {
	conn := c.current()
	return conn != nil && !conn.IsClosed()
}

// Close closes the connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

func declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}
