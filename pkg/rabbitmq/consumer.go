package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/resilience"
)

// ConsumerConfig holds configuration for setting up a consumer.
type ConsumerConfig struct {
	QueueName    string
	DLQName      string
	RoutingKeys  []string
	ConsumerName string
	// Prefetch is both the channel QoS and the number of deliveries handled concurrently.
	Prefetch int
}

// ConsumerConfigFor derives queue names from the consuming service, so every service
// gets its own durable queue bound to the shared exchange.
func ConsumerConfigFor(service string, routingKeys []string, prefetch int) ConsumerConfig {
	service = strings.ToLower(strings.TrimSpace(service))
	queue := fmt.Sprintf("%s.auction.events", service)
	if prefetch <= 0 {
		prefetch = 1
	}
	return ConsumerConfig{
		QueueName:    queue,
		DLQName:      queue + ".dlq",
		RoutingKeys:  routingKeys,
		ConsumerName: service + "-consumer",
		Prefetch:     prefetch,
	}
}

// MessageHandler is a function that processes a delivered message.
// Return nil to ack, return error to nack (triggers redelivery, then DLQ).
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// resubscribeInterval is the wait between attempts to consume again after the
// broker closed the delivery channel.
const resubscribeInterval = 2 * time.Second

var errConsumerClosing = errors.New("consumer is closing")

type subscribeFunc func() (*amqp.Channel, <-chan amqp.Delivery, error)

// Consumer owns the channel a queue is consumed on. When the broker closes the
// delivery channel it opens a new one and consumes again until Close is called.
type Consumer struct {
	cfg       ConsumerConfig
	log       *zap.Logger
	subscribe subscribeFunc
	retry     time.Duration

	mu      sync.Mutex
	ch      *amqp.Channel
	closing bool

	connected atomic.Bool
	cancel    context.CancelFunc
	stopped   chan struct{}
}

// SetupConsumer declares queues (main + DLQ), binds them, and starts consuming.
func SetupConsumer(ctx context.Context, conn *Connection, cfg ConsumerConfig, handler MessageHandler, log *zap.Logger) (*Consumer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("consumer", cfg.ConsumerName))

	subscribe := func() (*amqp.Channel, <-chan amqp.Delivery, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, nil, err
		}
		msgs, err := declareAndConsume(ch, cfg)
		if err != nil {
			ch.Close()
			return nil, nil, err
		}
		return ch, msgs, nil
	}

	ch, msgs, err := subscribe()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Consumer{
		cfg:       cfg,
		log:       log,
		subscribe: subscribe,
		retry:     resubscribeInterval,
		ch:        ch,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}
	c.connected.Store(true)
	go c.run(ctx, msgs, handler)

	log.Info("consumer started", zap.String("queue", cfg.QueueName))
	return c, nil
}

// Connected reports whether the consumer currently holds a live delivery channel.
func (c *Consumer) Connected() bool {
	return c.connected.Load()
}

func declareAndConsume(ch *amqp.Channel, cfg ConsumerConfig) (<-chan amqp.Delivery, error) {
	// Declare the topic exchange (idempotent)
	if err := declareExchange(ch); err != nil {
		return nil, err
	}

	// Declare DLQ
	_, err := ch.QueueDeclare(
		cfg.DLQName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, err
	}

	// Declare main queue with DLQ settings
	args := amqp.Table{
		"x-dead-letter-exchange":    "",          // default exchange
		"x-dead-letter-routing-key": cfg.DLQName, // route to DLQ
	}

	_, err = ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		return nil, err
	}

	// Bind queue to exchange with routing keys
	for _, key := range cfg.RoutingKeys {
		if err := ch.QueueBind(cfg.QueueName, key, ExchangeName, false, nil); err != nil {
			return nil, err
		}
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return nil, err
	}

	return ch.Consume(
		cfg.QueueName,
		cfg.ConsumerName,
		false, // auto-ack = false (manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
}

// run dispatches deliveries until Close is called or ctx ends, consuming again
// whenever the broker closes the delivery channel underneath it.
func (c *Consumer) run(ctx context.Context, msgs <-chan amqp.Delivery, handler MessageHandler) {
	defer close(c.stopped)

	for {
		c.dispatch(ctx, msgs, handler)
		if c.isClosing() || ctx.Err() != nil {
			return
		}

		c.connected.Store(false)
		c.log.Error("delivery channel closed unexpectedly, resubscribing", zap.String("queue", c.cfg.QueueName))

		next, err := c.resubscribe(ctx)
		if err != nil {
			c.log.Warn("consumer stopped without resubscribing", zap.Error(err))
			return
		}
		msgs = next
	}
}

func (c *Consumer) resubscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	policy := resilience.Policy{
		Interval: c.retry,
		Classify: func(err error) resilience.Class {
			if errors.Is(err, errConsumerClosing) {
				return resilience.Permanent
			}
			return resilience.Transient
		},
		Logger: c.log,
	}
	msgs, res := resilience.Do(ctx, policy, func(context.Context) (<-chan amqp.Delivery, error) {
		if c.isClosing() {
			return nil, errConsumerClosing
		}
		ch, msgs, err := c.subscribe()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closing {
			if ch != nil {
				ch.Close()
			}
			return nil, errConsumerClosing
		}
		c.ch = ch
		return msgs, nil
	})
	if !res.OK() {
		return nil, res.Err
	}

	c.connected.Store(true)
	c.log.Info("consumer resubscribed", zap.String("queue", c.cfg.QueueName), zap.Int("attempts", res.Attempts))
	return msgs, nil
}

func (c *Consumer) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// dispatch runs up to Prefetch handlers at once until the delivery channel closes.
func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery, handler MessageHandler) {
	limit := c.cfg.Prefetch
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for msg := range msgs {
		sem <- struct{}{}
		wg.Add(1)
		go func(msg amqp.Delivery) {
			defer func() {
				<-sem
				wg.Done()
			}()
			c.handle(ctx, msg, handler)
		}(msg)
	}
	wg.Wait()
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery, handler MessageHandler) {
	log := c.log.With(
		zap.String("routing_key", msg.RoutingKey),
		zap.String("correlation_id", msg.CorrelationId),
		zap.Bool("redelivered", msg.Redelivered))
	log.Debug("received message")

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		err = handler(ctx, msg)
	}()

	if settleErr := settle(msg, err); settleErr != nil {
		log.Error("failed to settle message", zap.Error(settleErr))
	}
	if err != nil {
		if requeue(msg) {
			log.Warn("error processing message, requeued for redelivery", zap.Error(err))
		} else {
			log.Error("error processing message, dead-lettered", zap.Error(err), zap.String("dlq", c.cfg.DLQName))
		}
	}
}

// requeue gives a failed delivery one broker redelivery before it is dead-lettered.
func requeue(msg amqp.Delivery) bool {
	return !msg.Redelivered
}

func settle(msg amqp.Delivery, handlerErr error) error {
	if handlerErr == nil {
		return msg.Ack(false)
	}
	return msg.Nack(false, requeue(msg))
}

// Close stops consuming, waits for in-flight handlers, and closes the channel.
func (c *Consumer) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closing = true
	ch := c.ch
	c.mu.Unlock()

	if !c.connected.Load() {
		// Nothing is in flight while resubscribing; stop the retry loop.
		c.cancel()
	} else if ch != nil {
		if err := ch.Cancel(c.cfg.ConsumerName, false); err != nil {
			c.log.Warn("failed to cancel consumer", zap.Error(err))
		}
	}

	select {
	case <-c.stopped:
	case <-ctx.Done():
		c.log.Warn("timed out waiting for in-flight messages")
	}
	c.cancel()
	c.connected.Store(false)

	if ch == nil || ch.IsClosed() {
		return nil
	}
	return ch.Close()
}
