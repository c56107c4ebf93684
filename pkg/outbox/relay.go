package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sender is the broker-facing publisher the relay wraps.
type Sender interface {
	Publish(ctx context.Context, routingKey string, body []byte, correlationID string) error
}

// RelayConfig controls how frequently the outbox is drained.
type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
	// MaxRetries moves an item to the dead bucket after that many failed drains.
	// Zero keeps retrying forever.
	MaxRetries int
}

// Relay publishes through Sender and parks messages in the Store when the broker
// refuses them, then drains the Store on a cron schedule.
type Relay struct {
	sender Sender
	store  *Store
	log    *zap.Logger
	cron   *cron.Cron
	cfg    RelayConfig
}

// NewRelay builds a relay. Start must be called to begin periodic draining.
func NewRelay(sender Sender, store *Store, log *zap.Logger, cfg RelayConfig) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := &Relay{
		sender: sender,
		store:  store,
		log:    log,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	_, _ = r.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := r.Drain(ctx); err != nil {
			r.log.Error("outbox drain failed", zap.Error(err))
		}
	})

	return r
}

// Start launches the cron scheduler.
func (r *Relay) Start() {
	r.cron.Start()
	r.log.Info("outbox relay started", zap.Duration("interval", r.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to end.
func (r *Relay) Stop(ctx context.Context) error {
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.log.Info("outbox relay stopped")
	return nil
}

// Publish hands the message to the broker. If the broker refuses it, or older messages
// are still parked, the message is parked behind them and nil is returned.
func (r *Relay) Publish(ctx context.Context, routingKey string, body []byte, correlationID string) error {
	pending, err := r.store.Size()
	if err != nil {
		return fmt.Errorf("outbox size: %w", err)
	}

	if pending == 0 {
		err := r.sender.Publish(ctx, routingKey, body, correlationID)
		if err == nil {
			return nil
		}
		r.log.Warn("publish failed, parking message in outbox",
			zap.String("routing_key", routingKey),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
	}

	if err := r.store.Enqueue(Item{RoutingKey: routingKey, Body: body, CorrelationID: correlationID}); err != nil {
		return fmt.Errorf("outbox enqueue: %w", err)
	}
	return nil
}

// Drain republishes parked messages in order. It stops at the first failure so
// later messages never overtake earlier ones.
func (r *Relay) Drain(ctx context.Context) error {
	items, err := r.store.Batch(r.cfg.BatchSize)
	if err != nil {
		return err
	}

	sent := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := r.sender.Publish(ctx, item.RoutingKey, item.Body, item.CorrelationID); err != nil {
			item.Retries++
			if r.cfg.MaxRetries > 0 && item.Retries >= r.cfg.MaxRetries {
				r.log.Error("outbox item reached max retries, moved to dead bucket",
					zap.String("item_id", item.ID),
					zap.String("routing_key", item.RoutingKey),
					zap.String("correlation_id", item.CorrelationID),
					zap.Error(err))
				if err := r.store.Bury(item); err != nil {
					return err
				}
				continue
			}
			if err := r.store.Update(item); err != nil {
				r.log.Warn("failed to record outbox retry", zap.Error(err))
			}
			r.log.Debug("broker still unavailable, outbox drain paused", zap.Int("sent", sent), zap.Error(err))
			return nil
		}

		if err := r.store.Remove(item); err != nil {
			r.log.Warn("failed to purge published outbox item", zap.String("item_id", item.ID), zap.Error(err))
		}
		sent++
	}

	if sent > 0 {
		r.log.Info("outbox drained", zap.Int("sent", sent))
	}
	return nil
}

// Pending returns the number of parked messages.
func (r *Relay) Pending() int {
	size, err := r.store.Size()
	if err != nil {
		return 0
	}
	return size
}

// Dead returns the number of messages that ran out of retries.
func (r *Relay) Dead() int {
	n, err := r.store.DeadCount()
	if err != nil {
		return 0
	}
	return n
}
