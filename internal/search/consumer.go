package search

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/logger"
	"github.com/sabuhakaya/Carties/pkg/models"
)

// ErrUnknownEvent is returned for envelopes whose type is not an auction event.
var ErrUnknownEvent = errors.New("unknown event type")

// ProjectionStore applies events to the projection. The bool results report
// whether a row changed; false means the event was stale or the row was missing.
type ProjectionStore interface {
	Upsert(ctx context.Context, p Projection) (bool, error)
	Patch(ctx context.Context, p Patch) (bool, error)
	Delete(ctx context.Context, id string, version int64) (bool, error)
	Get(ctx context.Context, id string) (Projection, error)
}

// AuctionFetcher reads one auction from the auction service.
type AuctionFetcher interface {
	GetAuction(ctx context.Context, id string) (models.Auction, error)
}

// Inbox remembers event ids that were already applied.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Consumer applies auction events to the projection store.
type Consumer struct {
	Store ProjectionStore
	// Inbox is optional. Without it duplicates are absorbed by the idempotent writes.
	Inbox Inbox
	// Auctions is optional. When set, rows created by an update that overtook
	// its Created event are completed from the auction service.
	Auctions AuctionFetcher
	Log      *zap.Logger
}

// NewConsumer creates a new Consumer.
func NewConsumer(store ProjectionStore, inbox Inbox, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{Store: store, Inbox: inbox, Log: log}
}

// OnCreated upserts the full snapshot. A duplicate delivery overwrites with identical data.
func (c *Consumer) OnCreated(ctx context.Context, e models.AuctionCreated, version int64) error {
	applied, err := c.Store.Upsert(ctx, ProjectionFromCreated(e, version))
	if err != nil {
		return err
	}
	c.logApply(ctx, models.EventAuctionCreated, e.ID, version, applied)
	return nil
}

// OnUpdated patches the fields present in e. A missing row is inserted.
func (c *Consumer) OnUpdated(ctx context.Context, e models.AuctionUpdated, version int64) error {
	applied, err := c.Store.Patch(ctx, PatchFromUpdated(e, version))
	if err != nil {
		return err
	}
	c.logApply(ctx, models.EventAuctionUpdated, e.ID, version, applied)
	if applied && c.Auctions != nil {
		c.completeStub(ctx, e.ID)
	}
	return nil
}

// completeStub fills a row that only holds item fields with the auction's full
// record. Failures are logged: the late Created event completes the row anyway.
func (c *Consumer) completeStub(ctx context.Context, id string) {
	log := logger.WithCorrelationID(ctx, c.Log).With(zap.String("auction_id", id))

	p, err := c.Store.Get(ctx, id)
	if err != nil || !p.CreatedAt.IsZero() {
		return
	}
	a, err := c.Auctions.GetAuction(ctx, id)
	if err != nil {
		log.Warn("could not fetch auction for partial projection", zap.Error(err))
		return
	}
	if _, err := c.Store.Upsert(ctx, ProjectionFromAuction(a)); err != nil {
		log.Warn("could not complete partial projection", zap.Error(err))
		return
	}
	log.Info("partial projection completed from auction service", zap.Int64("version", a.Version))
}

// OnDeleted removes the projection. A missing row is a no-op.
func (c *Consumer) OnDeleted(ctx context.Context, e models.AuctionDeleted, version int64) error {
	applied, err := c.Store.Delete(ctx, e.ID, version)
	if err != nil {
		return err
	}
	c.logApply(ctx, models.EventAuctionDeleted, e.ID, version, applied)
	return nil
}

// HandleMessage is the rabbitmq.MessageHandler for the search queue.
func (c *Consumer) HandleMessage(ctx context.Context, d amqp.Delivery) error {
	env, err := models.ParseEnvelope(d.Body)
	if err != nil {
		return err
	}
	if env.EventType == "" {
		env.EventType = models.EventType(d.RoutingKey)
	}
	if env.CorrelationID == "" {
		env.CorrelationID = d.CorrelationId
	}
	return c.Apply(ctx, env)
}

// Apply dispatches env on its event type. Events the inbox has already seen are skipped.
func (c *Consumer) Apply(ctx context.Context, env models.Envelope) error {
	ctx = logger.ContextWithCorrelationID(ctx, env.CorrelationID)
	log := logger.WithCorrelationID(ctx, c.Log)

	if c.Inbox != nil && env.EventID != "" {
		seen, err := c.Inbox.Seen(ctx, env.EventID)
		if err != nil {
			log.Warn("inbox lookup failed, applying anyway", zap.String("event_id", env.EventID), zap.Error(err))
		} else if seen {
			log.Info("skipping already processed event",
				zap.String("event_id", env.EventID),
				zap.String("event_type", string(env.EventType)))
			return nil
		}
	}

	if err := c.dispatch(ctx, env); err != nil {
		return fmt.Errorf("apply %s %s: %w", env.EventType, env.EventID, err)
	}

	if c.Inbox != nil && env.EventID != "" {
		if err := c.Inbox.MarkProcessed(ctx, env.EventID); err != nil {
			log.Warn("failed to record processed event", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, env models.Envelope) error {
	switch env.EventType {
	case models.EventAuctionCreated:
		e, err := env.DecodeCreated()
		if err != nil {
			return err
		}
		return c.OnCreated(ctx, e, env.Version)
	case models.EventAuctionUpdated:
		e, err := env.DecodeUpdated()
		if err != nil {
			return err
		}
		return c.OnUpdated(ctx, e, env.Version)
	case models.EventAuctionDeleted:
		e, err := env.DecodeDeleted()
		if err != nil {
			return err
		}
		return c.OnDeleted(ctx, e, env.Version)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.EventType)
	}
}

func (c *Consumer) logApply(ctx context.Context, eventType models.EventType, id string, version int64, applied bool) {
	log := logger.WithCorrelationID(ctx, c.Log).With(
		zap.String("event_type", string(eventType)),
		zap.String("auction_id", id),
		zap.Int64("version", version),
	)
	if applied {
		log.Info("projection updated")
		return
	}
	log.Info("event had no effect on projection")
}
