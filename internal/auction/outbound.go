package auction

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/logger"
	"github.com/sabuhakaya/Carties/pkg/models"
)

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, correlationID string) error
}

// Committer finishes a unit of work.
type Committer interface {
	Commit() error
}

// Outbound hands events to the broker and commits the matching local change.
type Outbound struct {
	Publisher EventPublisher
	Log       *zap.Logger
}

// PublishAndCommit hands env to the publisher, then commits uow. Publish failures
// are logged and never fail the business operation. The returned bool is the
// commit result; a false after a successful publish means a consumer may see an
// event for a change that was never stored.
func (o *Outbound) PublishAndCommit(ctx context.Context, uow Committer, env models.Envelope) bool {
	log := logger.WithCorrelationID(ctx, o.Log).With(
		zap.String("event_id", env.EventID),
		zap.String("event_type", string(env.EventType)),
		zap.Int64("version", env.Version),
	)

	published := false
	body, err := json.Marshal(env)
	if err != nil {
		log.Error("marshal envelope", zap.Error(err))
	} else if err := o.Publisher.Publish(ctx, string(env.EventType), body, env.CorrelationID); err != nil {
		log.Error("publish event", zap.Error(err))
	} else {
		published = true
	}

	if err := uow.Commit(); err != nil {
		if published {
			log.Warn("event published for uncommitted change", zap.Error(err))
		} else {
			log.Error("commit failed", zap.Error(err))
		}
		return false
	}

	log.Debug("change committed", zap.Bool("published", published))
	return true
}
