package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/models"
)

// State is what the bootstrapper found in the projection store.
type State string

const (
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// SeedStore is the part of the projection store the bootstrapper needs.
type SeedStore interface {
	Count(ctx context.Context) (int, error)
	LatestUpdate(ctx context.Context) (time.Time, error)
	SeedAll(ctx context.Context, items []Projection) (int, error)
}

// AuctionSource lists auctions from the auction service.
type AuctionSource interface {
	GetAuctions(ctx context.Context, since time.Time) ([]models.Auction, error)
}

// Outcome reports what a bootstrap run did.
type Outcome struct {
	State   State
	Fetched int
	Written int
}

// Bootstrapper seeds an empty projection from the auction service.
type Bootstrapper struct {
	Store  SeedStore
	Source AuctionSource
	// Incremental makes a populated store catch up on auctions updated after its newest row.
	Incremental bool
	Log         *zap.Logger
}

// NewBootstrapper creates a new Bootstrapper.
func NewBootstrapper(store SeedStore, source AuctionSource, incremental bool, log *zap.Logger) *Bootstrapper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bootstrapper{Store: store, Source: source, Incremental: incremental, Log: log}
}

// Run inspects the store once. An empty store is seeded with every auction in one
// transaction. A populated store is left alone unless Incremental is set.
// Run blocks while the auction service is unreachable, until ctx ends.
func (b *Bootstrapper) Run(ctx context.Context) (Outcome, error) {
	count, err := b.Store.Count(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if count > 0 {
		out := Outcome{State: StatePopulated}
		if !b.Incremental {
			b.Log.Info("projection already populated, skipping bulk fetch", zap.Int("count", count))
			return out, nil
		}
		since, err := b.Store.LatestUpdate(ctx)
		if err != nil {
			return out, err
		}
		return b.seed(ctx, out, since)
	}

	b.Log.Info("projection empty, fetching all auctions")
	return b.seed(ctx, Outcome{State: StateEmpty}, time.Time{})
}

func (b *Bootstrapper) seed(ctx context.Context, out Outcome, since time.Time) (Outcome, error) {
	auctions, err := b.Source.GetAuctions(ctx, since)
	if err != nil {
		return out, fmt.Errorf("fetch auctions: %w", err)
	}
	out.Fetched = len(auctions)
	if len(auctions) == 0 {
		b.Log.Info("nothing to seed", zap.String("state", string(out.State)), zap.Time("since", since))
		return out, nil
	}

	items := make([]Projection, 0, len(auctions))
	for _, a := range auctions {
		items = append(items, ProjectionFromAuction(a))
	}

	written, err := b.Store.SeedAll(ctx, items)
	if err != nil {
		return out, fmt.Errorf("seed projection: %w", err)
	}
	out.Written = written

	b.Log.Info("projection seeded",
		zap.String("state", string(out.State)),
		zap.Int("fetched", out.Fetched),
		zap.Int("written", out.Written))
	return out, nil
}
