package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/resilience"
)

// Driver names registered by the imports above.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

// Connect establishes a connection to PostgreSQL with retries.
func Connect(ctx context.Context, driver, databaseURL string, log *zap.Logger) (*sql.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	policy := resilience.Policy{
		Interval:       2 * time.Second,
		AttemptTimeout: 5 * time.Second,
		MaxAttempts:    30,
		Classify:       func(error) resilience.Class { return resilience.Transient },
		Logger:         log.With(zap.String("component", "postgres")),
	}

	db, res := resilience.Do(ctx, policy, func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open(driver, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	})
	if !res.OK() {
		return nil, fmt.Errorf("could not connect to database after %d attempts: %w", res.Attempts, res.Err)
	}

	log.Info("connected to postgres", zap.String("driver", driver))
	return db, nil
}
