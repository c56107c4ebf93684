package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/internal/auction"
	"github.com/sabuhakaya/Carties/pkg/config"
	"github.com/sabuhakaya/Carties/pkg/lifecycle"
	"github.com/sabuhakaya/Carties/pkg/logger"
	"github.com/sabuhakaya/Carties/pkg/outbox"
	"github.com/sabuhakaya/Carties/pkg/postgres"
	"github.com/sabuhakaya/Carties/pkg/rabbitmq"

	_ "github.com/sabuhakaya/Carties/docs"
)

// @title           Carties Auction API
// @version         1.0
// @description     Auction service. Every change is published to RabbitMQ for the search service.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
func main() {
	cfg := config.LoadForService("auction")
	log := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding}).Named("auction")
	defer log.Sync()

	log.Info("starting auction-service")

	ctx := context.Background()
	lc := lifecycle.New(cfg.ShutdownTimeout, log.Named("lifecycle"))

	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, postgres.DriverPQ, cfg.DatabaseURL, log.Named("postgres"))
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	lc.RegisterCloser(lifecycle.StageRelease, "postgres", db.Close)

	// Run migrations
	if err := postgres.RunMigrations(postgres.DriverPQ, cfg.DatabaseURL, "auction", log.Named("migrate")); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Connect to RabbitMQ
	rmqConn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, log.Named("rabbitmq"))
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	lc.RegisterCloser(lifecycle.StageRelease, "rabbitmq", rmqConn.Close)

	publisher, err := rabbitmq.NewPublisher(rmqConn, log.Named("publisher"))
	if err != nil {
		log.Fatal("failed to create publisher", zap.Error(err))
	}
	lc.RegisterCloser(lifecycle.StageRelease, "publisher", publisher.Close)

	// Outbox parks events while the broker is unreachable.
	store, err := outbox.Open(cfg.OutboxPath)
	if err != nil {
		log.Fatal("failed to open outbox", zap.String("path", cfg.OutboxPath), zap.Error(err))
	}
	lc.RegisterCloser(lifecycle.StageRelease, "outbox-store", store.Close)

	relay := outbox.NewRelay(publisher, store, log.Named("outbox"), outbox.RelayConfig{
		Interval:   cfg.OutboxSyncInterval,
		MaxRetries: cfg.OutboxMaxRetry,
	})
	relay.Start()
	lc.Register(lifecycle.StageFlush, "outbox-relay", relay.Stop)

	// Setup handlers and router
	handler := auction.NewAuctionHandler(db, relay, log.Named("handler"))
	router := auction.NewRouter(handler, auction.NewHealth(rmqConn, relay), log.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Register(lifecycle.StageIngress, "http", srv.Shutdown)

	go func() {
		log.Info("listening", zap.String("port", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	lc.Wait(ctx)

	log.Info("shutting down")
	if err := lc.Shutdown(context.Background()); err != nil {
		log.Error("shutdown finished with errors", zap.Error(err))
		return
	}
	log.Info("auction-service exited gracefully")
}
