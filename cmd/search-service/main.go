package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/internal/search"
	"github.com/sabuhakaya/Carties/pkg/config"
	"github.com/sabuhakaya/Carties/pkg/lifecycle"
	"github.com/sabuhakaya/Carties/pkg/logger"
	"github.com/sabuhakaya/Carties/pkg/models"
	"github.com/sabuhakaya/Carties/pkg/postgres"
	"github.com/sabuhakaya/Carties/pkg/rabbitmq"
)

func main() {
	cfg := config.LoadForService("search")
	log := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding}).Named("search")
	defer log.Sync()

	log.Info("starting search-service")

	ctx := context.Background()
	lc := lifecycle.New(cfg.ShutdownTimeout, log.Named("lifecycle"))

	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, postgres.DriverPGX, cfg.DatabaseURL, log.Named("postgres"))
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	lc.RegisterCloser(lifecycle.StageRelease, "postgres", db.Close)

	// Run migrations
	if err := postgres.RunMigrations(postgres.DriverPGX, cfg.DatabaseURL, "search", log.Named("migrate")); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	store := search.NewStore(db)

	// Redis inbox is optional; duplicates are still absorbed by the idempotent writes.
	var inbox search.Inbox
	if cfg.RedisURL != "" {
		rdb, err := search.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, running without inbox", zap.Error(err))
		} else {
			inbox = search.NewRedisInbox(rdb, cfg.InboxTTL)
			lc.RegisterCloser(lifecycle.StageRelease, "redis", rdb.Close)
		}
	}

	// Connect to RabbitMQ
	rmqConn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, log.Named("rabbitmq"))
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	lc.RegisterCloser(lifecycle.StageRelease, "rabbitmq", rmqConn.Close)

	routingKeys := make([]string, 0, len(models.AllAuctionEvents))
	for _, et := range models.AllAuctionEvents {
		routingKeys = append(routingKeys, string(et))
	}
	consumerCfg := rabbitmq.ConsumerConfigFor(cfg.ServiceName, routingKeys, cfg.ConsumerPrefetch)

	consumer := search.NewConsumer(store, inbox, log.Named("consumer"))
	// Completing a partial row is best effort; a few attempts keep the queue moving.
	healer := search.NewAuctionClient(cfg.AuctionServiceURL, cfg.RetryInterval, cfg.HTTPAttemptTimeout, log.Named("auction-client"))
	healer.Policy.MaxAttempts = 3
	consumer.Auctions = healer
	amqpConsumer, err := rabbitmq.SetupConsumer(ctx, rmqConn, consumerCfg, consumer.HandleMessage, log.Named("amqp"))
	if err != nil {
		log.Fatal("failed to setup consumer", zap.Error(err))
	}
	lc.Register(lifecycle.StageIngress, "consumer", amqpConsumer.Close)

	// HTTP
	router := search.NewRouter(search.NewSearchHandler(store, log.Named("handler")), search.NewHealth(amqpConsumer), log.Named("http"))
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

	// Bootstrap runs once, after the consumer is live. Failures never stop the service.
	client := search.NewAuctionClient(cfg.AuctionServiceURL, cfg.RetryInterval, cfg.HTTPAttemptTimeout, log.Named("auction-client"))
	bootstrapper := search.NewBootstrapper(store, client, cfg.BootstrapIncremental, log.Named("bootstrap"))
	bootCtx, stopBootstrap := context.WithCancel(ctx)
	defer stopBootstrap()
	go func() {
		out, err := bootstrapper.Run(bootCtx)
		if err != nil {
			log.Error("error initializing projection", zap.Error(err))
			return
		}
		log.Info("bootstrap finished",
			zap.String("state", string(out.State)),
			zap.Int("fetched", out.Fetched),
			zap.Int("written", out.Written))
	}()

	log.Info("consumer is running",
		zap.String("queue", consumerCfg.QueueName),
		zap.String("dlq", consumerCfg.DLQName))

	lc.Wait(ctx)

	log.Info("shutting down")
	stopBootstrap()
	if err := lc.Shutdown(context.Background()); err != nil {
		log.Error("shutdown finished with errors", zap.Error(err))
		return
	}
	log.Info("search-service exited gracefully")
}
