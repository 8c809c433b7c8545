package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/torquehq/torque/internal/api"
	"github.com/torquehq/torque/internal/bus"
	"github.com/torquehq/torque/internal/config"
	"github.com/torquehq/torque/internal/dispatcher"
	"github.com/torquehq/torque/internal/livefeed"
	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/poller"
	"github.com/torquehq/torque/internal/store/postgres"
	"github.com/torquehq/torque/internal/task"
	"github.com/torquehq/torque/internal/webhook"
	"github.com/torquehq/torque/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("Starting ingress server...")

	if err := postgres.Migrate(cfg.Database.MigrationDSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	store := postgres.New(dbPool)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	notifyBus := bus.NewRedisBus(redisClient)
	defer notifyBus.Close()

	var maxAttempts *int
	if cfg.Task.MaxAttempts > 0 {
		maxAttempts = &cfg.Task.MaxAttempts
	}
	disp := dispatcher.New(store, notifyBus, task.Defaults{
		Timeout:       cfg.Task.Timeout,
		BackoffPolicy: task.BackoffPolicy(cfg.Backoff.Policy),
		BackoffBase:   cfg.Backoff.BaseDelay,
		BackoffMax:    cfg.Backoff.MaxDelay,
		MaxAttempts:   maxAttempts,
	})

	hub := livefeed.NewHub()
	go hub.Run(ctx)
	defer hub.Stop()

	p := poller.New(store, notifyBus, redisClient, poller.Config{
		PollInterval: cfg.Poller.Interval,
		GCInterval:   cfg.Poller.GCInterval,
		GCRetention:  cfg.Poller.GCRetention,
	})
	p.Start(ctx)
	defer p.Stop()

	// The server binary embeds its own worker pool so the live feed has
	// a source of events in a single-binary deployment; cmd/worker
	// scales dispatch capacity out to additional processes that share
	// the same Postgres store and Redis bus but don't feed this hub.
	wp := worker.New(cfg.Worker.ID, store, notifyBus, webhook.New(), worker.Config{
		Concurrency:     cfg.Worker.Concurrency,
		ClaimDuration:   cfg.Worker.ClaimDuration,
		ShutdownTimeout: cfg.Worker.ShutdownTimeout,
	}).WithLiveFeed(hub)
	wp.WithHeartbeat(worker.NewHeartbeat(redisClient, wp.ID(), cfg.Worker.Concurrency))
	wp.Start(ctx)
	defer wp.Stop()

	server := api.NewServer(store, disp, hub, redisClient, cfg)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
