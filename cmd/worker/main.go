package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/torquehq/torque/internal/bus"
	"github.com/torquehq/torque/internal/config"
	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/store/postgres"
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
	log.Info().Msg("Starting worker...")

	if err := postgres.Migrate(cfg.Database.MigrationDSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	store := postgres.New(pool)

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

	client := webhook.New()

	p := worker.New(cfg.Worker.ID, store, notifyBus, client, worker.Config{
		Concurrency:     cfg.Worker.Concurrency,
		ClaimDuration:   cfg.Worker.ClaimDuration,
		ShutdownTimeout: cfg.Worker.ShutdownTimeout,
	})

	hb := worker.NewHeartbeat(redisClient, p.ID(), cfg.Worker.Concurrency)
	p.WithHeartbeat(hb)

	p.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	p.Stop()
	log.Info().Msg("Worker stopped")
}
