package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mercury-net/mercury/internal/antibody"
	"github.com/mercury-net/mercury/internal/auth"
	"github.com/mercury-net/mercury/internal/cache"
	"github.com/mercury-net/mercury/internal/config"
	"github.com/mercury-net/mercury/internal/database"
	"github.com/mercury-net/mercury/internal/logging"
	"github.com/mercury-net/mercury/internal/messaging"
	"github.com/mercury-net/mercury/internal/messaging/nats"
	"github.com/mercury-net/mercury/internal/registry/handlers"
	"github.com/mercury-net/mercury/internal/registry/repository"
	"github.com/mercury-net/mercury/internal/registry/server"
	"github.com/mercury-net/mercury/internal/registry/service"
	"github.com/mercury-net/mercury/internal/share"
)

func main() {
	config.MustLoad()
	cfg := config.GetConfig()

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	nodeID := cfg.Registry.NodeID
	if nodeID == "" {
		nodeID = uuid.New().String()
	}
	logger.Info("starting mercuryd", "node_id", nodeID)

	connString := cfg.Database.Postgres.ConnString()
	runMigrations(logger, cfg.Registry.MigrationsPath, connString)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := database.NewPool(ctx, connString)
	cancel()
	if err != nil {
		logger.Error("failed to connect to postgres", logging.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.NewPostgresRepository(pool)

	// Redis-backed dedup and rate limiting degrade to no-ops when disabled
	dedup, err := cache.NewRedisDedupCache(cfg.Redis.URL, cfg.Registry.DedupTTL, !cfg.Redis.Enabled || !cfg.Registry.DedupEnabled)
	if err != nil {
		logger.Error("failed to connect to redis", logging.Error(err))
		os.Exit(1)
	}
	defer dedup.Close()

	limiter, err := cache.NewRedisRateLimiter(cfg.Redis.URL,
		cfg.Detection.RateLimitEvents, cfg.Detection.RateLimitWindow,
		!cfg.Redis.Enabled || !cfg.Detection.RateLimitEnabled)
	if err != nil {
		logger.Error("failed to set up rate limiter", logging.Error(err))
		os.Exit(1)
	}
	defer limiter.Close()

	var (
		natsClient  messaging.Client
		broadcaster service.Broadcaster
	)
	if cfg.NATS.Enabled {
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait

		natsClient, err = nats.NewClient(natsCfg)
		if err != nil {
			logger.Error("failed to connect to NATS", logging.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		broadcaster = share.NewBroadcaster(natsClient, nodeID)
	}

	signer := antibody.NewRecordSigner(cfg.Auth.RecordSecret)

	svc := service.New(repo, dedup, limiter, broadcaster, signer, logger, service.Options{
		RecentLimit:    cfg.Registry.RecentLimit,
		ExampleMaxLen:  cfg.Registry.ExampleMaxLen,
		MaxInputLength: cfg.Detection.MaxInputLength,
	})

	var syncer *share.Syncer
	if natsClient != nil {
		syncer = share.NewSyncer(natsClient, svc, nodeID, logger)
		if err := syncer.Start(); err != nil {
			logger.Error("failed to start network syncer", logging.Error(err))
			os.Exit(1)
		}
		defer syncer.Stop()
	}

	tokenGen := auth.NewTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	authSvc := auth.NewService(auth.NewPostgresKeyRepository(pool), tokenGen)

	handler := handlers.NewHandler(svc, authSvc, logger, healthChecks(cfg, pool, natsClient, dedup, limiter))
	router := server.NewRouter(handler, authSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("registry listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", logging.Error(err))
	}

	logger.Info("stopped")
}

func runMigrations(logger *logging.Logger, sourceURL, connString string) {
	logger.Info("running database migrations")

	m, err := migrate.New(sourceURL, connString)
	if err != nil {
		logger.Error("failed to initialize migrations", logging.Error(err))
		os.Exit(1)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Error("failed to run migrations", logging.Error(err))
		os.Exit(1)
	}

	logger.Info("database migrations completed")
}

func healthChecks(cfg *config.Config, pool *pgxpool.Pool, natsClient messaging.Client, dedup cache.DedupCache, limiter cache.RateLimiter) map[string]handlers.HealthFunc {
	checks := map[string]handlers.HealthFunc{
		"postgres": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		},
	}

	if natsClient != nil {
		checks["nats"] = func() error {
			if !natsClient.IsConnected() {
				return fmt.Errorf("not connected")
			}
			return nil
		}
	}

	if cfg.Redis.Enabled {
		probe := dedup.Ping
		if !cfg.Registry.DedupEnabled && cfg.Detection.RateLimitEnabled {
			probe = limiter.Ping
		}
		checks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return probe(ctx)
		}
	}

	return checks
}
