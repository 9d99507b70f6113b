// @title dowstats ladder API
// @version 1.0
// @description Game report ingestion, MMR ladder and battle history for Dawn of War.
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Key
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/config"
	"github.com/dowstats/ladder-api/internal/handlers"
	"github.com/dowstats/ladder-api/internal/logic"
	"github.com/dowstats/ladder-api/internal/replay"
	"github.com/dowstats/ladder-api/internal/steam"
	"github.com/dowstats/ladder-api/internal/store"
	"github.com/dowstats/ladder-api/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()
	if cfg.APISecret == "" {
		sugar.Warn("API_SECRET is empty, client endpoints accept every request")
	}

	if err := run(cfg, logger); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		sugar.Warnw("Postgres is not reachable yet", "error", err)
	}

	// Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	// ClickHouse audit sink, optional
	var ch driver.Conn
	if cfg.ClickHouseURL != "" {
		opts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			return fmt.Errorf("clickhouse dsn: %w", err)
		}
		if ch, err = clickhouse.Open(opts); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer func() { _ = ch.Close() }()
	} else {
		sugar.Warn("CLICKHOUSE_URL is not set, ingest audit is disabled")
	}

	stores := store.NewPostgres(pg, logger)
	locker := store.NewRedisLocker(rdb, logger)
	ladderCache := store.NewLadderCache(rdb, cfg.LadderCacheTTL)
	profiles := steam.NewClient(steam.Config{
		APIKey:  cfg.SteamAPIKey,
		Timeout: cfg.SteamTimeout,
		Logger:  logger,
	})

	replays, err := replay.New(replay.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		URLTTL:    cfg.ReplayURLTTL,
		Logger:    logger,
	})
	if err != nil && !errors.Is(err, replay.ErrNotConfigured) {
		return fmt.Errorf("replay storage: %w", err)
	}

	resolver := logic.NewResolver(stores.Catalog)
	ingestCfg := logic.IngestConfig{
		Players:     stores.Players,
		Ratings:     stores.Ratings,
		Matches:     stores.Matches,
		Tx:          stores,
		Resolver:    resolver,
		Profiles:    profiles,
		Locker:      locker,
		Ladder:      ladderCache,
		Logger:      logger,
		MatchWindow: cfg.MatchWindow,
		LockTTL:     cfg.MatchLockTTL,
	}

	handlerCfg := handlers.Config{
		Postgres:            pg,
		Redis:               rdb,
		Logger:              logger,
		APISecret:           cfg.APISecret,
		MinCollectorVersion: cfg.MinCollectorVersion,
		MaxReplaySize:       cfg.MaxReplaySize,
		Ladder:              logic.NewLadderService(pg, resolver, ladderCache, logger),
		Battles:             logic.NewBattleService(pg, stores.Catalog, resolver),
		Players:             logic.NewPlayerProfileService(stores.Players, stores.Ratings, stores.Catalog, resolver),
		ClientStats:         logic.NewClientStatsService(stores.Players, stores.Ratings, stores.Catalog, profiles, logger),
		Catalog:             stores.Catalog,
	}

	// Interfaces stay nil unless the backend exists
	if replays != nil {
		ingestCfg.Replays = replays
		handlerCfg.Replays = replays
	} else {
		sugar.Warn("S3 credentials are not set, replay storage is disabled")
	}
	if ch != nil {
		pool := worker.NewPool(worker.PoolConfig{
			WorkerCount:   cfg.WorkerCount,
			QueueSize:     cfg.QueueSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
			ClickHouse:    ch,
			Logger:        logger,
		})
		pool.Start(context.Background())
		defer pool.Stop()

		handlerCfg.ClickHouse = ch
		handlerCfg.AuditQueue = pool
	}
	handlerCfg.Ingest = logic.NewMatchIngestService(ingestCfg)

	h := handlers.New(handlerCfg)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("HTTP server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sugar.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	sugar.Info("HTTP server stopped")
	return nil
}
