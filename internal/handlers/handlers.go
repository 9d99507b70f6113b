package handlers

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/logic"
	"github.com/dowstats/ladder-api/internal/models"
	"github.com/dowstats/ladder-api/internal/replay"
)

// MaxBodySize limits the size of non-replay request bodies to 1MB
const MaxBodySize = 1048576

// DefaultMaxReplaySize caps replay uploads when no limit is configured
const DefaultMaxReplaySize = 32 << 20

// DefaultMinCollectorVersion is the oldest telemetry collector still accepted
const DefaultMinCollectorVersion = 21400

// AuditQueue defines the interface for the ingest audit worker pool
type AuditQueue interface {
	Enqueue(audit *models.IngestAudit) bool
	QueueDepth() int
}

// PostgresDB is the part of the Postgres pool used for readiness and schema install
type PostgresDB interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ClickHouseDB is the part of the ClickHouse connection used for readiness and schema install
type ClickHouseDB interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, query string, args ...any) error
}

type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// ReplayStore reads and writes replay blobs
type ReplayStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (*replay.Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PresignURL(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}

type Config struct {
	AuditQueue AuditQueue
	Postgres   PostgresDB
	ClickHouse ClickHouseDB
	Redis      RedisPinger
	Replays    ReplayStore
	Logger     *zap.Logger

	APISecret           string
	MinCollectorVersion int
	MaxReplaySize       int64
	MigrationsDir       string

	// Services
	Ingest      logic.MatchIngestService
	Ladder      logic.LadderService
	Battles     logic.BattleService
	Players     logic.PlayerProfileService
	ClientStats logic.ClientStatsService
	Catalog     logic.CatalogStore
}

type Handler struct {
	audit       AuditQueue
	pg          PostgresDB
	ch          ClickHouseDB
	redis       RedisPinger
	replays     ReplayStore
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	secret      string
	minVersion  int
	maxReplay   int64
	migrations  string
	ingest      logic.MatchIngestService
	ladder      logic.LadderService
	battles     logic.BattleService
	players     logic.PlayerProfileService
	clientStats logic.ClientStatsService
	catalog     logic.CatalogStore
	now         func() time.Time
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MinCollectorVersion <= 0 {
		cfg.MinCollectorVersion = DefaultMinCollectorVersion
	}
	if cfg.MaxReplaySize <= 0 {
		cfg.MaxReplaySize = DefaultMaxReplaySize
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}

	h := &Handler{
		audit:       cfg.AuditQueue,
		pg:          cfg.Postgres,
		ch:          cfg.ClickHouse,
		redis:       cfg.Redis,
		replays:     cfg.Replays,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
		secret:      cfg.APISecret,
		minVersion:  cfg.MinCollectorVersion,
		maxReplay:   cfg.MaxReplaySize,
		migrations:  cfg.MigrationsDir,
		ingest:      cfg.Ingest,
		ladder:      cfg.Ladder,
		battles:     cfg.Battles,
		players:     cfg.Players,
		clientStats: cfg.ClientStats,
		catalog:     cfg.Catalog,
		now:         time.Now,
	}
	if h.secret == "" {
		h.logger.Warn("API_SECRET is not set, client endpoints accept unauthenticated requests")
	}
	return h
}

// closeQuietly closes a body whose close error carries no information
func closeQuietly(c io.Closer) {
	_ = c.Close()
}
