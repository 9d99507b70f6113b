package handlers

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/logic"
	"github.com/dowstats/ladder-api/internal/models"
	"github.com/dowstats/ladder-api/internal/replay"
)

// MockIngestService
type MockIngestService struct {
	IngestFunc           func(ctx context.Context, r *models.Report) (*logic.IngestOutcome, error)
	IngestWithReplayFunc func(ctx context.Context, r *models.Report, data []byte) (*logic.IngestOutcome, error)
}

func (m *MockIngestService) Ingest(ctx context.Context, r *models.Report) (*logic.IngestOutcome, error) {
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, r)
	}
	id := int64(1)
	return &logic.IngestOutcome{GameID: &id, Inserted: true}, nil
}

func (m *MockIngestService) IngestWithReplay(ctx context.Context, r *models.Report, data []byte) (*logic.IngestOutcome, error) {
	if m.IngestWithReplayFunc != nil {
		return m.IngestWithReplayFunc(ctx, r, data)
	}
	id := int64(1)
	return &logic.IngestOutcome{GameID: &id, Inserted: true}, nil
}

// MockLadderService
type MockLadderService struct {
	LadderFunc func(ctx context.Context, q logic.LadderQuery) (*models.LadderResponse, error)
}

func (m *MockLadderService) Ladder(ctx context.Context, q logic.LadderQuery) (*models.LadderResponse, error) {
	if m.LadderFunc != nil {
		return m.LadderFunc(ctx, q)
	}
	return &models.LadderResponse{Items: []models.LadderEntry{}}, nil
}

// MockBattleService
type MockBattleService struct {
	BattlesFunc func(ctx context.Context, q logic.BattleQuery) (*models.BattleResponse, error)
}

func (m *MockBattleService) Battles(ctx context.Context, q logic.BattleQuery) (*models.BattleResponse, error) {
	if m.BattlesFunc != nil {
		return m.BattlesFunc(ctx, q)
	}
	return &models.BattleResponse{Items: []models.BattleItem{}}, nil
}

// MockPlayerService
type MockPlayerService struct {
	ProfileFunc func(ctx context.Context, playerID int64, modID int, seasonID *int) (*models.PlayerProfileResponse, error)
}

func (m *MockPlayerService) Profile(ctx context.Context, playerID int64, modID int, seasonID *int) (*models.PlayerProfileResponse, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, playerID, modID, seasonID)
	}
	return &models.PlayerProfileResponse{Meta: models.PlayerProfileMeta{PlayerID: playerID, ModID: modID, SeasonID: seasonID}}, nil
}

// MockClientStatsService
type MockClientStatsService struct {
	StatsFunc func(ctx context.Context, req logic.ClientStatsRequest) (*models.ClientStatsResponse, error)
}

func (m *MockClientStatsService) Stats(ctx context.Context, req logic.ClientStatsRequest) (*models.ClientStatsResponse, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, req)
	}
	return &models.ClientStatsResponse{Stats: []models.ClientStat{}}, nil
}

// MockCatalog only implements the listings; the lookups are unused by handlers.
type MockCatalog struct {
	logic.CatalogStore
	Mods    []models.Mod
	Seasons []models.Season
	Servers []models.Server
	Err     error
}

func (m *MockCatalog) ListMods(ctx context.Context) ([]models.Mod, error) {
	return m.Mods, m.Err
}

func (m *MockCatalog) ListSeasons(ctx context.Context) ([]models.Season, error) {
	return m.Seasons, m.Err
}

func (m *MockCatalog) ListServers(ctx context.Context) ([]models.Server, error) {
	return m.Servers, m.Err
}

// MockAuditQueue records enqueued rows
type MockAuditQueue struct {
	mu     sync.Mutex
	Full   bool
	Depth  int
	Audits []*models.IngestAudit
}

func (m *MockAuditQueue) Enqueue(audit *models.IngestAudit) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Full {
		return false
	}
	m.Audits = append(m.Audits, audit)
	return true
}

func (m *MockAuditQueue) QueueDepth() int { return m.Depth }

func (m *MockAuditQueue) last() *models.IngestAudit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Audits) == 0 {
		return nil
	}
	return m.Audits[len(m.Audits)-1]
}

// MockReplayStore keeps objects in memory
type MockReplayStore struct {
	Objects    map[string][]byte
	Err        error
	PresignTTL time.Duration
}

func (m *MockReplayStore) Put(ctx context.Context, key string, data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	if m.Objects == nil {
		m.Objects = make(map[string][]byte)
	}
	m.Objects[key] = data
	return nil
}

func (m *MockReplayStore) Open(ctx context.Context, key string) (*replay.Object, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	data, ok := m.Objects[key]
	if !ok {
		return nil, replay.ErrNotFound
	}
	return &replay.Object{Body: io.NopCloser(bytes.NewReader(data)), ContentLength: int64(len(data))}, nil
}

func (m *MockReplayStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.Objects[key]
	return ok, nil
}

func (m *MockReplayStore) Delete(ctx context.Context, key string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Objects, key)
	return nil
}

func (m *MockReplayStore) PresignURL(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.PresignTTL = ttl
	return "https://replays.example/" + key + "?sig=abc", nil
}

// MockPostgres
type MockPostgres struct {
	PingErr error
	ExecErr error
	Execs   []string
}

func (m *MockPostgres) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockPostgres) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.Execs = append(m.Execs, sql)
	return pgconn.CommandTag{}, m.ExecErr
}

// MockClickHouse
type MockClickHouse struct {
	PingErr error
	ExecErr error
	Execs   []string
}

func (m *MockClickHouse) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockClickHouse) Exec(ctx context.Context, query string, args ...any) error {
	m.Execs = append(m.Execs, query)
	return m.ExecErr
}

// MockRedis
type MockRedis struct {
	PingErr error
}

func (m *MockRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.PingErr != nil {
		cmd.SetErr(m.PingErr)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

// newTestHandler builds a Handler with working defaults for every dependency.
func newTestHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.AuditQueue == nil {
		cfg.AuditQueue = &MockAuditQueue{}
	}
	if cfg.Postgres == nil {
		cfg.Postgres = &MockPostgres{}
	}
	if cfg.Redis == nil {
		cfg.Redis = &MockRedis{}
	}
	if cfg.Ingest == nil {
		cfg.Ingest = &MockIngestService{}
	}
	if cfg.Ladder == nil {
		cfg.Ladder = &MockLadderService{}
	}
	if cfg.Battles == nil {
		cfg.Battles = &MockBattleService{}
	}
	if cfg.Players == nil {
		cfg.Players = &MockPlayerService{}
	}
	if cfg.ClientStats == nil {
		cfg.ClientStats = &MockClientStatsService{}
	}
	if cfg.Catalog == nil {
		cfg.Catalog = &MockCatalog{}
	}
	return New(cfg)
}
