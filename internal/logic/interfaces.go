package logic

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dowstats/ladder-api/internal/models"
)

// PgPool defines the interface for PostgreSQL connection pool
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PlayerStore persists Player rows. Lookups return missing ids as absent map keys.
type PlayerStore interface {
	FindBySIDs(ctx context.Context, sids []string) (map[string]*models.Player, error)
	FindByID(ctx context.Context, id int64) (*models.Player, error)
	// CreateIfMissing inserts the player unless its sid already exists.
	CreateIfMissing(ctx context.Context, p *models.Player) error
	RefreshProfile(ctx context.Context, sid string, p *models.Player) error
	// RecordAPM folds one sample into the running APM average in a single statement.
	RecordAPM(ctx context.Context, playerID int64, apm int) error
	TouchActivity(ctx context.Context, playerID int64, gameTime int) error
	FindBans(ctx context.Context, playerIDs []int64) (map[int64]*models.Ban, error)
}

// RatingStore is the Rating Snapshot Store consumed by the reconciliation engine
type RatingStore interface {
	// GetOrCreateProfile is an idempotent upsert at the baseline rating.
	GetOrCreateProfile(ctx context.Context, playerID int64, modID, seasonID int) (*models.RatingProfile, error)
	// Profile returns nil when the player has no row in the mod and season.
	Profile(ctx context.Context, playerID int64, modID, seasonID int) (*models.RatingProfile, error)
	// RankPosition is one plus the number of profiles with a higher solo rating.
	RankPosition(ctx context.Context, modID, seasonID, mmr int) (int, error)
	// LoadMinMax aggregates the solo ratings of a (mod, season) and clamps them with ClampRankBounds.
	LoadMinMax(ctx context.Context, modID, seasonID int) (models.RankSnapshot, error)
	PersistMinMax(ctx context.Context, snap models.RankSnapshot) error
	// RankSnapshot returns the stored bounds, or nil when none were persisted yet.
	RankSnapshot(ctx context.Context, modID, seasonID int) (*models.RankSnapshot, error)
	ApplyRatingDeltas(ctx context.Context, playerID int64, modID, seasonID int, delta models.RatingDelta) error
	IncrementRaceCounters(ctx context.Context, playerID int64, modID, seasonID int, key models.RaceKey, won bool) error
}

// MatchStore persists games rows. Lookups return (nil, nil) when nothing matches.
type MatchStore interface {
	FindByRelicID(ctx context.Context, mod string, relicGameID int64) (*models.MatchRecord, error)
	FindSameMatch(ctx context.Context, lookup models.MatchLookup) (*models.MatchRecord, error)
	Insert(ctx context.Context, m *models.MatchRecord) (int64, error)
	Merge(ctx context.Context, id int64, merge models.MatchMerge) error
	// Confirm freezes the snapshots only if the row is still unconfirmed and reports whether it did.
	Confirm(ctx context.Context, id int64, c models.MatchConfirmation) (bool, error)
	SetReplayLink(ctx context.Context, id int64, link string) error
}

// IngestStores are the stores a reconciliation writes through
type IngestStores struct {
	Players PlayerStore
	Ratings RatingStore
	Matches MatchStore
}

// TxRunner runs fn inside one transaction. An error from fn rolls back every
// write made through tx.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx IngestStores) error) error
}

// CatalogStore reads the mods, seasons, servers and races reference tables
type CatalogStore interface {
	ModByTechnicalName(ctx context.Context, name string) (*models.Mod, error)
	ModByID(ctx context.Context, id int) (*models.Mod, error)
	SeasonByID(ctx context.Context, id int) (*models.Season, error)
	ActiveSeason(ctx context.Context) (*models.Season, error)
	LatestSeason(ctx context.Context) (*models.Season, error)
	ServerByID(ctx context.Context, id int) (*models.Server, error)
	ListMods(ctx context.Context) ([]models.Mod, error)
	ListSeasons(ctx context.Context) ([]models.Season, error)
	ListServers(ctx context.Context) ([]models.Server, error)
	ListRaces(ctx context.Context) ([]models.Race, error)
}

// ProfileDirectory looks up display names and avatars by Steam id
type ProfileDirectory interface {
	Lookup(ctx context.Context, sids []string) (map[string]*models.ExternalProfile, error)
}

// MatchLocker narrows the double-insert window between concurrent first reports
type MatchLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// LadderInvalidator drops cached ladder pages of a (mod, season)
type LadderInvalidator interface {
	Invalidate(ctx context.Context, modID, seasonID int) error
}

// LadderPageCache stores rendered ladder pages per (mod, season)
type LadderPageCache interface {
	Get(ctx context.Context, modID, seasonID int, key string) ([]byte, bool, error)
	Set(ctx context.Context, modID, seasonID int, key string, page []byte) error
}

// ReplayUploader stores replay blobs under a key
type ReplayUploader interface {
	Put(ctx context.Context, key string, data []byte) error
}

// MatchIngestService reconciles telemetry reports into games rows and ratings
type MatchIngestService interface {
	Ingest(ctx context.Context, r *models.Report) (*IngestOutcome, error)
	// IngestWithReplay reconciles like Ingest and links the stored replay onto the resolved row.
	IngestWithReplay(ctx context.Context, r *models.Report, replay []byte) (*IngestOutcome, error)
}

// LadderService serves paginated rating ladders
type LadderService interface {
	Ladder(ctx context.Context, q LadderQuery) (*models.LadderResponse, error)
}

// BattleService serves the confirmed game history
type BattleService interface {
	Battles(ctx context.Context, q BattleQuery) (*models.BattleResponse, error)
}

// PlayerProfileService serves the per-mod, per-season profile of one player
type PlayerProfileService interface {
	Profile(ctx context.Context, playerID int64, modID int, seasonID *int) (*models.PlayerProfileResponse, error)
}

// ClientStatsService answers the game client's lobby stats lookup
type ClientStatsService interface {
	Stats(ctx context.Context, req ClientStatsRequest) (*models.ClientStatsResponse, error)
}
