package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/logic"
	"github.com/dowstats/ladder-api/internal/models"
)

// RatingStore persists players_stats and min_max_ranks rows
type RatingStore struct {
	db     DB
	logger *zap.SugaredLogger
}

var profileSelect = `SELECT player_id, mod_id, season_id, mmr, overall_mmr, custom_games_mmr,
	max_mmr, max_overall_mmr, ` + logic.RaceCounterColumns("") + ` FROM players_stats`

// scanProfile reads a row selected with profileSelect
func scanProfile(row interface{ Scan(dest ...any) error }) (*models.RatingProfile, error) {
	p := &models.RatingProfile{}
	counters, collect := logic.RaceCounterScan()

	dest := append([]any{&p.PlayerID, &p.ModID, &p.SeasonID, &p.MMR, &p.OverallMMR,
		&p.CustomGamesMMR, &p.MaxMMR, &p.MaxOverallMMR}, counters...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Races = collect()
	return p, nil
}

func (s *RatingStore) GetOrCreateProfile(ctx context.Context, playerID int64, modID, seasonID int) (*models.RatingProfile, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO players_stats (player_id, mod_id, season_id, mmr, overall_mmr, custom_games_mmr, max_mmr, max_overall_mmr)
		VALUES ($1, $2, $3, $4, $4, $4, $4, $4)
		ON CONFLICT (player_id, season_id, mod_id) DO NOTHING
	`, playerID, modID, seasonID, models.BaselineRating)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile of player %d: %w", playerID, err)
	}

	return s.Profile(ctx, playerID, modID, seasonID)
}

// Profile returns the stored profile, or nil when the player has none in the mod and season.
func (s *RatingStore) Profile(ctx context.Context, playerID int64, modID, seasonID int) (*models.RatingProfile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, profileSelect+`
		WHERE player_id = $1 AND mod_id = $2 AND season_id = $3
	`, playerID, modID, seasonID))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile of player %d: %w", playerID, err)
	}
	return p, nil
}

// LoadMinMax aggregates the solo ratings of a (mod, season) widened to the default range.
func (s *RatingStore) LoadMinMax(ctx context.Context, modID, seasonID int) (models.RankSnapshot, error) {
	snap := models.RankSnapshot{ModID: modID, SeasonID: seasonID}

	var rawMin, rawMax *int
	err := s.db.QueryRow(ctx, `
		SELECT MIN(mmr), MAX(mmr) FROM players_stats WHERE mod_id = $1 AND season_id = $2
	`, modID, seasonID).Scan(&rawMin, &rawMax)
	if err != nil {
		return snap, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	snap.Min, snap.Max = logic.ClampRankBounds(rawMin, rawMax)
	return snap, nil
}

func (s *RatingStore) RankPosition(ctx context.Context, modID, seasonID, mmr int) (int, error) {
	var above int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM players_stats WHERE mod_id = $1 AND season_id = $2 AND mmr > $3
	`, modID, seasonID, mmr).Scan(&above)
	if err != nil {
		return 0, fmt.Errorf("failed to count higher ratings: %w", err)
	}
	return above + 1, nil
}

func (s *RatingStore) PersistMinMax(ctx context.Context, snap models.RankSnapshot) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO min_max_ranks (season_id, mod_id, min_mmr, max_mmr)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (season_id, mod_id) DO UPDATE SET min_mmr = EXCLUDED.min_mmr, max_mmr = EXCLUDED.max_mmr
	`, snap.SeasonID, snap.ModID, snap.Min, snap.Max)
	if err != nil {
		return fmt.Errorf("failed to persist rank bounds: %w", err)
	}
	return nil
}

func (s *RatingStore) RankSnapshot(ctx context.Context, modID, seasonID int) (*models.RankSnapshot, error) {
	snap := &models.RankSnapshot{ModID: modID, SeasonID: seasonID}
	err := s.db.QueryRow(ctx, `
		SELECT min_mmr, max_mmr FROM min_max_ranks WHERE mod_id = $1 AND season_id = $2
	`, modID, seasonID).Scan(&snap.Min, &snap.Max)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rank bounds: %w", err)
	}
	return snap, nil
}

// ApplyRatingDeltas adds the delta in one statement so that concurrent
// confirmations of different games never lose an update.
func (s *RatingStore) ApplyRatingDeltas(ctx context.Context, playerID int64, modID, seasonID int, delta models.RatingDelta) error {
	if delta.IsZero() {
		return nil
	}

	args := []any{playerID, modID, seasonID}
	var sets []string
	if delta.Solo != nil {
		args = append(args, *delta.Solo)
		n := len(args)
		sets = append(sets,
			fmt.Sprintf("mmr = mmr + $%d", n),
			fmt.Sprintf("max_mmr = GREATEST(max_mmr, mmr + $%d)", n))
	}
	if delta.Overall != nil {
		args = append(args, *delta.Overall)
		n := len(args)
		sets = append(sets,
			fmt.Sprintf("overall_mmr = overall_mmr + $%d", n),
			fmt.Sprintf("max_overall_mmr = GREATEST(max_overall_mmr, overall_mmr + $%d)", n))
	}
	if delta.Custom != nil {
		args = append(args, *delta.Custom)
		sets = append(sets, fmt.Sprintf("custom_games_mmr = custom_games_mmr + $%d", len(args)))
	}

	sql := `UPDATE players_stats SET ` + strings.Join(sets, ", ") +
		` WHERE player_id = $1 AND mod_id = $2 AND season_id = $3`
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to apply ratings of player %d: %w", playerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no profile for player %d in mod %d season %d", playerID, modID, seasonID)
	}
	return nil
}

func (s *RatingStore) IncrementRaceCounters(ctx context.Context, playerID int64, modID, seasonID int, key models.RaceKey, won bool) error {
	if !key.Valid() {
		return fmt.Errorf("invalid race counter %dx%d race %d", key.Format, key.Format, key.Race)
	}
	games := quote(key.GamesColumn())
	sets := games + " = " + games + " + 1"
	if won {
		wins := quote(key.WinsColumn())
		sets += ", " + wins + " = " + wins + " + 1"
	}

	_, err := s.db.Exec(ctx, `UPDATE players_stats SET `+sets+`
		WHERE player_id = $1 AND mod_id = $2 AND season_id = $3`, playerID, modID, seasonID)
	if err != nil {
		return fmt.Errorf("failed to bump %s of player %d: %w", key.GamesColumn(), playerID, err)
	}
	return nil
}
