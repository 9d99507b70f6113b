package logic

import (
	"context"
	"fmt"
	"math"

	"github.com/dowstats/ladder-api/internal/models"
)

type playerProfileService struct {
	players  PlayerStore
	ratings  RatingStore
	catalog  CatalogStore
	resolver *Resolver
}

func NewPlayerProfileService(players PlayerStore, ratings RatingStore, catalog CatalogStore, resolver *Resolver) PlayerProfileService {
	return &playerProfileService{players: players, ratings: ratings, catalog: catalog, resolver: resolver}
}

// Profile returns a nil item when the season cannot be resolved or the player
// has no stats row in it.
func (s *playerProfileService) Profile(ctx context.Context, playerID int64, modID int, seasonID *int) (*models.PlayerProfileResponse, error) {
	if playerID <= 0 {
		return nil, fmt.Errorf("%w: player id must be a positive integer", ErrValidation)
	}
	if modID <= 0 {
		return nil, fmt.Errorf("%w: mod is required and must be a positive integer", ErrValidation)
	}

	season, err := s.resolver.Season(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	resp := &models.PlayerProfileResponse{
		Meta: models.PlayerProfileMeta{PlayerID: playerID, ModID: modID, SeasonID: season.IDPtr()},
	}
	if !season.Found() {
		return resp, nil
	}

	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return resp, nil
	}
	stats, err := s.ratings.Profile(ctx, playerID, modID, season.ID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return resp, nil
	}

	races, err := s.catalog.ListRaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}

	resp.Item = &models.PlayerProfile{
		PlayerID:      player.ID,
		Name:          player.Name,
		AvatarURL:     player.AvatarURL,
		ServerID:      player.ServerID,
		ModID:         modID,
		SeasonID:      season.ID,
		MMR:           stats.MMR,
		OverallMMR:    stats.OverallMMR,
		MaxMMR:        stats.MaxMMR,
		MaxOverallMMR: stats.MaxOverallMMR,
		Solo:          formatTotals(stats.Races.Totals(1)),
		Team:          formatTotals(stats.Races.Totals(2, 3, 4)),
		Formats:       formatBreakdown(stats.Races, races),
	}
	return resp, nil
}

func formatTotals(rec models.RaceRecord) models.FormatTotals {
	return models.FormatTotals{TotalGames: rec.Games, TotalWins: rec.Wins, Winrate: winrate(rec)}
}

// winrate is the win percentage rounded to one decimal, nil without games.
func winrate(rec models.RaceRecord) *float64 {
	if rec.Games <= 0 {
		return nil
	}
	v := math.Round(float64(rec.Wins)/float64(rec.Games)*1000) / 10
	return &v
}

// formatBreakdown lists all races for every format under "1v1" .. "4v4".
func formatBreakdown(stats models.RaceStats, races []models.Race) map[string][]models.FormatRaceStat {
	byID := make(map[int]models.Race, len(races))
	for _, r := range races {
		byID[r.ID] = r
	}

	out := make(map[string][]models.FormatRaceStat, models.MaxFormat)
	for f := models.MinFormat; f <= models.MaxFormat; f++ {
		list := make([]models.FormatRaceStat, 0, models.RaceCount)
		for r := 1; r <= models.RaceCount; r++ {
			rec := stats[models.RaceKey{Format: f, Race: r}]
			line := models.FormatRaceStat{RaceID: r, Games: rec.Games, Wins: rec.Wins, Losses: rec.Losses()}
			if info, ok := byID[r]; ok {
				name, short := info.Name, info.ShortName
				line.RaceName, line.RaceShortName = &name, &short
			}
			list = append(list, line)
		}
		out[fmt.Sprintf("%dv%d", f, f)] = list
	}
	return out
}
