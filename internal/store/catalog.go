package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dowstats/ladder-api/internal/models"
)

// CatalogStore reads the mods, seasons, servers and races tables
type CatalogStore struct {
	db DB
}

func (s *CatalogStore) mod(ctx context.Context, where string, arg any) (*models.Mod, error) {
	var m models.Mod
	err := s.db.QueryRow(ctx, `SELECT id, name, technical_name, position FROM mods WHERE `+where, arg).
		Scan(&m.ID, &m.Name, &m.TechnicalName, &m.Position)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mod: %w", err)
	}
	return &m, nil
}

func (s *CatalogStore) ModByTechnicalName(ctx context.Context, name string) (*models.Mod, error) {
	return s.mod(ctx, `technical_name = $1`, strings.ToLower(name))
}

func (s *CatalogStore) ModByID(ctx context.Context, id int) (*models.Mod, error) {
	return s.mod(ctx, `id = $1`, id)
}

func (s *CatalogStore) season(ctx context.Context, query string, args ...any) (*models.Season, error) {
	var season models.Season
	err := s.db.QueryRow(ctx, query, args...).Scan(&season.ID, &season.SeasonName, &season.IsActive)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season: %w", err)
	}
	return &season, nil
}

func (s *CatalogStore) SeasonByID(ctx context.Context, id int) (*models.Season, error) {
	return s.season(ctx, `SELECT id, season_name, is_active FROM seasons WHERE id = $1`, id)
}

// ActiveSeason returns the newest season flagged active
func (s *CatalogStore) ActiveSeason(ctx context.Context) (*models.Season, error) {
	return s.season(ctx, `SELECT id, season_name, is_active FROM seasons WHERE is_active ORDER BY id DESC LIMIT 1`)
}

func (s *CatalogStore) LatestSeason(ctx context.Context) (*models.Season, error) {
	return s.season(ctx, `SELECT id, season_name, is_active FROM seasons ORDER BY id DESC LIMIT 1`)
}

func (s *CatalogStore) ServerByID(ctx context.Context, id int) (*models.Server, error) {
	var srv models.Server
	err := s.db.QueryRow(ctx, `SELECT id, name FROM servers WHERE id = $1`, id).Scan(&srv.ID, &srv.Name)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server %d: %w", id, err)
	}
	return &srv, nil
}

func (s *CatalogStore) ListMods(ctx context.Context) ([]models.Mod, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, technical_name, position FROM mods WHERE visible ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mods: %w", err)
	}
	defer rows.Close()

	mods := []models.Mod{}
	for rows.Next() {
		var m models.Mod
		if err := rows.Scan(&m.ID, &m.Name, &m.TechnicalName, &m.Position); err != nil {
			return nil, fmt.Errorf("failed to scan mod: %w", err)
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

func (s *CatalogStore) ListSeasons(ctx context.Context) ([]models.Season, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, season_name, is_active FROM seasons ORDER BY is_active DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	seasons := []models.Season{}
	for rows.Next() {
		var season models.Season
		if err := rows.Scan(&season.ID, &season.SeasonName, &season.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, season)
	}
	return seasons, rows.Err()
}

func (s *CatalogStore) ListServers(ctx context.Context) ([]models.Server, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM servers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers := []models.Server{}
	for rows.Next() {
		var srv models.Server
		if err := rows.Scan(&srv.ID, &srv.Name); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		servers = append(servers, srv)
	}
	return servers, rows.Err()
}

func (s *CatalogStore) ListRaces(ctx context.Context) ([]models.Race, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, short_name FROM races ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list races: %w", err)
	}
	defer rows.Close()

	races := []models.Race{}
	for rows.Next() {
		var r models.Race
		if err := rows.Scan(&r.ID, &r.Name, &r.ShortName); err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, r)
	}
	return races, rows.Err()
}
