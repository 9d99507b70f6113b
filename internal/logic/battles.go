package logic

import (
	"context"
	"fmt"

	"github.com/dowstats/ladder-api/internal/models"
)

type battleService struct {
	pg       PgPool
	catalog  CatalogStore
	resolver *Resolver
}

func NewBattleService(pg PgPool, catalog CatalogStore, resolver *Resolver) BattleService {
	return &battleService{pg: pg, catalog: catalog, resolver: resolver}
}

// Battles lists confirmed games. An unknown mod or season id drops that filter,
// an unknown server id is a validation error.
func (s *battleService) Battles(ctx context.Context, q BattleQuery) (*models.BattleResponse, error) {
	q.Normalize()

	var f battleFilter
	season, err := s.resolver.Season(ctx, q.SeasonID)
	if err != nil {
		return nil, err
	}
	f.seasonID = season.IDPtr()

	meta := models.BattleMeta{
		SeasonID: f.seasonID,
		ServerID: q.ServerID,
		Sort:     q.Sort,
		Page:     q.Page,
		PageSize: q.PageSize,
	}

	if q.ModID != nil {
		meta.ModID = *q.ModID
		mod, err := s.catalog.ModByID(ctx, *q.ModID)
		if err != nil {
			return nil, fmt.Errorf("lookup mod %d: %w", *q.ModID, err)
		}
		if mod != nil {
			tech := mod.TechnicalName
			f.mod = &tech
			meta.ModTechnicalName = &tech
		}
	}

	if q.ServerID != nil {
		server, err := s.catalog.ServerByID(ctx, *q.ServerID)
		if err != nil {
			return nil, fmt.Errorf("lookup server %d: %w", *q.ServerID, err)
		}
		if server == nil {
			return nil, fmt.Errorf("%w: server not found", ErrValidation)
		}
		f.serverName = &server.Name
	}

	countSQL, pageSQL, args := BuildBattleQuery(q, f)
	if err := s.pg.QueryRow(ctx, countSQL, args[:len(args)-2]...).Scan(&meta.Total); err != nil {
		return nil, fmt.Errorf("count battles: %w", err)
	}
	meta.TotalPages = totalPages(meta.Total, q.PageSize)

	resp := &models.BattleResponse{Items: []models.BattleItem{}, Meta: meta}
	if meta.Total == 0 {
		return resp, nil
	}

	rows, err := s.pg.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query battles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b models.BattleItem
		dest := []any{&b.ID, &b.Type, &b.Map, &b.CreatedAt, &b.GameTime, &b.Mod, &b.ModVersion,
			&b.ServerName, &b.SeasonID, &b.ReplayLink, &b.RankBucket}
		for i := range b.SIDs {
			dest = append(dest, &b.SIDs[i])
		}
		for i := range b.Names {
			dest = append(dest, &b.Names[i])
		}
		for i := range b.Races {
			dest = append(dest, &b.Races[i])
		}
		for i := range b.Winners {
			dest = append(dest, &b.Winners[i])
		}
		dest = append(dest, &b.IsAuto, &b.RelicGameID)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		resp.Items = append(resp.Items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
