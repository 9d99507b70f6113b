package logic

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dowstats/ladder-api/internal/models"
)

type ladderService struct {
	pg       PgPool
	resolver *Resolver
	cache    LadderPageCache
	logger   *zap.SugaredLogger
	group    singleflight.Group
}

// NewLadderService returns the ladder reader. cache may be nil.
func NewLadderService(pg PgPool, resolver *Resolver, cache LadderPageCache, logger *zap.Logger) LadderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ladderService{pg: pg, resolver: resolver, cache: cache, logger: logger.Sugar()}
}

func (s *ladderService) Ladder(ctx context.Context, q LadderQuery) (*models.LadderResponse, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	season, err := s.resolver.Season(ctx, q.SeasonID)
	if err != nil {
		return nil, err
	}
	resp := &models.LadderResponse{
		Items: []models.LadderEntry{},
		Meta: models.LadderMeta{
			ModID:    q.ModID,
			SeasonID: season.IDPtr(),
			MMRType:  q.MMRType,
			Sort:     q.Sort,
			Page:     q.Page,
			PageSize: q.PageSize,
		},
	}
	if !season.Found() {
		return resp, nil
	}

	key := q.CacheKey()
	if cached, ok := s.fromCache(ctx, q.ModID, season.ID, key); ok {
		return cached, nil
	}

	// Concurrent misses for the same page share one query
	v, err, _ := s.group.Do(fmt.Sprintf("%d:%d:%s", q.ModID, season.ID, key), func() (interface{}, error) {
		if err := s.fillPage(ctx, q, season.ID, resp); err != nil {
			return nil, err
		}
		s.store(ctx, q.ModID, season.ID, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.LadderResponse), nil
}

func (s *ladderService) fromCache(ctx context.Context, modID, seasonID int, key string) (*models.LadderResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, modID, seasonID, key)
	if err != nil {
		ladderCacheHits.WithLabelValues("error").Inc()
		s.logger.Warnw("Ladder cache read failed", "mod", modID, "season", seasonID, "error", err)
		return nil, false
	}
	if !ok {
		ladderCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	var resp models.LadderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		ladderCacheHits.WithLabelValues("error").Inc()
		s.logger.Warnw("Discarding unreadable ladder page", "mod", modID, "season", seasonID, "error", err)
		return nil, false
	}
	ladderCacheHits.WithLabelValues("hit").Inc()
	return &resp, true
}

func (s *ladderService) store(ctx context.Context, modID, seasonID int, key string, resp *models.LadderResponse) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, modID, seasonID, key, data); err != nil {
		s.logger.Warnw("Ladder cache write failed", "mod", modID, "season", seasonID, "error", err)
	}
}

func (s *ladderService) fillPage(ctx context.Context, q LadderQuery, seasonID int, resp *models.LadderResponse) error {
	countSQL, pageSQL, args := BuildLadderQuery(q, seasonID)
	filterArgs := args[:len(args)-2]

	if err := s.pg.QueryRow(ctx, countSQL, filterArgs...).Scan(&resp.Meta.Total); err != nil {
		return fmt.Errorf("count ladder rows: %w", err)
	}
	resp.Meta.TotalPages = totalPages(resp.Meta.Total, q.PageSize)
	if resp.Meta.Total == 0 {
		return nil
	}

	rows, err := s.pg.Query(ctx, pageSQL, args...)
	if err != nil {
		return fmt.Errorf("query ladder page: %w", err)
	}
	defer rows.Close()

	offset := (q.Page - 1) * q.PageSize
	for rows.Next() {
		var e models.LadderEntry
		counters, collect := RaceCounterScan()
		dest := append([]any{&e.PlayerID, &e.Name, &e.AvatarURL, &e.MMR, &e.Games, &e.Wins}, counters...)
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan ladder row: %w", err)
		}
		e.Rank = offset + len(resp.Items) + 1
		e.Race = collect().FavoriteRace()
		resp.Items = append(resp.Items, e)
	}
	return rows.Err()
}
