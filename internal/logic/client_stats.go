package logic

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/models"
)

// BanTypeSoftware is the only ban type whose reason is shown to other players
const BanTypeSoftware = "software_use"

const maxNickLength = 64

var nickPattern = regexp.MustCompile(`^[A-Za-z0-9+/=%]+$`)

// DecodeNick decodes a base64 nickname sent by the game client. Control
// characters are stripped; malformed or overlong input yields ok=false.
func DecodeNick(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw)%4 != 0 || !nickPattern.MatchString(raw) {
		return "", false
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || !utf8.Valid(data) {
		return "", false
	}
	nick := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimSpace(string(data)))
	if nick == "" || utf8.RuneCountInString(nick) > maxNickLength {
		return "", false
	}
	return nick, true
}

// ClientStatsRequest is the lobby lookup of the game client. Nicks are the raw
// base64 names aligned with SIDs.
type ClientStatsRequest struct {
	SIDs        []string
	Nicks       []string
	ModTechName string
	ModID       int
	SeasonID    int
}

type clientStatsService struct {
	players  PlayerStore
	ratings  RatingStore
	catalog  CatalogStore
	profiles ProfileDirectory
	logger   *zap.SugaredLogger
}

// NewClientStatsService wires the lobby lookup. profiles may be nil.
func NewClientStatsService(players PlayerStore, ratings RatingStore, catalog CatalogStore, profiles ProfileDirectory, logger *zap.Logger) ClientStatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clientStatsService{
		players:  players,
		ratings:  ratings,
		catalog:  catalog,
		profiles: profiles,
		logger:   logger.Sugar(),
	}
}

// Stats registers unknown Steam ids and returns the stats of every requested
// player in request order.
func (s *clientStatsService) Stats(ctx context.Context, req ClientStatsRequest) (*models.ClientStatsResponse, error) {
	modID, modName, dowde, err := s.resolveMod(ctx, req)
	if err != nil {
		return nil, err
	}
	seasonID, seasonName, err := s.resolveSeason(ctx, req.SeasonID)
	if err != nil {
		return nil, err
	}
	resp := &models.ClientStatsResponse{ModName: modName, SeasonName: seasonName, Stats: []models.ClientStat{}}

	var sids []string
	nicks := make(map[string]string)
	for i, sid := range req.SIDs {
		sid = strings.TrimSpace(sid)
		if sid == "" {
			continue
		}
		sids = append(sids, sid)
		if i < len(req.Nicks) {
			if nick, ok := DecodeNick(req.Nicks[i]); ok {
				nicks[sid] = nick
			}
		}
	}
	if len(sids) == 0 {
		return resp, nil
	}

	players, err := s.ensurePlayers(ctx, sids, nicks)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	bans, err := s.players.FindBans(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, sid := range sids {
		p := players[sid]
		if p == nil {
			continue
		}
		prof, err := s.ratings.GetOrCreateProfile(ctx, p.ID, modID, seasonID)
		if err != nil {
			return nil, err
		}
		rank, err := s.ratings.RankPosition(ctx, modID, seasonID, prof.MMR)
		if err != nil {
			return nil, err
		}
		resp.Stats = append(resp.Stats, clientStat(p, prof, rank, bans[p.ID], dowde))
	}
	return resp, nil
}

func clientStat(p *models.Player, prof *models.RatingProfile, rank int, ban *models.Ban, dowde bool) models.ClientStat {
	total := prof.Races.Totals()
	st := models.ClientStat{
		SID:        p.SID,
		Name:       p.Name,
		AvatarURL:  p.AvatarURL,
		GamesCount: total.Games,
		WinsCount:  total.Wins,
		MMR:        prof.OverallMMR,
		MMR1v1:     prof.MMR,
		Rank:       rank,
		Race:       prof.Races.FavoriteRace(),
		APM:        p.APM,
	}
	if total.Games > 0 {
		st.WinRate = int(math.Round(100 * float64(total.Wins) / float64(total.Games)))
	}
	if ban != nil {
		st.IsBanned = true
		if ban.BanType != "" {
			banType := ban.BanType
			st.BanType = &banType
			if banType == BanTypeSoftware {
				reason := ban.Reason
				st.BanReason = &reason
			}
		}
	}
	if dowde {
		custom := prof.CustomGamesMMR
		st.CustomGamesMMR = &custom
	}
	return st
}

// ensurePlayers creates the missing players and refreshes names and avatars
// of known ones from Steam. The directory is best effort.
func (s *clientStatsService) ensurePlayers(ctx context.Context, sids []string, nicks map[string]string) (map[string]*models.Player, error) {
	existing, err := s.players.FindBySIDs(ctx, sids)
	if err != nil {
		return nil, err
	}

	var found map[string]*models.ExternalProfile
	if s.profiles != nil {
		found, err = s.profiles.Lookup(ctx, sids)
		if err != nil {
			degradedSteps.WithLabelValues(StepProfileEnrichment).Inc()
			s.logger.Warnw("Steam lookup failed", "sids", len(sids), "error", err)
		}
	}

	created := false
	for _, sid := range sids {
		ext := found[sid]
		if cur := existing[sid]; cur != nil {
			if ext == nil {
				continue
			}
			if err := s.players.RefreshProfile(ctx, sid, models.NewPlayerFromProfile(sid, ext, cur.Name)); err != nil {
				s.logger.Warnw("Failed to refresh player profile", "sid", sid, "error", err)
			}
			continue
		}
		if err := s.players.CreateIfMissing(ctx, models.NewPlayerFromProfile(sid, ext, nicks[sid])); err != nil {
			return nil, fmt.Errorf("create player %s: %w", sid, err)
		}
		created = true
	}

	if !created && len(found) == 0 {
		return existing, nil
	}
	return s.players.FindBySIDs(ctx, sids)
}

func (s *clientStatsService) resolveMod(ctx context.Context, req ClientStatsRequest) (id int, name string, dowde bool, err error) {
	id = req.ModID
	if tech := strings.TrimSpace(req.ModTechName); tech != "" {
		mod, err := s.catalog.ModByTechnicalName(ctx, tech)
		if err != nil {
			return 0, "", false, fmt.Errorf("lookup mod %q: %w", tech, err)
		}
		if mod != nil {
			return mod.ID, mod.Name, strings.EqualFold(mod.TechnicalName, models.ModDowde), nil
		}
	}
	if id <= 0 {
		id = models.DefaultModID
	}
	mod, err := s.catalog.ModByID(ctx, id)
	if err != nil {
		return 0, "", false, fmt.Errorf("lookup mod %d: %w", id, err)
	}
	if mod != nil {
		return id, mod.Name, strings.EqualFold(mod.TechnicalName, models.ModDowde), nil
	}
	return id, "", false, nil
}

// resolveSeason uses the explicit season, then the active one, then the off-season.
func (s *clientStatsService) resolveSeason(ctx context.Context, explicit int) (int, string, error) {
	if explicit > 0 {
		season, err := s.catalog.SeasonByID(ctx, explicit)
		if err != nil {
			return 0, "", fmt.Errorf("lookup season %d: %w", explicit, err)
		}
		if season != nil {
			return season.ID, season.SeasonName, nil
		}
	}
	active, err := s.catalog.ActiveSeason(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("lookup active season: %w", err)
	}
	if active != nil {
		return active.ID, active.SeasonName, nil
	}
	return models.DefaultSeasonID, models.DefaultSeasonName, nil
}
