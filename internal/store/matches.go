package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/models"
)

// MatchStore persists games rows
type MatchStore struct {
	db     DB
	logger *zap.SugaredLogger
}

func slotColumns(prefix, suffix string, n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("%s%d%s", prefix, i+1, suffix)
	}
	return cols
}

var (
	gameSlotColumns = strings.Join(append(append(append(append(
		slotColumns("sid", "", models.MaxSlots),
		slotColumns("p", "", models.MaxSlots)...),
		slotColumns("r", "", models.MaxSlots)...),
		slotColumns("apm", "r", models.MaxSlots)...),
		slotColumns("mmr", "", models.MaxSlots)...), ", ")

	gameColumns = `id, type, map, g_time, c_time, game_mod, COALESCE(mod_version, ''),
		COALESCE(base_server_name, ''), season_id, COALESCE(replay_link, ''), COALESCE(statsendsid, ''),
		confirmed, is_rate, is_full_std, is_auto, rank_column, relic_game_id, w1, w2, w3, w4, ` + gameSlotColumns
)

func scanMatch(row interface{ Scan(dest ...any) error }) (*models.MatchRecord, error) {
	m := &models.MatchRecord{}
	var (
		sids  [models.MaxSlots]*string
		names [models.MaxSlots]*string
	)
	dest := []any{&m.ID, &m.Type, &m.Map, &m.GameTime, &m.CreatedAt, &m.Mod, &m.ModVersion,
		&m.ServerName, &m.SeasonID, &m.ReplayLink, &m.StatSendSID,
		&m.Confirmed, &m.IsRanked, &m.IsFullStd, &m.IsAuto, &m.RankBucket, &m.RelicGameID,
		&m.Winners[0], &m.Winners[1], &m.Winners[2], &m.Winners[3]}
	for i := range sids {
		dest = append(dest, &sids[i])
	}
	for i := range names {
		dest = append(dest, &names[i])
	}
	for i := range m.Slots {
		dest = append(dest, &m.Slots[i].Race)
	}
	for i := range m.Slots {
		dest = append(dest, &m.Slots[i].APM)
	}
	for i := range m.Slots {
		dest = append(dest, &m.Slots[i].Rating)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	for i := range m.Slots {
		if sids[i] != nil {
			m.Slots[i].SID = *sids[i]
		}
		if names[i] != nil {
			m.Slots[i].Name = *names[i]
		}
	}
	return m, nil
}

func (s *MatchStore) findOne(ctx context.Context, where string, args ...any) (*models.MatchRecord, error) {
	m, err := scanMatch(s.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE `+where+` ORDER BY id DESC LIMIT 1`, args...))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game: %w", err)
	}
	return m, nil
}

func (s *MatchStore) FindByID(ctx context.Context, id int64) (*models.MatchRecord, error) {
	return s.findOne(ctx, `id = $1`, id)
}

func (s *MatchStore) FindByRelicID(ctx context.Context, mod string, relicGameID int64) (*models.MatchRecord, error) {
	return s.findOne(ctx, `relic_game_id = $1 AND game_mod = $2`, relicGameID, mod)
}

// sameMatchWhere builds the same-game predicate: map, duration and recency
// must match exactly, and every slot must carry the same race and either the
// same name or no name at all.
func sameMatchWhere(l models.MatchLookup) (string, []any) {
	args := []any{l.Map, l.GameTime, l.Since}
	conds := []string{"map = $1", "g_time = $2", "c_time > $3"}

	for i := range l.Races {
		slot := i + 1
		if i < len(l.Names) && l.Names[i] != "" {
			args = append(args, l.Names[i])
			conds = append(conds, fmt.Sprintf("(p%d = $%d OR p%d = '')", slot, len(args), slot))
		}
		args = append(args, l.Races[i])
		conds = append(conds, fmt.Sprintf("r%d = $%d", slot, len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func (s *MatchStore) FindSameMatch(ctx context.Context, l models.MatchLookup) (*models.MatchRecord, error) {
	where, args := sameMatchWhere(l)
	return s.findOne(ctx, where, args...)
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s *MatchStore) Insert(ctx context.Context, m *models.MatchRecord) (int64, error) {
	cols := []string{"type", "map", "g_time", "c_time", "game_mod", "mod_version", "base_server_name",
		"season_id", "statsendsid", "confirmed", "is_rate", "is_full_std", "is_auto", "rank_column",
		"relic_game_id", "w1", "w2", "w3", "w4"}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	args := []any{m.Type, m.Map, m.GameTime, createdAt, m.Mod, nullIfEmpty(m.ModVersion), nullIfEmpty(m.ServerName),
		m.SeasonID, m.StatSendSID, m.Confirmed, m.IsRanked, m.IsFullStd, m.IsAuto, m.RankBucket,
		m.RelicGameID, m.Winners[0], m.Winners[1], m.Winners[2], m.Winners[3]}

	for i, slot := range m.Slots {
		n := i + 1
		cols = append(cols, fmt.Sprintf("sid%d", n), fmt.Sprintf("p%d", n), fmt.Sprintf("r%d", n),
			fmt.Sprintf("apm%dr", n), fmt.Sprintf("mmr%d", n))
		args = append(args, nullIfEmpty(slot.SID), slot.Name, slot.Race, slot.APM, slot.Rating)
	}

	sql := `INSERT INTO games (` + strings.Join(cols, ", ") + `) VALUES (` +
		placeholders(1, len(args)) + `) RETURNING id`

	var id int64
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert game: %w", err)
	}
	return id, nil
}

// Merge writes the columns a later report refreshes on an existing row.
func (s *MatchStore) Merge(ctx context.Context, id int64, mg models.MatchMerge) error {
	args := []any{id, mg.GameTime, mg.StatSendSID, mg.IsAuto}
	sets := []string{"g_time = $2", "statsendsid = $3", "is_auto = $4"}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if mg.RelicGameID != nil {
		add("relic_game_id", *mg.RelicGameID)
	}

	slots := make([]int, 0, len(mg.SIDs))
	for slot := range mg.SIDs {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	for _, slot := range slots {
		if slot < 1 || slot > models.MaxSlots || mg.SIDs[slot] == "" {
			continue
		}
		add(fmt.Sprintf("sid%d", slot), mg.SIDs[slot])
	}
	for i, w := range mg.Winners {
		if i >= 4 {
			break
		}
		add(fmt.Sprintf("w%d", i+1), w)
	}
	if mg.SenderSlot >= 1 && mg.SenderSlot <= models.MaxSlots {
		add(fmt.Sprintf("apm%dr", mg.SenderSlot), mg.SenderAPM)
	}

	_, err := s.db.Exec(ctx, `UPDATE games SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("failed to merge game %d: %w", id, err)
	}
	return nil
}

// Confirm is a compare-and-set on the confirmed flag; only the caller that
// flips it sees true.
func (s *MatchStore) Confirm(ctx context.Context, id int64, c models.MatchConfirmation) (bool, error) {
	args := []any{id, c.IsAuto, c.RankBucket}
	sets := []string{"confirmed = TRUE", "is_auto = $2", "rank_column = COALESCE($3, rank_column)"}

	slots := make([]int, 0, len(c.Ratings))
	for slot := range c.Ratings {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	for _, slot := range slots {
		if slot < 1 || slot > models.MaxSlots {
			continue
		}
		args = append(args, c.Ratings[slot])
		sets = append(sets, fmt.Sprintf("mmr%d = $%d", slot, len(args)))
	}

	tag, err := s.db.Exec(ctx, `UPDATE games SET `+strings.Join(sets, ", ")+
		` WHERE id = $1 AND confirmed = FALSE`, args...)
	if err != nil {
		return false, fmt.Errorf("failed to confirm game %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Infow("Game already confirmed", "game_id", id)
		return false, nil
	}
	return true, nil
}

func (s *MatchStore) SetReplayLink(ctx context.Context, id int64, link string) error {
	_, err := s.db.Exec(ctx, `UPDATE games SET replay_link = $2 WHERE id = $1`, id, link)
	if err != nil {
		return fmt.Errorf("failed to set replay link of game %d: %w", id, err)
	}
	return nil
}
