package logic

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/dowstats/ladder-api/internal/models"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 200
	// DefaultMinGames hides ladder rows without a single game in the requested formats
	DefaultMinGames = 1
)

// sqlArgs accumulates positional arguments and hands out their $n placeholders
type sqlArgs struct {
	values []any
}

func (a *sqlArgs) add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

var raceCounterKeys = models.AllRaceKeys()

// RaceCounterColumns lists every quoted per-race counter column, games then wins per key.
// alias, when set, qualifies each column ("ps" gives ps."1x1_1").
func RaceCounterColumns(alias string) string {
	cols := make([]string, 0, len(raceCounterKeys)*2)
	for _, k := range raceCounterKeys {
		cols = append(cols, qualify(alias, k.GamesColumn()), qualify(alias, k.WinsColumn()))
	}
	return strings.Join(cols, ", ")
}

// RaceCounterScan returns scan destinations matching RaceCounterColumns and a
// collector that turns them into RaceStats once the row was scanned.
// Zero pairs are left out of the result.
func RaceCounterScan() ([]any, func() models.RaceStats) {
	counters := make([]int, len(raceCounterKeys)*2)
	dest := make([]any, len(counters))
	for i := range counters {
		dest[i] = &counters[i]
	}
	return dest, func() models.RaceStats {
		stats := models.RaceStats{}
		for i, k := range raceCounterKeys {
			games, wins := counters[i*2], counters[i*2+1]
			if games == 0 && wins == 0 {
				continue
			}
			stats[k] = models.RaceRecord{Games: games, Wins: wins}
		}
		return stats
	}
}

func qualify(alias, col string) string {
	if alias == "" {
		return pq.QuoteIdentifier(col)
	}
	return alias + "." + pq.QuoteIdentifier(col)
}

// formatSumExpr adds up the games (or wins) counters of the given formats.
func formatSumExpr(alias string, wins bool, formats ...int) string {
	var terms []string
	for _, f := range formats {
		for r := 1; r <= models.RaceCount; r++ {
			k := models.RaceKey{Format: f, Race: r}
			col := k.GamesColumn()
			if wins {
				col = k.WinsColumn()
			}
			terms = append(terms, "COALESCE("+qualify(alias, col)+", 0)")
		}
	}
	return "(" + strings.Join(terms, " + ") + ")"
}

// LadderQuery holds the parameters of a ladder page
type LadderQuery struct {
	ModID    int
	SeasonID *int
	MMRType  string
	Search   string `validate:"max=64"`
	Sort     string
	ServerID *int
	Page     int
	PageSize int
	MinGames int
}

// Normalize applies defaults and bounds. Only an unknown mmrType is rejected.
func (q *LadderQuery) Normalize() error {
	if q.ModID <= 0 {
		return fmt.Errorf("%w: mod is required and must be a positive integer", ErrValidation)
	}
	q.MMRType = strings.ToLower(q.MMRType)
	if q.MMRType == "" {
		q.MMRType = "solo"
	}
	if q.MMRType != "solo" && q.MMRType != "team" {
		return fmt.Errorf("%w: mmrType must be 'solo' or 'team'", ErrValidation)
	}
	q.Sort = normalizeSort(q.Sort)
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize)
	if q.MinGames < 0 {
		q.MinGames = 0
	}
	return nil
}

// Formats returns the team sizes counted by the requested rating.
func (q LadderQuery) Formats() []int {
	if q.MMRType == "team" {
		return []int{2, 3, 4}
	}
	return []int{1}
}

func (q LadderQuery) ratingColumn() string {
	if q.MMRType == "team" {
		return "ps.overall_mmr"
	}
	return "ps.mmr"
}

// CacheKey is stable for equal normalized queries within a (mod, season).
func (q LadderQuery) CacheKey() string {
	v := url.Values{}
	v.Set("mmrType", q.MMRType)
	v.Set("sort", q.Sort)
	v.Set("search", q.Search)
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	v.Set("minGames", strconv.Itoa(q.MinGames))
	if q.ServerID != nil {
		v.Set("server", strconv.Itoa(*q.ServerID))
	}
	return v.Encode()
}

// BuildLadderQuery constructs the count and page statements of a ladder query.
// The page rows are: id, name, avatar, rating, games, wins, then RaceCounterColumns.
func BuildLadderQuery(q LadderQuery, seasonID int) (countSQL, pageSQL string, args []any) {
	var a sqlArgs
	formats := q.Formats()
	games := formatSumExpr("ps", false, formats...)
	wins := formatSumExpr("ps", true, formats...)

	where := []string{
		"ps.season_id = " + a.add(seasonID),
		"ps.mod_id = " + a.add(q.ModID),
	}
	if q.ServerID != nil {
		where = append(where, "p.server_id = "+a.add(*q.ServerID))
	}
	if q.Search != "" {
		pattern := a.add(containsPattern(q.Search))
		where = append(where, fmt.Sprintf(`(LOWER(p.name) LIKE %s ESCAPE '\' OR LOWER(COALESCE(p.last_nicknames, '')) LIKE %s ESCAPE '\')`, pattern, pattern))
	}
	if q.MinGames > 0 {
		where = append(where, games+" >= "+a.add(q.MinGames))
	}

	from := " FROM players_stats ps JOIN players p ON p.id = ps.player_id WHERE " + strings.Join(where, " AND ")
	countSQL = "SELECT COUNT(*)" + from

	dir := strings.ToUpper(q.Sort)
	pageSQL = fmt.Sprintf("SELECT p.id, p.name, COALESCE(p.avatar_url, ''), %s, %s, %s, %s%s ORDER BY %s %s, p.id ASC LIMIT %s OFFSET %s",
		q.ratingColumn(), games, wins, RaceCounterColumns("ps"), from,
		q.ratingColumn(), dir, a.add(q.PageSize), a.add((q.Page-1)*q.PageSize))

	return countSQL, pageSQL, a.values
}

// BattleQuery holds the filters of the battle history
type BattleQuery struct {
	ModID       *int
	SeasonID    *int
	ServerID    *int
	SIDs        []string `validate:"max=64,dive,max=32"`
	DateFrom    *time.Time
	DateTo      *time.Time
	MinDuration *int
	MaxDuration *int
	Map         string `validate:"max=256"`
	MapLike     string `validate:"max=256"`
	IsAuto      *bool
	WinnerRaces []int `validate:"max=9"`
	LoserRaces  []int `validate:"max=9"`
	Sort        string
	Page        int
	PageSize    int
}

func (q *BattleQuery) Normalize() {
	q.Sort = normalizeSort(q.Sort)
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize)
	q.MapLike = strings.ToLower(q.MapLike)

	seen := make(map[string]bool, len(q.SIDs))
	sids := q.SIDs[:0]
	for _, sid := range q.SIDs {
		sid = strings.TrimSpace(sid)
		if sid == "" || seen[sid] {
			continue
		}
		seen[sid] = true
		sids = append(sids, sid)
	}
	q.SIDs = sids
}

// battleFilter carries the values resolved from the catalog
type battleFilter struct {
	seasonID   *int
	mod        *string
	serverName *string
}

var battleColumns = func() string {
	cols := []string{"id", "type", "map", "c_time", "g_time", "game_mod", "COALESCE(mod_version, '')",
		"COALESCE(base_server_name, '')", "season_id", "COALESCE(replay_link, '')", "rank_column"}
	for i := 1; i <= models.MaxSlots; i++ {
		cols = append(cols, fmt.Sprintf("COALESCE(sid%d, '')", i))
	}
	for i := 1; i <= models.MaxSlots; i++ {
		cols = append(cols, fmt.Sprintf("COALESCE(p%d, '')", i))
	}
	for i := 1; i <= models.MaxSlots; i++ {
		cols = append(cols, fmt.Sprintf("r%d", i))
	}
	cols = append(cols, "w1", "w2", "w3", "w4", "is_auto", "relic_game_id")
	return strings.Join(cols, ", ")
}()

// raceResultCondition matches games where some slot played race and won (or lost).
// w1..w4 hold winning slot numbers.
func raceResultCondition(a *sqlArgs, race int, won bool) string {
	p := a.add(race)
	slots := make([]string, 0, models.MaxSlots)
	for i := 1; i <= models.MaxSlots; i++ {
		in := "IN"
		if !won {
			in = "NOT IN"
		}
		slots = append(slots, fmt.Sprintf("(r%d = %s AND %d %s (w1, w2, w3, w4))", i, p, i, in))
	}
	return "(" + strings.Join(slots, " OR ") + ")"
}

// BuildBattleQuery constructs the count and page statements of a battle history query.
func BuildBattleQuery(q BattleQuery, f battleFilter) (countSQL, pageSQL string, args []any) {
	var a sqlArgs
	where := []string{"confirmed = TRUE"}

	if f.seasonID != nil {
		where = append(where, "season_id = "+a.add(*f.seasonID))
	}
	if f.mod != nil {
		where = append(where, "game_mod = "+a.add(*f.mod))
	}
	if f.serverName != nil {
		where = append(where, "base_server_name = "+a.add(*f.serverName))
	}
	if q.DateFrom != nil {
		where = append(where, "c_time >= "+a.add(*q.DateFrom))
	}
	if q.DateTo != nil {
		where = append(where, "c_time <= "+a.add(*q.DateTo))
	}
	if q.MinDuration != nil {
		where = append(where, "g_time >= "+a.add(*q.MinDuration))
	}
	if q.MaxDuration != nil {
		where = append(where, "g_time <= "+a.add(*q.MaxDuration))
	}
	if q.Map != "" {
		where = append(where, "map = "+a.add(q.Map))
	}
	if q.MapLike != "" {
		where = append(where, "LOWER(map) LIKE "+a.add(containsPattern(q.MapLike))+` ESCAPE '\'`)
	}
	if q.IsAuto != nil {
		where = append(where, "is_auto = "+a.add(*q.IsAuto))
	}
	if len(q.SIDs) > 0 {
		p := a.add(q.SIDs)
		conds := make([]string, 0, models.MaxSlots)
		for i := 1; i <= models.MaxSlots; i++ {
			conds = append(conds, fmt.Sprintf("sid%d = ANY(%s)", i, p))
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}
	if len(q.WinnerRaces) > 0 {
		conds := make([]string, 0, len(q.WinnerRaces))
		for _, r := range q.WinnerRaces {
			conds = append(conds, raceResultCondition(&a, r, true))
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}
	if len(q.LoserRaces) > 0 {
		conds := make([]string, 0, len(q.LoserRaces))
		for _, r := range q.LoserRaces {
			conds = append(conds, raceResultCondition(&a, r, false))
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}

	from := " FROM games WHERE " + strings.Join(where, " AND ")
	countSQL = "SELECT COUNT(*)" + from
	pageSQL = fmt.Sprintf("SELECT %s%s ORDER BY c_time %s, id %s LIMIT %s OFFSET %s",
		battleColumns, from, strings.ToUpper(q.Sort), strings.ToUpper(q.Sort),
		a.add(q.PageSize), a.add((q.Page-1)*q.PageSize))

	return countSQL, pageSQL, a.values
}

func normalizeSort(sort string) string {
	if strings.EqualFold(sort, "asc") {
		return "asc"
	}
	return "desc"
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func totalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern matches v anywhere, with LIKE wildcards in v taken literally.
func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}
