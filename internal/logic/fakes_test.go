package logic

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dowstats/ladder-api/internal/models"
)

var errStoreDown = errors.New("store unreachable")

type profileKey struct {
	playerID int64
	modID    int
	seasonID int
}

// memStore is an in-memory implementation of the player, rating, match and
// catalog stores. Fail* fields inject errors into single operations.
type memStore struct {
	mu sync.Mutex

	players   map[string]*models.Player
	nextID    int64
	profiles  map[profileKey]*models.RatingProfile
	snapshots map[[2]int]models.RankSnapshot
	games     []*models.MatchRecord
	bans      map[int64]*models.Ban

	mods    []models.Mod
	seasons []models.Season
	servers []models.Server
	races   []models.Race

	deltaCalls   int
	counterCalls int
	apmCalls     int
	txCalls      int
	rollbacks    int

	FailFindPlayers bool
	FailInsert      bool
	FailApply       bool
	FailLoadMinMax  bool
}

func newMemStore() *memStore {
	return &memStore{
		players:   map[string]*models.Player{},
		profiles:  map[profileKey]*models.RatingProfile{},
		snapshots: map[[2]int]models.RankSnapshot{},
		bans:      map[int64]*models.Ban{},
		mods: []models.Mod{
			{ID: 1, Name: "Dark Crusade", TechnicalName: "dxp2", Position: 1},
			{ID: 2, Name: "Definitive Edition", TechnicalName: "dowde", Position: 2},
		},
		seasons: []models.Season{{ID: 1, SeasonName: "Off-season"}, {ID: 3, SeasonName: "Season 3", IsActive: true}},
		servers: []models.Server{{ID: 1, Name: "Steam"}},
		races:   []models.Race{{ID: 1, Name: "Space Marines", ShortName: "SM"}, {ID: 3, Name: "Orks", ShortName: "Orks"}},
	}
}

// PlayerStore

func (m *memStore) FindBySIDs(ctx context.Context, sids []string) (map[string]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFindPlayers {
		return nil, errStoreDown
	}
	out := map[string]*models.Player{}
	for _, sid := range sids {
		if p, ok := m.players[sid]; ok {
			cp := *p
			out[sid] = &cp
		}
	}
	return out, nil
}

func (m *memStore) FindByID(ctx context.Context, id int64) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateIfMissing(ctx context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.SID]; ok {
		return nil
	}
	m.nextID++
	cp := *p
	cp.ID = m.nextID
	m.players[p.SID] = &cp
	return nil
}

func (m *memStore) RefreshProfile(ctx context.Context, sid string, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.players[sid]; ok {
		cur.Name = p.Name
		if p.AvatarURL != "" {
			cur.AvatarURL = p.AvatarURL
		}
	}
	return nil
}

func (m *memStore) RecordAPM(ctx context.Context, playerID int64, apm int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apmCalls++
	for _, p := range m.players {
		if p.ID == playerID {
			p.APM = (p.APM*float64(p.APMGameCounter) + float64(apm)) / float64(p.APMGameCounter+1)
			p.APMGameCounter++
		}
	}
	return nil
}

func (m *memStore) TouchActivity(ctx context.Context, playerID int64, gameTime int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.ID == playerID {
			now := time.Now()
			p.LastActive = &now
			p.TimePlayed += int64(gameTime)
		}
	}
	return nil
}

func (m *memStore) FindBans(ctx context.Context, ids []int64) (map[int64]*models.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]*models.Ban{}
	for _, id := range ids {
		if b, ok := m.bans[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

// RatingStore

func (m *memStore) GetOrCreateProfile(ctx context.Context, playerID int64, modID, seasonID int) (*models.RatingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := profileKey{playerID, modID, seasonID}
	p, ok := m.profiles[key]
	if !ok {
		p = models.NewRatingProfile(playerID, modID, seasonID)
		m.profiles[key] = p
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Profile(ctx context.Context, playerID int64, modID, seasonID int) (*models.RatingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileKey{playerID, modID, seasonID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) RankPosition(ctx context.Context, modID, seasonID, mmr int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rank := 1
	for k, p := range m.profiles {
		if k.modID == modID && k.seasonID == seasonID && p.MMR > mmr {
			rank++
		}
	}
	return rank, nil
}

func (m *memStore) profile(playerID int64, modID, seasonID int) *models.RatingProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[profileKey{playerID, modID, seasonID}]
}

func (m *memStore) LoadMinMax(ctx context.Context, modID, seasonID int) (models.RankSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoadMinMax {
		return models.RankSnapshot{}, errStoreDown
	}
	var lo, hi *int
	for k, p := range m.profiles {
		if k.modID != modID || k.seasonID != seasonID {
			continue
		}
		v := p.MMR
		if lo == nil || v < *lo {
			lo = &v
		}
		if hi == nil || v > *hi {
			w := v
			hi = &w
		}
	}
	snap := models.RankSnapshot{ModID: modID, SeasonID: seasonID}
	snap.Min, snap.Max = ClampRankBounds(lo, hi)
	return snap, nil
}

func (m *memStore) PersistMinMax(ctx context.Context, snap models.RankSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[[2]int{snap.ModID, snap.SeasonID}] = snap
	return nil
}

func (m *memStore) RankSnapshot(ctx context.Context, modID, seasonID int) (*models.RankSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[[2]int{modID, seasonID}]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memStore) ApplyRatingDeltas(ctx context.Context, playerID int64, modID, seasonID int, d models.RatingDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailApply {
		return errStoreDown
	}
	m.deltaCalls++
	p, ok := m.profiles[profileKey{playerID, modID, seasonID}]
	if !ok {
		return errors.New("no profile")
	}
	d.Apply(p)
	return nil
}

func (m *memStore) IncrementRaceCounters(ctx context.Context, playerID int64, modID, seasonID int, key models.RaceKey, won bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counterCalls++
	p := m.profiles[profileKey{playerID, modID, seasonID}]
	rec := p.Races[key]
	rec.Games++
	if won {
		rec.Wins++
	}
	p.Races[key] = rec
	return nil
}

// MatchStore

func (m *memStore) FindByRelicID(ctx context.Context, mod string, relicGameID int64) (*models.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.games) - 1; i >= 0; i-- {
		g := m.games[i]
		if g.Mod == mod && g.RelicGameID != nil && *g.RelicGameID == relicGameID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindSameMatch(ctx context.Context, l models.MatchLookup) (*models.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
next:
	for i := len(m.games) - 1; i >= 0; i-- {
		g := m.games[i]
		if g.Map != l.Map || g.GameTime != l.GameTime || !g.CreatedAt.After(l.Since) {
			continue
		}
		for s, race := range l.Races {
			if g.Slots[s].Race != race {
				continue next
			}
			if s < len(l.Names) && l.Names[s] != "" && g.Slots[s].Name != l.Names[s] && g.Slots[s].Name != "" {
				continue next
			}
		}
		cp := *g
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Insert(ctx context.Context, rec *models.MatchRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsert {
		return 0, errStoreDown
	}
	cp := *rec
	cp.ID = int64(len(m.games) + 1)
	m.games = append(m.games, &cp)
	return cp.ID, nil
}

func (m *memStore) game(id int64) *models.MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.games) {
		return nil
	}
	return m.games[id-1]
}

func (m *memStore) Merge(ctx context.Context, id int64, mg models.MatchMerge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.games[id-1]
	g.GameTime = mg.GameTime
	g.StatSendSID = mg.StatSendSID
	g.IsAuto = mg.IsAuto
	if mg.RelicGameID != nil {
		g.RelicGameID = mg.RelicGameID
	}
	for slot, sid := range mg.SIDs {
		g.Slots[slot-1].SID = sid
	}
	for i, w := range mg.Winners {
		g.Winners[i] = w
	}
	if mg.SenderSlot > 0 {
		apm := mg.SenderAPM
		g.Slots[mg.SenderSlot-1].APM = &apm
	}
	return nil
}

func (m *memStore) Confirm(ctx context.Context, id int64, c models.MatchConfirmation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.games[id-1]
	if g.Confirmed {
		return false, nil
	}
	g.Confirmed = true
	g.IsAuto = c.IsAuto
	if c.RankBucket != nil {
		g.RankBucket = c.RankBucket
	}
	for slot, r := range c.Ratings {
		g.Slots[slot-1].Rating = r
	}
	return true, nil
}

func (m *memStore) SetReplayLink(ctx context.Context, id int64, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[id-1].ReplayLink = link
	return nil
}

// CatalogStore

func (m *memStore) ModByTechnicalName(ctx context.Context, name string) (*models.Mod, error) {
	for _, mod := range m.mods {
		if mod.TechnicalName == name {
			cp := mod
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ModByID(ctx context.Context, id int) (*models.Mod, error) {
	for _, mod := range m.mods {
		if mod.ID == id {
			cp := mod
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) SeasonByID(ctx context.Context, id int) (*models.Season, error) {
	for _, s := range m.seasons {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ActiveSeason(ctx context.Context) (*models.Season, error) {
	var best *models.Season
	for i := range m.seasons {
		s := m.seasons[i]
		if s.IsActive && (best == nil || s.ID > best.ID) {
			best = &s
		}
	}
	return best, nil
}

func (m *memStore) LatestSeason(ctx context.Context) (*models.Season, error) {
	var best *models.Season
	for i := range m.seasons {
		s := m.seasons[i]
		if best == nil || s.ID > best.ID {
			best = &s
		}
	}
	return best, nil
}

func (m *memStore) ServerByID(ctx context.Context, id int) (*models.Server, error) {
	for _, s := range m.servers {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListMods(ctx context.Context) ([]models.Mod, error) {
	out := append([]models.Mod(nil), m.mods...)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) ListSeasons(ctx context.Context) ([]models.Season, error) {
	return append([]models.Season(nil), m.seasons...), nil
}

func (m *memStore) ListServers(ctx context.Context) ([]models.Server, error) {
	return append([]models.Server(nil), m.servers...), nil
}

func (m *memStore) ListRaces(ctx context.Context) ([]models.Race, error) {
	return append([]models.Race(nil), m.races...), nil
}

// WithTx snapshots the players, profiles and games and restores them when
// fn fails.
func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx IngestStores) error) error {
	m.mu.Lock()
	players := make(map[string]models.Player, len(m.players))
	for sid, p := range m.players {
		players[sid] = *p
	}
	profiles := make(map[profileKey]models.RatingProfile, len(m.profiles))
	for k, p := range m.profiles {
		cp := *p
		cp.Races = make(models.RaceStats, len(p.Races))
		for rk, rec := range p.Races {
			cp.Races[rk] = rec
		}
		profiles[k] = cp
	}
	games := make([]models.MatchRecord, len(m.games))
	for i, g := range m.games {
		games[i] = *g
	}
	m.mu.Unlock()

	m.txCalls++
	err := fn(ctx, IngestStores{Players: m, Ratings: m, Matches: m})
	if err == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks++
	m.players = make(map[string]*models.Player, len(players))
	for sid, p := range players {
		cp := p
		m.players[sid] = &cp
	}
	m.profiles = make(map[profileKey]*models.RatingProfile, len(profiles))
	for k, p := range profiles {
		cp := p
		m.profiles[k] = &cp
	}
	m.games = m.games[:0]
	for i := range games {
		g := games[i]
		m.games = append(m.games, &g)
	}
	return err
}

// Collaborators

type fakeDirectory struct {
	profiles map[string]*models.ExternalProfile
	err      error
	calls    int
}

func (f *fakeDirectory) Lookup(ctx context.Context, sids []string) (map[string]*models.ExternalProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles, nil
}

type fakeLocker struct {
	err      error
	keys     []string
	released int
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return func() { f.released++ }, nil
}

type fakeLadder struct {
	invalidated [][2]int
	err         error
}

func (f *fakeLadder) Invalidate(ctx context.Context, modID, seasonID int) error {
	f.invalidated = append(f.invalidated, [2]int{modID, seasonID})
	return f.err
}

type fakeReplays struct {
	objects map[string][]byte
	err     error
}

func (f *fakeReplays) Put(ctx context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return nil
}
