package logic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/models"
	"github.com/dowstats/ladder-api/internal/replay"
)

const (
	// MinGameTime is the longest duration still ignored as a non-game
	MinGameTime = 30

	SkipShortGame    = "short_game"
	SkipDuplicateSID = "duplicate_sid_guard"

	DefaultMatchWindow = 30 * time.Minute
	DefaultLockTTL     = 10 * time.Second

	lockBucket = 10 * time.Minute

	// noSnapshotRating is the minimum rating of a lobby without any stored profile
	noSnapshotRating = 10000
)

// IngestOutcome is the result of one reconciled report
type IngestOutcome struct {
	GameID    *int64
	Skipped   string
	Inserted  bool
	Confirmed bool
	ModID     int
	SeasonID  int
	Steps     []StepResult
}

// Label is the outcome name used for metrics and the audit trail.
func (o *IngestOutcome) Label() string {
	switch {
	case o.Skipped != "":
		return o.Skipped
	case o.Inserted && o.Confirmed:
		return "inserted_confirmed"
	case o.Inserted:
		return "inserted_unconfirmed"
	case o.Confirmed:
		return "confirmed"
	default:
		return "merged"
	}
}

// IngestConfig wires the reconciliation engine. Profiles, Locker, Ladder and
// Replays are optional. Without Tx the match and rating writes go straight
// to the stores.
type IngestConfig struct {
	Players     PlayerStore
	Ratings     RatingStore
	Matches     MatchStore
	Tx          TxRunner
	Resolver    *Resolver
	Profiles    ProfileDirectory
	Locker      MatchLocker
	Ladder      LadderInvalidator
	Replays     ReplayUploader
	Logger      *zap.Logger
	MatchWindow time.Duration
	LockTTL     time.Duration
	Now         func() time.Time
}

type matchIngestService struct {
	cfg    IngestConfig
	logger *zap.SugaredLogger
}

func NewMatchIngestService(cfg IngestConfig) MatchIngestService {
	if cfg.MatchWindow <= 0 {
		cfg.MatchWindow = DefaultMatchWindow
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &matchIngestService{cfg: cfg, logger: cfg.Logger.Sugar()}
}

// ingestRun carries the per-report state of one reconciliation
type ingestRun struct {
	report   *models.Report
	modID    int
	seasonID int
	players  map[string]*models.Player
	profiles map[string]*models.RatingProfile
	outcome  *IngestOutcome

	// tx is bound only while the match and rating writes run
	tx IngestStores
}

func (run *ingestRun) step(res StepResult) {
	run.outcome.Steps = append(run.outcome.Steps, res)
}

func (s *matchIngestService) Ingest(ctx context.Context, r *models.Report) (*IngestOutcome, error) {
	return s.ingest(ctx, r, nil)
}

func (s *matchIngestService) IngestWithReplay(ctx context.Context, r *models.Report, data []byte) (*IngestOutcome, error) {
	return s.ingest(ctx, r, data)
}

func (s *matchIngestService) ingest(ctx context.Context, r *models.Report, data []byte) (*IngestOutcome, error) {
	start := time.Now()
	defer func() { ingestDuration.Observe(time.Since(start).Seconds()) }()

	if r.Type < models.MinFormat || r.Type > models.MaxFormat {
		return nil, fmt.Errorf("%w: type must be between 1 and 4", ErrValidation)
	}
	r = normalizeReport(r)

	if reason := guardSkip(r); reason != "" {
		reportsIngested.WithLabelValues(reason).Inc()
		return &IngestOutcome{Skipped: reason}, nil
	}

	run := &ingestRun{report: r, outcome: &IngestOutcome{}}

	// Critical path: every failure below aborts the request and the client retries.
	if err := s.resolveScope(ctx, run); err != nil {
		return nil, persistenceErr("resolve scope", err)
	}
	if err := s.ensurePlayers(ctx, run); err != nil {
		return nil, persistenceErr("ensure players", err)
	}
	if err := s.recordAPM(ctx, run); err != nil {
		return nil, persistenceErr("record apm", err)
	}
	if err := s.reconcile(ctx, run); err != nil {
		return nil, err
	}
	if run.outcome.Confirmed {
		matchesConfirmed.Inc()
	}

	if len(data) > 0 {
		s.attachReplay(ctx, run, data)
	}

	run.step(runNonCritical(ctx, s.logger, StepRankRefresh, func(ctx context.Context) error {
		snap, err := s.cfg.Ratings.LoadMinMax(ctx, run.modID, run.seasonID)
		if err != nil {
			return err
		}
		return s.cfg.Ratings.PersistMinMax(ctx, snap)
	}))

	if run.outcome.Confirmed && s.cfg.Ladder != nil {
		run.step(runNonCritical(ctx, s.logger, StepLadderInvalidate, func(ctx context.Context) error {
			return s.cfg.Ladder.Invalidate(ctx, run.modID, run.seasonID)
		}))
	}

	reportsIngested.WithLabelValues(run.outcome.Label()).Inc()
	s.logger.Infow("Report reconciled",
		"game_id", *run.outcome.GameID,
		"outcome", run.outcome.Label(),
		"mod_id", run.modID,
		"season_id", run.seasonID,
		"degraded", DegradedSteps(run.outcome.Steps),
	)
	return run.outcome, nil
}

func persistenceErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, step, err)
}

// guardSkip returns the reason a report is accepted without any mutation.
func guardSkip(r *models.Report) string {
	if r.GameTime <= MinGameTime {
		return SkipShortGame
	}
	if len(r.SIDs) > 1 && r.SIDs[0] != "" && r.SIDs[0] == r.SIDs[1] {
		return SkipDuplicateSID
	}
	return ""
}

// normalizeReport returns a copy whose per-slot slices have exactly Type*2
// entries and whose winner markers have exactly Type entries.
func normalizeReport(r *models.Report) *models.Report {
	out := *r
	n := out.SlotCount()
	out.Names = fitStrings(r.Names, n)
	out.SIDs = fitStrings(r.SIDs, n)
	out.Races = fitInts(r.Races, n)
	out.Winners = fitInts(r.Winners, out.Type)
	return &out
}

func fitStrings(in []string, n int) []string {
	out := make([]string, n)
	copy(out, in)
	return out
}

func fitInts(in []int, n int) []int {
	out := make([]int, n)
	copy(out, in)
	return out
}

func (s *matchIngestService) resolveScope(ctx context.Context, run *ingestRun) error {
	mod, err := s.cfg.Resolver.Mod(ctx, run.report.Mod)
	if err != nil {
		return err
	}
	season, err := s.cfg.Resolver.SeasonOrDefault(ctx, nil)
	if err != nil {
		return err
	}
	run.modID, run.seasonID = mod.ID, season.ID
	run.outcome.ModID, run.outcome.SeasonID = mod.ID, season.ID
	return nil
}

// ensurePlayers creates missing players and their rating profiles for every
// filled slot. Directory lookups for new players are best effort.
func (s *matchIngestService) ensurePlayers(ctx context.Context, run *ingestRun) error {
	run.players = make(map[string]*models.Player)
	run.profiles = make(map[string]*models.RatingProfile)

	sids := run.report.PresentSIDs()
	if len(sids) == 0 {
		return nil
	}

	existing, err := s.cfg.Players.FindBySIDs(ctx, sids)
	if err != nil {
		return err
	}

	var missing []string
	for _, sid := range sids {
		if existing[sid] == nil {
			missing = append(missing, sid)
		}
	}

	if len(missing) > 0 {
		var found map[string]*models.ExternalProfile
		if s.cfg.Profiles != nil {
			run.step(runNonCritical(ctx, s.logger, StepProfileEnrichment, func(ctx context.Context) error {
				var err error
				found, err = s.cfg.Profiles.Lookup(ctx, missing)
				return err
			}))
		}
		for _, sid := range missing {
			if err := s.cfg.Players.CreateIfMissing(ctx, models.NewPlayerFromProfile(sid, found[sid], sid)); err != nil {
				return fmt.Errorf("create player %s: %w", sid, err)
			}
		}
		existing, err = s.cfg.Players.FindBySIDs(ctx, sids)
		if err != nil {
			return err
		}
	}

	for _, sid := range sids {
		p := existing[sid]
		if p == nil {
			return fmt.Errorf("player %s missing after create", sid)
		}
		prof, err := s.cfg.Ratings.GetOrCreateProfile(ctx, p.ID, run.modID, run.seasonID)
		if err != nil {
			return fmt.Errorf("profile for %s: %w", sid, err)
		}
		run.players[sid] = p
		run.profiles[sid] = prof
	}
	return nil
}

func (s *matchIngestService) recordAPM(ctx context.Context, run *ingestRun) error {
	r := run.report
	if r.APM <= 0 || r.SenderSlot() == 0 {
		return nil
	}
	p := run.players[r.SenderSID]
	if p == nil {
		return nil
	}
	return s.cfg.Players.RecordAPM(ctx, p.ID, r.APM)
}

// reconcile finds the games row of an already reported match and merges the
// report into it, or inserts a new row. Confirmation happens at most once and
// commits together with the rating deltas and counters it triggers, so a
// failed write leaves the row unconfirmed for the client's retry.
func (s *matchIngestService) reconcile(ctx context.Context, run *ingestRun) error {
	if s.cfg.Locker != nil {
		var release func()
		run.step(runNonCritical(ctx, s.logger, StepMatchLock, func(ctx context.Context) error {
			var err error
			release, err = s.cfg.Locker.Acquire(ctx, s.lockKey(run.report), s.cfg.LockTTL)
			return err
		}))
		if release != nil {
			defer release()
		}
	}

	return s.withTx(ctx, func(ctx context.Context, tx IngestStores) error {
		run.tx = tx
		defer func() { run.tx = IngestStores{} }()
		run.outcome.GameID, run.outcome.Inserted, run.outcome.Confirmed = nil, false, false

		existing, byRelic, err := s.findExisting(ctx, run)
		if err != nil {
			return persistenceErr("find match", err)
		}
		if existing == nil {
			err = s.insertNew(ctx, run)
		} else {
			err = s.mergeExisting(ctx, run, existing, byRelic)
		}
		if err != nil {
			return persistenceErr("reconcile match", err)
		}
		if run.outcome.Confirmed {
			if err := s.applyRatings(ctx, run); err != nil {
				return persistenceErr("apply ratings", err)
			}
		}
		return nil
	})
}

func (s *matchIngestService) withTx(ctx context.Context, fn func(ctx context.Context, tx IngestStores) error) error {
	if s.cfg.Tx == nil {
		return fn(ctx, IngestStores{Players: s.cfg.Players, Ratings: s.cfg.Ratings, Matches: s.cfg.Matches})
	}
	err := s.cfg.Tx.WithTx(ctx, fn)
	if err != nil && !errors.Is(err, ErrPersistence) {
		// begin or commit failed
		return persistenceErr("commit match", err)
	}
	return err
}

func (s *matchIngestService) lockKey(r *models.Report) string {
	bucket := s.cfg.Now().Unix() / int64(lockBucket/time.Second)
	return fmt.Sprintf("%s:%s:%d:%d", r.Mod, r.Map, r.GameTime, bucket)
}

func (s *matchIngestService) findExisting(ctx context.Context, run *ingestRun) (*models.MatchRecord, bool, error) {
	r := run.report
	if r.IsDowde() && r.RelicGameID != nil {
		m, err := run.tx.Matches.FindByRelicID(ctx, models.ModDowde, *r.RelicGameID)
		if err != nil {
			return nil, false, err
		}
		if m != nil {
			return m, true, nil
		}
	}

	m, err := run.tx.Matches.FindSameMatch(ctx, models.MatchLookup{
		Map:      r.Map,
		GameTime: r.GameTime,
		Since:    s.cfg.Now().Add(-s.cfg.MatchWindow),
		Names:    r.Names,
		Races:    r.Races,
	})
	return m, false, err
}

func (s *matchIngestService) mergeExisting(ctx context.Context, run *ingestRun, existing *models.MatchRecord, byRelic bool) error {
	r := run.report
	merge := models.MatchMerge{
		SIDs:        make(map[int]string),
		GameTime:    r.GameTime,
		StatSendSID: statSendSID(r),
		RelicGameID: r.RelicGameID,
		IsAuto:      r.IsAuto,
	}
	for i, sid := range r.SIDs {
		if sid != "" {
			merge.SIDs[i+1] = sid
		}
	}
	// A relic id match says nothing about slot order, so stored winners stay.
	if !byRelic {
		merge.Winners = append([]int(nil), r.Winners...)
	}
	if slot := r.SenderSlot(); slot > 0 {
		merge.SenderSlot = slot
		merge.SenderAPM = r.APM
	}

	if err := run.tx.Matches.Merge(ctx, existing.ID, merge); err != nil {
		return fmt.Errorf("merge game %d: %w", existing.ID, err)
	}
	id := existing.ID
	run.outcome.GameID = &id

	if existing.Confirmed || r.IsLeaver() {
		return nil
	}

	conf, err := s.confirmation(ctx, run)
	if err != nil {
		return err
	}
	applied, err := run.tx.Matches.Confirm(ctx, existing.ID, conf)
	if err != nil {
		return fmt.Errorf("confirm game %d: %w", existing.ID, err)
	}
	run.outcome.Confirmed = applied
	return nil
}

func (s *matchIngestService) insertNew(ctx context.Context, run *ingestRun) error {
	r := run.report
	rec := models.NewMatchRecord()
	rec.Type = r.Type
	rec.Map = r.Map
	rec.GameTime = r.GameTime
	rec.CreatedAt = s.cfg.Now()
	rec.Mod = r.Mod
	rec.ModVersion = r.ModVersion
	rec.SeasonID = run.seasonID
	rec.IsRanked = r.IsRanked
	rec.IsFullStd = r.IsFullStd
	rec.IsAuto = r.IsAuto
	rec.RelicGameID = r.RelicGameID
	rec.StatSendSID = statSendSID(r)

	for i := 0; i < r.SlotCount(); i++ {
		rec.Slots[i].SID = r.SIDs[i]
		rec.Slots[i].Name = r.Names[i]
		rec.Slots[i].Race = r.Races[i]
	}
	for i := 0; i < r.Type; i++ {
		rec.Winners[i] = r.Winners[i]
	}
	if slot := r.SenderSlot(); slot > 0 {
		apm := r.APM
		rec.Slots[slot-1].APM = &apm
	}

	conf, err := s.confirmation(ctx, run)
	if err != nil {
		return err
	}
	for slot, rating := range conf.Ratings {
		rec.Slots[slot-1].Rating = rating
	}
	if !r.IsLeaver() {
		rec.Confirmed = true
		rec.RankBucket = conf.RankBucket
	}

	id, err := run.tx.Matches.Insert(ctx, rec)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	run.outcome.GameID = &id
	run.outcome.Inserted = true
	run.outcome.Confirmed = rec.Confirmed
	return nil
}

// confirmation snapshots every filled slot's current rating and derives the
// rank bucket of a 1v1 from the lowest snapshot.
func (s *matchIngestService) confirmation(ctx context.Context, run *ingestRun) (models.MatchConfirmation, error) {
	r := run.report
	c := models.MatchConfirmation{Ratings: make(map[int]int), IsAuto: r.IsAuto}

	lowest := noSnapshotRating
	for i, sid := range r.SIDs {
		prof := run.profiles[sid]
		if sid == "" || prof == nil {
			continue
		}
		v := ratingSnapshot(r, prof)
		c.Ratings[i+1] = v
		lowest = min(lowest, v)
	}

	if r.Type == 1 {
		snap, err := run.tx.Ratings.RankSnapshot(ctx, run.modID, run.seasonID)
		if err != nil {
			return c, fmt.Errorf("load rank snapshot: %w", err)
		}
		lo, hi := snapshotBounds(snap)
		bucket := RankForRating(lowest, lo, hi)
		c.RankBucket = &bucket
	}
	return c, nil
}

// ratingSnapshot picks the track frozen onto the games row: solo for 1v1,
// team otherwise, and the custom track for non-automatch dowde games.
func ratingSnapshot(r *models.Report, p *models.RatingProfile) int {
	if r.IsDowde() && !r.IsAuto {
		return p.CustomGamesMMR
	}
	if r.Type == 1 {
		return p.MMR
	}
	return p.OverallMMR
}

// applyRatings moves the enabled rating tracks and bumps the per-race
// counters. It runs only on the transition to confirmed.
func (s *matchIngestService) applyRatings(ctx context.Context, run *ingestRun) error {
	r := run.report

	if tracks := TracksFor(r); tracks.Any() {
		participants := make([]EloParticipant, 0, len(r.SIDs))
		for i, sid := range r.SIDs {
			prof := run.profiles[sid]
			if sid == "" || prof == nil {
				continue
			}
			participants = append(participants, EloParticipant{
				Slot:    i + 1,
				Won:     r.Won(i + 1),
				Solo:    prof.MMR,
				Overall: prof.OverallMMR,
				Custom:  prof.CustomGamesMMR,
			})
		}

		deltas := ComputeRatingDeltas(participants, tracks)
		for _, p := range participants {
			d := deltas[p.Slot]
			if d.IsZero() {
				continue
			}
			player := run.players[r.SIDs[p.Slot-1]]
			if err := run.tx.Ratings.ApplyRatingDeltas(ctx, player.ID, run.modID, run.seasonID, d); err != nil {
				return fmt.Errorf("ratings of slot %d: %w", p.Slot, err)
			}
		}
	}

	for i, sid := range r.SIDs {
		player := run.players[sid]
		if sid == "" || player == nil {
			continue
		}
		key := models.RaceKey{Format: r.Type, Race: r.Races[i]}
		if key.Valid() {
			if err := run.tx.Ratings.IncrementRaceCounters(ctx, player.ID, run.modID, run.seasonID, key, r.Won(i+1)); err != nil {
				return fmt.Errorf("counters of slot %d: %w", i+1, err)
			}
		} else {
			s.logger.Warnw("Skipping counters for unknown race", "slot", i+1, "race", key.Race, "sid", sid)
		}
		if err := run.tx.Players.TouchActivity(ctx, player.ID, r.GameTime); err != nil {
			return fmt.Errorf("activity of slot %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *matchIngestService) attachReplay(ctx context.Context, run *ingestRun, data []byte) {
	if s.cfg.Replays == nil || run.outcome.GameID == nil {
		return
	}
	id := *run.outcome.GameID
	key := replay.KeyForMap(run.report.Map, id)
	run.step(runNonCritical(ctx, s.logger, StepReplayUpload, func(ctx context.Context) error {
		if err := s.cfg.Replays.Put(ctx, key, data); err != nil {
			return err
		}
		return s.cfg.Matches.SetReplayLink(ctx, id, replay.LinkFor(key))
	}))
}

// statSendSID encodes the reporting slot as base64 JSON, e.g. {"1":"7656..."}.
func statSendSID(r *models.Report) string {
	m := make(map[string]string, 1)
	if slot := r.SenderSlot(); slot > 0 {
		m[strconv.Itoa(slot)] = r.SenderSID
	}
	b, _ := json.Marshal(m)
	return base64.StdEncoding.EncodeToString(b)
}
