package models

import (
	"fmt"
	"sort"
)

const (
	// BaselineRating is the starting value of every rating track
	BaselineRating = 1500

	MinFormat = 1
	MaxFormat = 4
	RaceCount = 9
)

// RaceKey addresses one (format, race) counter pair of a rating profile.
// Format is the team size (1 for 1v1 ... 4 for 4v4), Race the race id 1..9.
type RaceKey struct {
	Format int `json:"format"`
	Race   int `json:"race"`
}

func (k RaceKey) Valid() bool {
	return k.Format >= MinFormat && k.Format <= MaxFormat && k.Race >= 1 && k.Race <= RaceCount
}

// GamesColumn is the players_stats column holding the game count, e.g. "2x2_5".
func (k RaceKey) GamesColumn() string {
	return fmt.Sprintf("%dx%d_%d", k.Format, k.Format, k.Race)
}

// WinsColumn is the paired win counter column, e.g. "2x2_5w".
func (k RaceKey) WinsColumn() string {
	return k.GamesColumn() + "w"
}

// AllRaceKeys lists every counter pair in storage order: format major, race minor.
func AllRaceKeys() []RaceKey {
	keys := make([]RaceKey, 0, MaxFormat*RaceCount)
	for f := MinFormat; f <= MaxFormat; f++ {
		for r := 1; r <= RaceCount; r++ {
			keys = append(keys, RaceKey{Format: f, Race: r})
		}
	}
	return keys
}

// RaceRecord is the games/wins pair of one counter
type RaceRecord struct {
	Games int `json:"games"`
	Wins  int `json:"wins"`
}

func (r RaceRecord) Losses() int {
	if r.Wins >= r.Games {
		return 0
	}
	return r.Games - r.Wins
}

// RaceStats maps (format, race) to its counters. Missing keys read as zero.
type RaceStats map[RaceKey]RaceRecord

// Totals sums counters across the given formats, or all formats when none are given.
func (s RaceStats) Totals(formats ...int) RaceRecord {
	want := func(int) bool { return true }
	if len(formats) > 0 {
		set := make(map[int]bool, len(formats))
		for _, f := range formats {
			set[f] = true
		}
		want = func(f int) bool { return set[f] }
	}
	var total RaceRecord
	for k, rec := range s {
		if !want(k.Format) {
			continue
		}
		total.Games += rec.Games
		total.Wins += rec.Wins
	}
	return total
}

// FavoriteRace returns the race with the most games across all formats.
// Ties keep the lowest race id; 0 means no games at all.
func (s RaceStats) FavoriteRace() int {
	perRace := make(map[int]int, RaceCount)
	for k, rec := range s {
		perRace[k.Race] += rec.Games
	}
	races := make([]int, 0, len(perRace))
	for r := range perRace {
		races = append(races, r)
	}
	sort.Ints(races)

	fav, best := 0, 0
	for _, r := range races {
		if perRace[r] > best {
			fav, best = r, perRace[r]
		}
	}
	return fav
}

// RatingProfile is one players_stats row: the ratings of a player in one mod and season
type RatingProfile struct {
	PlayerID       int64     `json:"playerId"`
	ModID          int       `json:"modId"`
	SeasonID       int       `json:"seasonId"`
	MMR            int       `json:"mmr"`
	OverallMMR     int       `json:"overallMmr"`
	CustomGamesMMR int       `json:"customGamesMmr"`
	MaxMMR         int       `json:"maxMmr"`
	MaxOverallMMR  int       `json:"maxOverallMmr"`
	Races          RaceStats `json:"-"`
}

// NewRatingProfile returns a profile at the baseline rating with zero counters.
func NewRatingProfile(playerID int64, modID, seasonID int) *RatingProfile {
	return &RatingProfile{
		PlayerID:       playerID,
		ModID:          modID,
		SeasonID:       seasonID,
		MMR:            BaselineRating,
		OverallMMR:     BaselineRating,
		CustomGamesMMR: BaselineRating,
		MaxMMR:         BaselineRating,
		MaxOverallMMR:  BaselineRating,
		Races:          RaceStats{},
	}
}

// RatingDelta is an additive change per rating track. A nil track is left untouched.
type RatingDelta struct {
	Solo    *int
	Overall *int
	Custom  *int
}

func (d RatingDelta) IsZero() bool {
	return d.Solo == nil && d.Overall == nil && d.Custom == nil
}

// Apply adds the delta to an in-memory profile, raising the maxima when exceeded.
func (d RatingDelta) Apply(p *RatingProfile) {
	if d.Solo != nil {
		p.MMR += *d.Solo
		if p.MMR > p.MaxMMR {
			p.MaxMMR = p.MMR
		}
	}
	if d.Overall != nil {
		p.OverallMMR += *d.Overall
		if p.OverallMMR > p.MaxOverallMMR {
			p.MaxOverallMMR = p.OverallMMR
		}
	}
	if d.Custom != nil {
		p.CustomGamesMMR += *d.Custom
	}
}

// RankSnapshot is the observed solo rating range of one (mod, season)
type RankSnapshot struct {
	ModID    int `json:"modId"`
	SeasonID int `json:"seasonId"`
	Min      int `json:"minMmr"`
	Max      int `json:"maxMmr"`
}
