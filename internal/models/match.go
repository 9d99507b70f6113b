package models

import "time"

// MaxSlots is the number of participant positions of a 4v4 game
const MaxSlots = 8

// MatchSlot is one participant position of a games row
type MatchSlot struct {
	SID    string `json:"sid,omitempty"`
	Name   string `json:"name"`
	Race   int    `json:"race"`
	APM    *int   `json:"apm,omitempty"`
	Rating int    `json:"mmr"`
}

// MatchRecord is one games row. Slots beyond Type*2 are unused.
type MatchRecord struct {
	ID          int64               `json:"id"`
	Type        int                 `json:"type"`
	Map         string              `json:"map"`
	GameTime    int                 `json:"gTime"`
	CreatedAt   time.Time           `json:"cTime"`
	Mod         string              `json:"gameMod"`
	ModVersion  string              `json:"modVersion"`
	SeasonID    int                 `json:"seasonId"`
	Slots       [MaxSlots]MatchSlot `json:"slots"`
	Winners     [4]int              `json:"winners"`
	Confirmed   bool                `json:"confirmed"`
	IsRanked    bool                `json:"isRate"`
	IsFullStd   bool                `json:"isFullStd"`
	IsAuto      bool                `json:"isAuto"`
	RankBucket  *int                `json:"rankColumn,omitempty"`
	RelicGameID *int64              `json:"relicGameId,omitempty"`
	ReplayLink  string              `json:"replayLink,omitempty"`
	StatSendSID string              `json:"-"`
	ServerName  string              `json:"serverName,omitempty"`
}

// NewMatchRecord returns a row with every rating snapshot at the baseline.
func NewMatchRecord() *MatchRecord {
	m := &MatchRecord{}
	for i := range m.Slots {
		m.Slots[i].Rating = BaselineRating
	}
	return m
}

// MatchLookup describes a report for the same-game search.
// Names and Races are indexed by slot-1 and have Type*2 entries.
type MatchLookup struct {
	Map      string
	GameTime int
	Since    time.Time
	Names    []string
	Races    []int
}

// MatchMerge holds the columns a later report refreshes on an existing row.
// Zero-length SIDs entries and a nil Winners leave the stored values alone.
type MatchMerge struct {
	SIDs        map[int]string
	Winners     []int
	SenderSlot  int
	SenderAPM   int
	GameTime    int
	StatSendSID string
	RelicGameID *int64
	IsAuto      bool
}

// MatchConfirmation freezes the rating snapshots of a row. Ratings is keyed by slot number.
type MatchConfirmation struct {
	Ratings    map[int]int
	RankBucket *int
	IsAuto     bool
}
