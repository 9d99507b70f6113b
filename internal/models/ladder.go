package models

import "time"

// LadderEntry is one row of the MMR ladder
type LadderEntry struct {
	Rank      int    `json:"rank"`
	PlayerID  int64  `json:"playerId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	MMR       int    `json:"mmr"`
	Games     int    `json:"games"`
	Wins      int    `json:"wins"`
	Race      int    `json:"race"`
}

type LadderMeta struct {
	ModID      int    `json:"modId"`
	SeasonID   *int   `json:"seasonId"`
	MMRType    string `json:"mmrType"`
	Sort       string `json:"sort"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

type LadderResponse struct {
	Items []LadderEntry `json:"items"`
	Meta  LadderMeta    `json:"meta"`
}

// BattleItem is one confirmed game in the battle history
type BattleItem struct {
	ID          int64     `json:"id"`
	Type        int       `json:"type"`
	Map         string    `json:"map"`
	CreatedAt   time.Time `json:"cTime"`
	GameTime    int       `json:"gTime"`
	Mod         string    `json:"gameMod"`
	ModVersion  string    `json:"modVersion"`
	ServerName  string    `json:"serverName"`
	SeasonID    int       `json:"seasonId"`
	ReplayLink  string    `json:"replayLink"`
	RankBucket  *int      `json:"rankColumn"`
	SIDs        [8]string `json:"sids"`
	Names       [8]string `json:"names"`
	Races       [8]int    `json:"races"`
	Winners     [4]int    `json:"winners"`
	IsAuto      bool      `json:"isAuto"`
	RelicGameID *int64    `json:"relicGameId"`
}

type BattleMeta struct {
	ModID            int     `json:"modId"`
	ModTechnicalName *string `json:"modTechnicalName"`
	SeasonID         *int    `json:"seasonId"`
	ServerID         *int    `json:"serverId"`
	Sort             string  `json:"sort"`
	Page             int     `json:"page"`
	PageSize         int     `json:"pageSize"`
	Total            int     `json:"total"`
	TotalPages       int     `json:"totalPages"`
}

type BattleResponse struct {
	Items []BattleItem `json:"items"`
	Meta  BattleMeta   `json:"meta"`
}

// FormatRaceStat is one race line of a player's per-format breakdown
type FormatRaceStat struct {
	RaceID        int     `json:"raceId"`
	RaceName      *string `json:"raceName"`
	RaceShortName *string `json:"raceShortName"`
	Games         int     `json:"games"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
}

type FormatTotals struct {
	TotalGames int      `json:"totalGames"`
	TotalWins  int      `json:"totalWins"`
	Winrate    *float64 `json:"winrate"`
}

// PlayerProfile is the single-player projection of the read layer
type PlayerProfile struct {
	PlayerID      int64                       `json:"playerId"`
	Name          string                      `json:"name"`
	AvatarURL     string                      `json:"avatarUrl"`
	ServerID      *int                        `json:"serverId"`
	ModID         int                         `json:"modId"`
	SeasonID      int                         `json:"seasonId"`
	MMR           int                         `json:"mmr"`
	OverallMMR    int                         `json:"overallMmr"`
	MaxMMR        int                         `json:"maxMmr"`
	MaxOverallMMR int                         `json:"maxOverallMmr"`
	Solo          FormatTotals                `json:"solo"`
	Team          FormatTotals                `json:"team"`
	Formats       map[string][]FormatRaceStat `json:"formats"`
}

type PlayerProfileMeta struct {
	PlayerID int64 `json:"playerId"`
	ModID    int   `json:"modId"`
	SeasonID *int  `json:"seasonId"`
}

type PlayerProfileResponse struct {
	Item *PlayerProfile    `json:"item"`
	Meta PlayerProfileMeta `json:"meta"`
}

// ClientStat is one entry of the legacy stats5 response
type ClientStat struct {
	SID            string  `json:"sid"`
	Name           string  `json:"name"`
	AvatarURL      string  `json:"avatarUrl"`
	GamesCount     int     `json:"gamesCount"`
	WinsCount      int     `json:"winsCount"`
	WinRate        int     `json:"winRate"`
	MMR            int     `json:"mmr"`
	MMR1v1         int     `json:"mmr1v1"`
	Rank           int     `json:"rank"`
	Race           int     `json:"race"`
	APM            float64 `json:"apm"`
	IsBanned       bool    `json:"isBanned"`
	BanType        *string `json:"banType,omitempty"`
	BanReason      *string `json:"banReason,omitempty"`
	CustomGamesMMR *int    `json:"custom_games_mmr,omitempty"`
}

type ClientStatsResponse struct {
	ModName    string       `json:"modName"`
	SeasonName string       `json:"seasonName"`
	Stats      []ClientStat `json:"stats"`
}
