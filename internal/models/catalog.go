package models

// ModDowde is the technical name of the mod with automatch relic ids and a custom-game rating
const ModDowde = "dowde"

// DefaultModID is used when a report names an unknown mod
const DefaultModID = 1

// DefaultSeasonID and DefaultSeasonName are used when no season row exists at all
const (
	DefaultSeasonID   = 1
	DefaultSeasonName = "Off-season"
)

type Mod struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	TechnicalName string `json:"technicalName"`
	Position      int    `json:"position"`
}

type Season struct {
	ID         int    `json:"id"`
	SeasonName string `json:"seasonName"`
	IsActive   bool   `json:"isActive"`
}

type Server struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Race struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

// ListResponse wraps catalog listings
type ListResponse[T any] struct {
	Items []T `json:"items"`
}
