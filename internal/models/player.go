package models

import "time"

// DefaultAvatar is stored for players whose Steam profile could not be fetched
const DefaultAvatar = "/images/default_avatar.jpg"

// Player is a telemetry participant identified by its Steam id
type Player struct {
	ID             int64      `json:"id"`
	SID            string     `json:"sid"`
	Name           string     `json:"name"`
	AvatarURL      string     `json:"avatarUrl"`
	AvatarURLBig   string     `json:"avatarUrlBig"`
	APM            float64    `json:"apm"`
	APMGameCounter int        `json:"apmGameCounter"`
	LastActive     *time.Time `json:"lastActive,omitempty"`
	TimePlayed     int64      `json:"time"`
	ServerID       *int       `json:"serverId,omitempty"`
}

// ExternalProfile is the subset of a Steam player summary used for display
type ExternalProfile struct {
	SID          string `json:"steamid"`
	Name         string `json:"personaname"`
	Avatar       string `json:"avatar"`
	AvatarMedium string `json:"avatarmedium"`
	AvatarFull   string `json:"avatarfull"`
}

// Avatars returns small, medium and full avatar urls, each falling back to the smaller size.
func (p ExternalProfile) Avatars() (small, medium, full string) {
	small = p.Avatar
	medium = p.AvatarMedium
	if medium == "" {
		medium = small
	}
	full = p.AvatarFull
	if full == "" {
		full = medium
	}
	return small, medium, full
}

// NewPlayerFromProfile builds the row inserted for a Steam id seen for the first time.
// fallbackName is used when the profile is missing or has no persona name.
func NewPlayerFromProfile(sid string, profile *ExternalProfile, fallbackName string) *Player {
	p := &Player{
		SID:          sid,
		Name:         fallbackName,
		AvatarURL:    DefaultAvatar,
		AvatarURLBig: DefaultAvatar,
	}
	if p.Name == "" {
		p.Name = sid
	}
	if profile == nil {
		return p
	}
	if profile.Name != "" {
		p.Name = profile.Name
	}
	small, medium, full := profile.Avatars()
	switch {
	case medium != "":
		p.AvatarURL = medium
	case small != "":
		p.AvatarURL = small
	}
	switch {
	case full != "":
		p.AvatarURLBig = full
	default:
		p.AvatarURLBig = p.AvatarURL
	}
	return p
}

// Ban is a players_banned row
type Ban struct {
	PlayerID int64  `json:"playerId"`
	Reason   string `json:"reason"`
	BanType  string `json:"banType"`
}
