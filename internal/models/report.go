package models

import "strings"

// WinByDisconnect is the termination reason of a report sent by a leaver
const WinByDisconnect = "disconnect"

// Report is a decoded send-replay5 telemetry report.
// Per-slot slices are indexed by slot-1 and hold Type*2 entries. String
// limits follow the games columns.
type Report struct {
	RequestID   string `json:"request_id"`
	Version     int    `json:"version" validate:"gte=0"`
	Type        int    `json:"type" validate:"min=1,max=4"`
	SenderSID   string `json:"sid"`
	Map         string `json:"map" validate:"max=64"`
	WinBy       string `json:"winby"`
	GameTime    int    `json:"gtime"`
	APM         int    `json:"apm" validate:"gte=0,lte=1000"`
	Mod         string `json:"mod" validate:"max=64"`
	ModVersion  string `json:"mod_version" validate:"max=32"`
	IsRanked    bool   `json:"isRanked"`
	IsFullStd   bool   `json:"isFullStdGame"`
	IsAuto      bool   `json:"isAuto"`
	RelicGameID *int64 `json:"relicGameId,omitempty"`

	Names   []string `json:"names" validate:"max=8,dive,max=64"`
	Races   []int    `json:"races" validate:"max=8"`
	Winners []int    `json:"winners" validate:"max=8"`
	SIDs    []string `json:"sids" validate:"max=8"`
}

// SlotCount is the number of participant slots, Type*2
func (r *Report) SlotCount() int {
	return r.Type * 2
}

func (r *Report) IsLeaver() bool {
	return strings.EqualFold(r.WinBy, WinByDisconnect)
}

// IsDowde reports whether the custom-game rating track applies.
func (r *Report) IsDowde() bool {
	return r.Mod == ModDowde
}

// AllSIDsPresent is true when every slot carries a validated Steam id.
func (r *Report) AllSIDsPresent() bool {
	if len(r.SIDs) == 0 {
		return false
	}
	for _, sid := range r.SIDs {
		if sid == "" {
			return false
		}
	}
	return true
}

// Won reports whether the 1-based slot is listed among the winner markers.
func (r *Report) Won(slot int) bool {
	if slot < 1 {
		return false
	}
	for _, w := range r.Winners {
		if w == slot {
			return true
		}
	}
	return false
}

// SenderSlot returns the 1-based slot of the reporting player, or 0 when absent.
func (r *Report) SenderSlot() int {
	if r.SenderSID == "" {
		return 0
	}
	for i, sid := range r.SIDs {
		if sid == r.SenderSID {
			return i + 1
		}
	}
	return 0
}

// PresentSIDs returns the distinct non-empty Steam ids in slot order.
func (r *Report) PresentSIDs() []string {
	seen := make(map[string]bool, len(r.SIDs))
	out := make([]string, 0, len(r.SIDs))
	for _, sid := range r.SIDs {
		if sid == "" || seen[sid] {
			continue
		}
		seen[sid] = true
		out = append(out, sid)
	}
	return out
}
