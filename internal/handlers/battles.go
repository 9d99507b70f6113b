package handlers

import (
	"net/http"

	"github.com/dowstats/ladder-api/internal/logic"
)

// GetBattles returns the confirmed game history
// @Summary Battle history
// @Tags Battles
// @Produce json
// @Param mod query int false "Mod id"
// @Param season query int false "Season id, active season when omitted"
// @Param server query int false "Server id"
// @Param sid query string false "Participant Steam id"
// @Param sids query string false "Comma separated participant Steam ids"
// @Param dateFrom query string false "Earliest creation time"
// @Param dateTo query string false "Latest creation time"
// @Param minDuration query int false "Minimum duration in seconds"
// @Param maxDuration query int false "Maximum duration in seconds"
// @Param map query string false "Exact map name"
// @Param mapLike query string false "Map name substring"
// @Param isAuto query string false "Automatch filter (1/0, true/false, yes/no, on/off)"
// @Param winnerRaces query string false "Comma separated race ids of winners"
// @Param loserRaces query string false "Comma separated race ids of losers"
// @Param sort query string false "asc or desc by creation time" default(desc)
// @Param page query int false "Page" default(1)
// @Param pageSize query int false "Page size (1..200)" default(25)
// @Success 200 {object} models.BattleResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /v1/battles [get]
func (h *Handler) GetBattles(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())

	query := logic.BattleQuery{
		ModID:       p.positiveInt("mod"),
		SeasonID:    p.positiveInt("season"),
		ServerID:    p.positiveInt("server"),
		SIDs:        p.strList("sid", "sids"),
		DateFrom:    p.time("dateFrom"),
		DateTo:      p.time("dateTo"),
		MinDuration: p.nonNegativeInt("minDuration"),
		MaxDuration: p.nonNegativeInt("maxDuration"),
		Map:         p.str("map"),
		MapLike:     p.str("mapLike"),
		IsAuto:      p.flag("isAuto"),
		WinnerRaces: p.intList("winnerRaces"),
		LoserRaces:  p.intList("loserRaces"),
		Sort:        p.str("sort"),
		Page:        p.lenientInt("page"),
		PageSize:    p.lenientInt("pageSize"),
	}
	if p.err == nil {
		p.err = h.checkQuery(query)
	}
	if p.err != nil {
		h.serviceError(w, r, p.err)
		return
	}

	resp, err := h.battles.Battles(r.Context(), query)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}
