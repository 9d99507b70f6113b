package handlers

import (
	"net/http"

	"github.com/dowstats/ladder-api/internal/logic"
)

// GetLadder returns one page of the MMR ladder
// @Summary MMR ladder
// @Tags Ladder
// @Produce json
// @Param mod query int true "Mod id"
// @Param season query int false "Season id, active season when omitted"
// @Param mmrType query string false "solo or team" default(solo)
// @Param search query string false "Name or previous nickname"
// @Param sort query string false "asc or desc" default(desc)
// @Param server query int false "Server id"
// @Param page query int false "Page" default(1)
// @Param pageSize query int false "Page size (1..200)" default(25)
// @Param minGames query int false "Minimum games in the selected formats" default(1)
// @Success 200 {object} models.LadderResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /v1/ladder [get]
func (h *Handler) GetLadder(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())

	query := logic.LadderQuery{
		SeasonID: p.positiveInt("season"),
		MMRType:  p.str("mmrType"),
		Search:   p.str("search"),
		Sort:     p.str("sort"),
		ServerID: p.positiveInt("server"),
		Page:     p.lenientInt("page"),
		PageSize: p.lenientInt("pageSize"),
		MinGames: logic.DefaultMinGames,
	}
	if mod := p.positiveInt("mod"); mod != nil {
		query.ModID = *mod
	}
	if minGames := p.nonNegativeInt("minGames"); minGames != nil {
		query.MinGames = *minGames
	}
	if p.err == nil {
		p.err = h.checkQuery(query)
	}
	if p.err != nil {
		h.serviceError(w, r, p.err)
		return
	}

	resp, err := h.ladder.Ladder(r.Context(), query)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}
