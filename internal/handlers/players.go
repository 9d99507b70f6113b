package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GetPlayer returns the profile of one player in a mod and season
// @Summary Player profile
// @Description Rating, maxima and per-format per-race breakdown. item is null when the player has no stats row.
// @Tags Players
// @Produce json
// @Param id path int true "Player id"
// @Param mod query int true "Mod id"
// @Param season query int false "Season id, active season when omitted"
// @Success 200 {object} models.PlayerProfileResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /v1/players/{id} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.errorResponse(w, http.StatusBadRequest, "Path parameter 'id' must be a positive integer.")
		return
	}

	p := newQueryParser(r.URL.Query())
	mod := p.positiveInt("mod")
	season := p.positiveInt("season")
	if p.err == nil && mod == nil {
		p.fail("parameter 'mod' is required")
	}
	if p.err != nil {
		h.serviceError(w, r, p.err)
		return
	}

	resp, err := h.players.Profile(r.Context(), id, *mod, season)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}
