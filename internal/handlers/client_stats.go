package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dowstats/ladder-api/internal/logic"
)

// GetClientStats handles GET /api/client/stats5
// @Summary Lobby stats for the game client
// @Description Registers unknown Steam ids and returns ratings, favourite race and ban state in request order
// @Tags Client
// @Produce json
// @Security ApiKeyAuth
// @Param sids query string true "Comma separated Steam ids"
// @Param nicks query string false "Comma separated base64 nicknames aligned with sids"
// @Param mod_tech_name query string false "Mod technical name"
// @Param modId query int false "Mod id, used when mod_tech_name is unknown"
// @Param seasonId query int false "Season id"
// @Success 200 {object} models.ClientStatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /client/stats5 [get]
func (h *Handler) GetClientStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := logic.ClientStatsRequest{
		SIDs:        splitList(q.Get("sids")),
		Nicks:       splitList(q.Get("nicks")),
		ModTechName: strings.TrimSpace(q.Get("mod_tech_name")),
	}
	// The client sends garbage ids as 0, which means "unset"
	req.ModID, _ = strconv.Atoi(strings.TrimSpace(q.Get("modId")))
	req.SeasonID, _ = strconv.Atoi(strings.TrimSpace(q.Get("seasonId")))

	resp, err := h.clientStats.Stats(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// splitList splits a comma list keeping empty positions, so that two
// parallel lists stay aligned.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
