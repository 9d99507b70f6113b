package handlers

import (
	"net/http"

	"github.com/dowstats/ladder-api/internal/models"
)

// GetMods lists the visible mods
// @Summary Mods
// @Tags Catalog
// @Produce json
// @Success 200 {object} models.ListResponse[models.Mod]
// @Router /v1/mods [get]
func (h *Handler) GetMods(w http.ResponseWriter, r *http.Request) {
	mods, err := h.catalog.ListMods(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.ListResponse[models.Mod]{Items: nonNil(mods)})
}

// GetSeasons lists the seasons, active first
// @Summary Seasons
// @Tags Catalog
// @Produce json
// @Success 200 {object} models.ListResponse[models.Season]
// @Router /v1/seasons [get]
func (h *Handler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.catalog.ListSeasons(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.ListResponse[models.Season]{Items: nonNil(seasons)})
}

// GetServers lists the servers
// @Summary Servers
// @Tags Catalog
// @Produce json
// @Success 200 {object} models.ListResponse[models.Server]
// @Router /v1/servers [get]
func (h *Handler) GetServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.catalog.ListServers(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.ListResponse[models.Server]{Items: nonNil(servers)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
