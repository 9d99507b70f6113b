package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/dowstats/ladder-api/internal/logic"
)

var bearerPattern = regexp.MustCompile(`(?i)^\s*bearer\s+(.+)$`)

// Health check endpoint
// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
// @Summary Readiness probe
// @Description Pings Postgres, Redis and, when configured, ClickHouse
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check all dependencies
	checks := map[string]bool{
		"postgres": h.pg != nil && h.pg.Ping(ctx) == nil,
		"redis":    h.redis != nil && h.redis.Ping(ctx).Err() == nil,
	}
	if h.ch != nil {
		checks["clickhouse"] = h.ch.Ping(ctx) == nil
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	queueDepth := 0
	if h.audit != nil {
		queueDepth = h.audit.QueueDepth()
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":      allHealthy,
		"checks":     checks,
		"queueDepth": queueDepth,
	})
}

// SecretAuthMiddleware checks the shared API secret. It accepts a bearer
// token, the "Key" header or the api_secret query parameter. With no secret
// configured every request passes.
func (h *Handler) SecretAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.secret == "" || h.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		h.logger.Warnw("Rejected request with a bad secret", "path", r.URL.Path, "remote", r.RemoteAddr)
		h.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	if m := bearerPattern.FindStringSubmatch(r.Header.Get("Authorization")); m != nil && h.secretMatches(m[1]) {
		return true
	}
	if h.secretMatches(r.Header.Get("Key")) {
		return true
	}
	// Reading the query string leaves a replay body untouched
	return h.secretMatches(r.URL.Query().Get("api_secret"))
}

func (h *Handler) secretMatches(candidate string) bool {
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(h.secret)) == 1
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warnw("Failed to write response", "error", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// serviceError maps the logic error taxonomy onto HTTP statuses. Unexpected
// failures are logged and hidden behind a generic message.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, logic.ErrValidation):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, logic.ErrUnauthorized):
		h.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, logic.ErrNotFound):
		h.errorResponse(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw("Request failed", "path", r.URL.Path, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}
