package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dowstats/ladder-api/internal/models"
	"github.com/dowstats/ladder-api/internal/replay"
)

const defaultReplayURLSeconds = 900

// replayKey returns the unescaped {key} path parameter
func replayKey(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}

func (h *Handler) replayError(w http.ResponseWriter, key string, err error) {
	if errors.Is(err, replay.ErrNotFound) {
		h.errorResponse(w, http.StatusNotFound, "Replay not found")
		return
	}
	h.logger.Errorw("Replay storage failed", "key", key, "error", err)
	h.errorResponse(w, http.StatusBadGateway, "Replay storage unavailable")
}

func (h *Handler) requireReplays(w http.ResponseWriter) bool {
	if h.replays == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "Replay storage is not configured")
		return false
	}
	return true
}

// GetReplay streams a stored replay
// @Summary Download a replay
// @Tags Replays
// @Produce octet-stream
// @Param key path string true "Replay key"
// @Param filename query string false "Attachment file name"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string "Not Found"
// @Router /v1/replays/{key} [get]
func (h *Handler) GetReplay(w http.ResponseWriter, r *http.Request) {
	if !h.requireReplays(w) {
		return
	}
	key := replayKey(r)
	if key == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing replay key in path")
		return
	}

	obj, err := h.replays.Open(r.Context(), key)
	if err != nil {
		h.replayError(w, key, err)
		return
	}
	defer closeQuietly(obj.Body)

	disposition := "attachment"
	if name := r.URL.Query().Get("filename"); name != "" {
		disposition = mime.FormatMediaType("attachment", map[string]string{"filename": name})
	}
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Type", replay.ContentType)
	if obj.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warnw("Replay stream interrupted", "key", key, "error", err)
	}
}

// GetReplayURL returns a presigned download URL
// @Summary Presigned replay URL
// @Tags Replays
// @Produce json
// @Param key path string true "Replay key"
// @Param filename query string false "Attachment file name"
// @Param expiresIn query int false "Lifetime in seconds" default(900)
// @Success 200 {object} models.ReplayURLResponse
// @Router /v1/replays/{key}/url [get]
func (h *Handler) GetReplayURL(w http.ResponseWriter, r *http.Request) {
	if !h.requireReplays(w) {
		return
	}
	key := replayKey(r)
	if key == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing replay key in path")
		return
	}

	expires := defaultReplayURLSeconds
	if v, err := strconv.Atoi(r.URL.Query().Get("expiresIn")); err == nil && v > 0 {
		expires = v
	}

	link, err := h.replays.PresignURL(r.Context(), key, r.URL.Query().Get("filename"), time.Duration(expires)*time.Second)
	if err != nil {
		h.replayError(w, key, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.ReplayURLResponse{OK: true, URL: link, ExpiresIn: expires})
}

// UploadReplay stores a replay for an existing game
// @Summary Upload a replay
// @Tags Replays
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "Replay"
// @Param game_id formData int true "Game id"
// @Success 200 {object} models.ReplayUploadResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 413 {object} map[string]string "Replay too large"
// @Router /v1/replays/upload [post]
func (h *Handler) UploadReplay(w http.ResponseWriter, r *http.Request) {
	if !h.requireReplays(w) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxReplay)
	if err := r.ParseMultipartForm(h.maxReplay); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorResponse(w, http.StatusRequestEntityTooLarge, "Replay too large")
			return
		}
		h.errorResponse(w, http.StatusBadRequest, "Multipart form-data is required")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "File part is missing")
		return
	}
	defer closeQuietly(file)

	// FormValue falls back to the query string
	gameID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("game_id")), 10, 64)
	if err != nil || gameID <= 0 {
		h.errorResponse(w, http.StatusBadRequest, "Parameter `game_id` is required (multipart field or query)")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Failed to read file part")
		return
	}

	name := header.Filename
	if name == "" {
		name = "replay.rec"
	}
	key := replay.MakeKey(name, gameID)
	if err := h.replays.Put(r.Context(), key, data); err != nil {
		h.replayError(w, key, err)
		return
	}
	h.logger.Infow("Replay uploaded", "key", key, "game_id", gameID, "bytes", len(data))
	h.jsonResponse(w, http.StatusOK, models.ReplayUploadResponse{OK: true, Key: key, Link: replay.LinkFor(key)})
}

// DeleteReplay removes a stored replay
// @Summary Delete a replay
// @Tags Replays
// @Produce json
// @Security ApiKeyAuth
// @Param key path string true "Replay key"
// @Success 200 {object} models.ReplayDeleteResponse
// @Failure 404 {object} map[string]string "Not Found"
// @Router /v1/replays/{key} [delete]
func (h *Handler) DeleteReplay(w http.ResponseWriter, r *http.Request) {
	if !h.requireReplays(w) {
		return
	}
	key := replayKey(r)
	if key == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing replay key in path")
		return
	}

	exists, err := h.replays.Exists(r.Context(), key)
	if err != nil {
		h.replayError(w, key, err)
		return
	}
	if !exists {
		h.replayError(w, key, fmt.Errorf("%w: %s", replay.ErrNotFound, key))
		return
	}
	if err := h.replays.Delete(r.Context(), key); err != nil {
		h.replayError(w, key, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.ReplayDeleteResponse{OK: true, Key: key})
}
