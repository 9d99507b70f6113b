package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dowstats/ladder-api/internal/logic"
	"github.com/dowstats/ladder-api/internal/models"
)

const (
	endpointReport = "send-replay5"
	endpointReplay = "send-replay5-post"

	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

var steamIDPattern = regexp.MustCompile(`^\d{17}$`)

// SendReport handles GET /api/client/send-replay5
// @Summary Ingest a game report
// @Description Legacy telemetry report in the query string. Short games and duplicate submissions are accepted as no-ops.
// @Tags Ingestion
// @Produce json
// @Security ApiKeyAuth
// @Param version query int true "Collector version"
// @Param type query int true "Format size (1..4)"
// @Param sid query string false "Reporter Steam id"
// @Param map query string false "Map name"
// @Param winby query string false "Termination reason"
// @Param gtime query int false "Duration in seconds"
// @Param apm query int false "Reporter APM"
// @Param mod query string false "Mod technical name"
// @Param mod_version query string false "Mod version, optionally base64"
// @Param isRanked query int false "Ranked flag" default(1)
// @Param isFullStdGame query int false "Full standard game flag" default(1)
// @Param isAuto query int false "Automatch flag" default(0)
// @Param relicGameId query int false "Upstream match id"
// @Success 200 {object} models.IngestResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Retry"
// @Router /client/send-replay5 [get]
func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.decodeReport(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	outcome, err := h.ingest.Ingest(r.Context(), report)
	h.recordAudit(endpointReport, report, outcome, err)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, ingestResponse(outcome))
}

// SendReplay handles POST /api/client/send-replay5
// @Summary Ingest a game report with its replay
// @Description Same query parameters as the GET variant. The replay is the multipart field "file" or the raw body.
// @Tags Ingestion
// @Accept multipart/form-data
// @Accept application/octet-stream
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file false "Replay"
// @Success 200 {object} models.IngestResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 413 {object} map[string]string "Replay too large"
// @Failure 500 {object} map[string]string "Retry"
// @Router /client/send-replay5 [post]
func (h *Handler) SendReplay(w http.ResponseWriter, r *http.Request) {
	report, err := h.decodeReport(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data, err := h.readReplay(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorResponse(w, http.StatusRequestEntityTooLarge, "Replay too large")
			return
		}
		h.logger.Warnw("Failed to read replay body, ingesting without it", "error", err)
		data = nil
	}

	outcome, err := h.ingest.IngestWithReplay(r.Context(), report, data)
	h.recordAudit(endpointReplay, report, outcome, err)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, ingestResponse(outcome))
}

func ingestResponse(o *logic.IngestOutcome) models.IngestResponse {
	return models.IngestResponse{OK: true, GameID: o.GameID, Skipped: o.Skipped}
}

func (h *Handler) decodeReport(r *http.Request) (*models.Report, error) {
	report, err := parseReport(r.URL.Query(), h.minVersion)
	if err != nil {
		return nil, err
	}
	if err := h.validator.Struct(report); err != nil {
		return nil, fmt.Errorf("%w: %v", logic.ErrValidation, err)
	}
	report.RequestID = middleware.GetReqID(r.Context())
	return report, nil
}

// readReplay returns the multipart "file" part or the raw body, capped at the
// configured replay size.
func (h *Handler) readReplay(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxReplay)
	defer closeQuietly(r.Body)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			data, err := io.ReadAll(part)
			closeQuietly(part)
			return data, err
		}
		closeQuietly(part)
	}
}

func (h *Handler) recordAudit(endpoint string, report *models.Report, outcome *logic.IngestOutcome, err error) {
	if h.audit == nil {
		return
	}
	audit := models.NewIngestAudit(endpoint, report, h.now())
	switch {
	case errors.Is(err, logic.ErrValidation):
		audit.Outcome = outcomeRejected
	case err != nil:
		audit.Outcome = outcomeFailed
	default:
		audit.Outcome = outcome.Label()
		if outcome.GameID != nil {
			audit.GameID = *outcome.GameID
		}
		audit.Degraded = logic.DegradedSteps(outcome.Steps)
	}
	if !h.audit.Enqueue(audit) {
		h.logger.Warnw("Audit queue full, dropping row", "request_id", report.RequestID)
	}
}

type reportParser struct {
	values url.Values
	err    error
}

func (p *reportParser) parseInt(key string) int {
	if p.err != nil {
		return 0
	}
	s := strings.TrimSpace(p.values.Get(key))
	if s == "" {
		return 0
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("invalid int %s=%q: %w", key, s, err)
		return 0
	}
	return i
}

// parseOptionalInt64 treats "", "null" and absence as nil.
func (p *reportParser) parseOptionalInt64(key string) *int64 {
	if p.err != nil {
		return nil
	}
	s := strings.TrimSpace(p.values.Get(key))
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("invalid int64 %s=%q: %w", key, s, err)
		return nil
	}
	return &i
}

// parseFlag reads a 0/1 flag, using def when the key is absent.
func (p *reportParser) parseFlag(key string, def bool) bool {
	if !p.values.Has(key) || strings.TrimSpace(p.values.Get(key)) == "" {
		return def
	}
	return p.parseInt(key) != 0
}

// parseReport converts the legacy query string into a Report. The version
// and type checks come first, as the collector relies on their messages.
func parseReport(q url.Values, minVersion int) (*models.Report, error) {
	p := &reportParser{values: q}

	version := p.parseInt("version")
	typ := p.parseInt("type")
	if p.err != nil {
		return nil, fmt.Errorf("%w: %v", logic.ErrValidation, p.err)
	}
	if version < minVersion {
		return nil, fmt.Errorf("%w: collector version is too old", logic.ErrValidation)
	}
	typ = max(0, min(models.MaxFormat, typ))
	if typ < models.MinFormat {
		return nil, fmt.Errorf("%w: type is required (1..4)", logic.ErrValidation)
	}

	modVersion := q.Get("mod_version")
	if decoded := decodeBase64Text(modVersion); decoded != "" {
		modVersion = decoded
	}

	report := &models.Report{
		Version:     version,
		Type:        typ,
		SenderSID:   strings.TrimSpace(q.Get("sid")),
		Map:         q.Get("map"),
		WinBy:       strings.ToLower(q.Get("winby")),
		GameTime:    p.parseInt("gtime"),
		APM:         p.parseInt("apm"),
		Mod:         strings.ToLower(q.Get("mod")),
		ModVersion:  modVersion,
		IsRanked:    p.parseFlag("isRanked", true),
		IsFullStd:   p.parseFlag("isFullStdGame", true),
		IsAuto:      p.parseFlag("isAuto", false),
		RelicGameID: p.parseOptionalInt64("relicGameId"),
	}
	// Sensor noise
	if report.APM > 1000 || report.APM < 0 {
		report.APM = 0
	}

	slots := typ * 2
	report.Names = make([]string, slots)
	report.Races = make([]int, slots)
	report.SIDs = make([]string, slots)
	report.Winners = make([]int, typ)
	for i := 1; i <= slots; i++ {
		report.Names[i-1] = decodeBase64Text(q.Get(fmt.Sprintf("p%d", i)))
		report.Races[i-1] = p.parseInt(fmt.Sprintf("r%d", i))
		if sid := strings.TrimSpace(q.Get(fmt.Sprintf("sid%d", i))); steamIDPattern.MatchString(sid) {
			report.SIDs[i-1] = sid
		}
		if i <= typ {
			report.Winners[i-1] = p.parseInt(fmt.Sprintf("w%d", i))
		}
	}

	if p.err != nil {
		return nil, fmt.Errorf("%w: %v", logic.ErrValidation, p.err)
	}
	return report, nil
}

// decodeBase64Text decodes a base64 query value into trimmed text without
// control characters. Query decoding turns '+' into spaces, so whitespace is
// mapped back first. Undecodable input yields "".
func decodeBase64Text(v string) string {
	if v == "" {
		return ""
	}
	raw := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return '+'
		}
		return r
	}, v)

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return ""
		}
	}
	text := strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
}
