package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dowstats/ladder-api/internal/models"
	"github.com/dowstats/ladder-api/internal/replay"
)

func TestReplayRoutes_NotConfigured(t *testing.T) {
	h := newTestHandler(Config{})
	router := h.Router(nil)

	for _, req := range []*http.Request{
		httptest.NewRequest("GET", "/api/v1/replays/match_7.rec", nil),
		httptest.NewRequest("GET", "/api/v1/replays/match_7.rec/url", nil),
		httptest.NewRequest("DELETE", "/api/v1/replays/match_7.rec", nil),
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", req.Method, req.URL.Path, w.Code)
		}
	}
}

func TestGetReplay(t *testing.T) {
	data := []byte("replay-bytes")

	tests := []struct {
		name            string
		store           *MockReplayStore
		target          string
		wantStatus      int
		wantDisposition string
	}{
		{
			name:            "Stream with file name",
			store:           &MockReplayStore{Objects: map[string][]byte{"match_7.rec": data}},
			target:          "/api/v1/replays/match_7.rec?filename=last.rec",
			wantStatus:      http.StatusOK,
			wantDisposition: "attachment; filename=last.rec",
		},
		{
			name:            "Stream without file name",
			store:           &MockReplayStore{Objects: map[string][]byte{"match_7.rec": data}},
			target:          "/api/v1/replays/match_7.rec",
			wantStatus:      http.StatusOK,
			wantDisposition: "attachment",
		},
		{
			name:       "Missing object",
			store:      &MockReplayStore{},
			target:     "/api/v1/replays/match_8.rec",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Storage failure",
			store:      &MockReplayStore{Err: errors.New("dial tcp: i/o timeout")},
			target:     "/api/v1/replays/match_7.rec",
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(Config{Replays: tt.store})

			w := httptest.NewRecorder()
			h.Router(nil).ServeHTTP(w, httptest.NewRequest("GET", tt.target, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if !bytes.Equal(w.Body.Bytes(), data) {
				t.Errorf("body = %q", w.Body.String())
			}
			if got := w.Header().Get("Content-Disposition"); got != tt.wantDisposition {
				t.Errorf("Content-Disposition = %q, want %q", got, tt.wantDisposition)
			}
			if got := w.Header().Get("Content-Type"); got != replay.ContentType {
				t.Errorf("Content-Type = %q", got)
			}
			if got := w.Header().Get("Content-Length"); got != "12" {
				t.Errorf("Content-Length = %q", got)
			}
		})
	}
}

func TestGetReplayURL(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantTTL     time.Duration
		wantExpires int
	}{
		{name: "Default lifetime", query: "", wantTTL: 15 * time.Minute, wantExpires: 900},
		{name: "Custom lifetime", query: "?expiresIn=60", wantTTL: time.Minute, wantExpires: 60},
		{name: "Invalid lifetime", query: "?expiresIn=-1", wantTTL: 15 * time.Minute, wantExpires: 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockReplayStore{}
			h := newTestHandler(Config{Replays: store})

			w := httptest.NewRecorder()
			h.Router(nil).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/replays/match_7.rec/url"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
			}
			if store.PresignTTL != tt.wantTTL {
				t.Errorf("ttl = %v, want %v", store.PresignTTL, tt.wantTTL)
			}
			var body models.ReplayURLResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !body.OK || body.ExpiresIn != tt.wantExpires || body.URL != "https://replays.example/match_7.rec?sig=abc" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func replayUpload(t *testing.T, fileName, gameID string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if gameID != "" {
		if err := mw.WriteField("game_id", gameID); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("replay-bytes"))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadReplay(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		formGameID string
		query      string
		store      *MockReplayStore
		wantStatus int
		wantKey    string
	}{
		{
			name:       "Form game id",
			fileName:   "Marshes.rec",
			formGameID: "7",
			store:      &MockReplayStore{},
			wantStatus: http.StatusOK,
			wantKey:    "Marshes#7.rec",
		},
		{
			name:       "Query game id",
			fileName:   "final.rec",
			query:      "?game_id=11",
			store:      &MockReplayStore{},
			wantStatus: http.StatusOK,
			wantKey:    "final#11.rec",
		},
		{
			name:       "Missing game id",
			fileName:   "final.rec",
			store:      &MockReplayStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Missing file",
			formGameID: "7",
			store:      &MockReplayStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Storage failure",
			fileName:   "final.rec",
			formGameID: "7",
			store:      &MockReplayStore{Err: errors.New("access denied")},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(Config{Replays: tt.store, APISecret: "s3cret"})

			body, contentType := replayUpload(t, tt.fileName, tt.formGameID)
			req := httptest.NewRequest("POST", "/api/v1/replays/upload"+tt.query, body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer s3cret")
			w := httptest.NewRecorder()
			h.Router(nil).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp models.ReplayUploadResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !resp.OK || resp.Key != tt.wantKey || resp.Link != replay.LinkFor(tt.wantKey) {
				t.Errorf("response = %+v", resp)
			}
			if string(tt.store.Objects[tt.wantKey]) != "replay-bytes" {
				t.Errorf("stored objects = %v", tt.store.Objects)
			}
		})
	}
}

func TestUploadReplay_Limits(t *testing.T) {
	t.Run("Requires secret", func(t *testing.T) {
		h := newTestHandler(Config{Replays: &MockReplayStore{}, APISecret: "s3cret"})
		body, contentType := replayUpload(t, "final.rec", "7")
		req := httptest.NewRequest("POST", "/api/v1/replays/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		h.Router(nil).ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("Too large", func(t *testing.T) {
		h := newTestHandler(Config{Replays: &MockReplayStore{}, MaxReplaySize: 1024})
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "big.rec")
		_, _ = fw.Write(bytes.Repeat([]byte{1}, 4096))
		_ = mw.Close()

		req := httptest.NewRequest("POST", "/api/v1/replays/upload?game_id=1", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		h.UploadReplay(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", w.Code)
		}
	})
}

func TestDeleteReplay(t *testing.T) {
	store := &MockReplayStore{Objects: map[string][]byte{"match_7.rec": []byte("x")}}
	h := newTestHandler(Config{Replays: store})
	router := h.Router(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/replays/match_7.rec", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if _, ok := store.Objects["match_7.rec"]; ok {
		t.Error("object still stored")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/replays/match_7.rec", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}
