package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dowstats/ladder-api/internal/models"
)

func TestSplitStatements(t *testing.T) {
	script := `-- audit schema
CREATE DATABASE IF NOT EXISTS dowstats;

-- reports
CREATE TABLE IF NOT EXISTS dowstats.ingest_reports (
    request_id UUID
) ENGINE = MergeTree ORDER BY request_id;
-- trailing comment
`
	got := splitStatements(script)
	want := []string{
		"CREATE DATABASE IF NOT EXISTS dowstats",
		"CREATE TABLE IF NOT EXISTS dowstats.ingest_reports (\n    request_id UUID\n) ENGINE = MergeTree ORDER BY request_id",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitStatements() = %q, want %q", got, want)
	}
}

func writeSchema(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInstallDatabase(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "postgres/000002_bans.up.sql", "CREATE TABLE bans (id bigint);")
	writeSchema(t, dir, "postgres/000001_initial.up.sql", "CREATE TABLE players (id bigint);")
	writeSchema(t, dir, "postgres/000001_initial.down.sql", "DROP TABLE players;")
	writeSchema(t, dir, "clickhouse/001_audit.sql", "CREATE DATABASE x;\n-- c\nCREATE TABLE x.y (a UInt8) ENGINE = Memory;")

	tests := []struct {
		name       string
		pg         *MockPostgres
		ch         *MockClickHouse
		dir        string
		wantStatus int
		wantResult map[string]string
		wantPG     int
		wantCH     int
	}{
		{
			name:       "Both databases",
			pg:         &MockPostgres{},
			ch:         &MockClickHouse{},
			dir:        dir,
			wantStatus: http.StatusOK,
			wantResult: map[string]string{"postgres": "success", "clickhouse": "success"},
			wantPG:     2,
			wantCH:     2,
		},
		{
			name:       "ClickHouse not configured",
			pg:         &MockPostgres{},
			dir:        dir,
			wantStatus: http.StatusOK,
			wantResult: map[string]string{"postgres": "success", "clickhouse": "skipped"},
			wantPG:     2,
		},
		{
			name:       "Postgres failure",
			pg:         &MockPostgres{ExecErr: errors.New("permission denied")},
			dir:        dir,
			wantStatus: http.StatusInternalServerError,
			wantResult: map[string]string{"postgres": "failed: 000001_initial.up.sql: permission denied", "clickhouse": "skipped"},
			wantPG:     1,
		},
		{
			name:       "Missing schema directory",
			pg:         &MockPostgres{},
			ch:         &MockClickHouse{},
			dir:        filepath.Join(dir, "nope"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Postgres: tt.pg, MigrationsDir: tt.dir}
			if tt.ch != nil {
				cfg.ClickHouse = tt.ch
			}
			h := newTestHandler(cfg)

			w := httptest.NewRecorder()
			h.InstallDatabase(w, httptest.NewRequest("POST", "/api/v1/system/install", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			var resp models.InstallResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != (tt.wantStatus != http.StatusOK) {
				t.Errorf("error flag = %v", resp.Error)
			}
			for k, v := range tt.wantResult {
				if resp.Results[k] != v {
					t.Errorf("results[%s] = %q, want %q", k, resp.Results[k], v)
				}
			}
			if tt.wantResult == nil && !strings.Contains(resp.Results["postgres"], "no schema files found") {
				t.Errorf("results = %v", resp.Results)
			}
			if len(tt.pg.Execs) != tt.wantPG {
				t.Errorf("postgres execs = %d, want %d", len(tt.pg.Execs), tt.wantPG)
			}
			if tt.wantPG > 0 && !strings.Contains(tt.pg.Execs[0], "players") {
				t.Errorf("first migration = %q, want the players table", tt.pg.Execs[0])
			}
			if tt.ch != nil && tt.wantResult != nil && len(tt.ch.Execs) != tt.wantCH {
				t.Errorf("clickhouse execs = %d, want %d", len(tt.ch.Execs), tt.wantCH)
			}
		})
	}
}
