package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dowstats/ladder-api/internal/models"
)

var errNoSchemaFiles = errors.New("no schema files found")

// InstallDatabase executes the schema files for PostgreSQL and ClickHouse
// @Summary Install Database Schema
// @Description Executes the up migrations for PostgreSQL and the ClickHouse audit schema
// @Tags System
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.InstallResponse
// @Failure 401 {object} map[string]string
// @Failure 500 {object} models.InstallResponse
// @Router /v1/system/install [post]
func (h *Handler) InstallDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results := make(map[string]string)
	hasError := false

	// 1. PostgreSQL Installation
	if err := h.executePostgresSQL(ctx, filepath.Join(h.migrations, "postgres")); err != nil {
		results["postgres"] = "failed: " + err.Error()
		hasError = true
	} else {
		results["postgres"] = "success"
	}

	// 2. ClickHouse Installation, only when the audit sink is configured
	if h.ch == nil {
		results["clickhouse"] = "skipped"
	} else if err := h.executeClickHouseSQL(ctx, filepath.Join(h.migrations, "clickhouse")); err != nil {
		results["clickhouse"] = "failed: " + err.Error()
		hasError = true
	} else {
		results["clickhouse"] = "success"
	}

	statusCode := http.StatusOK
	if hasError {
		statusCode = http.StatusInternalServerError
	}

	h.jsonResponse(w, statusCode, models.InstallResponse{
		Status:  "completed",
		Results: results,
		Error:   hasError,
	})
}

// schemaFiles lists the files of dir matching pattern in name order
func schemaFiles(dir, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", errNoSchemaFiles, dir)
	}
	sort.Strings(files)
	return files, nil
}

// executePostgresSQL runs every up migration of dir on Postgres
func (h *Handler) executePostgresSQL(ctx context.Context, dir string) error {
	if h.pg == nil {
		return errors.New("postgres is not configured")
	}
	files, err := schemaFiles(dir, "*.up.sql")
	if err != nil {
		h.logger.Errorw("failed to list schema files", "db", "PostgreSQL", "dir", dir, "error", err)
		return err
	}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			h.logger.Errorw("failed to read schema file", "db", "PostgreSQL", "path", path, "error", err)
			return err
		}
		if _, err := h.pg.Exec(ctx, string(content)); err != nil {
			h.logger.Errorw("failed to execute schema", "db", "PostgreSQL", "path", path, "error", err)
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}

	h.logger.Infow("successfully installed schema", "db", "PostgreSQL", "files", len(files))
	return nil
}

// executeClickHouseSQL runs the statements of every schema file of dir on ClickHouse
func (h *Handler) executeClickHouseSQL(ctx context.Context, dir string) error {
	files, err := schemaFiles(dir, "*.sql")
	if err != nil {
		h.logger.Errorw("failed to list schema files", "db", "ClickHouse", "dir", dir, "error", err)
		return err
	}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			h.logger.Errorw("failed to read schema file", "db", "ClickHouse", "path", path, "error", err)
			return err
		}

		// ClickHouse driver only accepts one statement per Exec
		for _, stmt := range splitStatements(string(content)) {
			if err := h.ch.Exec(ctx, stmt); err != nil {
				h.logger.Warnw("statement execution failed", "db", "ClickHouse", "error", err, "statement", stmt[:min(len(stmt), 50)]+"...")
				return err
			}
		}
	}

	h.logger.Infow("successfully installed schema", "db", "ClickHouse", "files", len(files))
	return nil
}

// splitStatements splits a SQL script on ';' and drops comment-only chunks
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return out
}
