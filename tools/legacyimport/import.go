package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/models"
)

type importer struct {
	src       *sqlx.DB
	dst       *pgxpool.Pool
	log       *zap.SugaredLogger
	batchSize int
}

type legacySeason struct {
	ID         int          `db:"id"`
	SeasonName string       `db:"season_name"`
	IsActive   bool         `db:"is_active"`
	DateStart  sql.NullTime `db:"date_start"`
	DateEnd    sql.NullTime `db:"date_end"`
}

type legacyServer struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

type legacyMod struct {
	ID            int    `db:"id"`
	Name          string `db:"name"`
	TechnicalName string `db:"technical_name"`
	Position      int    `db:"position"`
	Visible       bool   `db:"visible"`
}

type legacyPlayer struct {
	ID             int64          `db:"id"`
	ServerID       int            `db:"server_id"`
	Name           string         `db:"name"`
	LastNicknames  sql.NullString `db:"last_nicknames"`
	AvatarURL      sql.NullString `db:"avatar_url"`
	AvatarURLBig   sql.NullString `db:"avatar_url_big"`
	Time           int64          `db:"time"`
	SID            string         `db:"sid"`
	APM            float64        `db:"apm"`
	APMGameCounter int            `db:"apm_game_counter"`
	LastActive     sql.NullTime   `db:"last_active"`
}

type legacyBan struct {
	ID        int64          `db:"id"`
	PlayerID  int64          `db:"player_id"`
	DateStart sql.NullTime   `db:"date_start"`
	DateEnd   sql.NullTime   `db:"date_end"`
	Reason    sql.NullString `db:"reason"`
	BanType   sql.NullString `db:"ban_type"`
}

// mysqlDSN validates the DSN and forces time parsing, which the NullTime
// columns need.
func mysqlDSN(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty DSN")
	}
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (imp *importer) importSeasons(ctx context.Context) (int, error) {
	var rows []legacySeason
	if err := imp.src.SelectContext(ctx, &rows, "SELECT id, season_name, is_active, date_start, date_end FROM seasons ORDER BY id"); err != nil {
		return 0, fmt.Errorf("select seasons: %w", err)
	}
	batch := &pgx.Batch{}
	for _, s := range rows {
		batch.Queue(`
			INSERT INTO seasons (id, season_name, is_active, date_start, date_end)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				season_name = EXCLUDED.season_name,
				is_active = EXCLUDED.is_active,
				date_start = EXCLUDED.date_start,
				date_end = EXCLUDED.date_end`,
			s.ID, s.SeasonName, s.IsActive, nullTime(s.DateStart), nullTime(s.DateEnd))
	}
	return len(rows), imp.send(ctx, batch)
}

func (imp *importer) importServers(ctx context.Context) (int, error) {
	var rows []legacyServer
	if err := imp.src.SelectContext(ctx, &rows, "SELECT id, name FROM servers ORDER BY id"); err != nil {
		return 0, fmt.Errorf("select servers: %w", err)
	}
	batch := &pgx.Batch{}
	for _, s := range rows {
		batch.Queue("INSERT INTO servers (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name", s.ID, s.Name)
	}
	return len(rows), imp.send(ctx, batch)
}

func (imp *importer) importMods(ctx context.Context) (int, error) {
	var rows []legacyMod
	if err := imp.src.SelectContext(ctx, &rows, "SELECT id, name, technical_name, position, visible FROM mods ORDER BY id"); err != nil {
		return 0, fmt.Errorf("select mods: %w", err)
	}
	batch := &pgx.Batch{}
	for _, m := range rows {
		batch.Queue(`
			INSERT INTO mods (id, name, technical_name, position, visible)
			VALUES ($1, $2, LOWER($3), $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				technical_name = EXCLUDED.technical_name,
				position = EXCLUDED.position,
				visible = EXCLUDED.visible`,
			m.ID, m.Name, m.TechnicalName, m.Position, m.Visible)
	}
	return len(rows), imp.send(ctx, batch)
}

func (imp *importer) importPlayers(ctx context.Context) (int, error) {
	total := 0
	var lastID int64
	for {
		var rows []legacyPlayer
		err := imp.src.SelectContext(ctx, &rows, `
			SELECT id, server_id, name, last_nicknames, avatar_url, avatar_url_big,
			       time, sid, apm, apm_game_counter, last_active
			FROM players WHERE id > ? ORDER BY id LIMIT ?`, lastID, imp.batchSize)
		if err != nil {
			return total, fmt.Errorf("select players after %d: %w", lastID, err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		batch := &pgx.Batch{}
		for _, p := range rows {
			batch.Queue(`
				INSERT INTO players (id, server_id, name, last_nicknames, avatar_url, avatar_url_big,
				                     time, sid, apm, apm_game_counter, last_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					last_nicknames = EXCLUDED.last_nicknames,
					avatar_url = EXCLUDED.avatar_url,
					avatar_url_big = EXCLUDED.avatar_url_big,
					time = EXCLUDED.time,
					apm = EXCLUDED.apm,
					apm_game_counter = EXCLUDED.apm_game_counter,
					last_active = EXCLUDED.last_active`,
				p.ID, p.ServerID, p.Name, nullString(p.LastNicknames), nullString(p.AvatarURL),
				nullString(p.AvatarURLBig), p.Time, p.SID, p.APM, p.APMGameCounter, nullTime(p.LastActive))
		}
		if err := imp.send(ctx, batch); err != nil {
			return total, err
		}
		total += len(rows)
		lastID = rows[len(rows)-1].ID
		imp.log.Debugw("Copied players", "up_to_id", lastID, "total", total)
	}
}

// statsColumns lists the copied players_stats columns after id.
func statsColumns() []string {
	cols := []string{"player_id", "season_id", "mod_id", "mmr", "overall_mmr", "max_mmr", "max_overall_mmr", "custom_games_mmr"}
	for _, k := range models.AllRaceKeys() {
		cols = append(cols, k.GamesColumn(), k.WinsColumn())
	}
	return cols
}

// statsSelect reads one keyset page from MySQL, where counter columns need backticks.
func statsSelect(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = "`" + c + "`"
	}
	return "SELECT id, " + strings.Join(quoted, ", ") + " FROM players_stats WHERE id > ? ORDER BY id LIMIT ?"
}

// statsUpsert writes one players_stats row keyed by (player, season, mod).
func statsUpsert(cols []string) string {
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	var updates []string
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		params[i] = "$" + strconv.Itoa(i+1)
		if i >= 3 {
			updates = append(updates, quoted[i]+" = EXCLUDED."+quoted[i])
		}
	}
	return "INSERT INTO players_stats (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(params, ", ") +
		") ON CONFLICT (player_id, season_id, mod_id) DO UPDATE SET " + strings.Join(updates, ", ")
}

func (imp *importer) importStats(ctx context.Context) (int, error) {
	cols := statsColumns()
	selectSQL := statsSelect(cols)
	upsertSQL := statsUpsert(cols)

	total := 0
	var lastID int64
	for {
		rows, err := imp.src.QueryxContext(ctx, selectSQL, lastID, imp.batchSize)
		if err != nil {
			return total, fmt.Errorf("select players_stats after %d: %w", lastID, err)
		}

		batch := &pgx.Batch{}
		n := 0
		for rows.Next() {
			values, err := rows.SliceScan()
			if err != nil {
				rows.Close()
				return total, fmt.Errorf("scan players_stats: %w", err)
			}
			args := make([]any, len(cols))
			for i := range cols {
				if args[i], err = toInt64(values[i+1]); err != nil {
					rows.Close()
					return total, fmt.Errorf("players_stats column %s: %w", cols[i], err)
				}
			}
			if lastID, err = toInt64(values[0]); err != nil {
				rows.Close()
				return total, fmt.Errorf("players_stats id: %w", err)
			}
			batch.Queue(upsertSQL, args...)
			n++
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		if err := imp.send(ctx, batch); err != nil {
			return total, err
		}
		total += n
	}
}

func (imp *importer) importBans(ctx context.Context) (int, error) {
	var rows []legacyBan
	if err := imp.src.SelectContext(ctx, &rows, "SELECT id, player_id, date_start, date_end, reason, ban_type FROM players_banned ORDER BY id"); err != nil {
		return 0, fmt.Errorf("select players_banned: %w", err)
	}
	batch := &pgx.Batch{}
	for _, b := range rows {
		banType := "cheater"
		if b.BanType.Valid && b.BanType.String != "" {
			banType = b.BanType.String
		}
		batch.Queue(`
			INSERT INTO players_banned (id, player_id, date_start, date_end, reason, ban_type)
			VALUES ($1, $2, COALESCE($3, NOW()), $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				date_start = EXCLUDED.date_start,
				date_end = EXCLUDED.date_end,
				reason = EXCLUDED.reason,
				ban_type = EXCLUDED.ban_type`,
			b.ID, b.PlayerID, nullTime(b.DateStart), nullTime(b.DateEnd), nullString(b.Reason), banType)
	}
	return len(rows), imp.send(ctx, batch)
}

// resetSequences moves every serial past the imported ids.
func (imp *importer) resetSequences(ctx context.Context) error {
	for _, table := range []string{"seasons", "servers", "mods", "players", "players_stats", "players_banned"} {
		seq := table + "_id_seq"
		stmt := fmt.Sprintf("SELECT setval(%s, GREATEST((SELECT MAX(id) FROM %s), 1))", pq.QuoteLiteral(seq), pq.QuoteIdentifier(table))
		if _, err := imp.dst.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", seq, err)
		}
	}
	return nil
}

func (imp *importer) send(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := imp.dst.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return br.Close()
}

// toInt64 converts a MySQL column value. The text protocol returns numbers as bytes.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported value %T", v)
	}
}

func nullString(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

func nullTime(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return t.Time
}
