package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/models"
)

const playerColumns = `id, sid, name, COALESCE(avatar_url, ''), COALESCE(avatar_url_big, ''),
	apm, apm_game_counter, last_active, time, server_id`

// PlayerStore persists players rows
type PlayerStore struct {
	db     DB
	logger *zap.SugaredLogger
}

func scanPlayer(row interface{ Scan(dest ...any) error }) (*models.Player, error) {
	var p models.Player
	var serverID int
	if err := row.Scan(&p.ID, &p.SID, &p.Name, &p.AvatarURL, &p.AvatarURLBig,
		&p.APM, &p.APMGameCounter, &p.LastActive, &p.TimePlayed, &serverID); err != nil {
		return nil, err
	}
	p.ServerID = &serverID
	return &p, nil
}

func (s *PlayerStore) FindBySIDs(ctx context.Context, sids []string) (map[string]*models.Player, error) {
	out := make(map[string]*models.Player, len(sids))
	if len(sids) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+playerColumns+` FROM players WHERE sid = ANY($1)`, sids)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		out[p.SID] = p
	}
	return out, rows.Err()
}

func (s *PlayerStore) FindByID(ctx context.Context, id int64) (*models.Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return p, nil
}

func (s *PlayerStore) CreateIfMissing(ctx context.Context, p *models.Player) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO players (sid, name, avatar_url, avatar_url_big, apm, last_update_time)
		VALUES ($1, $2, $3, $4, 0, NOW())
		ON CONFLICT (sid) DO NOTHING
	`, p.SID, p.Name, p.AvatarURL, p.AvatarURLBig)
	if err != nil {
		return fmt.Errorf("failed to insert player %s: %w", p.SID, err)
	}
	return nil
}

// RefreshProfile overwrites the display name and avatars. A renamed player keeps
// the previous name at the front of last_nicknames.
func (s *PlayerStore) RefreshProfile(ctx context.Context, sid string, p *models.Player) error {
	_, err := s.db.Exec(ctx, `
		UPDATE players SET
			last_nicknames = CASE
				WHEN name <> $2 THEN LEFT(CONCAT_WS(',', name, NULLIF(last_nicknames, '')), 1024)
				ELSE last_nicknames
			END,
			name = $2,
			avatar_url = COALESCE(NULLIF($3, ''), avatar_url),
			avatar_url_big = COALESCE(NULLIF($4, ''), avatar_url_big),
			last_update_time = NOW()
		WHERE sid = $1
	`, sid, p.Name, p.AvatarURL, p.AvatarURLBig)
	if err != nil {
		return fmt.Errorf("failed to refresh player %s: %w", sid, err)
	}
	return nil
}

func (s *PlayerStore) RecordAPM(ctx context.Context, playerID int64, apm int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE players SET
			apm = (apm * apm_game_counter + $2) / (apm_game_counter + 1),
			apm_game_counter = apm_game_counter + 1
		WHERE id = $1
	`, playerID, apm)
	if err != nil {
		return fmt.Errorf("failed to record apm of player %d: %w", playerID, err)
	}
	return nil
}

func (s *PlayerStore) TouchActivity(ctx context.Context, playerID int64, gameTime int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE players SET last_active = NOW(), time = time + $2 WHERE id = $1
	`, playerID, gameTime)
	if err != nil {
		return fmt.Errorf("failed to touch player %d: %w", playerID, err)
	}
	return nil
}

// FindBans returns the newest ban of every listed player
func (s *PlayerStore) FindBans(ctx context.Context, playerIDs []int64) (map[int64]*models.Ban, error) {
	out := make(map[int64]*models.Ban)
	if len(playerIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (player_id) player_id, COALESCE(reason, ''), ban_type
		FROM players_banned
		WHERE player_id = ANY($1) AND (date_end IS NULL OR date_end > NOW())
		ORDER BY player_id, date_start DESC
	`, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query bans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b models.Ban
		if err := rows.Scan(&b.PlayerID, &b.Reason, &b.BanType); err != nil {
			return nil, fmt.Errorf("failed to scan ban: %w", err)
		}
		out[b.PlayerID] = &b
	}
	return out, rows.Err()
}
