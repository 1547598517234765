package storage

import (
	"context"
	"database/sql"
	"time"
)

// ModLog is one append-only audit row for a moderator-initiated action.
// Rows are never updated or deleted once written.
type ModLog struct {
	ID              int64
	GuildID         string
	UserID          string
	ModeratorID     string
	Action          string
	Reason          string
	DurationSeconds *int64
	ExpiresAt       *time.Time
	CreatedAt       time.Time
}

func (s *Store) AddModLog(ctx context.Context, log ModLog) (int64, error) {
	var duration any
	var expires any
	if log.DurationSeconds != nil {
		duration = *log.DurationSeconds
	}
	if log.ExpiresAt != nil {
		expires = log.ExpiresAt.Unix()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_logs (guild_id, user_id, moderator_id, action, reason, duration_seconds, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.ModeratorID, log.Action, log.Reason, duration, expires, log.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) ListModLogs(ctx context.Context, guildID string, since time.Time) ([]ModLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, moderator_id, action, reason, duration_seconds, expires_at, created_at
		FROM mod_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ModLog
	for rows.Next() {
		var log ModLog
		var duration sql.NullInt64
		var expires sql.NullInt64
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.ModeratorID, &log.Action, &log.Reason, &duration, &expires, &created); err != nil {
			return nil, err
		}
		if duration.Valid {
			value := duration.Int64
			log.DurationSeconds = &value
		}
		if expires.Valid {
			value := time.Unix(expires.Int64, 0)
			log.ExpiresAt = &value
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CountModLogsByAction(ctx context.Context, guildID string, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, COUNT(*) FROM mod_logs
		WHERE guild_id = ? AND created_at >= ?
		GROUP BY action
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}
	return counts, rows.Err()
}
