package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ModFlag records one automatically-detected content violation awaiting
// human review. An unresolved flag has neither resolver nor timestamp;
// resolution sets all three fields in a single statement.
type ModFlag struct {
	ID          int64
	ArtworkID   *int64
	MessageID   *string
	Content     string
	FlagType    string
	Severity    float64
	RawResponse string
	Resolved    bool
	ResolvedBy  *string
	ResolvedAt  *time.Time
	CreatedAt   time.Time
}

type FlagFilter struct {
	Resolved bool
	FlagType string
	Limit    int
	Offset   int
}

func (s *Store) AddModFlag(ctx context.Context, flag ModFlag) (int64, error) {
	var artworkID any
	var messageID any
	if flag.ArtworkID != nil {
		artworkID = *flag.ArtworkID
	}
	if flag.MessageID != nil {
		messageID = *flag.MessageID
	}
	raw := flag.RawResponse
	if raw == "" {
		raw = "{}"
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_flags (artwork_id, message_id, content, flag_type, severity, raw_response, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, artworkID, messageID, flag.Content, flag.FlagType, flag.Severity, raw, flag.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) GetModFlag(ctx context.Context, id int64) (ModFlag, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, artwork_id, message_id, content, flag_type, severity, raw_response, resolved, resolved_by, resolved_at, created_at
		FROM mod_flags WHERE id = ?`, id)

	flag, err := scanFlag(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModFlag{}, ErrFlagNotFound
		}
		return ModFlag{}, err
	}
	return flag, nil
}

func (s *Store) ListModFlags(ctx context.Context, filter FlagFilter) ([]ModFlag, error) {
	query := `
		SELECT id, artwork_id, message_id, content, flag_type, severity, raw_response, resolved, resolved_by, resolved_at, created_at
		FROM mod_flags WHERE resolved = ?`
	args := []any{boolToInt(filter.Resolved)}
	if filter.FlagType != "" {
		query += ` AND flag_type = ?`
		args = append(args, filter.FlagType)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []ModFlag
	for rows.Next() {
		flag, err := scanFlag(rows.Scan)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

func (s *Store) CountModFlags(ctx context.Context, filter FlagFilter) (int, error) {
	query := `SELECT COUNT(*) FROM mod_flags WHERE resolved = ?`
	args := []any{boolToInt(filter.Resolved)}
	if filter.FlagType != "" {
		query += ` AND flag_type = ?`
		args = append(args, filter.FlagType)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ResolveModFlag writes the resolution triple atomically. Resolving an
// already-resolved flag overwrites the previous resolver (last writer wins).
func (s *Store) ResolveModFlag(ctx context.Context, id int64, resolvedBy string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE mod_flags SET resolved = 1, resolved_by = ?, resolved_at = ?
		WHERE id = ?
	`, resolvedBy, at.Unix(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrFlagNotFound
	}
	return nil
}

func (s *Store) UpdateFlagRawResponse(ctx context.Context, id int64, raw string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE mod_flags SET raw_response = ? WHERE id = ?`, raw, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrFlagNotFound
	}
	return nil
}

// FlagStats returns total and unresolved flag counts since a point in time.
func (s *Store) FlagStats(ctx context.Context, since time.Time) (total int, unresolved int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN resolved = 0 THEN 1 ELSE 0 END), 0)
		FROM mod_flags WHERE created_at >= ?
	`, since.Unix())
	if err := row.Scan(&total, &unresolved); err != nil {
		return 0, 0, err
	}
	return total, unresolved, nil
}

func scanFlag(scan func(dest ...any) error) (ModFlag, error) {
	var flag ModFlag
	var artworkID sql.NullInt64
	var messageID sql.NullString
	var resolved int
	var resolvedBy sql.NullString
	var resolvedAt sql.NullInt64
	var created int64
	err := scan(&flag.ID, &artworkID, &messageID, &flag.Content, &flag.FlagType, &flag.Severity, &flag.RawResponse, &resolved, &resolvedBy, &resolvedAt, &created)
	if err != nil {
		return ModFlag{}, err
	}
	if artworkID.Valid {
		value := artworkID.Int64
		flag.ArtworkID = &value
	}
	if messageID.Valid {
		value := messageID.String
		flag.MessageID = &value
	}
	flag.Resolved = resolved == 1
	if resolvedBy.Valid {
		value := resolvedBy.String
		flag.ResolvedBy = &value
	}
	if resolvedAt.Valid {
		value := time.Unix(resolvedAt.Int64, 0)
		flag.ResolvedAt = &value
	}
	flag.CreatedAt = time.Unix(created, 0)
	return flag, nil
}
