package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrFlagNotFound is returned when a flag id does not exist.
var ErrFlagNotFound = errors.New("moderation flag not found")

type Store struct {
	db *sql.DB
}

type Artwork struct {
	ID           int64
	Title        string
	UploaderID   string
	UploaderName string
	Published    bool
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single pooled connection avoids busy
	// errors and keeps :memory: databases shared across queries.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetArtwork(ctx context.Context, id int64) (Artwork, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, uploader_id, uploader_name, published
		FROM artworks WHERE id = ?`, id)

	var art Artwork
	var published int
	if err := row.Scan(&art.ID, &art.Title, &art.UploaderID, &art.UploaderName, &published); err != nil {
		return Artwork{}, err
	}
	art.Published = published == 1
	return art, nil
}

func (s *Store) AddArtwork(ctx context.Context, art Artwork) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO artworks (title, uploader_id, uploader_name, published)
		VALUES (?, ?, ?, ?)
	`, art.Title, art.UploaderID, art.UploaderName, boolToInt(art.Published))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) SetArtworkPublished(ctx context.Context, id int64, published bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE artworks SET published = ? WHERE id = ?`, boolToInt(published), id)
	return err
}

// RolePermissionMasks returns the permission bitmask of every role the user
// holds in the guild, as the decimal strings stored by the web application.
func (s *Store) RolePermissionMasks(ctx context.Context, guildID, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT permissions FROM role_permissions
		WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var masks []string
	for rows.Next() {
		var mask string
		if err := rows.Scan(&mask); err != nil {
			return nil, err
		}
		masks = append(masks, mask)
	}
	return masks, rows.Err()
}

func (s *Store) AddRolePermission(ctx context.Context, guildID, userID, roleID, permissions string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_permissions (guild_id, user_id, role_id, permissions)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, role_id) DO UPDATE SET permissions = excluded.permissions
	`, guildID, userID, roleID, permissions)
	return err
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
