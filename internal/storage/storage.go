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
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// AutomodSettings is the persisted automod record of one guild. Config holds
// the JSON document; decoding and defaulting belong to the settings layer.
type AutomodSettings struct {
	GuildID   string
	Config    []byte
	UpdatedAt time.Time
}

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
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

// GetAutomodSettings returns the stored record and whether one exists.
func (s *Store) GetAutomodSettings(ctx context.Context, guildID string) (AutomodSettings, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, config, updated_at
		FROM automod_settings WHERE guild_id = ?`, guildID)

	var settings AutomodSettings
	var config string
	var updated int64
	if err := row.Scan(&settings.GuildID, &config, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AutomodSettings{}, false, nil
		}
		return AutomodSettings{}, false, err
	}
	settings.Config = []byte(config)
	settings.UpdatedAt = time.Unix(updated, 0)
	return settings, true, nil
}

func (s *Store) UpsertAutomodSettings(ctx context.Context, settings AutomodSettings) error {
	updated := settings.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automod_settings (guild_id, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at
	`, settings.GuildID, string(settings.Config), updated.Unix())
	return err
}

func (s *Store) DeleteAutomodSettings(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM automod_settings WHERE guild_id = ?`, guildID)
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
