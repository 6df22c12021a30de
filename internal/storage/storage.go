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

// GuildSettings carries the per-guild overrides of the global mechanics
// config. Gameplay state (immunity, chain rights, sessions) never lives here;
// the database is configuration plus audit trail only.
type GuildSettings struct {
	GuildID            string
	AnnounceChannel    string
	SleepWindow        string
	RepeatWindow       string
	AmbientWindow      string
	MaxDurationSeconds int
	ChainEnabled       bool
	SeasonalEnabled    bool
	RepeatEnabled      bool
	AmbientEnabled     bool
	RetentionDays      int
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

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT announce_channel, sleep_window, repeat_window, ambient_window,
		max_duration_seconds, chain_enabled, seasonal_enabled, repeat_enabled,
		ambient_enabled, retention_days
		FROM guild_settings WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var chain, seasonal, repeat, ambient int
	err := row.Scan(
		&result.AnnounceChannel,
		&result.SleepWindow,
		&result.RepeatWindow,
		&result.AmbientWindow,
		&result.MaxDurationSeconds,
		&chain,
		&seasonal,
		&repeat,
		&ambient,
		&result.RetentionDays,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.ChainEnabled = chain == 1
	result.SeasonalEnabled = seasonal == 1
	result.RepeatEnabled = repeat == 1
	result.AmbientEnabled = ambient == 1
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, announce_channel, sleep_window, repeat_window, ambient_window,
			max_duration_seconds, chain_enabled, seasonal_enabled, repeat_enabled,
			ambient_enabled, retention_days
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			announce_channel = excluded.announce_channel,
			sleep_window = excluded.sleep_window,
			repeat_window = excluded.repeat_window,
			ambient_window = excluded.ambient_window,
			max_duration_seconds = excluded.max_duration_seconds,
			chain_enabled = excluded.chain_enabled,
			seasonal_enabled = excluded.seasonal_enabled,
			repeat_enabled = excluded.repeat_enabled,
			ambient_enabled = excluded.ambient_enabled,
			retention_days = excluded.retention_days
	`,
		settings.GuildID,
		settings.AnnounceChannel,
		settings.SleepWindow,
		settings.RepeatWindow,
		settings.AmbientWindow,
		settings.MaxDurationSeconds,
		boolToInt(settings.ChainEnabled),
		boolToInt(settings.SeasonalEnabled),
		boolToInt(settings.RepeatEnabled),
		boolToInt(settings.AmbientEnabled),
		settings.RetentionDays,
	)
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
		ORDER BY created_at DESC
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

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.Unix())
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
