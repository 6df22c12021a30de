package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// MuteTally is the cumulative per-user mute record backing the stats report.
// Purely informational; the resolution engine never consults it.
type MuteTally struct {
	GuildID      string
	UserID       string
	CountTotal   int
	TotalSeconds int
	LastAt       time.Time
	LastEffect   string
}

func (s *Store) GetMuteTally(ctx context.Context, guildID, userID string) (MuteTally, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, user_id, count_total, total_seconds, last_at, COALESCE(last_effect, '')
		FROM mute_tallies
		WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)

	var tally MuteTally
	var lastAt int64
	err := row.Scan(&tally.GuildID, &tally.UserID, &tally.CountTotal, &tally.TotalSeconds, &lastAt, &tally.LastEffect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MuteTally{}, nil
		}
		return MuteTally{}, err
	}
	tally.LastAt = time.Unix(lastAt, 0)
	return tally, nil
}

func (s *Store) IncrementMuteTally(ctx context.Context, guildID, userID, effect string, seconds int) (int, error) {
	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count, total int
	row := tx.QueryRowContext(ctx, `
		SELECT count_total, total_seconds
		FROM mute_tallies
		WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	scanErr := row.Scan(&count, &total)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return 0, err
	}

	count++
	total += seconds
	_, err = tx.ExecContext(ctx, `
		INSERT INTO mute_tallies (guild_id, user_id, count_total, total_seconds, last_at, last_effect)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			count_total = excluded.count_total,
			total_seconds = excluded.total_seconds,
			last_at = excluded.last_at,
			last_effect = excluded.last_effect
	`, guildID, userID, count, total, now.Unix(), effect)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) TopMuted(ctx context.Context, guildID string, limit int) ([]MuteTally, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, count_total, total_seconds, last_at, COALESCE(last_effect, '')
		FROM mute_tallies
		WHERE guild_id = ?
		ORDER BY count_total DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tallies []MuteTally
	for rows.Next() {
		var tally MuteTally
		var lastAt int64
		if err := rows.Scan(&tally.GuildID, &tally.UserID, &tally.CountTotal, &tally.TotalSeconds, &lastAt, &tally.LastEffect); err != nil {
			return nil, err
		}
		tally.LastAt = time.Unix(lastAt, 0)
		tallies = append(tallies, tally)
	}
	return tallies, rows.Err()
}
