package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UserInfraction counts automod actions taken against a member for one rule.
type UserInfraction struct {
	GuildID    string
	UserID     string
	Category   string
	CountTotal int
	LastAt     time.Time
	LastAction string
	ResetAt    *time.Time
}

// ListInfractions returns every category recorded for a member. Counters
// whose reset time has passed are reported as zero.
func (s *Store) ListInfractions(ctx context.Context, guildID, userID string) ([]UserInfraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, category, count_total, last_at, COALESCE(last_action, ''), reset_at
		FROM user_infractions
		WHERE guild_id = ? AND user_id = ?
		ORDER BY category
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var out []UserInfraction
	for rows.Next() {
		inf, err := scanInfraction(rows.Scan)
		if err != nil {
			return nil, err
		}
		if inf.ResetAt != nil && !now.Before(*inf.ResetAt) {
			inf.CountTotal = 0
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// IncrementInfraction bumps the counter and returns the new total. A counter
// whose reset time has passed starts over. forgiveAfter <= 0 never resets.
func (s *Store) IncrementInfraction(ctx context.Context, guildID, userID, category, lastAction string, forgiveAfter time.Duration) (int, error) {
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

	var count int
	var resetAt sql.NullInt64
	row := tx.QueryRowContext(ctx, `
		SELECT count_total, reset_at
		FROM user_infractions
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`, guildID, userID, category)
	scanErr := row.Scan(&count, &resetAt)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return 0, err
	}
	if scanErr == nil && resetAt.Valid && now.Unix() >= resetAt.Int64 {
		count = 0
	}

	count++
	var nextReset any
	if forgiveAfter > 0 {
		nextReset = now.Add(forgiveAfter).Unix()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_infractions (guild_id, user_id, category, count_total, last_at, last_action, reset_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, category) DO UPDATE SET
			count_total = excluded.count_total,
			last_at = excluded.last_at,
			last_action = excluded.last_action,
			reset_at = excluded.reset_at
	`, guildID, userID, category, count, now.Unix(), lastAction, nextReset)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func scanInfraction(scan func(dest ...any) error) (UserInfraction, error) {
	var inf UserInfraction
	var lastAt int64
	var resetAt sql.NullInt64
	if err := scan(&inf.GuildID, &inf.UserID, &inf.Category, &inf.CountTotal, &lastAt, &inf.LastAction, &resetAt); err != nil {
		return UserInfraction{}, err
	}
	inf.LastAt = time.Unix(lastAt, 0)
	if resetAt.Valid {
		value := time.Unix(resetAt.Int64, 0)
		inf.ResetAt = &value
	}
	return inf, nil
}
