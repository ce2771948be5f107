package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// defaultLevelRequirement is the boss kills needed to clear a level when no
// override row exists.
const defaultLevelRequirement = 3

// GuildLevel returns the guild's current progression level. Guilds without
// a row are level 1.
func (s *Store) GuildLevel(ctx context.Context, guildID int64) (int, error) {
	var level int
	err := s.db.QueryRow(ctx,
		`SELECT level FROM guild_levels WHERE guild_id = $1`,
		guildID,
	).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetching guild level: %w", err)
	}
	return level, nil
}

// SetGuildLevel records the guild's progression level.
func (s *Store) SetGuildLevel(ctx context.Context, guildID int64, level int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO guild_levels (guild_id, level)
		VALUES ($1,$2)
		ON CONFLICT (guild_id) DO UPDATE SET level = EXCLUDED.level`,
		guildID, level,
	)
	if err != nil {
		return fmt.Errorf("setting guild level: %w", err)
	}
	return nil
}

// GuildLevelProgress returns boss kills recorded at level against the
// number required to advance past it.
func (s *Store) GuildLevelProgress(ctx context.Context, guildID int64, level int) (int, int, error) {
	var progress, requirement int
	err := s.db.QueryRow(ctx,
		`SELECT progress, requirement FROM guild_level_progress WHERE guild_id = $1 AND level = $2`,
		guildID, level,
	).Scan(&progress, &requirement)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, defaultLevelRequirement, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("fetching guild level progress: %w", err)
	}
	return progress, requirement, nil
}

// RecordLevelProgress increments the boss-kill counter for a level.
func (s *Store) RecordLevelProgress(ctx context.Context, guildID int64, level int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO guild_level_progress (guild_id, level, progress, requirement)
		VALUES ($1,$2,1,$3)
		ON CONFLICT (guild_id, level) DO UPDATE SET progress = guild_level_progress.progress + 1`,
		guildID, level, defaultLevelRequirement,
	)
	if err != nil {
		return fmt.Errorf("recording level progress: %w", err)
	}
	return nil
}
