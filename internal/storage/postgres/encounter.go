package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/grumblebean/brawl/internal/game/encounter"
	"github.com/grumblebean/brawl/internal/game/event"
)

// LogEncounter inserts the encounter metadata row and sets enc.ID.
//
// Precondition: enc.GuildID and enc.EnemyType must be set.
// Postcondition: enc.ID holds the assigned row id.
func (s *Store) LogEncounter(ctx context.Context, enc *encounter.Encounter) (int64, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO encounters
			(guild_id, enemy_type, level, max_hp, channel_id, spawn_message_id, owner_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		enc.GuildID, enc.EnemyType, enc.Level, enc.MaxHP,
		enc.ChannelID, enc.SpawnMessageID, enc.OwnerID, enc.CreatedAt,
	).Scan(&enc.ID)
	if err != nil {
		return 0, fmt.Errorf("inserting encounter: %w", err)
	}
	return enc.ID, nil
}

// EncounterByID fetches the encounter metadata row.
//
// Postcondition: Returns ErrEncounterNotFound when no row matches.
func (s *Store) EncounterByID(ctx context.Context, encounterID int64) (*encounter.Encounter, error) {
	var enc encounter.Encounter
	err := s.db.QueryRow(ctx, `
		SELECT id, guild_id, enemy_type, level, max_hp, channel_id, spawn_message_id, owner_id, created_at
		FROM encounters WHERE id = $1`,
		encounterID,
	).Scan(
		&enc.ID, &enc.GuildID, &enc.EnemyType, &enc.Level, &enc.MaxHP,
		&enc.ChannelID, &enc.SpawnMessageID, &enc.OwnerID, &enc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("encounter %d: %w", encounterID, encounter.ErrEncounterNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching encounter: %w", err)
	}
	return &enc, nil
}

// LogEncounterThread records the thread hosting an encounter. Re-logging the
// same encounter replaces the previous thread.
func (s *Store) LogEncounterThread(ctx context.Context, encounterID, threadID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO encounter_threads (encounter_id, thread_id)
		VALUES ($1,$2)
		ON CONFLICT (encounter_id) DO UPDATE SET thread_id = EXCLUDED.thread_id`,
		encounterID, threadID,
	)
	if err != nil {
		return fmt.Errorf("logging encounter thread: %w", err)
	}
	return nil
}

// EncounterThread returns the recorded thread id.
//
// Postcondition: Returns ErrThreadNotFound when the encounter has no thread.
func (s *Store) EncounterThread(ctx context.Context, encounterID int64) (int64, error) {
	var threadID int64
	err := s.db.QueryRow(ctx,
		`SELECT thread_id FROM encounter_threads WHERE encounter_id = $1`,
		encounterID,
	).Scan(&threadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("encounter %d: %w", encounterID, encounter.ErrThreadNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("fetching encounter thread: %w", err)
	}
	return threadID, nil
}

// OpenEncounters returns ids of encounters in guildID without an end event,
// oldest first. Used to reconnect orphaned encounters after a restart.
func (s *Store) OpenEncounters(ctx context.Context, guildID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT e.id
		FROM encounters e
		WHERE e.guild_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM events ev
			WHERE ev.encounter_id = e.id AND ev.kind = $2 AND ev.type = $3
		  )
		ORDER BY e.id ASC`,
		guildID, event.KindEncounter.String(), string(event.EncounterEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("listing open encounters: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning open encounter row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
