package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grumblebean/brawl/internal/game/event"
)

// Store implements the encounter Durable Store over a single events table
// plus encounter, gear, and guild progression rows. Event ids come from the
// table's bigserial sequence, so append order is the replay order.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// AppendEvent persists the event and marks it synchronized with the
// assigned row id.
//
// Precondition: ev must be unsynchronized.
// Postcondition: On success ev.IsSynchronized() is true and the returned id
// is strictly greater than every previously assigned id.
func (s *Store) AppendEvent(ctx context.Context, ev event.Event) (int64, error) {
	var (
		id  int64
		err error
	)
	switch e := ev.(type) {
	case *event.EncounterEvent:
		err = s.db.QueryRow(ctx, `
			INSERT INTO events (kind, guild_id, encounter_id, created_at, type, member_id)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id`,
			event.KindEncounter.String(), e.GuildID, e.EncounterID, e.Timestamp, string(e.Type), e.MemberID,
		).Scan(&id)
	case *event.CombatEvent:
		err = s.db.QueryRow(ctx, `
			INSERT INTO events (kind, guild_id, encounter_id, created_at, type, member_id,
			                    target_id, skill_type, skill_value, skill_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING id`,
			event.KindCombat.String(), e.GuildID, e.EncounterID, e.Timestamp, string(e.Type),
			e.MemberID, e.TargetID, e.SkillType, e.SkillValue, e.SkillID,
		).Scan(&id)
	case *event.StatusEffectEvent:
		err = s.db.QueryRow(ctx, `
			INSERT INTO events (kind, guild_id, encounter_id, created_at,
			                    source_id, actor_id, status_type, stacks, value)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id`,
			event.KindStatusEffect.String(), e.GuildID, e.EncounterID, e.Timestamp,
			e.SourceID, e.ActorID, e.StatusType, e.Stacks, e.Value,
		).Scan(&id)
	default:
		return 0, fmt.Errorf("unknown event type %T", ev)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	ev.MarkSynchronized(id)
	return id, nil
}

// EncounterEvents returns the encounter lifecycle events for one encounter
// in ascending id order.
func (s *Store) EncounterEvents(ctx context.Context, encounterID int64) ([]*event.EncounterEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, guild_id, encounter_id, created_at, type, member_id
		FROM events
		WHERE encounter_id = $1 AND kind = $2
		ORDER BY id ASC`,
		encounterID, event.KindEncounter.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing encounter events: %w", err)
	}
	defer rows.Close()

	out := make([]*event.EncounterEvent, 0)
	for rows.Next() {
		var (
			e   event.EncounterEvent
			typ string
		)
		if err := rows.Scan(&e.ID, &e.GuildID, &e.EncounterID, &e.Timestamp, &typ, &e.MemberID); err != nil {
			return nil, fmt.Errorf("scanning encounter event row: %w", err)
		}
		e.Type = event.EncounterEventType(typ)
		e.Synchronized = true
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CombatEvents returns the combat events for one encounter in ascending id
// order.
func (s *Store) CombatEvents(ctx context.Context, encounterID int64) ([]*event.CombatEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, guild_id, encounter_id, created_at, type, member_id,
		       target_id, skill_type, skill_value, skill_id
		FROM events
		WHERE encounter_id = $1 AND kind = $2
		ORDER BY id ASC`,
		encounterID, event.KindCombat.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing combat events: %w", err)
	}
	defer rows.Close()

	out := make([]*event.CombatEvent, 0)
	for rows.Next() {
		var (
			e   event.CombatEvent
			typ string
		)
		if err := rows.Scan(
			&e.ID, &e.GuildID, &e.EncounterID, &e.Timestamp, &typ,
			&e.MemberID, &e.TargetID, &e.SkillType, &e.SkillValue, &e.SkillID,
		); err != nil {
			return nil, fmt.Errorf("scanning combat event row: %w", err)
		}
		e.Type = event.CombatEventType(typ)
		e.Synchronized = true
		out = append(out, &e)
	}
	return out, rows.Err()
}

// StatusEffectEvents returns the status effect applications for one
// encounter in ascending id order.
func (s *Store) StatusEffectEvents(ctx context.Context, encounterID int64) ([]*event.StatusEffectEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, guild_id, encounter_id, created_at,
		       source_id, actor_id, status_type, stacks, value
		FROM events
		WHERE encounter_id = $1 AND kind = $2
		ORDER BY id ASC`,
		encounterID, event.KindStatusEffect.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing status effect events: %w", err)
	}
	defer rows.Close()

	out := make([]*event.StatusEffectEvent, 0)
	for rows.Next() {
		var e event.StatusEffectEvent
		if err := rows.Scan(
			&e.ID, &e.GuildID, &e.EncounterID, &e.Timestamp,
			&e.SourceID, &e.ActorID, &e.StatusType, &e.Stacks, &e.Value,
		); err != nil {
			return nil, fmt.Errorf("scanning status effect event row: %w", err)
		}
		e.Synchronized = true
		out = append(out, &e)
	}
	return out, rows.Err()
}

// EncounterParticipants returns member ids in first-engagement order,
// derived from the member_engage events.
func (s *Store) EncounterParticipants(ctx context.Context, encounterID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT member_id, MIN(id) AS first_engaged
		FROM events
		WHERE encounter_id = $1 AND kind = $2 AND type = $3
		GROUP BY member_id
		ORDER BY first_engaged ASC`,
		encounterID, event.KindEncounter.String(), string(event.EncounterMemberEngage),
	)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var memberID, firstEngaged int64
		if err := rows.Scan(&memberID, &firstEngaged); err != nil {
			return nil, fmt.Errorf("scanning participant row: %w", err)
		}
		out = append(out, memberID)
	}
	return out, rows.Err()
}
