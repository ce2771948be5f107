package encounter

import (
	"context"
	"errors"

	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// Sentinel errors surfaced by Store implementations.
var (
	ErrEncounterNotFound = errors.New("encounter not found")
	ErrThreadNotFound    = errors.New("encounter thread not found")
)

// Store is the Durable Store surface the encounter core consumes. All event
// reads return ascending id order filtered to one encounter. Writes are
// append-only except the encounter metadata row and guild progression
// counters; derived combat state is never stored.
type Store interface {
	event.Store

	// LogEncounter persists a new encounter row and returns its id.
	LogEncounter(ctx context.Context, enc *Encounter) (int64, error)
	// EncounterByID fetches the encounter metadata row.
	EncounterByID(ctx context.Context, encounterID int64) (*Encounter, error)
	// LogEncounterThread records the thread hosting an encounter.
	LogEncounterThread(ctx context.Context, encounterID, threadID int64) error
	// EncounterThread returns the recorded thread id, or ErrThreadNotFound.
	EncounterThread(ctx context.Context, encounterID int64) (int64, error)
	// OpenEncounters returns ids of encounters in guildID without an end
	// event, used to reconnect orphans after a restart.
	OpenEncounters(ctx context.Context, guildID int64) ([]int64, error)

	EncounterEvents(ctx context.Context, encounterID int64) ([]*event.EncounterEvent, error)
	CombatEvents(ctx context.Context, encounterID int64) ([]*event.CombatEvent, error)
	StatusEffectEvents(ctx context.Context, encounterID int64) ([]*event.StatusEffectEvent, error)
	// EncounterParticipants returns member ids in first-engagement order.
	EncounterParticipants(ctx context.Context, encounterID int64) ([]int64, error)

	// UserEquipment fetches a member's equipped gear.
	UserEquipment(ctx context.Context, guildID, memberID int64) (*gear.Equipment, error)
	// LogGear persists a generated gear piece and returns its row id.
	LogGear(ctx context.Context, guildID, memberID int64, piece *gear.Piece) (int64, error)

	GuildLevel(ctx context.Context, guildID int64) (int, error)
	// GuildLevelProgress returns boss kills recorded at level against the
	// number required to advance.
	GuildLevelProgress(ctx context.Context, guildID int64, level int) (progress, requirement int, err error)
	SetGuildLevel(ctx context.Context, guildID int64, level int) error
	// RecordLevelProgress increments the boss-kill counter for a level.
	RecordLevelProgress(ctx context.Context, guildID int64, level int) error
}
