// Package event defines the append-only domain events of the combat engine
// and the bus that persists and fans them out to listeners.
//
// Every mutation of combat state is expressed as an event; derived state
// (current HP, cooldowns, active status effects) is always recomputed from
// the ordered event history and never written back.
package event

import "time"

// Kind discriminates the three persisted event families.
type Kind int

const (
	KindEncounter Kind = iota
	KindCombat
	KindStatusEffect
)

// String returns the storage type tag for the Kind.
func (k Kind) String() string {
	switch k {
	case KindEncounter:
		return "encounter"
	case KindCombat:
		return "combat"
	case KindStatusEffect:
		return "status_effect"
	default:
		return "unknown"
	}
}

// EncounterEventType enumerates encounter lifecycle transitions.
type EncounterEventType string

const (
	EncounterSpawn             EncounterEventType = "spawn"
	EncounterInitiated         EncounterEventType = "initiated"
	EncounterMemberEngage      EncounterEventType = "member_engage"
	EncounterMemberRequestJoin EncounterEventType = "member_request_join"
	EncounterMemberDisengage   EncounterEventType = "member_disengage"
	EncounterNewRound          EncounterEventType = "new_round"
	EncounterMemberDefeat      EncounterEventType = "member_defeat"
	EncounterEnemyDefeat       EncounterEventType = "enemy_defeat"
	EncounterEnemyPhaseChange  EncounterEventType = "enemy_phase_change"
	EncounterForceSkip         EncounterEventType = "force_skip"
	EncounterPenalty50         EncounterEventType = "penalty_50"
	EncounterPenalty75         EncounterEventType = "penalty_75"
	EncounterEnd               EncounterEventType = "end"
)

// CombatEventType enumerates turn-level combat facts.
type CombatEventType string

const (
	CombatMemberTurnAction    CombatEventType = "member_turn_action"
	CombatMemberEndTurn       CombatEventType = "member_end_turn"
	CombatEnemyTurnAction     CombatEventType = "enemy_turn_action"
	CombatEnemyEndTurn        CombatEventType = "enemy_end_turn"
	CombatStatusEffectOutcome CombatEventType = "status_effect_outcome"
	// CombatStatusConsume records consumption of status-effect stacks.
	// SkillID references the id of the StatusEffectEvent that applied them.
	CombatStatusConsume CombatEventType = "status_effect_consume"
)

// Meta carries the columns shared by every persisted event row.
// The ID is assigned by the Durable Store on first append; until then the
// event is transient and must not drive state-machine decisions.
type Meta struct {
	ID           int64
	Timestamp    time.Time
	GuildID      int64
	EncounterID  int64
	Synchronized bool
}

// EventID returns the server-assigned id, or 0 if not yet synchronized.
func (m *Meta) EventID() int64 { return m.ID }

// EventTime returns the event creation timestamp.
func (m *Meta) EventTime() time.Time { return m.Timestamp }

// EventGuildID returns the owning guild id.
func (m *Meta) EventGuildID() int64 { return m.GuildID }

// EventEncounterID returns the encounter this event belongs to.
func (m *Meta) EventEncounterID() int64 { return m.EncounterID }

// IsSynchronized reports whether the event has round-tripped through durable
// storage and carries a stable, replay-safe id.
func (m *Meta) IsSynchronized() bool { return m.Synchronized }

// MarkSynchronized records the server-assigned id. Called by the Durable
// Store exactly once per event.
//
// Precondition: id must be > 0.
// Postcondition: IsSynchronized() is true and EventID() == id.
func (m *Meta) MarkSynchronized(id int64) {
	m.ID = id
	m.Synchronized = true
}

// Event is the surface shared by all persisted domain events.
type Event interface {
	EventID() int64
	EventTime() time.Time
	EventGuildID() int64
	EventEncounterID() int64
	IsSynchronized() bool
	MarkSynchronized(id int64)
	EventKind() Kind
}

// EncounterEvent records an encounter lifecycle transition.
type EncounterEvent struct {
	Meta
	Type EncounterEventType
	// MemberID is the guild member the transition concerns, or 0 for
	// encounter-wide transitions (spawn, new round, end).
	MemberID int64
}

// EventKind returns KindEncounter.
func (e *EncounterEvent) EventKind() Kind { return KindEncounter }

// NewEncounterEvent creates an unsynchronized encounter event stamped with
// the current time.
func NewEncounterEvent(guildID, encounterID int64, typ EncounterEventType, memberID int64) *EncounterEvent {
	return &EncounterEvent{
		Meta:     Meta{Timestamp: time.Now().UTC(), GuildID: guildID, EncounterID: encounterID},
		Type:     typ,
		MemberID: memberID,
	}
}

// CombatEvent records one resolved turn-level action and its numeric outcome.
type CombatEvent struct {
	Meta
	Type CombatEventType
	// MemberID is the acting actor (negative ids denote the opponent).
	MemberID int64
	// TargetID is the actor the action applied to, or 0 for turn summaries.
	TargetID int64
	// SkillType identifies the skill used, empty for end-of-turn markers.
	SkillType string
	// SkillValue is the resolved numeric outcome: damage dealt is positive,
	// healing is negative, matching the HP derivation in the actor math.
	SkillValue int
	// SkillID references a persisted gear/skill instance, or the application
	// event id for CombatStatusConsume.
	SkillID int64
}

// EventKind returns KindCombat.
func (e *CombatEvent) EventKind() Kind { return KindCombat }

// NewCombatEvent creates an unsynchronized combat event stamped with the
// current time.
func NewCombatEvent(guildID, encounterID int64, typ CombatEventType, memberID, targetID int64, skillType string, skillValue int, skillID int64) *CombatEvent {
	return &CombatEvent{
		Meta:       Meta{Timestamp: time.Now().UTC(), GuildID: guildID, EncounterID: encounterID},
		Type:       typ,
		MemberID:   memberID,
		TargetID:   targetID,
		SkillType:  skillType,
		SkillValue: skillValue,
		SkillID:    skillID,
	}
}

// StatusEffectEvent records the application of a named status effect.
// Consumption of the applied stacks is recorded separately as CombatEvents
// of type CombatStatusConsume referencing this event's id.
type StatusEffectEvent struct {
	Meta
	// SourceID is the actor that applied the effect.
	SourceID int64
	// ActorID is the actor the effect is attached to.
	ActorID int64
	// StatusType names the status effect definition.
	StatusType string
	// Stacks is the number of stacks applied.
	Stacks int
	// Value is the per-trigger numeric payload (e.g. bleed damage per stack).
	Value float64
}

// EventKind returns KindStatusEffect.
func (e *StatusEffectEvent) EventKind() Kind { return KindStatusEffect }

// NewStatusEffectEvent creates an unsynchronized status effect application
// event stamped with the current time.
func NewStatusEffectEvent(guildID, encounterID, sourceID, actorID int64, statusType string, stacks int, value float64) *StatusEffectEvent {
	return &StatusEffectEvent{
		Meta:       Meta{Timestamp: time.Now().UTC(), GuildID: guildID, EncounterID: encounterID},
		SourceID:   sourceID,
		ActorID:    actorID,
		StatusType: statusType,
		Stacks:     stacks,
		Value:      value,
	}
}
