// Package memory provides an in-memory Durable Store for tests and local
// experimentation. Semantics mirror the postgres implementation: ids are
// assigned from a single monotonic sequence and event reads come back in
// ascending id order.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/grumblebean/brawl/internal/game/encounter"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// Store is an in-memory encounter.Store. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	nextID int64

	encounters map[int64]*encounter.Encounter
	threads    map[int64]int64

	encounterEvents map[int64][]*event.EncounterEvent
	combatEvents    map[int64][]*event.CombatEvent
	statusEvents    map[int64][]*event.StatusEffectEvent
	participants    map[int64][]int64

	equipment map[string]*gear.Equipment
	gearRows  []gearRow

	guildLevels   map[int64]int
	levelProgress map[string]int
	requirements  map[string]int
}

type gearRow struct {
	id       int64
	guildID  int64
	memberID int64
	piece    *gear.Piece
}

// NewStore creates an empty Store. Guilds default to level 1 and a
// three-kill level requirement.
func NewStore() *Store {
	return &Store{
		nextID:          1,
		encounters:      make(map[int64]*encounter.Encounter),
		threads:         make(map[int64]int64),
		encounterEvents: make(map[int64][]*event.EncounterEvent),
		combatEvents:    make(map[int64][]*event.CombatEvent),
		statusEvents:    make(map[int64][]*event.StatusEffectEvent),
		participants:    make(map[int64][]int64),
		equipment:       make(map[string]*gear.Equipment),
		guildLevels:     make(map[int64]int),
		levelProgress:   make(map[string]int),
		requirements:    make(map[string]int),
	}
}

func (s *Store) nextSequence() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func equipKey(guildID, memberID int64) string {
	return fmt.Sprintf("%d/%d", guildID, memberID)
}

func progressKey(guildID int64, level int) string {
	return fmt.Sprintf("%d/%d", guildID, level)
}

// AppendEvent assigns the next id, marks the event synchronized, and files
// it under its encounter.
func (s *Store) AppendEvent(_ context.Context, ev event.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSequence()
	ev.MarkSynchronized(id)
	encID := ev.EventEncounterID()
	switch e := ev.(type) {
	case *event.EncounterEvent:
		s.encounterEvents[encID] = append(s.encounterEvents[encID], e)
		if e.Type == event.EncounterMemberEngage {
			known := false
			for _, m := range s.participants[encID] {
				if m == e.MemberID {
					known = true
					break
				}
			}
			if !known {
				s.participants[encID] = append(s.participants[encID], e.MemberID)
			}
		}
	case *event.CombatEvent:
		s.combatEvents[encID] = append(s.combatEvents[encID], e)
	case *event.StatusEffectEvent:
		s.statusEvents[encID] = append(s.statusEvents[encID], e)
	default:
		return 0, fmt.Errorf("unknown event type %T", ev)
	}
	return id, nil
}

func (s *Store) LogEncounter(_ context.Context, enc *encounter.Encounter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc.ID = s.nextSequence()
	s.encounters[enc.ID] = enc
	return enc.ID, nil
}

func (s *Store) EncounterByID(_ context.Context, encounterID int64) (*encounter.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc, ok := s.encounters[encounterID]
	if !ok {
		return nil, fmt.Errorf("encounter %d: %w", encounterID, encounter.ErrEncounterNotFound)
	}
	cp := *enc
	return &cp, nil
}

func (s *Store) LogEncounterThread(_ context.Context, encounterID, threadID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[encounterID] = threadID
	return nil
}

func (s *Store) EncounterThread(_ context.Context, encounterID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.threads[encounterID]
	if !ok {
		return 0, fmt.Errorf("encounter %d: %w", encounterID, encounter.ErrThreadNotFound)
	}
	return id, nil
}

func (s *Store) OpenEncounters(_ context.Context, guildID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for id, enc := range s.encounters {
		if enc.GuildID != guildID {
			continue
		}
		ended := false
		for _, ev := range s.encounterEvents[id] {
			if ev.Type == event.EncounterEnd {
				ended = true
				break
			}
		}
		if !ended {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) EncounterEvents(_ context.Context, encounterID int64) ([]*event.EncounterEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*event.EncounterEvent(nil), s.encounterEvents[encounterID]...), nil
}

func (s *Store) CombatEvents(_ context.Context, encounterID int64) ([]*event.CombatEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*event.CombatEvent(nil), s.combatEvents[encounterID]...), nil
}

func (s *Store) StatusEffectEvents(_ context.Context, encounterID int64) ([]*event.StatusEffectEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*event.StatusEffectEvent(nil), s.statusEvents[encounterID]...), nil
}

func (s *Store) EncounterParticipants(_ context.Context, encounterID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.participants[encounterID]...), nil
}

// SetUserEquipment seeds a member's equipped gear for tests.
func (s *Store) SetUserEquipment(guildID, memberID int64, eq *gear.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment[equipKey(guildID, memberID)] = eq
}

func (s *Store) UserEquipment(_ context.Context, guildID, memberID int64) (*gear.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if eq, ok := s.equipment[equipKey(guildID, memberID)]; ok {
		return eq, nil
	}
	return &gear.Equipment{}, nil
}

func (s *Store) LogGear(_ context.Context, guildID, memberID int64, piece *gear.Piece) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	piece.ID = s.nextSequence()
	s.gearRows = append(s.gearRows, gearRow{id: piece.ID, guildID: guildID, memberID: memberID, piece: piece})
	return piece.ID, nil
}

// GearCount returns the number of logged gear rows, for tests.
func (s *Store) GearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gearRows)
}

func (s *Store) GuildLevel(_ context.Context, guildID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lvl, ok := s.guildLevels[guildID]; ok {
		return lvl, nil
	}
	return 1, nil
}

func (s *Store) SetGuildLevel(_ context.Context, guildID int64, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guildLevels[guildID] = level
	return nil
}

// SetLevelRequirement overrides the boss kills needed to clear a level.
func (s *Store) SetLevelRequirement(guildID int64, level, requirement int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requirements[progressKey(guildID, level)] = requirement
}

func (s *Store) GuildLevelProgress(_ context.Context, guildID int64, level int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requirements[progressKey(guildID, level)]
	if !ok {
		req = 3
	}
	return s.levelProgress[progressKey(guildID, level)], req, nil
}

func (s *Store) RecordLevelProgress(_ context.Context, guildID int64, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levelProgress[progressKey(guildID, level)]++
	return nil
}
