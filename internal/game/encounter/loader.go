package encounter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/effects"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// defaultLoadout fills a character's skill slots not taken by weapon
// skills.
var defaultLoadout = []string{"slash", "heavy_blow", "fireball", "mend"}

// loadoutSlots is the fixed number of skills a character brings.
const loadoutSlots = 4

// encounterCache is the per-encounter incrementally maintained working set
// of one ContextLoader. Slices only ever grow; eviction replaces the whole
// entry.
type encounterCache struct {
	encounter    *Encounter
	history      *actor.History
	threadID     int64
	participants []int64
}

// ContextLoader rehydrates EncounterContexts from the event log. It is the
// only component permitted to construct a Context.
//
// Caches are shared across all engines in the process and are appended to
// by bus delivery; a cold load fetches wholesale from the store exactly
// once per encounter.
type ContextLoader struct {
	mu      sync.Mutex
	store   Store
	factory *content.Factory
	logger  *zap.Logger
	caches  map[int64]*encounterCache

	// autoScrapBelow is stamped on every rebuilt character; empty disables
	// auto-scrapping loot.
	autoScrapBelow content.Rarity
}

// NewContextLoader creates a ContextLoader.
//
// Precondition: store, factory and logger must be non-nil.
func NewContextLoader(store Store, factory *content.Factory, logger *zap.Logger) *ContextLoader {
	return &ContextLoader{
		store:   store,
		factory: factory,
		logger:  logger,
		caches:  make(map[int64]*encounterCache),
	}
}

// SetAutoScrapBelow configures the rarity below which members' loot is
// scrapped automatically. Call before the first load.
func (l *ContextLoader) SetAutoScrapBelow(r content.Rarity) {
	l.autoScrapBelow = r
}

// HandleEvent maintains the per-encounter caches from bus traffic:
// synchronized events append to their encounter's history, engagement
// events extend the participant list, and an end event evicts every cache
// entry for the encounter atomically.
func (l *ContextLoader) HandleEvent(_ context.Context, ev event.Event) error {
	if !ev.IsSynchronized() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cache, ok := l.caches[ev.EventEncounterID()]
	if !ok {
		return nil
	}
	if ee, isEnc := ev.(*event.EncounterEvent); isEnc && ee.Type == event.EncounterEnd {
		delete(l.caches, ev.EventEncounterID())
		return nil
	}
	cache.history.Append(ev)
	if ee, isEnc := ev.(*event.EncounterEvent); isEnc && ee.Type == event.EncounterMemberEngage {
		for _, id := range cache.participants {
			if id == ee.MemberID {
				return nil
			}
		}
		cache.participants = append(cache.participants, ee.MemberID)
	}
	return nil
}

// Evict drops the cache entry for an encounter.
func (l *ContextLoader) Evict(encounterID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.caches, encounterID)
}

// LoadEncounterContext rebuilds the complete working set for an encounter:
// metadata, ordered event history, the opponent and every participant
// derived by event replay, passive attribute effects applied, and the
// canonical initiative order. A missing thread on an initiated encounter
// is fatal; there is no partial context.
func (l *ContextLoader) LoadEncounterContext(ctx context.Context, encounterID int64) (*Context, error) {
	cache, err := l.cacheFor(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	c := &Context{
		Encounter: cache.encounter,
		History:   cache.history.Clone(),
		ThreadID:  cache.threadID,
	}
	if err := l.RebuildActors(ctx, c); err != nil {
		return nil, err
	}
	c.RefreshInitiative(true)
	return c, nil
}

// cacheFor returns the encounter's cache, cold-loading it from the store
// on first use.
func (l *ContextLoader) cacheFor(ctx context.Context, encounterID int64) (*encounterCache, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cache, ok := l.caches[encounterID]; ok {
		return cache, nil
	}

	enc, err := l.store.EncounterByID(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("loading encounter %d: %w", encounterID, err)
	}
	history := &actor.History{}
	if history.Encounter, err = l.store.EncounterEvents(ctx, encounterID); err != nil {
		return nil, fmt.Errorf("loading encounter events for %d: %w", encounterID, err)
	}
	if history.Combat, err = l.store.CombatEvents(ctx, encounterID); err != nil {
		return nil, fmt.Errorf("loading combat events for %d: %w", encounterID, err)
	}
	if history.Status, err = l.store.StatusEffectEvents(ctx, encounterID); err != nil {
		return nil, fmt.Errorf("loading status effect events for %d: %w", encounterID, err)
	}
	participants, err := l.store.EncounterParticipants(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("loading participants for %d: %w", encounterID, err)
	}

	threadID, err := l.store.EncounterThread(ctx, encounterID)
	switch {
	case errors.Is(err, ErrThreadNotFound):
		if initiated(history) {
			return nil, fmt.Errorf("encounter %d is initiated but has no thread: %w", encounterID, err)
		}
		threadID = 0
	case err != nil:
		return nil, fmt.Errorf("resolving thread for %d: %w", encounterID, err)
	}

	cache := &encounterCache{
		encounter:    enc,
		history:      history,
		threadID:     threadID,
		participants: participants,
	}
	l.caches[encounterID] = cache
	return cache, nil
}

// initiated reports whether combat setup completed for the history.
func initiated(h *actor.History) bool {
	for _, e := range h.Encounter {
		if e.Type == event.EncounterInitiated {
			return true
		}
	}
	return false
}

// RebuildActors re-derives every actor in the context from its history:
// the opponent (following any phase chain), each participant with fresh
// equipment, then one attribute-effect pipeline pass per actor.
//
// Postcondition: all derived fields in c are pure functions of c.History;
// rebuilding twice without new events is a no-op.
func (l *ContextLoader) RebuildActors(ctx context.Context, c *Context) error {
	opp, err := l.buildOpponent(c.Encounter, c.History)
	if err != nil {
		return err
	}
	c.Opponent = opp

	chars := make([]*actor.Character, 0, len(c.History.Participants()))
	for _, memberID := range c.History.Participants() {
		ch, err := l.buildCharacter(ctx, c.Encounter, c.History, memberID)
		if err != nil {
			return err
		}
		chars = append(chars, ch)
	}
	c.Characters = chars

	effects.ApplyAttributePass(&c.Opponent.Actor)
	for _, ch := range c.Characters {
		effects.ApplyAttributePass(&ch.Actor)
	}
	return nil
}

// buildOpponent derives the opponent actor, resolving the current phase by
// following the enemy's NextPhase chain once per recorded phase change.
// HP and status effects count only events after the latest phase change,
// so each phase starts with a fresh pool.
func (l *ContextLoader) buildOpponent(enc *Encounter, h *actor.History) (*actor.Opponent, error) {
	def, err := l.factory.Enemy(enc.EnemyType)
	if err != nil {
		return nil, fmt.Errorf("resolving enemy for encounter %d: %w", enc.ID, err)
	}
	phases := h.PhaseCount()
	for i := 0; i < phases; i++ {
		if def.NextPhase == "" {
			return nil, fmt.Errorf("encounter %d records %d phase changes but %q has no next phase", enc.ID, phases, def.Type)
		}
		if def, err = l.factory.Enemy(def.NextPhase); err != nil {
			return nil, fmt.Errorf("resolving phase %d for encounter %d: %w", i+1, enc.ID, err)
		}
	}

	maxHP := enc.MaxHP
	sinceID := h.LastPhaseChangeID()
	if phases > 0 {
		maxHP = def.ScaledMaxHP(engagedAt(h, sinceID))
	}

	skills := make([]actor.Skill, 0, len(def.Skills))
	for _, typ := range def.Skills {
		sd, err := l.factory.Skill(typ)
		if err != nil {
			return nil, fmt.Errorf("resolving skills for enemy %q: %w", def.Type, err)
		}
		skills = append(skills, actor.Skill{Def: sd, Level: def.Level})
	}

	opp := &actor.Opponent{
		Actor: actor.Actor{
			ID:          actor.OpponentID,
			Kind:        actor.KindOpponent,
			Name:        def.Name,
			MaxHP:       maxHP,
			PrimaryType: content.DamageNeutral,
			Attributes:  actor.Attributes{Armor: def.Armor},
		},
		Def:   def,
		Level: def.Level,
		Phase: phases,
	}
	opp.CurrentHP = actor.CurrentHP(maxHP, actor.OpponentID, h, sinceID)
	opp.Defeated = opp.CurrentHP == 0
	opp.ForceSkip = actor.IsForceSkipped(h, actor.OpponentID)
	opp.Skills = actor.SkillStates(skills, actor.OpponentID, h)
	if opp.StatusEffects, err = actor.ActiveStatusEffects(h, actor.OpponentID, l.factory, sinceID); err != nil {
		return nil, err
	}
	return opp, nil
}

// buildCharacter derives one participant: equipment fetched fresh from the
// store, combat state replayed from the history.
func (l *ContextLoader) buildCharacter(ctx context.Context, enc *Encounter, h *actor.History, memberID int64) (*actor.Character, error) {
	eq, err := l.store.UserEquipment(ctx, enc.GuildID, memberID)
	if err != nil {
		return nil, fmt.Errorf("loading equipment for member %d: %w", memberID, err)
	}

	skills, primary, err := l.characterLoadout(eq)
	if err != nil {
		return nil, fmt.Errorf("building loadout for member %d: %w", memberID, err)
	}

	maxHP := actor.CharacterMaxHP(eq)
	ch := &actor.Character{
		Actor: actor.Actor{
			ID:          memberID,
			Kind:        actor.KindCharacter,
			Name:        fmt.Sprintf("<@%d>", memberID),
			MaxHP:       maxHP,
			PrimaryType: primary,
			Attributes:  actor.AttributesFromEquipment(eq),
		},
		GuildID:        enc.GuildID,
		MemberID:       memberID,
		Equipment:      eq,
		AutoScrapBelow: l.autoScrapBelow,
	}
	ch.CurrentHP = actor.CurrentHP(maxHP, memberID, h, 0)
	ch.Defeated = ch.CurrentHP == 0
	ch.Leaving, ch.Out = actor.EngagementState(h, memberID)
	ch.ForceSkip = actor.IsForceSkipped(h, memberID)
	ch.Skills = actor.SkillStates(skills, memberID, h)
	if ch.StatusEffects, err = actor.ActiveStatusEffects(h, memberID, l.factory, 0); err != nil {
		return nil, err
	}
	return ch, nil
}

// characterLoadout composes a member's fixed skill slots: weapon-granted
// skills first, the default loadout filling the rest. The primary damage
// type follows the first weapon skill, physical for unarmed members.
func (l *ContextLoader) characterLoadout(eq *gear.Equipment) ([]actor.Skill, content.DamageType, error) {
	var skills []actor.Skill
	primary := content.DamagePhysical

	if w := eq.Weapon; w != nil {
		for _, typ := range w.Skills {
			sd, err := l.factory.WeaponSkill(typ, w.Rarity, w.Level)
			if err != nil {
				return nil, "", err
			}
			if len(skills) == 0 && !sd.DamageType.IsHealing() && sd.DamageType != content.DamageNeutral {
				primary = sd.DamageType
			}
			skills = append(skills, actor.Skill{Def: sd, GearID: w.ID, Rarity: w.Rarity, Level: w.Level})
			if len(skills) == loadoutSlots {
				return skills, primary, nil
			}
		}
	}
	for _, typ := range defaultLoadout {
		if len(skills) == loadoutSlots {
			break
		}
		sd, err := l.factory.Skill(typ)
		if err != nil {
			return nil, "", err
		}
		duplicate := false
		for _, s := range skills {
			if s.Def.Type == sd.Type {
				duplicate = true
				break
			}
		}
		if !duplicate {
			skills = append(skills, actor.Skill{Def: sd})
		}
	}
	return skills, primary, nil
}

// engagedAt counts the members engaged as of event id: an engage before id
// with no later disengage before id.
func engagedAt(h *actor.History, id int64) int {
	last := make(map[int64]event.EncounterEventType)
	for _, e := range h.Encounter {
		if id > 0 && e.ID > id {
			break
		}
		switch e.Type {
		case event.EncounterMemberEngage, event.EncounterMemberDisengage:
			last[e.MemberID] = e.Type
		}
	}
	n := 0
	for _, typ := range last {
		if typ == event.EncounterMemberEngage {
			n++
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
