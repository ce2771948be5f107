package actor

import (
	"fmt"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/event"
)

// damageEvent reports whether a combat event type carries an HP delta.
func damageEvent(t event.CombatEventType) bool {
	switch t {
	case event.CombatMemberTurnAction, event.CombatEnemyTurnAction, event.CombatStatusEffectOutcome:
		return true
	default:
		return false
	}
}

// CurrentHP derives an actor's HP from the event history: max HP minus all
// damage dealt to it plus all healing (healing is recorded as negative
// skill values), considering only events after sinceID (used to reset the
// opponent's pool on a phase change).
//
// Postcondition: the result is in [0, maxHP] inclusive.
func CurrentHP(maxHP int, actorID int64, h *History, sinceID int64) int {
	total := 0
	for _, e := range h.Combat {
		if e.ID <= sinceID || e.TargetID != actorID || !damageEvent(e.Type) {
			continue
		}
		total += e.SkillValue
	}
	hp := maxHP - total
	if hp < 0 {
		hp = 0
	}
	if hp > maxHP {
		hp = maxHP
	}
	return hp
}

// lastEndTurnID returns the id of the actor's most recent end-of-turn
// marker, or 0 if the actor has not completed a turn.
func lastEndTurnID(h *History, actorID int64) int64 {
	var id int64
	for _, e := range h.Combat {
		if e.MemberID != actorID {
			continue
		}
		if e.Type == event.CombatMemberEndTurn || e.Type == event.CombatEnemyEndTurn {
			id = e.ID
		}
	}
	return id
}

// IsForceSkipped reports whether a ForceSkip event is pending for the
// actor: recorded after their most recent completed turn.
func IsForceSkipped(h *History, actorID int64) bool {
	cutoff := lastEndTurnID(h, actorID)
	for _, e := range h.Encounter {
		if e.Type == event.EncounterForceSkip && e.MemberID == actorID && e.ID > cutoff {
			return true
		}
	}
	return false
}

// EngagementState derives a member's leave status from engage/disengage
// ordering: leaving means disengaged since the current round started (the
// member is skipped but not yet removed); out means the disengage happened
// in a completed round.
func EngagementState(h *History, memberID int64) (leaving, out bool) {
	var lastEngage, lastDisengage int64
	for _, e := range h.Encounter {
		if e.MemberID != memberID {
			continue
		}
		switch e.Type {
		case event.EncounterMemberEngage:
			lastEngage = e.ID
		case event.EncounterMemberDisengage:
			lastDisengage = e.ID
		}
	}
	if lastDisengage == 0 || lastDisengage < lastEngage {
		return false, false
	}
	if lastDisengage >= h.LastNewRoundID() {
		return true, false
	}
	return false, true
}

// skillUses counts how many times an actor has used a skill type, and the
// round of the most recent use.
func skillUses(h *History, actorID int64, skillType string) (uses int, lastUseRound int) {
	for _, e := range h.Combat {
		if e.MemberID != actorID || e.SkillType != skillType {
			continue
		}
		if e.Type == event.CombatMemberTurnAction || e.Type == event.CombatEnemyTurnAction {
			uses++
			lastUseRound = h.RoundOf(e.ID)
		}
	}
	return uses, lastUseRound
}

// SkillStates derives cooldown and use state for an actor's loadout.
//
// Cooldown semantics: a skill used in round r becomes available in round
// r + cooldown + 1. A never-used skill with a nonzero initial cooldown is
// seeded as used in round 0, so it becomes available in round
// initialCooldown + 1.
func SkillStates(skills []Skill, actorID int64, h *History) []SkillState {
	round := h.CurrentRound()
	out := make([]SkillState, 0, len(skills))
	for _, sk := range skills {
		uses, lastRound := skillUses(h, actorID, sk.Def.Type)

		remaining := 0
		if uses > 0 {
			next := lastRound + sk.Def.Cooldown + 1
			if next > round {
				remaining = next - round
			}
		} else if sk.Def.InitialCooldown > 0 {
			next := sk.Def.InitialCooldown + 1
			if next > round {
				remaining = next - round
			}
		}

		usesLeft := -1
		if sk.Def.Uses > 0 {
			usesLeft = sk.Def.Uses - uses
			if usesLeft < 0 {
				usesLeft = 0
			}
		}
		out = append(out, SkillState{Skill: sk, CooldownRemaining: remaining, UsesRemaining: usesLeft})
	}
	return out
}

// ActiveStatusEffects derives the actor's active effects by replaying
// applications and consumes in id order. Applications honor each effect's
// stack policy; consumes reference a specific application event id and
// never drive a count negative. Applications at or before sinceID are
// ignored (opponent phase reset).
//
// Postcondition: every returned effect has RemainingStacks > 0; the slice
// is ordered by application event id.
func ActiveStatusEffects(h *History, actorID int64, factory *content.Factory, sinceID int64) ([]*ActiveStatusEffect, error) {
	type entry struct {
		eventID int64
		apply   *event.StatusEffectEvent
		consume *event.CombatEvent
	}
	var entries []entry
	for _, e := range h.Status {
		if e.ActorID == actorID && e.ID > sinceID {
			entries = append(entries, entry{eventID: e.ID, apply: e})
		}
	}
	for _, e := range h.Combat {
		if e.Type == event.CombatStatusConsume && e.TargetID == actorID && e.ID > sinceID {
			entries = append(entries, entry{eventID: e.ID, consume: e})
		}
	}
	// Both source slices are id-ordered; merge by id.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].eventID < entries[j-1].eventID; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	var active []*ActiveStatusEffect
	byID := make(map[int64]*ActiveStatusEffect)
	stacksOf := func(typ string) int {
		total := 0
		for _, a := range active {
			if a.Def.Type == typ {
				total += a.RemainingStacks
			}
		}
		return total
	}

	for _, en := range entries {
		if en.consume != nil {
			a, ok := byID[en.consume.SkillID]
			if !ok {
				continue
			}
			a.RemainingStacks -= en.consume.SkillValue
			if a.RemainingStacks < 0 {
				a.RemainingStacks = 0
			}
			continue
		}

		def, err := factory.StatusEffect(en.apply.StatusType)
		if err != nil {
			return nil, fmt.Errorf("replaying status applications: %w", err)
		}
		stacks := en.apply.Stacks
		switch def.Policy {
		case content.StackYield:
			if stacksOf(def.Type) > 0 {
				continue
			}
		case content.StackOverride:
			for _, a := range active {
				if a.Def.Type == def.Type {
					a.RemainingStacks = 0
				}
			}
		case content.StackAdd:
			if def.MaxStacks > 0 {
				room := def.MaxStacks - stacksOf(def.Type)
				if room <= 0 {
					continue
				}
				if stacks > room {
					stacks = room
				}
			}
		}
		a := &ActiveStatusEffect{Def: def, Applied: en.apply, RemainingStacks: stacks}
		active = append(active, a)
		byID[en.apply.ID] = a
	}

	out := active[:0]
	for _, a := range active {
		if a.Active() {
			out = append(out, a)
		}
	}
	return out, nil
}
