// Package actor defines combat participants and the pure math that derives
// their state from the event history.
//
// Nothing in this package mutates events or dispatches new ones: every
// function is a pure projection of (definitions × ordered event history),
// so two replays of the same log always agree.
package actor

import (
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// OpponentID is the reserved actor id of the encounter's opponent.
// Member ids are Discord snowflakes and therefore always positive.
const OpponentID int64 = -1

// Kind distinguishes player characters from the opponent.
type Kind int

const (
	KindCharacter Kind = iota
	KindOpponent
)

// Skill is a skill instance bound to an actor: the scaled definition plus
// the granting gear reference when it came from a weapon.
type Skill struct {
	Def *content.SkillDef
	// GearID is the durable store id of the granting weapon, 0 for innate
	// and loadout skills.
	GearID int64
	Rarity content.Rarity
	Level  int
}

// SkillState is a skill plus its derived per-encounter state.
type SkillState struct {
	Skill Skill
	// CooldownRemaining is the number of rounds before the skill may be
	// used again; 0 = available now.
	CooldownRemaining int
	// UsesRemaining is the remaining encounter uses, -1 for unlimited.
	UsesRemaining int
}

// Available reports whether the skill can be used this round.
func (s SkillState) Available() bool {
	return s.CooldownRemaining == 0 && s.UsesRemaining != 0
}

// Attributes aggregates an actor's numeric combat modifiers, combining
// equipment and passive attribute effects.
type Attributes struct {
	// PhysDamage, MagicDamage and Healing are additive bonuses applied as
	// (1 + bonus) multipliers to the matching skill damage type.
	PhysDamage  float64
	MagicDamage float64
	Healing     float64
	// CritChance is the probability of a critical hit in [0,1].
	CritChance float64
	// CritDamage is the additional multiplier on a critical hit;
	// crit multiplier = 1 + CritDamage.
	CritDamage float64
	// Armor mitigates incoming damage through the soft-cap curve.
	Armor float64
	// Evasion is the chance an incoming hit misses outright.
	Evasion float64
	// BonusMaxHP is added to the actor's base max HP.
	BonusMaxHP int
}

// ActiveStatusEffect is a status effect definition bound to the event that
// applied it, with the remaining stacks derived from later consumes.
type ActiveStatusEffect struct {
	Def *content.StatusEffectDef
	// Applied is the application event; its id is the reference key used
	// by consume events.
	Applied *event.StatusEffectEvent
	// RemainingStacks is Applied.Stacks minus all later consumes, never
	// negative.
	RemainingStacks int
}

// Active reports whether the effect still has stacks left.
func (a *ActiveStatusEffect) Active() bool { return a.RemainingStacks > 0 }

// Actor is the common derived-state surface of all combat participants.
type Actor struct {
	ID   int64
	Kind Kind
	Name string
	// MaxHP is fixed at context load; CurrentHP is derived from events.
	MaxHP     int
	CurrentHP int
	// Skills is the ordered loadout with per-encounter state.
	Skills []SkillState
	// Attributes are the post-pipeline combat modifiers.
	Attributes Attributes
	// PrimaryType is the actor's native damage type; off-type skills are
	// penalized for characters.
	PrimaryType content.DamageType
	// StatusEffects are the currently active applications, oldest first.
	StatusEffects []*ActiveStatusEffect

	// Derived participation flags.
	Defeated bool
	// Leaving actors have disengaged this round and drop out at the next
	// round boundary; they are skipped for turns but still receive loot.
	Leaving bool
	// Out actors disengaged in a prior round and are no longer combatants.
	Out bool
	// ForceSkip actors lose their next turn.
	ForceSkip bool
}

// CanAct reports whether the actor should receive a turn.
func (a *Actor) CanAct() bool {
	return !a.Defeated && !a.Leaving && !a.Out
}

// AvailableSkills returns the skills usable this round, in loadout order.
func (a *Actor) AvailableSkills() []SkillState {
	var out []SkillState
	for _, s := range a.Skills {
		if s.Available() {
			out = append(out, s)
		}
	}
	return out
}

// StatusStacks returns the total remaining stacks of a status type.
func (a *Actor) StatusStacks(statusType string) int {
	total := 0
	for _, se := range a.StatusEffects {
		if se.Def.Type == statusType {
			total += se.RemainingStacks
		}
	}
	return total
}

// Character is a guild member participating in an encounter.
type Character struct {
	Actor
	GuildID  int64
	MemberID int64
	// Equipment is fetched fresh from the durable store at context load.
	Equipment *gear.Equipment
	// AutoScrapBelow is the member's configured auto-scrap rarity
	// threshold, empty for disabled.
	AutoScrapBelow content.Rarity
}

// Opponent is the AI-controlled enemy side of an encounter.
type Opponent struct {
	Actor
	Def *content.EnemyDef
	// Level is the encounter's enemy level (matches Def.Level).
	Level int
	// Phase counts phase transitions, 0 for the initial form.
	Phase int
}
