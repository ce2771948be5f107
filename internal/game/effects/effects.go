// Package effects implements the ordered-trigger status effect pipeline.
//
// The pipeline is pure: it computes outcomes (modifiers, flags, tick
// damage, stack consumptions) but never dispatches events. Recording the
// consumptions and damage it reports is the calling state's job, which
// keeps every pipeline decision a deterministic replay target.
package effects

import (
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
)

// Flags are boolean outcomes a trigger pass can raise. Flags union across
// handlers.
type Flags uint8

const (
	// FlagMiss cancels the attack being resolved.
	FlagMiss Flags = 1 << iota
	// FlagPreventDeath keeps the holder at 1 HP instead of dying.
	FlagPreventDeath
	// FlagPreventStatus blocks the status application being resolved.
	FlagPreventStatus
	// FlagSkipTurn forfeits the holder's turn.
	FlagSkipTurn
)

// Has reports whether all bits in f are set.
func (fl Flags) Has(f Flags) bool { return fl&f == f }

// Consumption records stacks to consume from one application event.
type Consumption struct {
	// AppliedEventID is the id of the StatusEffectEvent being consumed.
	AppliedEventID int64
	// ActorID is the effect holder.
	ActorID int64
	Stacks  int
}

// Outcome is the combined result of one trigger pass.
type Outcome struct {
	// Modifier multiplies the value being resolved (damage dealt or
	// taken); 1 means unchanged. Modifiers from multiple effects multiply.
	Modifier float64
	Flags    Flags
	// Damage is flat HP loss from ticking effects (bleed, poison).
	Damage int
	// Heal is flat HP restored from ticking effects (regeneration).
	Heal int
	// Consumed are the stack consumptions this pass produced.
	Consumed []Consumption
	// Info holds short presentation fragments, one per effect that acted.
	Info []string
}

// merge folds a single handler result into the combined outcome.
func (o *Outcome) merge(r Outcome) {
	o.Modifier *= r.Modifier
	o.Flags |= r.Flags
	o.Damage += r.Damage
	o.Heal += r.Heal
	o.Consumed = append(o.Consumed, r.Consumed...)
	o.Info = append(o.Info, r.Info...)
}

// emptyOutcome is the identity for merging.
func emptyOutcome() Outcome { return Outcome{Modifier: 1} }

// TriggerContext carries the resolution point being evaluated.
type TriggerContext struct {
	Trigger content.Trigger
	// Holder is the actor whose effects are being consulted.
	Holder *actor.Actor
	// Value is the damage or healing amount in flight, 0 when the trigger
	// has no associated value.
	Value int
	// Roller resolves chance-based effects (blind).
	Roller *dice.Roller
}

// ApplicationStacks returns the stacks an application should record. An
// effect consumed at end of turn that the holder applies to themselves on
// their own turn gains one extra stack, so the same-turn decay does not
// cost them a charge.
func ApplicationStacks(def *content.StatusEffectDef, stacks int, selfOnOwnTurn bool) int {
	if selfOnOwnTurn && def.ConsumeTrigger == content.TriggerEndOfTurn {
		return stacks + 1
	}
	return stacks
}
