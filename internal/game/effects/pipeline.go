package effects

import (
	"fmt"
	"sort"

	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
)

// Handler computes the outcome of one active effect firing at a trigger.
// Implementations must be pure apart from drawing randomness from the
// context's roller.
type Handler interface {
	// Type is the status effect type the handler serves.
	Type() string
	// Handle resolves one firing. The returned outcome's Modifier must be
	// 1 when the effect does not modify the value in flight.
	Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error)
}

// Pipeline dispatches trigger passes over an actor's active effects in a
// fixed order: definition priority first, application event id second.
type Pipeline struct {
	handlers map[string]Handler
}

// NewPipeline creates a Pipeline with the builtin handlers registered.
func NewPipeline() *Pipeline {
	p := &Pipeline{handlers: make(map[string]Handler)}
	for _, h := range builtinHandlers() {
		p.handlers[h.Type()] = h
	}
	return p
}

// Register adds or replaces the handler for a status effect type.
func (p *Pipeline) Register(h Handler) {
	p.handlers[h.Type()] = h
}

// Fire runs one trigger pass over the holder's active effects. Effects
// whose definitions do not list the trigger are skipped; effects with no
// registered handler are a configuration fault. A handler raising
// FlagPreventDeath or FlagPreventStatus short-circuits the remaining
// handlers in the pass.
//
// Postcondition: Outcome.Modifier > 0; one Consumption per firing effect
// whose definition consumes at this trigger.
func (p *Pipeline) Fire(tc TriggerContext) (Outcome, error) {
	combined := emptyOutcome()
	if tc.Holder == nil {
		return combined, nil
	}

	fired := make([]*actor.ActiveStatusEffect, 0, len(tc.Holder.StatusEffects))
	for _, ae := range tc.Holder.StatusEffects {
		if !ae.Active() {
			continue
		}
		for _, t := range ae.Def.Triggers {
			if t == tc.Trigger {
				fired = append(fired, ae)
				break
			}
		}
	}
	sort.SliceStable(fired, func(i, j int) bool {
		if fired[i].Def.Priority != fired[j].Def.Priority {
			return fired[i].Def.Priority < fired[j].Def.Priority
		}
		return fired[i].Applied.ID < fired[j].Applied.ID
	})

	for _, ae := range fired {
		h, ok := p.handlers[ae.Def.Type]
		if !ok {
			return combined, fmt.Errorf("no handler registered for status effect %q", ae.Def.Type)
		}
		r, err := h.Handle(tc, ae)
		if err != nil {
			return combined, fmt.Errorf("status effect %q at %s: %w", ae.Def.Type, tc.Trigger, err)
		}
		if ae.Def.ConsumeTrigger == tc.Trigger {
			r.Consumed = append(r.Consumed, Consumption{
				AppliedEventID: ae.Applied.ID,
				ActorID:        tc.Holder.ID,
				Stacks:         1,
			})
		}
		combined.merge(r)
		if combined.Flags.Has(FlagPreventDeath) || combined.Flags.Has(FlagPreventStatus) {
			break
		}
	}
	return combined, nil
}

// Cleanse consumes all removable negative stacks on the holder in a single
// resolution pass and reports each removal.
//
// Postcondition: one Consumption per active negative effect, consuming its
// full remaining stacks; Info names every removed effect.
func (p *Pipeline) Cleanse(holder *actor.Actor) Outcome {
	out := emptyOutcome()
	for _, ae := range holder.StatusEffects {
		if !ae.Active() || !ae.Def.Negative {
			continue
		}
		out.Consumed = append(out.Consumed, Consumption{
			AppliedEventID: ae.Applied.ID,
			ActorID:        holder.ID,
			Stacks:         ae.RemainingStacks,
		})
		out.Info = append(out.Info, fmt.Sprintf("%s removed", ae.Def.Name))
	}
	return out
}

// ApplyAttributePass folds passive attribute effects into the actor's
// attributes. Run once per actor at context load, before any trigger fires.
func ApplyAttributePass(a *actor.Actor) {
	for _, ae := range a.StatusEffects {
		if !ae.Active() {
			continue
		}
		for _, t := range ae.Def.Triggers {
			if t != content.TriggerAttribute {
				continue
			}
			// The bonus per stack rides on the application value.
			bonus := ae.Applied.Value * float64(ae.RemainingStacks)
			switch ae.Def.Attribute {
			case content.ModAttack:
				a.Attributes.PhysDamage += bonus
			case content.ModMagic:
				a.Attributes.MagicDamage += bonus
			case content.ModHealing:
				a.Attributes.Healing += bonus
			case content.ModCritRate:
				a.Attributes.CritChance += bonus
			case content.ModCritDamage:
				a.Attributes.CritDamage += bonus
			case content.ModArmor:
				a.Attributes.Armor += bonus
			case content.ModEvasion:
				a.Attributes.Evasion += bonus
			}
		}
	}
}
