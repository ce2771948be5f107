package encounter

import (
	"fmt"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
	"github.com/grumblebean/brawl/internal/game/effects"
	"github.com/grumblebean/brawl/internal/game/event"
)

// resolver computes combat outcomes for both player and opponent actions.
// It is pure aside from dice rolls: it produces effect lists (events to
// dispatch, embeds to render) and never performs I/O itself.
type resolver struct {
	pipeline *effects.Pipeline
	roller   *dice.Roller
	factory  *content.Factory
}

func (e *Engine) resolver() resolver {
	return resolver{pipeline: e.deps.Pipeline, roller: e.deps.Roller, factory: e.deps.Factory}
}

// weaponRange returns the actor's per-hit roll bounds.
func (r resolver) weaponRange(c *Context, a *actor.Actor) (int, int) {
	if a.Kind == actor.KindOpponent {
		return c.Opponent.Def.MinDamage, c.Opponent.Def.MaxDamage
	}
	ch := c.CharacterByID(a.ID)
	return ch.Equipment.WeaponDamage(c.Encounter.Level)
}

// damageScaling returns the party-size scaling factor for the actor.
func (r resolver) damageScaling(c *Context, a *actor.Actor) float64 {
	minScale := c.Opponent.Def.MinEncounterScale
	if a.Kind == actor.KindOpponent {
		return actor.OpponentDamageScaling(c.PartySize(), minScale)
	}
	return actor.CharacterDamageScaling(c.PartySize(), minScale)
}

// projectedHP reads a target's running HP within a multi-hit turn, so
// later hits see the cumulative effect of earlier ones.
func projectedHP(hpCache map[int64]int, a *actor.Actor) int {
	if hp, ok := hpCache[a.ID]; ok {
		return hp
	}
	return a.CurrentHP
}

// actionType returns the combat event subtype for the acting side.
func actionType(a *actor.Actor) event.CombatEventType {
	if a.Kind == actor.KindOpponent {
		return event.CombatEnemyTurnAction
	}
	return event.CombatMemberTurnAction
}

// endTurnType returns the end-of-turn marker subtype for the acting side.
func endTurnType(a *actor.Actor) event.CombatEventType {
	if a.Kind == actor.KindOpponent {
		return event.CombatEnemyEndTurn
	}
	return event.CombatMemberEndTurn
}

// consumeEvents converts pipeline consumptions into their durable record:
// one consume event per application, referencing the application event id.
func consumeEvents(c *Context, consumed []effects.Consumption) []Effect {
	var out []Effect
	for _, cons := range consumed {
		out = append(out, DispatchEvent{Event: event.NewCombatEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.CombatStatusConsume,
			cons.ActorID, cons.ActorID, "", cons.Stacks, cons.AppliedEventID,
		)})
	}
	return out
}

// fireTrigger runs one pipeline pass for a boundary trigger (start/end of
// round or turn) and converts the outcome into effects: tick damage and
// healing recorded as status outcome events, stack consumptions recorded
// as consume events.
func (r resolver) fireTrigger(c *Context, holder *actor.Actor, trigger content.Trigger) ([]Effect, effects.Outcome, error) {
	out, err := r.pipeline.Fire(effects.TriggerContext{
		Trigger: trigger,
		Holder:  holder,
		Roller:  r.roller,
	})
	if err != nil {
		return nil, out, fmt.Errorf("firing %s for actor %d: %w", trigger, holder.ID, err)
	}

	var effs []Effect
	if out.Damage > 0 {
		effs = append(effs, DispatchEvent{Event: event.NewCombatEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.CombatStatusEffectOutcome,
			holder.ID, holder.ID, string(trigger), out.Damage, 0,
		)})
	}
	if out.Heal > 0 {
		effs = append(effs, DispatchEvent{Event: event.NewCombatEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.CombatStatusEffectOutcome,
			holder.ID, holder.ID, string(trigger), -out.Heal, 0,
		)})
	}
	effs = append(effs, consumeEvents(c, out.Consumed)...)
	return effs, out, nil
}

// resolveSkillUse computes the complete outcome of one actor using one
// skill against a per-hit target sequence: the pre-attack pipeline, the
// damage roll chain per hit, status applications (chance doubled on crit),
// and all resulting events in dispatch order plus summary embeds.
//
// Postcondition: no returned event is dispatched here; the caller's engine
// executes the effect list.
func (r resolver) resolveSkillUse(c *Context, attacker *actor.Actor, sk actor.SkillState, hitTargets []*actor.Actor, hpCache map[int64]int) ([]Effect, []discord.Embed, error) {
	def := sk.Skill.Def
	var effs []Effect
	var embeds []discord.Embed

	pre, err := r.pipeline.Fire(effects.TriggerContext{
		Trigger: content.TriggerOnAttack,
		Holder:  attacker,
		Roller:  r.roller,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pre-attack pipeline for actor %d: %w", attacker.ID, err)
	}
	effs = append(effs, consumeEvents(c, pre.Consumed)...)

	if pre.Flags.Has(effects.FlagMiss) {
		effs = append(effs, DispatchEvent{Event: event.NewCombatEvent(
			c.Encounter.GuildID, c.Encounter.ID, actionType(attacker),
			attacker.ID, 0, def.Type, 0, sk.Skill.GearID,
		)})
		embeds = append(embeds, discord.Embed{
			Title:       fmt.Sprintf("%s uses %s", attacker.Name, def.Name),
			Description: "The attack goes wide!",
		})
		return effs, embeds, nil
	}

	wmin, wmax := r.weaponRange(c, attacker)
	scaling := r.damageScaling(c, attacker)

	for _, target := range hitTargets {
		hit := actor.RollHit(r.roller, attacker, def, wmin, wmax, scaling)
		value := scaleValue(hit.Value, pre.Modifier)

		taken, err := r.pipeline.Fire(effects.TriggerContext{
			Trigger: content.TriggerOnDamageTaken,
			Holder:  target,
			Value:   value,
			Roller:  r.roller,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("damage-taken pipeline for actor %d: %w", target.ID, err)
		}
		if value > 0 {
			value = scaleValue(value, taken.Modifier)
			value = actor.Mitigate(value, target, def.DamageType)
		}
		effs = append(effs, consumeEvents(c, taken.Consumed)...)

		cur := projectedHP(hpCache, target)
		newHP := clampHP(cur-value, target.MaxHP)
		if newHP == 0 && value > 0 {
			death, err := r.pipeline.Fire(effects.TriggerContext{
				Trigger: content.TriggerOnDeath,
				Holder:  target,
				Value:   value,
				Roller:  r.roller,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("death pipeline for actor %d: %w", target.ID, err)
			}
			effs = append(effs, consumeEvents(c, death.Consumed)...)
			if death.Flags.Has(effects.FlagPreventDeath) {
				value = cur - 1
				newHP = 1
				embeds = append(embeds, discord.Embed{
					Title:       target.Name,
					Description: "clings to life!",
				})
			}
		}
		hpCache[target.ID] = newHP

		effs = append(effs, DispatchEvent{Event: event.NewCombatEvent(
			c.Encounter.GuildID, c.Encounter.ID, actionType(attacker),
			attacker.ID, target.ID, def.Type, value, sk.Skill.GearID,
		)})
		embeds = append(embeds, hitEmbed(attacker, target, def, value, hit.Crit, newHP, target.MaxHP))

		appEffs, appEmbeds, err := r.applyStatuses(c, attacker, target, def, hit.Crit)
		if err != nil {
			return nil, nil, err
		}
		effs = append(effs, appEffs...)
		embeds = append(embeds, appEmbeds...)
	}
	return effs, embeds, nil
}

// applyStatuses rolls each of a skill's status attachments against the hit
// target (or the attacker for self-applied effects), honoring the target's
// on-status-application pipeline and the crit chance doubling.
func (r resolver) applyStatuses(c *Context, attacker, target *actor.Actor, def *content.SkillDef, crit bool) ([]Effect, []discord.Embed, error) {
	var effs []Effect
	var embeds []discord.Embed
	for _, app := range def.Statuses {
		chance := app.Chance
		if crit {
			chance *= 2
		}
		if chance > 1 {
			chance = 1
		}
		if !r.roller.Chance(chance) {
			continue
		}

		holder := target
		if app.SelfTarget {
			holder = attacker
		}
		guard, err := r.pipeline.Fire(effects.TriggerContext{
			Trigger: content.TriggerOnStatusApplication,
			Holder:  holder,
			Roller:  r.roller,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("status-application pipeline for actor %d: %w", holder.ID, err)
		}
		effs = append(effs, consumeEvents(c, guard.Consumed)...)
		if guard.Flags.Has(effects.FlagPreventStatus) {
			embeds = append(embeds, discord.Embed{
				Title:       holder.Name,
				Description: "shrugs off the effect!",
			})
			continue
		}

		sdef, err := r.factory.StatusEffect(app.StatusType)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving status %q: %w", app.StatusType, err)
		}
		if sdef.Type == content.StatusCleanse {
			cleansed := r.pipeline.Cleanse(holder)
			effs = append(effs, consumeEvents(c, cleansed.Consumed)...)
			for _, info := range cleansed.Info {
				embeds = append(embeds, discord.Embed{Title: holder.Name, Description: info})
			}
			continue
		}

		stacks := effects.ApplicationStacks(sdef, app.Stacks, app.SelfTarget)
		effs = append(effs, DispatchEvent{Event: event.NewStatusEffectEvent(
			c.Encounter.GuildID, c.Encounter.ID, attacker.ID, holder.ID,
			app.StatusType, stacks, app.Value,
		)})
		embeds = append(embeds, discord.Embed{
			Title:       holder.Name,
			Description: fmt.Sprintf("%s %s (%d)", sdef.Emoji, sdef.Name, app.Stacks),
		})
	}
	return effs, embeds, nil
}

// scaleValue applies a pipeline modifier to an HP delta, preserving sign.
func scaleValue(value int, mod float64) int {
	if mod == 1 {
		return value
	}
	scaled := int(float64(value) * mod)
	if value > 0 && scaled < 1 && mod > 0 {
		scaled = 1
	}
	return scaled
}

func clampHP(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}

func hitEmbed(attacker, target *actor.Actor, def *content.SkillDef, value int, crit bool, newHP, maxHP int) discord.Embed {
	desc := fmt.Sprintf("%d damage to %s (%d/%d HP)", value, target.Name, newHP, maxHP)
	if value < 0 {
		desc = fmt.Sprintf("heals %s for %d (%d/%d HP)", target.Name, -value, newHP, maxHP)
	}
	if crit {
		desc = "Critical! " + desc
	}
	return discord.Embed{
		Title:       fmt.Sprintf("%s uses %s", attacker.Name, def.Name),
		Description: desc,
	}
}
