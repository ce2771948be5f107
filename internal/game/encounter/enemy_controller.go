package encounter

import (
	"sort"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
)

// enemyController resolves the opponent's whole turn: skill selection,
// target selection, and hit resolution through the shared resolver.
type enemyController struct {
	resolver resolver
}

// takeTurn produces the opponent's actions for one turn. Skills are chosen
// off-cooldown by descending base power with healing deprioritized, up to
// the party-scaled action count. A running HP projection spans the whole
// turn so multi-hit and multi-skill sequences see their own effects
// instead of stale current HP.
func (ec enemyController) takeTurn(c *Context) ([]Effect, []discord.Embed, error) {
	opp := c.Opponent
	actions := actor.OpponentActionCount(opp.Def.ActionsPerTurn, c.PartySize(), opp.Def.MinEncounterScale)

	available := opp.AvailableSkills()
	sort.SliceStable(available, func(i, j int) bool {
		hi, hj := available[i].Skill.Def.DamageType.IsHealing(), available[j].Skill.Def.DamageType.IsHealing()
		if hi != hj {
			return !hi
		}
		return available[i].Skill.Def.BaseValue > available[j].Skill.Def.BaseValue
	})
	if len(available) > actions {
		available = available[:actions]
	}

	hpCache := make(map[int64]int)
	var effs []Effect
	var embeds []discord.Embed

	for _, sk := range available {
		targets := ec.selectTargets(c, sk.Skill.Def, hpCache)
		if len(targets) == 0 {
			continue
		}
		skillEffs, skillEmbeds, err := ec.resolver.resolveSkillUse(c, &opp.Actor, sk, targets, hpCache)
		if err != nil {
			return nil, nil, err
		}
		effs = append(effs, skillEffs...)
		embeds = append(embeds, skillEmbeds...)

		if ec.allTargetsDown(c, hpCache) {
			break
		}
	}
	return effs, embeds, nil
}

// selectTargets builds the per-hit target sequence for one skill use:
// self-targeting and healing aim at the opponent itself, AOE hits every
// eligible character, and random targeting draws without replacement up to
// the skill's distinct-target cap, honoring the duplicate-hit cap.
func (ec enemyController) selectTargets(c *Context, def *content.SkillDef, hpCache map[int64]int) []*actor.Actor {
	hits := def.NormalHits()

	if def.Targeting == content.TargetSelf || def.DamageType.IsHealing() {
		targets := make([]*actor.Actor, hits)
		for i := range targets {
			targets[i] = &c.Opponent.Actor
		}
		return targets
	}

	pool := ec.eligible(c, hpCache)
	if len(pool) == 0 {
		return nil
	}

	if def.Targeting == content.TargetAll {
		var targets []*actor.Actor
		for i := 0; i < hits; i++ {
			targets = append(targets, pool...)
		}
		return targets
	}

	// Random without replacement across distinct targets.
	shuffled := make([]*actor.Actor, len(pool))
	copy(shuffled, pool)
	dice.Shuffle(ec.resolver.roller.Source(), shuffled)

	distinct := 1
	if def.MaxTargets > 1 {
		distinct = def.MaxTargets
	}
	if distinct > len(shuffled) {
		distinct = len(shuffled)
	}
	chosen := shuffled[:distinct]

	perTarget := make(map[int64]int)
	var targets []*actor.Actor
	for i := 0; len(targets) < hits; i++ {
		t := chosen[i%len(chosen)]
		if def.DuplicateTargetCap > 0 && perTarget[t.ID] >= def.DuplicateTargetCap {
			if i >= len(chosen)*hits {
				break
			}
			continue
		}
		perTarget[t.ID]++
		targets = append(targets, t)
	}
	return targets
}

// eligible returns the characters the opponent may hit, using the turn's
// HP projection so already-downed targets drop out mid-turn.
func (ec enemyController) eligible(c *Context, hpCache map[int64]int) []*actor.Actor {
	var out []*actor.Actor
	for _, a := range c.LivingCharacters() {
		if projectedHP(hpCache, a) > 0 {
			out = append(out, a)
		}
	}
	return out
}

func (ec enemyController) allTargetsDown(c *Context, hpCache map[int64]int) bool {
	return len(ec.eligible(c, hpCache)) == 0
}
