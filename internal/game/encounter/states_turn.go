package encounter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/event"
)

// playerTurnState waits for the current member's action. Idle members are
// warned with loot penalties at 50% and 75% of the turn timeout and
// force-skipped when it elapses.
type playerTurnState struct {
	baseState
	engine  *Engine
	timeout time.Duration
	entered time.Time

	penalized50 bool
	penalized75 bool
	prompted    bool
}

func (s *playerTurnState) ID() StateID { return StatePlayerTurn }

func (s *playerTurnState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	ch := c.CharacterByID(c.CurrentActorID())
	if ch == nil {
		s.markDone(StateTurnEnd)
		return nil, nil
	}
	s.prompted = true
	return []Effect{AppendTurnEmbeds{Embeds: []discord.Embed{{
		Title:       fmt.Sprintf("%s, it's your turn!", ch.Name),
		Description: skillMenu(ch),
	}}}}, nil
}

func (s *playerTurnState) Update(_ context.Context, c *Context) ([]Effect, error) {
	if s.done {
		return nil, nil
	}
	elapsed := time.Since(s.entered)
	memberID := c.CurrentActorID()
	var effs []Effect

	if !s.penalized50 && elapsed >= s.timeout/2 {
		s.penalized50 = true
		effs = append(effs,
			DispatchEvent{Event: event.NewEncounterEvent(
				c.Encounter.GuildID, c.Encounter.ID, event.EncounterPenalty50, memberID,
			)},
			AppendTurnEmbeds{Embeds: []discord.Embed{{
				Description: "Half the turn is gone. Dawdling costs beans.",
			}}},
		)
	}
	if !s.penalized75 && elapsed >= s.timeout*3/4 {
		s.penalized75 = true
		effs = append(effs, DispatchEvent{Event: event.NewEncounterEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.EncounterPenalty75, memberID,
		)})
	}
	if elapsed >= s.timeout {
		effs = append(effs,
			DispatchEvent{Event: event.NewEncounterEvent(
				c.Encounter.GuildID, c.Encounter.ID, event.EncounterForceSkip, memberID,
			)},
			DispatchEvent{Event: event.NewCombatEvent(
				c.Encounter.GuildID, c.Encounter.ID, event.CombatMemberEndTurn, memberID, 0, "", 0, 0,
			)},
			AppendTurnEmbeds{Embeds: []discord.Embed{{
				Description: "Time's up. The turn is forfeit.",
			}}},
		)
		s.markDone(StateTurnEnd)
	}
	return effs, nil
}

// Handle finishes the turn when the member's end-of-turn marker arrives
// out of band, which happens after a reload mid-turn.
func (s *playerTurnState) Handle(_ context.Context, c *Context, ev event.Event) ([]Effect, bool, error) {
	ce, ok := ev.(*event.CombatEvent)
	if !ok || ce.Type != event.CombatMemberEndTurn || ce.MemberID != c.CurrentActorID() {
		return nil, false, nil
	}
	s.markDone(StateTurnEnd)
	return nil, false, nil
}

// resolveAction validates and resolves the current member's skill use.
// Called with the engine lock held via SubmitPlayerAction.
func (s *playerTurnState) resolveAction(c *Context, memberID int64, skillType string, targetID int64) ([]Effect, error) {
	ch := c.CharacterByID(memberID)
	if ch == nil {
		return nil, fmt.Errorf("%w: you are not in this encounter", ErrInvalidAction)
	}

	var sk *actor.SkillState
	for i := range ch.Skills {
		if ch.Skills[i].Skill.Def.Type == skillType {
			sk = &ch.Skills[i]
			break
		}
	}
	if sk == nil {
		return nil, fmt.Errorf("%w: you don't know that skill", ErrInvalidAction)
	}
	if !sk.Available() {
		if sk.CooldownRemaining > 0 {
			return nil, fmt.Errorf("%w: that skill needs %d more rounds", ErrInvalidAction, sk.CooldownRemaining)
		}
		return nil, fmt.Errorf("%w: that skill is spent", ErrInvalidAction)
	}

	targets, err := s.playerTargets(c, ch, sk.Skill.Def, targetID)
	if err != nil {
		return nil, err
	}

	r := s.engine.resolver()
	hpCache := make(map[int64]int)
	effs, embeds, err := r.resolveSkillUse(c, &ch.Actor, *sk, targets, hpCache)
	if err != nil {
		return nil, err
	}
	effs = append(effs,
		DispatchEvent{Event: event.NewCombatEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.CombatMemberEndTurn, memberID, 0, sk.Skill.Def.Type, 0, 0,
		)},
		AppendTurnEmbeds{Embeds: embeds},
	)
	s.markDone(StateTurnEnd)
	return effs, nil
}

// playerTargets resolves the per-hit target sequence of a member's skill:
// self-targeted and healing skills aim at the member or a living ally,
// everything else at the opponent.
func (s *playerTurnState) playerTargets(c *Context, ch *actor.Character, def *content.SkillDef, targetID int64) ([]*actor.Actor, error) {
	hits := def.NormalHits()

	var target *actor.Actor
	switch {
	case def.Targeting == content.TargetSelf:
		target = &ch.Actor
	case def.DamageType.IsHealing():
		target = &ch.Actor
		if targetID != 0 && targetID != ch.MemberID {
			ally := c.CharacterByID(targetID)
			if ally == nil || ally.Defeated || ally.Out {
				return nil, fmt.Errorf("%w: that ally cannot be healed", ErrInvalidAction)
			}
			target = &ally.Actor
		}
	default:
		if c.Opponent.Defeated {
			return nil, fmt.Errorf("%w: there is nothing left to hit", ErrInvalidAction)
		}
		if targetID != 0 && targetID != actor.OpponentID {
			return nil, fmt.Errorf("%w: invalid target", ErrInvalidAction)
		}
		target = &c.Opponent.Actor
	}

	targets := make([]*actor.Actor, hits)
	for i := range targets {
		targets[i] = target
	}
	return targets, nil
}

// skillMenu renders the member's available skills for the turn prompt.
func skillMenu(ch *actor.Character) string {
	var b strings.Builder
	for _, sk := range ch.Skills {
		def := sk.Skill.Def
		switch {
		case sk.Available():
			fmt.Fprintf(&b, "`%s` %s\n", def.Type, def.Name)
		case sk.CooldownRemaining > 0:
			fmt.Fprintf(&b, "`%s` %s (ready in %d)\n", def.Type, def.Name, sk.CooldownRemaining)
		default:
			fmt.Fprintf(&b, "`%s` %s (spent)\n", def.Type, def.Name)
		}
	}
	return b.String()
}

// opponentTurnState resolves the enemy's whole turn within startup.
type opponentTurnState struct {
	baseState
	engine *Engine
}

func (s *opponentTurnState) ID() StateID { return StateOpponentTurn }

func (s *opponentTurnState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	ctl := enemyController{resolver: s.engine.resolver()}
	effs, embeds, err := ctl.takeTurn(c)
	if err != nil {
		return nil, err
	}
	effs = append(effs,
		DispatchEvent{Event: event.NewCombatEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.CombatEnemyEndTurn, actor.OpponentID, 0, "", 0, 0,
		)},
		AppendTurnEmbeds{Embeds: embeds},
	)
	s.markDone(StateTurnEnd)
	return effs, nil
}
