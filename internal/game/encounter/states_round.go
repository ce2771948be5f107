package encounter

import (
	"context"
	"fmt"
	"strings"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/effects"
	"github.com/grumblebean/brawl/internal/game/event"
)

// roundStartState opens a round: leavers and the defeated drop out of the
// combatant rotation here and nowhere else, initiative is fixed for the
// round, and start-of-round effects tick.
type roundStartState struct {
	baseState
	engine *Engine
}

func (s *roundStartState) ID() StateID { return StateRoundStart }

func (s *roundStartState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	effs := []Effect{
		DispatchEvent{Event: event.NewEncounterEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.EncounterNewRound, 0,
		)},
	}

	r := s.engine.resolver()
	for _, a := range roundActors(c) {
		trig, _, err := r.fireTrigger(c, a, content.TriggerStartOfRound)
		if err != nil {
			return nil, err
		}
		effs = append(effs, trig...)
	}

	c.RefreshInitiative(true)
	c.TurnMessages = nil

	effs = append(effs,
		DeleteMessage{Slot: SlotRound},
		SendMessage{Slot: SlotRound, Embeds: []discord.Embed{roundBoard(c)}},
	)
	s.markDone(StateTurnStart)
	return effs, nil
}

// turnStartState picks the next actor from the initiative queue. Actors
// that cannot act are skipped in place, never removed; force-skipped and
// stunned actors burn their turn with an end-of-turn marker.
type turnStartState struct {
	baseState
	engine *Engine
}

func (s *turnStartState) ID() StateID { return StateTurnStart }

func (s *turnStartState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	var effs []Effect
	r := s.engine.resolver()

	for {
		if c.RoundExhausted() {
			s.markDone(StateRoundEnd)
			return effs, nil
		}
		a := c.ActorByID(c.CurrentActorID())
		if a == nil || !a.CanAct() {
			c.RotateInitiative()
			continue
		}
		if a.ForceSkip {
			effs = append(effs,
				DispatchEvent{Event: event.NewCombatEvent(
					c.Encounter.GuildID, c.Encounter.ID, endTurnType(a), a.ID, 0, "", 0, 0,
				)},
				AppendTurnEmbeds{Embeds: []discord.Embed{{
					Title:       a.Name,
					Description: "is skipped this turn.",
				}}},
			)
			c.RotateInitiative()
			continue
		}

		trig, out, err := r.fireTrigger(c, a, content.TriggerStartOfTurn)
		if err != nil {
			return nil, err
		}
		effs = append(effs, trig...)
		if out.Flags.Has(effects.FlagSkipTurn) {
			effs = append(effs,
				DispatchEvent{Event: event.NewCombatEvent(
					c.Encounter.GuildID, c.Encounter.ID, endTurnType(a), a.ID, 0, "", 0, 0,
				)},
				AppendTurnEmbeds{Embeds: []discord.Embed{{
					Title:       a.Name,
					Description: "is stunned and loses their turn!",
				}}},
			)
			c.RotateInitiative()
			continue
		}

		if a.Kind == actor.KindOpponent {
			s.markDone(StateOpponentTurn)
		} else {
			s.markDone(StatePlayerTurn)
		}
		return effs, nil
	}
}

// turnEndState closes a turn in two steps: end-of-turn effects fire first,
// then once their events are incorporated the defeat and phase checks run
// and the queue rotates. It advances to exactly one state, turn start or
// round end.
type turnEndState struct {
	baseState
	engine *Engine
	ticked bool
}

func (s *turnEndState) ID() StateID { return StateTurnEnd }

func (s *turnEndState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	a := c.ActorByID(c.CurrentActorID())
	if a == nil {
		s.ticked = true
		return nil, nil
	}
	trig, _, err := s.engine.resolver().fireTrigger(c, a, content.TriggerEndOfTurn)
	if err != nil {
		return nil, err
	}
	s.ticked = true
	return trig, nil
}

func (s *turnEndState) Update(_ context.Context, c *Context) ([]Effect, error) {
	if !s.ticked {
		return nil, nil
	}
	effs := defeatEffects(c, s.engine)

	c.RotateInitiative()
	if c.RoundExhausted() {
		s.markDone(StateRoundEnd)
	} else {
		s.markDone(StateTurnStart)
	}
	return effs, nil
}

// roundEndState closes a round: end-of-round effects tick, then defeats
// are re-checked before looping back to a fresh round.
type roundEndState struct {
	baseState
	engine *Engine
	ticked bool
}

func (s *roundEndState) ID() StateID { return StateRoundEnd }

func (s *roundEndState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	var effs []Effect
	r := s.engine.resolver()
	for _, a := range roundActors(c) {
		trig, _, err := r.fireTrigger(c, a, content.TriggerEndOfRound)
		if err != nil {
			return nil, err
		}
		effs = append(effs, trig...)
	}
	s.ticked = true
	return effs, nil
}

func (s *roundEndState) Update(_ context.Context, c *Context) ([]Effect, error) {
	if !s.ticked {
		return nil, nil
	}
	effs := defeatEffects(c, s.engine)
	s.markDone(StateRoundStart)
	return effs, nil
}

// roundActors returns the actors participating in boundary triggers: the
// opponent plus every character still in the encounter.
func roundActors(c *Context) []*actor.Actor {
	out := []*actor.Actor{&c.Opponent.Actor}
	for _, ch := range c.Characters {
		if !ch.Out && !ch.Defeated {
			out = append(out, &ch.Actor)
		}
	}
	return out
}

// defeatEffects records newly observed defeats: member defeat events for
// characters at 0 HP, and for the opponent either a phase change or the
// final enemy defeat.
func defeatEffects(c *Context, e *Engine) []Effect {
	var effs []Effect
	for _, ch := range c.Characters {
		if ch.Defeated && !memberDefeatRecorded(c.History, ch.MemberID) {
			effs = append(effs,
				DispatchEvent{Event: event.NewEncounterEvent(
					c.Encounter.GuildID, c.Encounter.ID, event.EncounterMemberDefeat, ch.MemberID,
				)},
				AppendTurnEmbeds{Embeds: []discord.Embed{{
					Title:       ch.Name,
					Description: "has been defeated!",
				}}},
			)
		}
	}

	if c.Opponent.Defeated {
		def := c.Opponent.Def
		if def.NextPhase != "" {
			if !phaseChangeRecordedSince(c.History, c.History.LastPhaseChangeID()) {
				desc := "The fight is not over yet..."
				if line := e.hookLine("on_phase", def); line != "" {
					desc = line
				} else if line := e.flavorLine(def, "phase"); line != "" {
					desc = line
				}
				effs = append(effs,
					DispatchEvent{Event: event.NewEncounterEvent(
						c.Encounter.GuildID, c.Encounter.ID, event.EncounterEnemyPhaseChange, 0,
					)},
					AppendTurnEmbeds{Embeds: []discord.Embed{{
						Title:       fmt.Sprintf("%s transforms!", def.Name),
						Description: desc,
					}}},
				)
			}
		} else if !enemyDefeatRecorded(c.History) {
			effs = append(effs, DispatchEvent{Event: event.NewEncounterEvent(
				c.Encounter.GuildID, c.Encounter.ID, event.EncounterEnemyDefeat, 0,
			)})
		}
	}
	return effs
}

// memberDefeatRecorded reports whether a defeat event for the member
// exists after their latest engage.
func memberDefeatRecorded(h *actor.History, memberID int64) bool {
	var lastEngage, lastDefeat int64
	for _, ev := range h.Encounter {
		if ev.MemberID != memberID {
			continue
		}
		switch ev.Type {
		case event.EncounterMemberEngage:
			lastEngage = ev.ID
		case event.EncounterMemberDefeat:
			lastDefeat = ev.ID
		}
	}
	return lastDefeat > lastEngage
}

func enemyDefeatRecorded(h *actor.History) bool {
	for _, ev := range h.Encounter {
		if ev.Type == event.EncounterEnemyDefeat {
			return true
		}
	}
	return false
}

// phaseChangeRecordedSince reports whether a phase change landed after the
// given cutoff. A zero cutoff with any phase change recorded also counts.
func phaseChangeRecordedSince(h *actor.History, sinceID int64) bool {
	for _, ev := range h.Encounter {
		if ev.Type == event.EncounterEnemyPhaseChange && ev.ID > sinceID {
			return true
		}
	}
	return false
}

// roundBoard renders the per-round status embed.
func roundBoard(c *Context) discord.Embed {
	var b strings.Builder
	opp := c.Opponent
	fmt.Fprintf(&b, "**%s** %d/%d HP%s\n", opp.Name, opp.CurrentHP, opp.MaxHP, statusLine(&opp.Actor))
	for _, ch := range c.Characters {
		if ch.Out {
			continue
		}
		marker := ""
		if ch.Defeated {
			marker = " (down)"
		} else if ch.Leaving {
			marker = " (leaving)"
		}
		fmt.Fprintf(&b, "%s %d/%d HP%s%s\n", ch.Name, ch.CurrentHP, ch.MaxHP, statusLine(&ch.Actor), marker)
	}
	return discord.Embed{
		Title:       fmt.Sprintf("Round %d", c.Round()),
		Description: b.String(),
	}
}

// statusLine renders an actor's active effect emojis with stack counts.
func statusLine(a *actor.Actor) string {
	var b strings.Builder
	for _, se := range a.StatusEffects {
		if se.Active() && se.Def.Display {
			fmt.Fprintf(&b, " %s×%d", se.Def.Emoji, se.RemainingStacks)
		}
	}
	return b.String()
}
