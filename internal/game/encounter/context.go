// Package encounter implements the event-sourced encounter state machine:
// the EncounterContext working set, the ContextLoader that rehydrates it
// from the event log, the Engine driving state transitions, and the
// EncounterManager lifecycle facade.
package encounter

import (
	"time"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
)

// Encounter is the durable metadata row of one opponent-vs-party
// engagement. Immutable after spawn except for thread linkage; everything
// combat-related is derived from the event log instead.
type Encounter struct {
	ID        int64
	GuildID   int64
	EnemyType string
	Level     int
	// MaxHP is the opponent's initial-phase HP pool, computed once at
	// creation from the level-scaling tables.
	MaxHP     int
	ChannelID int64
	// SpawnMessageID is the announcement message the encounter hangs off.
	SpawnMessageID int64
	ThreadID       int64
	// OwnerID is the member that initiated the encounter, 0 for periodic
	// spawns.
	OwnerID   int64
	CreatedAt time.Time
}

// Context is the complete per-encounter working set, rebuilt from scratch
// by the ContextLoader and owned exclusively by one Engine. Every derived
// field is a pure function of the ordered event history; two rehydrations
// from the same log agree on all of them.
type Context struct {
	Encounter *Encounter
	Opponent  *actor.Opponent
	// Characters are the engaged members in first-engagement order.
	Characters []*actor.Character
	// History is the full synchronized event record.
	History  *actor.History
	ThreadID int64

	// Initiative is the rotating turn queue of actor ids for the current
	// round. The front of the queue is the current actor.
	Initiative []int64
	// RoundSize is the queue length fixed at round start; the round ends
	// after that many turn slots have been consumed.
	RoundSize int
	// TurnsTaken counts consumed turn slots this round, skips included.
	TurnsTaken int

	// Message bookkeeping, UI-only. Never read for decisions.
	SpawnMessage *discord.Message
	RoundMessage *discord.Message
	// TurnMessages collects the running turn summary; the last message
	// receives appended embeds until the per-message cap forces a
	// continuation.
	TurnMessages []*discord.Message
}

// Round returns the current round number, 0 before combat starts.
func (c *Context) Round() int { return c.History.CurrentRound() }

// ActorByID resolves an actor id to its derived actor state.
func (c *Context) ActorByID(id int64) *actor.Actor {
	if id == actor.OpponentID {
		return &c.Opponent.Actor
	}
	for _, ch := range c.Characters {
		if ch.MemberID == id {
			return &ch.Actor
		}
	}
	return nil
}

// CharacterByID resolves a member id to its character, or nil.
func (c *Context) CharacterByID(memberID int64) *actor.Character {
	for _, ch := range c.Characters {
		if ch.MemberID == memberID {
			return ch
		}
	}
	return nil
}

// Combatants returns every engaged character including leaving and
// defeated ones. Loot distribution draws from this set.
func (c *Context) Combatants() []*actor.Character { return c.Characters }

// ActiveCombatants returns the characters eligible for turns: not
// defeated, not leaving, not out.
func (c *Context) ActiveCombatants() []*actor.Character {
	var out []*actor.Character
	for _, ch := range c.Characters {
		if ch.CanAct() {
			out = append(out, ch)
		}
	}
	return out
}

// PartySize returns the count of turn-eligible characters, minimum 1 so
// scaling math never divides by zero mid-collapse.
func (c *Context) PartySize() int {
	n := len(c.ActiveCombatants())
	if n < 1 {
		n = 1
	}
	return n
}

// AllCharactersIncapacitated reports whether no character can act.
func (c *Context) AllCharactersIncapacitated() bool {
	return len(c.ActiveCombatants()) == 0
}

// OpponentDefeated reports whether the opponent is at 0 HP with no
// remaining phase to transition into.
func (c *Context) OpponentDefeated() bool {
	return c.Opponent.Defeated && c.Opponent.Def.NextPhase == ""
}

// RageQuitActive reports whether any actor carries an active rage-quit
// status, which force-ends the encounter on the next tick.
func (c *Context) RageQuitActive() bool {
	if c.Opponent.StatusStacks(content.StatusRageQuit) > 0 {
		return true
	}
	for _, ch := range c.Characters {
		if ch.StatusStacks(content.StatusRageQuit) > 0 {
			return true
		}
	}
	return false
}

// ForceEndRequired reports whether the encounter must short-circuit to its
// end state: opponent fully defeated, every character incapacitated, an
// end event on record, or an active rage-quit effect. Checked on every
// engine tick, not just at round boundaries.
func (c *Context) ForceEndRequired() bool {
	if c.History.Ended() {
		return true
	}
	return c.OpponentDefeated() || c.AllCharactersIncapacitated() || c.RageQuitActive()
}

// RefreshInitiative rebuilds the turn queue: characters in stable
// first-engagement order, the opponent fixed last. With reset the queue is
// rebuilt from the active combatant set and the round counters cleared;
// without it the existing queue is kept (mid-round joins never reorder a
// running round).
func (c *Context) RefreshInitiative(reset bool) {
	if !reset && len(c.Initiative) > 0 {
		return
	}
	c.Initiative = c.Initiative[:0]
	for _, ch := range c.ActiveCombatants() {
		c.Initiative = append(c.Initiative, ch.MemberID)
	}
	c.Initiative = append(c.Initiative, actor.OpponentID)
	c.RoundSize = len(c.Initiative)
	c.TurnsTaken = 0
}

// RotateInitiative advances the queue by one and consumes a turn slot.
func (c *Context) RotateInitiative() {
	if len(c.Initiative) > 1 {
		c.Initiative = append(c.Initiative[1:], c.Initiative[0])
	}
	c.TurnsTaken++
}

// CurrentActorID returns the id at the front of the turn queue.
//
// Precondition: the initiative queue is non-empty.
func (c *Context) CurrentActorID() int64 { return c.Initiative[0] }

// RoundExhausted reports whether every turn slot of the round is spent.
func (c *Context) RoundExhausted() bool { return c.TurnsTaken >= c.RoundSize }

// LivingOpposition returns the actors a character skill may target.
func (c *Context) LivingOpposition() []*actor.Actor {
	if c.Opponent.Defeated {
		return nil
	}
	return []*actor.Actor{&c.Opponent.Actor}
}

// LivingCharacters returns the non-defeated, still-present characters, the
// opponent's eligible target pool.
func (c *Context) LivingCharacters() []*actor.Actor {
	var out []*actor.Actor
	for _, ch := range c.Characters {
		if ch.CanAct() {
			out = append(out, &ch.Actor)
		}
	}
	return out
}
