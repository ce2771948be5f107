package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/event"
)

// initialState announces the encounter. It finishes within its startup
// call, cascading straight to waiting.
type initialState struct {
	baseState
	engine *Engine
}

func (s *initialState) ID() StateID { return StateInitial }

func (s *initialState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	var effs []Effect
	def := c.Opponent.Def

	if !spawned(c.History) {
		effs = append(effs, DispatchEvent{Event: event.NewEncounterEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.EncounterSpawn, c.Encounter.OwnerID,
		)})

		desc := def.Description
		if line := s.engine.hookLine("on_spawn", def); line != "" {
			desc = fmt.Sprintf("%s\n\n%q", desc, line)
		} else if line := s.engine.flavorLine(def, "spawn"); line != "" {
			desc = fmt.Sprintf("%s\n\n%q", desc, line)
		}
		effs = append(effs, SendMessage{
			Slot:    SlotSpawn,
			Content: fmt.Sprintf("A level %d %s appears!", def.Level, def.Name),
			Embeds: []discord.Embed{{
				Title:       def.Name,
				Description: desc,
			}},
		})
	}
	s.markDone(StateWaiting)
	return effs, nil
}

// waitingState idles until the first member engages, then opens the
// encounter thread.
type waitingState struct {
	baseState
	engine *Engine
}

func (s *waitingState) ID() StateID { return StateWaiting }

func (s *waitingState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	if len(c.History.Participants()) > 0 {
		s.advance(c)
	}
	return nil, nil
}

func (s *waitingState) Handle(_ context.Context, c *Context, ev event.Event) ([]Effect, bool, error) {
	ee, ok := ev.(*event.EncounterEvent)
	if !ok || ee.Type != event.EncounterMemberEngage {
		return nil, false, nil
	}
	var effs []Effect
	if c.ThreadID == 0 {
		effs = append(effs, CreateThread{
			Name: fmt.Sprintf("%s (lvl %d)", c.Opponent.Def.Name, c.Opponent.Def.Level),
		})
	}
	s.advance(c)
	return effs, true, nil
}

func (s *waitingState) advance(c *Context) {
	if len(c.History.Participants()) >= c.Opponent.Def.MinParticipants {
		s.markDone(StateCountdown)
		return
	}
	s.markDone(StateFilling)
}

// fillingState waits until the enemy's minimum participant count is met.
// There is no timeout: an underfilled encounter waits indefinitely.
type fillingState struct {
	baseState
}

func (s *fillingState) ID() StateID { return StateFilling }

func (s *fillingState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	s.check(c)
	return nil, nil
}

func (s *fillingState) Update(_ context.Context, c *Context) ([]Effect, error) {
	s.check(c)
	return nil, nil
}

func (s *fillingState) Handle(_ context.Context, c *Context, ev event.Event) ([]Effect, bool, error) {
	ee, ok := ev.(*event.EncounterEvent)
	if !ok {
		return nil, false, nil
	}
	switch ee.Type {
	case event.EncounterMemberEngage, event.EncounterMemberDisengage:
		s.check(c)
		return nil, true, nil
	}
	return nil, false, nil
}

func (s *fillingState) check(c *Context) {
	if len(c.History.Participants()) >= c.Opponent.Def.MinParticipants {
		s.markDone(StateCountdown)
	}
}

// countdownState gives stragglers a fixed window to pile in, then marks
// combat initiated.
type countdownState struct {
	baseState
	duration time.Duration
}

func (s *countdownState) ID() StateID { return StateCountdown }

func (s *countdownState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	s.markDone(StateRoundStart)
	return []Effect{
		SendMessage{
			Slot:    SlotTurn,
			Content: fmt.Sprintf("The fight against %s begins in %d seconds!", c.Opponent.Def.Name, int(s.duration.Seconds())),
		},
		Sleep{Duration: s.duration},
		DispatchEvent{Event: event.NewEncounterEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.EncounterInitiated, 0,
		)},
	}, nil
}
