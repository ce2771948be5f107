package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/grumblebean/brawl/internal/game/event"
)

// StateID enumerates the encounter state machine's states.
type StateID int

const (
	StateInitial StateID = iota
	StateWaiting
	StateFilling
	StateCountdown
	StateRoundStart
	StateTurnStart
	StatePlayerTurn
	StateOpponentTurn
	StateTurnEnd
	StateRoundEnd
	StateEncounterEnd
	StateLootPayout
	StatePostEncounter
)

// String returns the state name used in logs.
func (s StateID) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateWaiting:
		return "waiting"
	case StateFilling:
		return "filling"
	case StateCountdown:
		return "countdown"
	case StateRoundStart:
		return "round_start"
	case StateTurnStart:
		return "turn_start"
	case StatePlayerTurn:
		return "player_turn"
	case StateOpponentTurn:
		return "opponent_turn"
	case StateTurnEnd:
		return "turn_end"
	case StateRoundEnd:
		return "round_end"
	case StateEncounterEnd:
		return "encounter_end"
	case StateLootPayout:
		return "loot_payout"
	case StatePostEncounter:
		return "post_encounter"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// State is one node of the encounter state machine. States are pure
// decision functions: they inspect the context and return effect lists for
// the engine driver to execute, never performing I/O themselves.
//
// Startup runs exactly once on entry and may immediately mark the state
// done, cascading to the next state within the same engine tick. Handle is
// the only path by which out-of-band synchronized events influence a state;
// it reports whether the public-facing UI needs a refresh.
type State interface {
	ID() StateID
	Startup(ctx context.Context, c *Context) ([]Effect, error)
	Update(ctx context.Context, c *Context) ([]Effect, error)
	Handle(ctx context.Context, c *Context, ev event.Event) (effects []Effect, refresh bool, err error)
	// Done reports whether the state finished and which state follows.
	Done() (bool, StateID)
}

// baseState carries the done flag shared by all states.
type baseState struct {
	done bool
	next StateID
}

func (b *baseState) markDone(next StateID) {
	b.done = true
	b.next = next
}

func (b *baseState) Done() (bool, StateID) { return b.done, b.next }

func (b *baseState) Update(context.Context, *Context) ([]Effect, error) { return nil, nil }

func (b *baseState) Handle(context.Context, *Context, event.Event) ([]Effect, bool, error) {
	return nil, false, nil
}

// newState constructs a fresh state value for a transition. Per-entry
// state (deadlines, penalty tracking) starts zeroed on every entry.
func (e *Engine) newState(id StateID) (State, error) {
	switch id {
	case StateInitial:
		return &initialState{engine: e}, nil
	case StateWaiting:
		return &waitingState{engine: e}, nil
	case StateFilling:
		return &fillingState{}, nil
	case StateCountdown:
		return &countdownState{duration: e.cfg.Countdown}, nil
	case StateRoundStart:
		return &roundStartState{engine: e}, nil
	case StateTurnStart:
		return &turnStartState{engine: e}, nil
	case StatePlayerTurn:
		return &playerTurnState{engine: e, timeout: e.cfg.TurnTimeout, entered: time.Now()}, nil
	case StateOpponentTurn:
		return &opponentTurnState{engine: e}, nil
	case StateTurnEnd:
		return &turnEndState{engine: e}, nil
	case StateRoundEnd:
		return &roundEndState{engine: e}, nil
	case StateEncounterEnd:
		return &encounterEndState{engine: e}, nil
	case StateLootPayout:
		return &lootPayoutState{engine: e}, nil
	case StatePostEncounter:
		return &postEncounterState{}, nil
	default:
		return nil, fmt.Errorf("unknown state id %d", int(id))
	}
}
