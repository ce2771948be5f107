package encounter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
	"github.com/grumblebean/brawl/internal/game/effects"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// ErrInvalidAction rejects a player command at the boundary: wrong turn,
// unavailable skill, bad target. Never dispatched as a domain event.
var ErrInvalidAction = errors.New("invalid action")

// inboxSize bounds the per-engine queue of bus-delivered events.
const inboxSize = 1024

// Config tunes the engine's pacing.
type Config struct {
	// TickInterval is the driver loop period.
	TickInterval time.Duration
	// Countdown is the delay between filling and the first round.
	Countdown time.Duration
	// TurnTimeout bounds a player's turn; idle players are penalized at
	// 50% and 75% of it and force-skipped when it elapses.
	TurnTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 500 * time.Millisecond
	}
	if c.Countdown <= 0 {
		c.Countdown = 10 * time.Second
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 2 * time.Minute
	}
	return c
}

// FlavorSource produces short in-character enemy lines. Implementations
// must be non-blocking-safe under the given context and never gate a state
// transition; an empty line is always acceptable.
type FlavorSource interface {
	Line(ctx context.Context, enemy *content.EnemyDef, moment string) string
}

// ScriptHooks runs an enemy's optional lua hook and returns its taunt
// line. Runtime failures are presentation-only and must not stop combat.
type ScriptHooks interface {
	Run(hook string, enemy *content.EnemyDef) (string, error)
}

// Deps are the collaborators an Engine needs, injected by the manager.
type Deps struct {
	Store    Store
	Bus      *event.Bus
	Loader   *ContextLoader
	Port     discord.Port
	Factory  *content.Factory
	Pipeline *effects.Pipeline
	Roller   *dice.Roller
	Gear     *gear.Manager
	Loot     *gear.LootManager
	// Flavor and Hooks are optional presentation enrichers.
	Flavor FlavorSource
	Hooks  ScriptHooks
	Logger *zap.Logger
}

// Engine drives one encounter's state machine. It exclusively owns its
// Context; all event intake funnels through a single inbox drained at the
// start of each tick, so state decisions observe events in storage order.
type Engine struct {
	mu    sync.Mutex
	c     *Context
	state State
	deps  Deps
	cfg   Config
	log   *zap.Logger

	inbox chan event.Event

	// lastIncorporatedID is the replay cutoff: events at or below it have
	// already influenced this engine and are skipped on redelivery.
	lastIncorporatedID int64
	// roundEventIDCutoff and turnEventIDCutoff mark where the current
	// round began and the latest turn closed. A reloaded engine derives
	// them from the history and uses them to re-enter the round at the
	// actor whose turn was in flight instead of opening a fresh round.
	roundEventIDCutoff int64
	turnEventIDCutoff  int64

	finished  chan struct{}
	closeOnce sync.Once
}

// NewEngine creates an engine over a freshly loaded context. The replay
// cutoff starts at the history's last event id, so reprocessing a reloaded
// encounter's own events is a no-op.
//
// Precondition: c was produced by the ContextLoader and is not shared.
func NewEngine(c *Context, deps Deps, cfg Config) *Engine {
	return &Engine{
		c:                  c,
		deps:               deps,
		cfg:                cfg.withDefaults(),
		log:                deps.Logger.With(zap.Int64("encounter_id", c.Encounter.ID), zap.Int64("guild_id", c.Encounter.GuildID)),
		inbox:              make(chan event.Event, inboxSize),
		lastIncorporatedID: c.History.LastEventID(),
		roundEventIDCutoff: c.History.LastNewRoundID(),
		turnEventIDCutoff:  c.History.LastTurnEndID(),
		finished:           make(chan struct{}),
	}
}

// EncounterID returns the encounter this engine drives.
func (e *Engine) EncounterID() int64 { return e.c.Encounter.ID }

// GuildID returns the encounter's guild.
func (e *Engine) GuildID() int64 { return e.c.Encounter.GuildID }

// HasMember reports whether the member is an engaged, still-present
// participant of this encounter.
func (e *Engine) HasMember(memberID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := e.c.CharacterByID(memberID)
	return ch != nil && !ch.Out
}

// Finished is closed when the engine reaches its terminal state.
func (e *Engine) Finished() <-chan struct{} { return e.finished }

// CurrentStateID returns the live state's id, StateInitial before startup.
func (e *Engine) CurrentStateID() StateID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return StateInitial
	}
	return e.state.ID()
}

// Enqueue hands a bus-delivered event to the engine. Non-blocking; a full
// inbox drops the event with an error log, relying on the replay cutoff
// machinery to recover via reload.
func (e *Engine) Enqueue(ev event.Event) {
	select {
	case e.inbox <- ev:
	default:
		e.log.Error("engine inbox full, dropping event", zap.Int64("event_id", ev.EventID()))
	}
}

// Run drives the engine until the terminal state or context cancellation.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		if err := e.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.finished:
			return nil
		case <-ticker.C:
		}
	}
}

// Tick performs one driver step: drain pending events, short-circuit to
// the end chain when required, then update the current state and cascade
// through any states that finish without needing an idle tick.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		if err := e.enterState(ctx, e.resumeStateID()); err != nil {
			return err
		}
	}

	if err := e.drainInbox(ctx); err != nil {
		return err
	}
	if err := e.checkForceEnd(ctx); err != nil {
		return err
	}

	effs, err := e.state.Update(ctx, e.c)
	if err != nil {
		return fmt.Errorf("state %s update: %w", e.state.ID(), err)
	}
	if err := e.execute(ctx, effs); err != nil {
		return err
	}
	return e.cascade(ctx)
}

// resumeStateID derives the state to enter from the event history, so a
// reloaded orphan picks up where the log left off instead of replaying the
// encounter's setup.
func (e *Engine) resumeStateID() StateID {
	h := e.c.History
	switch {
	case h.Ended():
		return StatePostEncounter
	case e.c.OpponentDefeated():
		return StateEncounterEnd
	case initiated(h):
		return e.resumeRoundPosition()
	case len(h.Participants()) >= e.c.Opponent.Def.MinParticipants:
		return StateCountdown
	case len(h.Participants()) > 0:
		return StateFilling
	case spawned(h):
		return StateWaiting
	default:
		return StateInitial
	}
}

// resumeRoundPosition places a reloaded engine back inside the round that
// was in flight. The round's NewRound event is already on record, so
// re-entering StateRoundStart would dispatch a second one, advance the
// round counter, and hand out extra turns. Instead the initiative queue is
// rebuilt and rotated past every actor whose end-of-turn marker landed
// after the round opened; the engine then resumes at StateTurnStart on the
// first actor still owed a turn. Only a round whose every slot is spent
// re-enters StateRoundStart, which at that point is genuinely the next
// round.
func (e *Engine) resumeRoundPosition() StateID {
	if e.roundEventIDCutoff == 0 {
		return StateRoundStart
	}
	e.c.RefreshInitiative(true)
	if e.turnEventIDCutoff <= e.roundEventIDCutoff {
		return StateTurnStart
	}
	for !e.c.RoundExhausted() {
		if !turnEndedSince(e.c.History, e.c.CurrentActorID(), e.roundEventIDCutoff) {
			return StateTurnStart
		}
		e.c.RotateInitiative()
	}
	return StateRoundStart
}

// turnEndedSince reports whether the actor closed a turn after the given
// event id. Opponent end-turn markers carry the opponent's actor id, so a
// single id comparison covers both kinds.
func turnEndedSince(h *actor.History, actorID, sinceID int64) bool {
	for _, ev := range h.Combat {
		if ev.ID <= sinceID || ev.MemberID != actorID {
			continue
		}
		if ev.Type == event.CombatMemberEndTurn || ev.Type == event.CombatEnemyEndTurn {
			return true
		}
	}
	return false
}

// spawned reports whether the spawn announcement event is on record.
func spawned(h *actor.History) bool {
	for _, ev := range h.Encounter {
		if ev.Type == event.EncounterSpawn {
			return true
		}
	}
	return false
}

// drainInbox incorporates pending synchronized events and routes them to
// the current state. Unsynchronized events never drive decisions; events
// at or below the replay cutoff have already been incorporated and are
// skipped without side effects.
func (e *Engine) drainInbox(ctx context.Context) error {
	for {
		select {
		case ev := <-e.inbox:
			if !ev.IsSynchronized() || ev.EventID() <= e.lastIncorporatedID {
				continue
			}
			if err := e.incorporate(ctx, ev); err != nil {
				return err
			}
			if ee, ok := ev.(*event.EncounterEvent); ok && ee.Type == event.EncounterEnd {
				// Forced abort: drain straight to the terminal state,
				// cleaning up the thread on the way.
				if e.state.ID() != StatePostEncounter {
					if err := e.enterState(ctx, StatePostEncounter); err != nil {
						return err
					}
				}
				continue
			}
			effs, refresh, err := e.state.Handle(ctx, e.c, ev)
			if err != nil {
				return fmt.Errorf("state %s handling event %d: %w", e.state.ID(), ev.EventID(), err)
			}
			if err := e.execute(ctx, effs); err != nil {
				return err
			}
			if refresh {
				upd, err := e.state.Update(ctx, e.c)
				if err != nil {
					return err
				}
				if err := e.execute(ctx, upd); err != nil {
					return err
				}
			}
			if err := e.cascade(ctx); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// checkForceEnd short-circuits to the end chain when the opponent is
// defeated, every character is incapacitated, or a rage-quit effect is
// active. Runs every tick, not just at round boundaries.
func (e *Engine) checkForceEnd(ctx context.Context) error {
	switch e.state.ID() {
	case StateInitial, StateWaiting, StateFilling,
		StateEncounterEnd, StateLootPayout, StatePostEncounter:
		return nil
	}
	if !e.c.ForceEndRequired() {
		return nil
	}
	return e.enterState(ctx, StateEncounterEnd)
}

// incorporate appends a synchronized event to the context history, raises
// the replay cutoff, and re-derives all actor state.
func (e *Engine) incorporate(ctx context.Context, ev event.Event) error {
	e.c.History.Append(ev)
	e.lastIncorporatedID = ev.EventID()
	if err := e.deps.Loader.RebuildActors(ctx, e.c); err != nil {
		return fmt.Errorf("rebuilding actors after event %d: %w", ev.EventID(), err)
	}
	return nil
}

// cascade advances through consecutive finished states within one tick, so
// free transitions never waste an idle tick.
func (e *Engine) cascade(ctx context.Context) error {
	for {
		done, next := e.state.Done()
		if !done {
			return nil
		}
		if e.state.ID() == StatePostEncounter {
			e.closeOnce.Do(func() { close(e.finished) })
			return nil
		}
		if err := e.enterState(ctx, next); err != nil {
			return err
		}
	}
}

// enterState transitions to a fresh state instance and runs its startup
// effects exactly once.
func (e *Engine) enterState(ctx context.Context, id StateID) error {
	st, err := e.newState(id)
	if err != nil {
		return err
	}
	prev := "none"
	if e.state != nil {
		prev = e.state.ID().String()
	}
	e.log.Debug("state transition", zap.String("from", prev), zap.String("to", id.String()))
	e.state = st

	effs, err := st.Startup(ctx, e.c)
	if err != nil {
		return fmt.Errorf("state %s startup: %w", id, err)
	}
	if err := e.execute(ctx, effs); err != nil {
		return err
	}
	switch id {
	case StateRoundStart:
		e.roundEventIDCutoff = e.lastIncorporatedID
	case StateTurnEnd:
		e.turnEventIDCutoff = e.lastIncorporatedID
	}
	if id == StatePostEncounter {
		if done, _ := st.Done(); done {
			e.closeOnce.Do(func() { close(e.finished) })
		}
	}
	return nil
}

// execute performs a state's effect list in order. Dispatched events are
// incorporated into the context immediately after the bus persists them,
// so later effects in the same list observe their consequences.
func (e *Engine) execute(ctx context.Context, effs []Effect) error {
	for _, eff := range effs {
		switch ef := eff.(type) {
		case DispatchEvent:
			if err := e.deps.Bus.Dispatch(ctx, ef.Event); err != nil {
				return fmt.Errorf("dispatching event: %w", err)
			}
			if ef.Event.EventID() > e.lastIncorporatedID {
				if err := e.incorporate(ctx, ef.Event); err != nil {
					return err
				}
			}
		case SendMessage:
			msg, err := e.deps.Port.SendMessage(ctx, e.targetChannel(ef.Slot), ef.Content, ef.Embeds)
			if err != nil {
				return fmt.Errorf("sending message: %w", err)
			}
			e.storeSlot(ef.Slot, msg)
		case EditMessage:
			cur := e.slot(ef.Slot)
			if cur == nil {
				msg, err := e.deps.Port.SendMessage(ctx, e.targetChannel(ef.Slot), ef.Content, ef.Embeds)
				if err != nil {
					return fmt.Errorf("sending message: %w", err)
				}
				e.storeSlot(ef.Slot, msg)
				continue
			}
			msg, err := e.deps.Port.EditMessage(ctx, cur, ef.Content, ef.Embeds)
			if err != nil {
				return fmt.Errorf("editing message: %w", err)
			}
			if msg != nil {
				e.storeSlot(ef.Slot, msg)
			}
		case DeleteMessage:
			if cur := e.slot(ef.Slot); cur != nil {
				if err := e.deps.Port.DeleteMessage(ctx, cur); err != nil {
					return fmt.Errorf("deleting message: %w", err)
				}
				e.storeSlot(ef.Slot, nil)
			}
		case AppendTurnEmbeds:
			if err := e.appendTurnEmbeds(ctx, ef.Embeds); err != nil {
				return err
			}
		case CreateThread:
			th, err := e.deps.Port.CreateThread(ctx, e.c.Encounter.ChannelID, ef.Name)
			if err != nil {
				return fmt.Errorf("creating thread: %w", err)
			}
			if th == nil {
				return fmt.Errorf("creating thread for encounter %d: no thread returned", e.c.Encounter.ID)
			}
			e.c.ThreadID = th.ID
			if err := e.deps.Store.LogEncounterThread(ctx, e.c.Encounter.ID, th.ID); err != nil {
				return fmt.Errorf("recording thread: %w", err)
			}
		case Sleep:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ef.Duration):
			}
		case PersistGear:
			if _, err := e.deps.Store.LogGear(ctx, e.c.Encounter.GuildID, ef.MemberID, ef.Piece); err != nil {
				return fmt.Errorf("logging gear for member %d: %w", ef.MemberID, err)
			}
		case RecordProgress:
			if err := e.deps.Store.RecordLevelProgress(ctx, e.c.Encounter.GuildID, ef.Level); err != nil {
				return fmt.Errorf("recording level progress: %w", err)
			}
		case AdvanceGuildLevel:
			if err := e.deps.Store.SetGuildLevel(ctx, e.c.Encounter.GuildID, ef.Level); err != nil {
				return fmt.Errorf("advancing guild level: %w", err)
			}
		default:
			return fmt.Errorf("unknown effect %T", eff)
		}
	}
	return nil
}

// appendTurnEmbeds grows the running turn summary, rolling over to a
// continuation message at the embed cap.
func (e *Engine) appendTurnEmbeds(ctx context.Context, embeds []discord.Embed) error {
	for len(embeds) > 0 {
		var last *discord.Message
		if n := len(e.c.TurnMessages); n > 0 {
			last = e.c.TurnMessages[n-1]
		}
		if last == nil || len(last.Embeds) >= discord.MaxEmbedsPerMessage {
			room := discord.MaxEmbedsPerMessage
			if room > len(embeds) {
				room = len(embeds)
			}
			msg, err := e.deps.Port.SendMessage(ctx, e.targetChannel(SlotTurn), "", embeds[:room])
			if err != nil {
				return fmt.Errorf("sending turn summary: %w", err)
			}
			if msg != nil {
				e.c.TurnMessages = append(e.c.TurnMessages, msg)
			}
			embeds = embeds[room:]
			continue
		}
		room := discord.MaxEmbedsPerMessage - len(last.Embeds)
		if room > len(embeds) {
			room = len(embeds)
		}
		combined := append(append([]discord.Embed{}, last.Embeds...), embeds[:room]...)
		msg, err := e.deps.Port.EditMessage(ctx, last, "", combined)
		if err != nil {
			return fmt.Errorf("extending turn summary: %w", err)
		}
		if msg != nil {
			e.c.TurnMessages[len(e.c.TurnMessages)-1] = msg
		} else {
			last.Embeds = combined
		}
		embeds = embeds[room:]
	}
	return nil
}

// targetChannel picks where a slot's messages go: the spawn channel for
// the announcement, the encounter thread for everything else once it
// exists.
func (e *Engine) targetChannel(slot MessageSlot) int64 {
	if slot == SlotSpawn || e.c.ThreadID == 0 {
		return e.c.Encounter.ChannelID
	}
	return e.c.ThreadID
}

func (e *Engine) slot(slot MessageSlot) *discord.Message {
	switch slot {
	case SlotSpawn:
		return e.c.SpawnMessage
	case SlotRound:
		return e.c.RoundMessage
	default:
		if n := len(e.c.TurnMessages); n > 0 {
			return e.c.TurnMessages[n-1]
		}
		return nil
	}
}

func (e *Engine) storeSlot(slot MessageSlot, msg *discord.Message) {
	switch slot {
	case SlotSpawn:
		e.c.SpawnMessage = msg
	case SlotRound:
		e.c.RoundMessage = msg
	default:
		if msg != nil {
			e.c.TurnMessages = append(e.c.TurnMessages, msg)
		}
	}
}

// SubmitPlayerAction validates and resolves a member's turn action. Called
// from the command boundary; validation failures return ErrInvalidAction
// for an ephemeral user-facing reply and are never recorded as events.
func (e *Engine) SubmitPlayerAction(ctx context.Context, memberID int64, skillType string, targetID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.drainInbox(ctx); err != nil {
		return err
	}
	pt, ok := e.state.(*playerTurnState)
	if !ok {
		return fmt.Errorf("%w: it is not a player turn", ErrInvalidAction)
	}
	if e.c.CurrentActorID() != memberID {
		return fmt.Errorf("%w: it is not your turn", ErrInvalidAction)
	}
	effs, err := pt.resolveAction(e.c, memberID, skillType, targetID)
	if err != nil {
		return err
	}
	if err := e.execute(ctx, effs); err != nil {
		return err
	}
	return e.cascade(ctx)
}

// flavorLine asks the optional flavor source for a line; empty on absence.
func (e *Engine) flavorLine(enemy *content.EnemyDef, moment string) string {
	if e.deps.Flavor == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return e.deps.Flavor.Line(ctx, enemy, moment)
}

// hookLine runs the optional lua hook for the enemy; empty on absence or
// failure, which is logged and otherwise ignored.
func (e *Engine) hookLine(hook string, enemy *content.EnemyDef) string {
	if e.deps.Hooks == nil || enemy.SpawnScript == "" {
		return ""
	}
	line, err := e.deps.Hooks.Run(hook, enemy)
	if err != nil {
		e.log.Warn("enemy hook failed", zap.String("hook", hook), zap.String("enemy", enemy.Type), zap.Error(err))
		return ""
	}
	return line
}
