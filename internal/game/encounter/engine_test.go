package encounter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
	"github.com/grumblebean/brawl/internal/game/effects"
	"github.com/grumblebean/brawl/internal/game/encounter"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
	"github.com/grumblebean/brawl/internal/storage/memory"
)

const (
	testGuild   int64 = 42
	testChannel int64 = 900
	memberA     int64 = 100
	memberB     int64 = 200
)

// lcgSource is a deterministic pseudo-random Source. Safe for concurrent
// use so manager-driven engines can share one.
type lcgSource struct {
	mu    sync.Mutex
	state uint64
}

func (s *lcgSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state*6364136223846793005 + 1442695040888963407
	return int((s.state >> 33) % uint64(n))
}

// Test-only enemies layered over the builtin roster.
func testOverlay() *content.Overlay {
	return &content.Overlay{
		Enemies: []*content.EnemyDef{
			{Type: "test_bruiser", Name: "Test Bruiser", Level: 1, Health: 60,
				MinDamage: 500, MaxDamage: 500, ActionsPerTurn: 1,
				Skills:          []string{content.SkillBite},
				MinParticipants: 1, MinEncounterScale: 1, Weight: 0,
				Beans: content.BeanDrop{Min: 1, Max: 2}},
			{Type: "test_shifter", Name: "Test Shifter", Level: 1, Health: 10,
				MinDamage: 1, MaxDamage: 1, ActionsPerTurn: 1,
				Skills:          []string{content.SkillBite},
				MinParticipants: 1, MinEncounterScale: 1, Weight: 0,
				NextPhase: "test_shifter_final",
				Beans:     content.BeanDrop{Min: 1, Max: 1}},
			{Type: "test_shifter_final", Name: "Test Shifter (Final)", Level: 1, Health: 10,
				MinDamage: 1, MaxDamage: 1, ActionsPerTurn: 1,
				Skills:          []string{content.SkillBite},
				MinParticipants: 1, MinEncounterScale: 1, Weight: 0,
				Beans: content.BeanDrop{Min: 1, Max: 1}},
			{Type: "test_boss", Name: "Test Boss", Level: 1, Health: 10,
				MinDamage: 1, MaxDamage: 1, ActionsPerTurn: 1,
				Skills:          []string{content.SkillBite},
				MinParticipants: 1, MinEncounterScale: 1, Boss: true, Weight: 0,
				Beans: content.BeanDrop{Min: 1, Max: 1}},
		},
	}
}

// harness wires a complete engine dependency set over the in-memory store
// and the fake port.
type harness struct {
	store   *memory.Store
	port    *discord.FakePort
	bus     *event.Bus
	loader  *encounter.ContextLoader
	factory *content.Factory
	deps    encounter.Deps
	cfg     encounter.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	factory, err := content.NewFactory(testOverlay())
	require.NoError(t, err)

	store := memory.NewStore()
	bus := event.NewBus(store, logger)
	loader := encounter.NewContextLoader(store, factory, logger)
	bus.Register(loader)

	roller := dice.NewLoggedRoller(&lcgSource{state: 1}, logger)
	gearMgr := gear.NewManager(factory, roller)
	port := discord.NewFakePort()

	return &harness{
		store:   store,
		port:    port,
		bus:     bus,
		loader:  loader,
		factory: factory,
		deps: encounter.Deps{
			Store:    store,
			Bus:      bus,
			Loader:   loader,
			Port:     port,
			Factory:  factory,
			Pipeline: effects.NewPipeline(),
			Roller:   roller,
			Gear:     gearMgr,
			Loot:     gear.NewLootManager(factory, gearMgr, roller),
			Logger:   logger,
		},
		cfg: encounter.Config{
			TickInterval: time.Millisecond,
			Countdown:    time.Millisecond,
			TurnTimeout:  time.Minute,
		},
	}
}

// spawn persists an encounter row for the given enemy type.
func (h *harness) spawn(t *testing.T, enemyType string) *encounter.Encounter {
	t.Helper()
	def, err := h.factory.Enemy(enemyType)
	require.NoError(t, err)
	enc := &encounter.Encounter{
		GuildID:   testGuild,
		EnemyType: enemyType,
		Level:     def.Level,
		MaxHP:     def.ScaledMaxHP(def.MinEncounterScale),
		ChannelID: testChannel,
		CreatedAt: time.Now().UTC(),
	}
	enc.ID, err = h.store.LogEncounter(context.Background(), enc)
	require.NoError(t, err)
	return enc
}

// engine builds a synchronously driven engine over the encounter and wires
// bus traffic into its inbox.
func (h *harness) engine(t *testing.T, encounterID int64) *encounter.Engine {
	t.Helper()
	c, err := h.loader.LoadEncounterContext(context.Background(), encounterID)
	require.NoError(t, err)
	eng := encounter.NewEngine(c, h.deps, h.cfg)
	h.bus.Register(listenerFunc(func(_ context.Context, ev event.Event) error {
		eng.Enqueue(ev)
		return nil
	}))
	return eng
}

// coldEngine rebuilds an engine for the encounter through a fresh loader
// over the same store, the way the manager adopts an orphan after a
// process restart. Nothing from the prior engine's in-memory state
// carries over.
func (h *harness) coldEngine(t *testing.T, encounterID int64) *encounter.Engine {
	t.Helper()
	loader := encounter.NewContextLoader(h.store, h.factory, zaptest.NewLogger(t))
	c, err := loader.LoadEncounterContext(context.Background(), encounterID)
	require.NoError(t, err)
	deps := h.deps
	deps.Loader = loader
	eng := encounter.NewEngine(c, deps, h.cfg)
	h.bus.Register(listenerFunc(func(_ context.Context, ev event.Event) error {
		eng.Enqueue(ev)
		return nil
	}))
	return eng
}

type listenerFunc func(ctx context.Context, ev event.Event) error

func (f listenerFunc) HandleEvent(ctx context.Context, ev event.Event) error { return f(ctx, ev) }

// engage records a member joining through the bus.
func (h *harness) engage(t *testing.T, encounterID, memberID int64) {
	t.Helper()
	require.NoError(t, h.bus.Dispatch(context.Background(), event.NewEncounterEvent(
		testGuild, encounterID, event.EncounterMemberEngage, memberID,
	)))
}

// strongWeapon equips a member with a weapon that ends fights quickly.
func (h *harness) strongWeapon(memberID int64) {
	h.store.SetUserEquipment(testGuild, memberID, &gear.Equipment{
		Weapon: &gear.Piece{
			BaseType: "rusty_sword",
			Slot:     content.SlotWeapon,
			Rarity:   content.RarityCommon,
			Level:    1,
			Modifiers: map[content.Modifier]float64{
				content.ModWeaponDamageMin: 40,
				content.ModWeaponDamageMax: 60,
			},
			Skills: []string{content.SkillSlash},
		},
	})
}

// runToFinish ticks the engine, submitting the skill for each member
// whenever a player turn comes around, until the terminal state.
func (h *harness) runToFinish(t *testing.T, eng *encounter.Engine, skill string, members ...int64) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 2000; i++ {
		select {
		case <-eng.Finished():
			return
		default:
		}
		if eng.CurrentStateID() == encounter.StatePlayerTurn {
			for _, m := range members {
				err := eng.SubmitPlayerAction(ctx, m, skill, 0)
				if err == nil {
					break
				}
				if !errors.Is(err, encounter.ErrInvalidAction) {
					t.Fatalf("submitting action: %v", err)
				}
			}
		}
		require.NoError(t, eng.Tick(ctx))
	}
	t.Fatal("encounter did not reach the terminal state")
}

// tickUntil ticks until cond holds, failing after a bounded number of ticks.
func tickUntil(t *testing.T, eng *encounter.Engine, cond func() bool) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 500; i++ {
		if cond() {
			return
		}
		require.NoError(t, eng.Tick(ctx))
	}
	t.Fatal("condition never held")
}

func encounterEventTypes(t *testing.T, store *memory.Store, encounterID int64) map[event.EncounterEventType]int {
	t.Helper()
	evs, err := store.EncounterEvents(context.Background(), encounterID)
	require.NoError(t, err)
	out := make(map[event.EncounterEventType]int)
	for _, ev := range evs {
		out[ev.Type]++
	}
	return out
}

func embedTitles(port *discord.FakePort) []string {
	var out []string
	for _, call := range port.Calls {
		for _, em := range call.Embeds {
			out = append(out, em.Title)
		}
	}
	return out
}

func TestSoloVictory(t *testing.T) {
	h := newHarness(t)
	h.strongWeapon(memberA)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	h.runToFinish(t, eng, content.SkillSlash, memberA)

	types := encounterEventTypes(t, h.store, enc.ID)
	assert.Equal(t, 1, types[event.EncounterSpawn])
	assert.Equal(t, 1, types[event.EncounterInitiated])
	assert.Equal(t, 1, types[event.EncounterEnemyDefeat])
	assert.Equal(t, 1, types[event.EncounterEnd])
	assert.GreaterOrEqual(t, types[event.EncounterNewRound], 1)

	// The thread opened once and the victory banner went out.
	assert.Len(t, h.port.CallsFor("create_thread"), 1)
	assert.Contains(t, embedTitles(h.port), "Victory!")

	// The surviving combatant's gear drop was persisted.
	assert.Equal(t, 1, h.store.GearCount())

	// A rat is not a boss: progression is untouched.
	level, err := h.store.GuildLevel(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
}

func TestPartyDefeat(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, "test_bruiser")
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	h.runToFinish(t, eng, content.SkillSlash, memberA)

	types := encounterEventTypes(t, h.store, enc.ID)
	assert.Equal(t, 1, types[event.EncounterEnd])
	assert.Zero(t, types[event.EncounterEnemyDefeat])
	assert.Contains(t, embedTitles(h.port), "Defeat")

	// A lost fight pays nothing.
	assert.Zero(t, h.store.GearCount())
}

func TestEnemyPhaseTransition(t *testing.T) {
	h := newHarness(t)
	h.strongWeapon(memberA)
	enc := h.spawn(t, "test_shifter")
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	h.runToFinish(t, eng, content.SkillSlash, memberA)

	types := encounterEventTypes(t, h.store, enc.ID)
	assert.Equal(t, 1, types[event.EncounterEnemyPhaseChange])
	assert.Equal(t, 1, types[event.EncounterEnemyDefeat])
	assert.Equal(t, 1, types[event.EncounterEnd])
	assert.Contains(t, embedTitles(h.port), "Test Shifter transforms!")
}

func TestBossVictoryAdvancesGuild(t *testing.T) {
	h := newHarness(t)
	h.strongWeapon(memberA)
	h.store.SetLevelRequirement(testGuild, 1, 1)
	enc := h.spawn(t, "test_boss")
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	h.runToFinish(t, eng, content.SkillSlash, memberA)

	level, err := h.store.GuildLevel(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Equal(t, 2, level)
	assert.Contains(t, embedTitles(h.port), "Boss key drops!")
}

func TestIdlePlayerIsPenalizedAndSkipped(t *testing.T) {
	h := newHarness(t)
	h.cfg.TurnTimeout = 40 * time.Millisecond
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)

	ctx := context.Background()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, eng.Tick(ctx))
		if encounterEventTypes(t, h.store, enc.ID)[event.EncounterForceSkip] > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	types := encounterEventTypes(t, h.store, enc.ID)
	assert.GreaterOrEqual(t, types[event.EncounterPenalty50], 1)
	assert.GreaterOrEqual(t, types[event.EncounterPenalty75], 1)
	assert.GreaterOrEqual(t, types[event.EncounterForceSkip], 1)
}

func TestForcedEndDrainsToTerminalState(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	require.NoError(t, h.bus.Dispatch(context.Background(), event.NewEncounterEvent(
		testGuild, enc.ID, event.EncounterEnd, 0,
	)))
	tickUntil(t, eng, func() bool {
		select {
		case <-eng.Finished():
			return true
		default:
			return false
		}
	})
	assert.Equal(t, encounter.StatePostEncounter, eng.CurrentStateID())
}

func TestRageQuitStatusForcesEncounterEnd(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	// The abort keys off the recorded stack alone, so it holds across
	// reloads without any trigger pass running.
	require.NoError(t, h.bus.Dispatch(context.Background(), event.NewStatusEffectEvent(
		testGuild, enc.ID, memberA, memberA, content.StatusRageQuit, 1, 0,
	)))
	tickUntil(t, eng, func() bool {
		select {
		case <-eng.Finished():
			return true
		default:
			return false
		}
	})

	types := encounterEventTypes(t, h.store, enc.ID)
	assert.Equal(t, 1, types[event.EncounterEnd])
	assert.Zero(t, types[event.EncounterEnemyDefeat])
	assert.Contains(t, embedTitles(h.port), "The encounter collapses")
}

func TestTurnExclusivity(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })

	// No one may act before combat starts.
	err := eng.SubmitPlayerAction(context.Background(), memberA, content.SkillSlash, 0)
	assert.ErrorIs(t, err, encounter.ErrInvalidAction)

	h.engage(t, enc.ID, memberA)
	h.engage(t, enc.ID, memberB)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	// First engagement owns the first turn; the second member is rejected.
	ctx := context.Background()
	err = eng.SubmitPlayerAction(ctx, memberB, content.SkillSlash, 0)
	assert.ErrorIs(t, err, encounter.ErrInvalidAction)

	// A non-participant is rejected outright.
	err = eng.SubmitPlayerAction(ctx, 999, content.SkillSlash, 0)
	assert.ErrorIs(t, err, encounter.ErrInvalidAction)

	// An unknown skill is rejected without recording anything.
	before, err := h.store.CombatEvents(ctx, enc.ID)
	require.NoError(t, err)
	err = eng.SubmitPlayerAction(ctx, memberA, "uppercut", 0)
	assert.ErrorIs(t, err, encounter.ErrInvalidAction)
	after, err := h.store.CombatEvents(ctx, enc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))

	// The right member with a real skill goes through.
	require.NoError(t, eng.SubmitPlayerAction(ctx, memberA, content.SkillSlash, 0))
}

func TestInitiativeFollowsEngagementOrder(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberB)
	h.engage(t, enc.ID, memberA)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	// memberB engaged first and is prompted first.
	var prompts []string
	for _, title := range embedTitles(h.port) {
		if len(title) > 0 && title[0] == '<' {
			prompts = append(prompts, title)
		}
	}
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0], "<@200>")

	require.NoError(t, eng.SubmitPlayerAction(context.Background(), memberB, content.SkillSlash, 0))
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	prompts = prompts[:0]
	for _, title := range embedTitles(h.port) {
		if len(title) > 0 && title[0] == '<' {
			prompts = append(prompts, title)
		}
	}
	require.GreaterOrEqual(t, len(prompts), 2)
	assert.Contains(t, prompts[1], "<@100>")
}

func TestRedeliveredEventsAreNoOps(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	ctx := context.Background()
	before, err := h.store.EncounterEvents(ctx, enc.ID)
	require.NoError(t, err)

	// Redeliver the full history; the replay cutoff absorbs all of it.
	for _, ev := range before {
		eng.Enqueue(ev)
	}
	require.NoError(t, eng.Tick(ctx))

	after, err := h.store.EncounterEvents(ctx, enc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
	assert.Equal(t, encounter.StatePlayerTurn, eng.CurrentStateID())
}

func TestReloadResumesInProgressRound(t *testing.T) {
	h := newHarness(t)
	h.strongWeapon(memberA)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	types := encounterEventTypes(t, h.store, enc.ID)
	require.Equal(t, 1, types[event.EncounterNewRound])

	// Reload from the store mid-turn, as after a process restart. The
	// round already on record must not be opened a second time.
	eng2 := h.coldEngine(t, enc.ID)
	require.NoError(t, eng2.Tick(context.Background()))

	types = encounterEventTypes(t, h.store, enc.ID)
	assert.Equal(t, 1, types[event.EncounterNewRound])
	assert.Equal(t, encounter.StatePlayerTurn, eng2.CurrentStateID())

	// The reloaded engine carries the fight to its end as usual.
	h.runToFinish(t, eng2, content.SkillSlash, memberA)
	assert.Contains(t, embedTitles(h.port), "Victory!")
}

func TestReloadKeepsMidRoundTurnOrder(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	h.engage(t, enc.ID, memberB)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	ctx := context.Background()
	require.NoError(t, eng.SubmitPlayerAction(ctx, memberA, content.SkillSlash, 0))
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	// The first member has spent their turn; a reload must hand the turn
	// to the second member, not restart the rotation.
	eng2 := h.coldEngine(t, enc.ID)
	require.NoError(t, eng2.Tick(ctx))
	require.Equal(t, encounter.StatePlayerTurn, eng2.CurrentStateID())

	err := eng2.SubmitPlayerAction(ctx, memberA, content.SkillSlash, 0)
	assert.ErrorIs(t, err, encounter.ErrInvalidAction)
	require.NoError(t, eng2.SubmitPlayerAction(ctx, memberB, content.SkillSlash, 0))

	types := encounterEventTypes(t, h.store, enc.ID)
	assert.Equal(t, 1, types[event.EncounterNewRound])
}

func TestReplayDeterminism(t *testing.T) {
	h := newHarness(t)
	h.strongWeapon(memberA)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })
	require.NoError(t, eng.SubmitPlayerAction(context.Background(), memberA, content.SkillSlash, 0))
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	// Two independent cold loads of the same log must agree on every
	// derived value.
	logger := zaptest.NewLogger(t)
	l1 := encounter.NewContextLoader(h.store, h.factory, logger)
	l2 := encounter.NewContextLoader(h.store, h.factory, logger)
	ctx := context.Background()
	c1, err := l1.LoadEncounterContext(ctx, enc.ID)
	require.NoError(t, err)
	c2, err := l2.LoadEncounterContext(ctx, enc.ID)
	require.NoError(t, err)

	assert.Equal(t, c1.Opponent.CurrentHP, c2.Opponent.CurrentHP)
	assert.Equal(t, c1.Opponent.Defeated, c2.Opponent.Defeated)
	assert.Equal(t, c1.Opponent.Phase, c2.Opponent.Phase)
	assert.Equal(t, c1.Round(), c2.Round())
	assert.Equal(t, c1.Initiative, c2.Initiative)
	require.Equal(t, len(c1.Characters), len(c2.Characters))
	for i := range c1.Characters {
		assert.Equal(t, c1.Characters[i].CurrentHP, c2.Characters[i].CurrentHP)
		assert.Equal(t, c1.Characters[i].Defeated, c2.Characters[i].Defeated)
		require.Equal(t, len(c1.Characters[i].Skills), len(c2.Characters[i].Skills))
		for j := range c1.Characters[i].Skills {
			assert.Equal(t, c1.Characters[i].Skills[j].CooldownRemaining,
				c2.Characters[i].Skills[j].CooldownRemaining)
		}
	}

	// Rebuilding without new events is a no-op.
	oppHP := c1.Opponent.CurrentHP
	require.NoError(t, l1.RebuildActors(ctx, c1))
	assert.Equal(t, oppHP, c1.Opponent.CurrentHP)
}

func TestMidFightDisengageCollapsesEncounter(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	eng := h.engine(t, enc.ID)

	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StateWaiting })
	h.engage(t, enc.ID, memberA)
	tickUntil(t, eng, func() bool { return eng.CurrentStateID() == encounter.StatePlayerTurn })

	require.NoError(t, h.bus.Dispatch(context.Background(), event.NewEncounterEvent(
		testGuild, enc.ID, event.EncounterMemberDisengage, memberA,
	)))
	h.runToFinish(t, eng, content.SkillSlash)

	types := encounterEventTypes(t, h.store, enc.ID)
	assert.Equal(t, 1, types[event.EncounterEnd])
	assert.Zero(t, types[event.EncounterEnemyDefeat])
	// With its only combatant walking out, no one is left standing.
	assert.Contains(t, embedTitles(h.port), "Defeat")
	assert.Zero(t, h.store.GearCount())
}
