package encounter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/game/event"
)

// ErrAlreadyEngaged rejects a member joining two live encounters at once.
var ErrAlreadyEngaged = errors.New("member already engaged in another encounter")

// Manager is the encounter lifecycle facade: it creates encounters,
// owns the process-wide engine cache, and reconnects orphaned encounters
// after a restart. The engine cache is the single source of truth for
// which encounters are live in this process; an encounter with events but
// no cached engine is an orphan and is reloaded before any further event
// is processed.
type Manager struct {
	mu      sync.Mutex
	engines map[int64]*Engine

	deps Deps
	cfg  Config
	log  *zap.Logger

	// runCtx parents every engine goroutine; set once by Start.
	runCtx context.Context
	wg     sync.WaitGroup
}

// NewManager creates a Manager. Register it on the bus so engines receive
// their events.
//
// Precondition: deps fields other than Flavor and Hooks must be non-nil.
func NewManager(deps Deps, cfg Config) *Manager {
	return &Manager{
		engines: make(map[int64]*Engine),
		deps:    deps,
		cfg:     cfg.withDefaults(),
		log:     deps.Logger.Named("encounter_manager"),
	}
}

// Start records the lifecycle context that parents all engine goroutines.
// Must be called before any encounter is created or reloaded.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCtx = ctx
}

// Wait blocks until every engine goroutine has exited.
func (m *Manager) Wait() { m.wg.Wait() }

// HandleEvent routes bus traffic to the owning engine. A synchronized
// event for an encounter without a cached engine marks an orphan, which is
// reloaded via full replay before the event can be acted on; the reloaded
// engine picks the event up from the log, so dropping this copy is safe.
func (m *Manager) HandleEvent(ctx context.Context, ev event.Event) error {
	encounterID := ev.EventEncounterID()
	if encounterID == 0 {
		return nil
	}

	m.mu.Lock()
	eng, ok := m.engines[encounterID]
	m.mu.Unlock()
	if ok {
		eng.Enqueue(ev)
		return nil
	}

	if !ev.IsSynchronized() {
		return nil
	}
	if ee, isEnc := ev.(*event.EncounterEvent); isEnc && ee.Type == event.EncounterEnd {
		return nil
	}
	if _, err := m.ReloadEncounter(ctx, encounterID); err != nil {
		return fmt.Errorf("reloading orphaned encounter %d: %w", encounterID, err)
	}
	return nil
}

// CreateEncounter spawns a new encounter in a guild: a level-weighted
// enemy roll against the guild's progression level, a persisted metadata
// row, and a running engine.
func (m *Manager) CreateEncounter(ctx context.Context, guildID, channelID, ownerID int64) (*Engine, error) {
	guildLevel, err := m.deps.Store.GuildLevel(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("reading guild level: %w", err)
	}
	if guildLevel < 1 {
		guildLevel = 1
	}

	level := m.deps.Roller.Between(1, guildLevel)
	roster := m.deps.Factory.EnemiesForLevel(level)
	if len(roster) == 0 {
		return nil, fmt.Errorf("no enemies configured for level %d", level)
	}
	weights := make([]int, len(roster))
	for i, def := range roster {
		weights[i] = def.Weight
	}
	def := roster[m.deps.Roller.WeightedIndex(weights)]

	enc := &Encounter{
		GuildID:   guildID,
		EnemyType: def.Type,
		Level:     def.Level,
		MaxHP:     def.ScaledMaxHP(def.MinEncounterScale),
		ChannelID: channelID,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if enc.ID, err = m.deps.Store.LogEncounter(ctx, enc); err != nil {
		return nil, fmt.Errorf("logging encounter: %w", err)
	}
	m.log.Info("encounter created",
		zap.Int64("encounter_id", enc.ID),
		zap.Int64("guild_id", guildID),
		zap.String("enemy", def.Type),
		zap.Int("level", def.Level),
	)
	return m.startEngine(ctx, enc.ID)
}

// ReloadEncounter rebuilds an orphaned encounter from the event log and
// resumes driving it. Reloading a live encounter returns its engine.
func (m *Manager) ReloadEncounter(ctx context.Context, encounterID int64) (*Engine, error) {
	m.mu.Lock()
	if eng, ok := m.engines[encounterID]; ok {
		m.mu.Unlock()
		return eng, nil
	}
	m.mu.Unlock()
	return m.startEngine(ctx, encounterID)
}

// ReconnectOrphans reloads every un-ended encounter of a guild, called at
// boot for each known guild.
func (m *Manager) ReconnectOrphans(ctx context.Context, guildID int64) error {
	ids, err := m.deps.Store.OpenEncounters(ctx, guildID)
	if err != nil {
		return fmt.Errorf("listing open encounters for guild %d: %w", guildID, err)
	}
	for _, id := range ids {
		if _, err := m.ReloadEncounter(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// startEngine loads the context, caches the engine, and starts its driver
// goroutine. The cache entry is removed when the engine finishes.
func (m *Manager) startEngine(ctx context.Context, encounterID int64) (*Engine, error) {
	c, err := m.deps.Loader.LoadEncounterContext(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if eng, ok := m.engines[encounterID]; ok {
		return eng, nil
	}
	if m.runCtx == nil {
		return nil, errors.New("manager not started")
	}

	eng := NewEngine(c, m.deps, m.cfg)
	m.engines[encounterID] = eng
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := eng.Run(m.runCtx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Error("engine stopped", zap.Int64("encounter_id", encounterID), zap.Error(err))
		}
		m.deps.Loader.Evict(encounterID)
		m.mu.Lock()
		delete(m.engines, encounterID)
		m.mu.Unlock()
	}()
	return eng, nil
}

// Engine returns the live engine for an encounter, if cached.
func (m *Manager) Engine(encounterID int64) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eng, ok := m.engines[encounterID]
	return eng, ok
}

// LiveEncounters returns the ids of the encounters this process drives.
func (m *Manager) LiveEncounters() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	return ids
}

// EngageMember joins a member into an encounter. Concurrent joins race on
// the event log: whichever engage event is durably recorded first wins,
// and the loser's command surface reports failure to that user alone.
func (m *Manager) EngageMember(ctx context.Context, guildID, encounterID, memberID int64) error {
	if _, err := m.ReloadEncounter(ctx, encounterID); err != nil {
		return err
	}

	m.mu.Lock()
	others := make([]*Engine, 0, len(m.engines))
	for id, other := range m.engines {
		if id != encounterID {
			others = append(others, other)
		}
	}
	m.mu.Unlock()
	for _, other := range others {
		if other.GuildID() == guildID && other.HasMember(memberID) {
			return ErrAlreadyEngaged
		}
	}

	return m.deps.Bus.Dispatch(ctx, event.NewEncounterEvent(
		guildID, encounterID, event.EncounterMemberEngage, memberID,
	))
}

// DisengageMember records a member leaving; they are skipped for turns and
// dropped from the rotation at the next round boundary.
func (m *Manager) DisengageMember(ctx context.Context, guildID, encounterID, memberID int64) error {
	return m.deps.Bus.Dispatch(ctx, event.NewEncounterEvent(
		guildID, encounterID, event.EncounterMemberDisengage, memberID,
	))
}

// RequestJoin records a join request for UI surfaces that gate entry.
func (m *Manager) RequestJoin(ctx context.Context, guildID, encounterID, memberID int64) error {
	return m.deps.Bus.Dispatch(ctx, event.NewEncounterEvent(
		guildID, encounterID, event.EncounterMemberRequestJoin, memberID,
	))
}

// SubmitAction forwards a member's turn action to the owning engine.
func (m *Manager) SubmitAction(ctx context.Context, encounterID, memberID int64, skillType string, targetID int64) error {
	eng, ok := m.Engine(encounterID)
	if !ok {
		return fmt.Errorf("%w: that encounter is not active", ErrInvalidAction)
	}
	return eng.SubmitPlayerAction(ctx, memberID, skillType, targetID)
}

// ForceEnd aborts an encounter by recording an end event; the engine
// drains to its terminal state on the next tick.
func (m *Manager) ForceEnd(ctx context.Context, guildID, encounterID int64) error {
	return m.deps.Bus.Dispatch(ctx, event.NewEncounterEvent(
		guildID, encounterID, event.EncounterEnd, 0,
	))
}
