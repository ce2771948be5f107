package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grumblebean/brawl/internal/game/event"
)

// countingStore assigns sequential ids and records appended events.
type countingStore struct {
	mu     sync.Mutex
	nextID int64
	events []event.Event
	err    error
}

func (s *countingStore) AppendEvent(ctx context.Context, ev event.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.nextID++
	s.events = append(s.events, ev)
	return s.nextID, nil
}

// recordingListener collects the events it receives.
type recordingListener struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (l *recordingListener) HandleEvent(ctx context.Context, ev event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return l.err
}

func (l *recordingListener) received() []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]event.Event, len(l.events))
	copy(out, l.events)
	return out
}

func TestDispatchPersistsAndFansOut(t *testing.T) {
	store := &countingStore{}
	bus := event.NewBus(store, zaptest.NewLogger(t))
	a := &recordingListener{}
	b := &recordingListener{}
	bus.Register(a)
	bus.Register(b)

	ev := event.NewEncounterEvent(1, 2, event.EncounterSpawn, 0)
	require.False(t, ev.IsSynchronized())
	require.NoError(t, bus.Dispatch(context.Background(), ev))

	assert.True(t, ev.IsSynchronized())
	assert.Equal(t, int64(1), ev.EventID())
	assert.Len(t, store.events, 1)
	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
}

func TestDispatchAssignsAscendingIDs(t *testing.T) {
	store := &countingStore{}
	bus := event.NewBus(store, zaptest.NewLogger(t))

	var last int64
	for i := 0; i < 5; i++ {
		ev := event.NewCombatEvent(1, 2, event.CombatMemberEndTurn, 100, 0, "", 0, 0)
		require.NoError(t, bus.Dispatch(context.Background(), ev))
		assert.Greater(t, ev.EventID(), last)
		last = ev.EventID()
	}
}

func TestDispatchSkipsStoreForSynchronizedEvents(t *testing.T) {
	store := &countingStore{}
	bus := event.NewBus(store, zaptest.NewLogger(t))
	l := &recordingListener{}
	bus.Register(l)

	ev := event.NewEncounterEvent(1, 2, event.EncounterNewRound, 0)
	ev.MarkSynchronized(17)
	require.NoError(t, bus.Dispatch(context.Background(), ev))

	// Already-persisted events are only fanned out, never re-appended.
	assert.Empty(t, store.events)
	assert.Equal(t, int64(17), ev.EventID())
	assert.Len(t, l.received(), 1)
}

func TestDispatchStoreFailure(t *testing.T) {
	store := &countingStore{err: errors.New("connection reset")}
	bus := event.NewBus(store, zaptest.NewLogger(t))
	l := &recordingListener{}
	bus.Register(l)

	ev := event.NewEncounterEvent(1, 2, event.EncounterSpawn, 0)
	err := bus.Dispatch(context.Background(), ev)
	require.Error(t, err)

	// Unpersisted events never reach listeners.
	assert.False(t, ev.IsSynchronized())
	assert.Empty(t, l.received())
}

func TestDispatchCollectsAllListenerErrors(t *testing.T) {
	store := &countingStore{}
	bus := event.NewBus(store, zaptest.NewLogger(t))
	failing := &recordingListener{err: errors.New("listener down")}
	healthy := &recordingListener{}
	bus.Register(failing)
	bus.Register(healthy)

	ev := event.NewEncounterEvent(1, 2, event.EncounterSpawn, 0)
	err := bus.Dispatch(context.Background(), ev)
	require.Error(t, err)

	// The healthy listener still ran, and the event is durable.
	assert.Len(t, healthy.received(), 1)
	assert.True(t, ev.IsSynchronized())
}

func TestAnnounceDoesNotPersist(t *testing.T) {
	store := &countingStore{}
	bus := event.NewBus(store, zaptest.NewLogger(t))
	l := &recordingListener{}
	bus.Register(l)

	ev := event.NewEncounterEvent(1, 2, event.EncounterMemberRequestJoin, 100)
	require.NoError(t, bus.Announce(context.Background(), ev))

	assert.Empty(t, store.events)
	assert.False(t, ev.IsSynchronized())
	assert.Len(t, l.received(), 1)
}

func TestAnnounceRejectsSynchronizedEvents(t *testing.T) {
	bus := event.NewBus(&countingStore{}, zaptest.NewLogger(t))

	ev := event.NewEncounterEvent(1, 2, event.EncounterSpawn, 0)
	ev.MarkSynchronized(3)
	assert.Error(t, bus.Announce(context.Background(), ev))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "encounter", event.KindEncounter.String())
	assert.Equal(t, "combat", event.KindCombat.String())
	assert.Equal(t, "status_effect", event.KindStatusEffect.String())
}
