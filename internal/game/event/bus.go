package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Listener receives every event the bus dispatches or announces.
//
// A listener's HandleEvent is never invoked concurrently with itself for
// events of the same encounter; ordering across different listeners is not
// guaranteed.
type Listener interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// Store is the subset of the Durable Store the bus needs: durable append
// with server-side id assignment.
type Store interface {
	// AppendEvent persists ev and returns its assigned id.
	//
	// Postcondition: the returned id is strictly greater than every id
	// previously assigned for the same guild.
	AppendEvent(ctx context.Context, ev Event) (int64, error)
}

// Bus persists events and fans them out to registered listeners.
//
// Dispatch is fire-and-collect: every listener runs to completion even when
// an earlier one fails, and all failures are joined into the returned error.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
	store     Store
	logger    *zap.Logger
}

// NewBus creates a Bus backed by the given event store.
//
// Precondition: store and logger must be non-nil.
func NewBus(store Store, logger *zap.Logger) *Bus {
	return &Bus{store: store, logger: logger}
}

// Register adds a listener. Listeners registered during dispatch do not
// receive the in-flight event.
func (b *Bus) Register(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Dispatch persists ev (assigning it an id and marking it synchronized),
// then invokes every registered listener concurrently.
//
// Precondition: ev must not be nil.
// Postcondition: ev.IsSynchronized() is true on any nil-error return; all
// listeners have completed before Dispatch returns.
func (b *Bus) Dispatch(ctx context.Context, ev Event) error {
	if !ev.IsSynchronized() {
		id, err := b.store.AppendEvent(ctx, ev)
		if err != nil {
			return fmt.Errorf("appending %s event: %w", ev.EventKind(), err)
		}
		ev.MarkSynchronized(id)
	}
	return b.fanOut(ctx, ev)
}

// Announce fans ev out to listeners without persisting it. Announced events
// stay unsynchronized and must never drive state-machine decisions.
//
// Precondition: ev must not be nil and must not be synchronized.
func (b *Bus) Announce(ctx context.Context, ev Event) error {
	if ev.IsSynchronized() {
		return errors.New("announce: event is already synchronized; use Dispatch")
	}
	return b.fanOut(ctx, ev)
}

func (b *Bus) fanOut(ctx context.Context, ev Event) error {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	errs := make([]error, len(listeners))
	var wg sync.WaitGroup
	for i, l := range listeners {
		wg.Add(1)
		go func(i int, l Listener) {
			defer wg.Done()
			if err := l.HandleEvent(ctx, ev); err != nil {
				b.logger.Error("event listener failed",
					zap.Stringer("kind", ev.EventKind()),
					zap.Int64("event_id", ev.EventID()),
					zap.Int64("encounter_id", ev.EventEncounterID()),
					zap.Error(err),
				)
				errs[i] = err
			}
		}(i, l)
	}
	wg.Wait()
	return errors.Join(errs...)
}
