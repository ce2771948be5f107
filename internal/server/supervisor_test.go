package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// blockingService runs until cancelled and records the order of its exit
// against its siblings through the shared trace.
type blockingService struct {
	name  string
	trace *exitTrace
	up    chan struct{}
}

type exitTrace struct {
	mu    sync.Mutex
	order []string
}

func (tr *exitTrace) record(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.order = append(tr.order, name)
}

func (tr *exitTrace) names() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.order...)
}

func (b *blockingService) Run(ctx context.Context) error {
	close(b.up)
	<-ctx.Done()
	b.trace.record(b.name)
	return ctx.Err()
}

func TestSupervisorDrainsInReverseOrder(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))
	trace := &exitTrace{}

	store := &blockingService{name: "store", trace: trace, up: make(chan struct{})}
	manager := &blockingService{name: "encounter_manager", trace: trace, up: make(chan struct{})}
	sup.Add("store", store)
	sup.Add("encounter_manager", manager)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case <-store.up:
	case <-time.After(2 * time.Second):
		t.Fatal("store service never came up")
	}
	select {
	case <-manager.up:
	case <-time.After(2 * time.Second):
		t.Fatal("manager service never came up")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not shut down in time")
	}

	// The manager registered last, so it drains before the store it
	// persists into.
	require.Equal(t, []string{"encounter_manager", "store"}, trace.names())
}

func TestSupervisorStopsSiblingsOnFailure(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))
	trace := &exitTrace{}

	healthy := &blockingService{name: "healthy", trace: trace, up: make(chan struct{})}
	boom := errors.New("gateway handshake refused")
	sup.Add("healthy", healthy)
	sup.Add("gateway", RunFunc(func(context.Context) error { return boom }))

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not shut down after service failure")
	}
	assert.Equal(t, []string{"healthy"}, trace.names())
}

func TestSupervisorAbandonsStuckService(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))
	sup.Grace = 50 * time.Millisecond

	released := make(chan struct{})
	up := make(chan struct{})
	sup.Add("stuck", RunFunc(func(ctx context.Context) error {
		close(up)
		<-released
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	<-up
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor waited past the drain grace")
	}
	close(released)
}

func TestRunFunc(t *testing.T) {
	var got context.Context
	svc := RunFunc(func(ctx context.Context) error {
		got = ctx
		return nil
	})
	require.NoError(t, svc.Run(context.Background()))
	assert.NotNil(t, got)
}
