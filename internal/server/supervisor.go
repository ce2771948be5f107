// Package server supervises the daemon's long-lived components. The
// encounter manager, the gateway listener, and anything else that must be
// running before commands flow is registered here, brought up together,
// and drained in reverse order on shutdown so live encounters finish
// persisting before the pieces they depend on go away.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// defaultDrainGrace bounds how long shutdown waits on a single service. An
// encounter engine mid-payout gets this long to flush; past it the
// supervisor moves on and the event log covers recovery on next boot.
const defaultDrainGrace = 15 * time.Second

// Service is a component driven by the supervisor. Run blocks for the
// component's whole life and returns once its context is cancelled and any
// in-flight work has drained.
type Service interface {
	Run(ctx context.Context) error
}

// RunFunc adapts a plain function into a Service.
type RunFunc func(ctx context.Context) error

func (f RunFunc) Run(ctx context.Context) error { return f(ctx) }

// Supervisor owns the daemon's services. Services come up in registration
// order and drain in reverse, so a component never outlives something it
// depends on during shutdown.
type Supervisor struct {
	// Grace bounds the per-service drain wait.
	Grace time.Duration

	log      *zap.Logger
	mu       sync.Mutex
	services []*supervised
}

type supervised struct {
	name   string
	svc    Service
	cancel context.CancelFunc
	done   chan error
}

// NewSupervisor creates a supervisor with the default drain grace.
//
// Precondition: log is non-nil.
func NewSupervisor(log *zap.Logger) *Supervisor {
	return &Supervisor{
		Grace: defaultDrainGrace,
		log:   log,
	}
}

// Add registers a named service. Registration order is startup order.
//
// Precondition: Run has not been called yet.
func (s *Supervisor) Add(name string, svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, &supervised{name: name, svc: svc})
}

// Run launches every registered service and blocks until a termination
// signal arrives, the parent context is cancelled, or a service fails. It
// then drains the services in reverse registration order and returns the
// first failure, or nil on a clean shutdown.
//
// Postcondition: every service's Run has returned or exceeded the drain
// grace when this method returns.
func (s *Supervisor) Run(ctx context.Context) error {
	start := time.Now()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	failed := make(chan error, len(s.services))
	for _, sv := range s.services {
		svcCtx, cancel := context.WithCancel(ctx)
		sv.cancel = cancel
		sv.done = make(chan error, 1)
		go func(sv *supervised) {
			s.log.Info("service up", zap.String("service", sv.name))
			err := sv.svc.Run(svcCtx)
			sv.done <- err
			if err != nil && !errors.Is(err, context.Canceled) {
				failed <- fmt.Errorf("service %s: %w", sv.name, err)
			}
		}(sv)
	}
	s.log.Info("supervisor running",
		zap.Int("services", len(s.services)),
		zap.Duration("startup", time.Since(start)),
	)

	var runErr error
	select {
	case sig := <-sigCh:
		s.log.Info("signal received, draining", zap.String("signal", sig.String()))
	case runErr = <-failed:
		s.log.Error("service failed, draining", zap.Error(runErr))
	case <-ctx.Done():
		s.log.Info("context cancelled, draining")
	}

	s.drain()
	s.log.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return runErr
}

// drain cancels and awaits services newest-first. The encounter manager is
// registered last in the daemon, so it is the first to drain and its
// engines flush while the store is still up.
func (s *Supervisor) drain() {
	for i := len(s.services) - 1; i >= 0; i-- {
		sv := s.services[i]
		if sv.cancel == nil {
			continue
		}
		sv.cancel()
		stop := time.Now()
		select {
		case err := <-sv.done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("service stopped with error",
					zap.String("service", sv.name),
					zap.Error(err),
					zap.Duration("elapsed", time.Since(stop)),
				)
				continue
			}
			s.log.Info("service drained",
				zap.String("service", sv.name),
				zap.Duration("elapsed", time.Since(stop)),
			)
		case <-time.After(s.Grace):
			s.log.Warn("service exceeded drain grace, abandoning",
				zap.String("service", sv.name),
				zap.Duration("grace", s.Grace),
			)
		}
	}
}
