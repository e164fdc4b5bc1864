// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// blockingService runs until its context is canceled and counts starts.
type blockingService struct {
	name    string
	starts  atomic.Int32
	started chan struct{}
}

func newBlockingService(name string) *blockingService {
	return &blockingService{name: name, started: make(chan struct{}, 8)}
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return s.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want 5.0", cfg.FailureThreshold)
	}
	if cfg.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %v, want 30.0", cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", cfg.FailureBackoff)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestNewTreeAppliesDefaults(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{})
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want default 5.0", tree.config.FailureThreshold)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want default 10s", tree.config.ShutdownTimeout)
	}
	if tree.Root() == nil {
		t.Fatal("Root() returned nil")
	}
}

func TestTreeServesLayeredServices(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})

	realtime := newBlockingService("realtime-svc")
	api := newBlockingService("api-svc")
	tree.AddRealtimeService(realtime)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*blockingService{realtime, api} {
		select {
		case <-svc.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("service %s did not start", svc)
		}
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("ServeBackground returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after context cancellation")
	}

	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(unstopped) != 0 {
		t.Errorf("%d services failed to stop", len(unstopped))
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{
		FailureThreshold: 100,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	crashes := &crashingService{remaining: 2, done: newBlockingService("stable")}
	tree.AddRealtimeService(crashes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	select {
	case <-crashes.done.started:
	case <-time.After(5 * time.Second):
		t.Fatal("service was not restarted after crashing")
	}
	if got := crashes.attempts.Load(); got != 3 {
		t.Errorf("service started %d times, want 3", got)
	}

	cancel()
	<-errCh
}

// crashingService fails a fixed number of times, then blocks like a healthy
// service.
type crashingService struct {
	remaining int32
	attempts  atomic.Int32
	done      *blockingService
}

func (s *crashingService) Serve(ctx context.Context) error {
	n := s.attempts.Add(1)
	if n <= s.remaining {
		return errors.New("transient failure")
	}
	return s.done.Serve(ctx)
}

func (s *crashingService) String() string { return "crashing-svc" }
