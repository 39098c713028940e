package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────
// Test doubles
// ─────────────────────────────────────────────────────────────

// memStore is an in-memory domain.LayoutStore that counts writes.
type memStore struct {
	mu      sync.Mutex
	layouts map[string]domain.Layout
	saves   int
	failing bool
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{layouts: make(map[string]domain.Layout)}
}

func (s *memStore) LoadLayout(_ context.Context, role, scope string) (*domain.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	l, ok := s.layouts[role+"/"+scope]
	if !ok {
		return nil, nil
	}
	c := l.Clone()
	return &c, nil
}

func (s *memStore) SaveLayout(_ context.Context, role, scope string, l domain.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store offline")
	}
	s.saves++
	s.layouts[role+"/"+scope] = l.Clone()
	return nil
}

func (s *memStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *memStore) stored(role, scope string) (domain.Layout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layouts[role+"/"+scope]
	return l, ok
}

// ─────────────────────────────────────────────────────────────
// ScopeGuard tests
// ─────────────────────────────────────────────────────────────

func TestScopeGuard_TryLock(t *testing.T) {
	var g service.ScopeGuard

	require.True(t, g.TryLock("scope-1"))
	assert.False(t, g.TryLock("scope-1"), "second TryLock for same scope must fail")
	assert.True(t, g.TryLock("scope-2"))
	g.Unlock("scope-1")
	g.Unlock("scope-2")

	assert.True(t, g.TryLock("scope-1"), "TryLock must succeed after unlock")
	assert.Equal(t, 1, g.Running())
	g.Unlock("scope-1")
	g.Unlock("scope-1")
	assert.Equal(t, 0, g.Running(), "unlocking a released scope is a no-op")
}

func TestScopeGuard_WaitAll(t *testing.T) {
	var g service.ScopeGuard
	require.True(t, g.TryLock("scope-a"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("scope-a")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// Emitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	require.Len(t, m.Events, 2)
	assert.Equal(t, "test:event", m.Events[0].Event)
	assert.Len(t, m.Named("test:event2"), 1)
}

func TestMultiEmitter_FansOut(t *testing.T) {
	a, b := &service.MockEmitter{}, &service.MockEmitter{}
	multi := service.MultiEmitter{a, nil, b, service.NoopEmitter{}, service.LogEmitter{}}

	multi.Emit(context.Background(), service.EventLayoutChanged, "x")

	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
}
