package service

import (
	"context"
	"sync"
)

// scopeGuard admits at most one refresh per overview scope and lets
// shutdown wait for the refreshes in flight.
type scopeGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// TryLock claims scope. It reports false when a refresh of scope is
// already running.
func (g *scopeGuard) TryLock(scope string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}
	if _, busy := g.inFlight[scope]; busy {
		return false
	}
	g.inFlight[scope] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases a scope claimed by TryLock.
func (g *scopeGuard) Unlock(scope string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inFlight[scope]; !ok {
		return
	}
	delete(g.inFlight, scope)
	g.wg.Done()
}

// Running reports how many scopes are being refreshed.
func (g *scopeGuard) Running() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}

// WaitAll blocks until every claimed scope is released or ctx is done.
func (g *scopeGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
