package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/overview"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// ─────────────────────────────────────────────────────────────
// RefreshScheduler: periodic overview refresh and config reload
// ─────────────────────────────────────────────────────────────

// configReloadDelay coalesces the burst of events editors produce on save.
const configReloadDelay = 500 * time.Millisecond

// LimitsLoader re-reads the overview limits from configuration.
type LimitsLoader func() (overview.Limits, error)

// RefreshScheduler refreshes the overview of every tracked identity on a
// cron schedule and applies edited overview limits without a restart.
type RefreshScheduler struct {
	overview *OverviewService
	log      *slog.Logger

	mu         sync.Mutex
	identities map[string]domain.Identity

	// watcher / cron lifecycle
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewRefreshScheduler creates a scheduler for ov.
func NewRefreshScheduler(ov *OverviewService) *RefreshScheduler {
	return &RefreshScheduler{
		overview:   ov,
		log:        slog.Default().With("component", "scheduler"),
		identities: make(map[string]domain.Identity),
	}
}

// Track adds id to the set refreshed on every tick.
func (s *RefreshScheduler) Track(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[id.ScopeKey()] = id
}

// Tracked returns how many scopes are refreshed.
func (s *RefreshScheduler) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identities)
}

// Start schedules RefreshAll with a cron expression such as "@every 1m".
func (s *RefreshScheduler) Start(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.RefreshAll(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	s.cronSched = c
	s.log.Info("refresh scheduled", "schedule", spec)
	return nil
}

// RefreshAll refreshes every tracked scope.
func (s *RefreshScheduler) RefreshAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]domain.Identity, 0, len(s.identities))
	for _, id := range s.identities {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.overview.Refresh(ctx, id); err != nil {
			s.log.Warn("overview refresh failed", "scope", id.ScopeKey(), "err", err)
		}
	}
}

// WatchConfig reloads the overview limits when the file at path changes,
// then refreshes every scope with the new limits.
func (s *RefreshScheduler) WatchConfig(ctx context.Context, path string, load LimitsLoader) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config path %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", filepath.Dir(absPath), err)
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel

	go func() {
		var timer *time.Timer
		for {
			select {
			case <-watchCtx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if p, _ := filepath.Abs(event.Name); p != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(configReloadDelay, func() {
					limits, err := load()
					if err != nil {
						s.log.Warn("config reload failed", "path", absPath, "err", err)
						return
					}
					s.overview.SetLimits(limits)
					s.log.Info("overview limits reloaded", "path", absPath)
					s.RefreshAll(watchCtx)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("config watcher error", "err", err)
			}
		}
	}()

	s.log.Info("watching config", "path", absPath)
	return nil
}

// Stop tears down the watcher and the cron scheduler.
func (s *RefreshScheduler) Stop() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		<-s.cronSched.Stop().Done()
		s.cronSched = nil
	}
}
