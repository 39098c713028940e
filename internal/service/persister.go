package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"opsdash/internal/domain"

	"github.com/bep/debounce"
)

// DefaultSaveQuiet is the quiet period before a burst of layout changes
// is written.
const DefaultSaveQuiet = time.Second

// Persister buffers layout commits and writes the latest one per session
// after a quiet period. Writes never interleave; a later layout always
// replaces an earlier pending one.
type Persister struct {
	store    domain.LayoutStore
	debounce func(func())
	log      *slog.Logger

	mu      sync.Mutex
	pending map[Session]domain.Layout

	writeMu sync.Mutex
}

// NewPersister creates a persister writing to store after quiet.
func NewPersister(store domain.LayoutStore, quiet time.Duration) *Persister {
	if quiet <= 0 {
		quiet = DefaultSaveQuiet
	}
	return &Persister{
		store:    store,
		debounce: debounce.New(quiet),
		log:      slog.Default().With("component", "persister"),
		pending:  make(map[Session]domain.Layout),
	}
}

// Schedule records l as the latest layout of sess and (re)starts the
// quiet-period timer.
func (p *Persister) Schedule(sess Session, l domain.Layout) {
	p.mu.Lock()
	p.pending[sess] = l
	p.mu.Unlock()
	p.arm()
}

// arm (re)starts the quiet-period timer that flushes pending layouts.
func (p *Persister) arm() {
	p.debounce(func() {
		if err := p.Flush(context.Background()); err != nil {
			p.log.Warn("debounced layout flush failed", "err", err)
		}
	})
}

// Pending reports how many sessions have an unwritten layout.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush writes every pending layout now. Failed writes stay pending and are
// retried after the next quiet period unless a newer layout arrived
// meanwhile.
func (p *Persister) Flush(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[Session]domain.Layout)
	p.mu.Unlock()

	var errs []error
	for sess, l := range batch {
		if err := p.write(ctx, sess, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveNow writes l synchronously, superseding anything pending for sess.
func (p *Persister) SaveNow(ctx context.Context, sess Session, l domain.Layout) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	delete(p.pending, sess)
	p.mu.Unlock()
	return p.write(ctx, sess, l)
}

// write must be called with writeMu held.
func (p *Persister) write(ctx context.Context, sess Session, l domain.Layout) error {
	if err := l.Validate(); err != nil {
		p.log.Error("refusing to persist invalid layout", "role", sess.Role, "scope", sess.Scope, "err", err)
		return fmt.Errorf("save layout %s/%s: %w", sess.Role, sess.Scope, err)
	}
	if err := p.store.SaveLayout(ctx, sess.Role, sess.Scope, l); err != nil {
		p.log.Warn("save layout failed, will retry", "role", sess.Role, "scope", sess.Scope, "err", err)
		p.mu.Lock()
		if _, newer := p.pending[sess]; !newer {
			p.pending[sess] = l
		}
		p.mu.Unlock()
		p.arm()
		return fmt.Errorf("save layout %s/%s: %w", sess.Role, sess.Scope, err)
	}
	return nil
}
