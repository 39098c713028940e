package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"opsdash/internal/domain"

	"github.com/google/uuid"
)

// Session identifies one layout owner: the caller's role within a
// session scope (a browser session, an MCP client, ...).
type Session struct {
	Role  string `json:"role"`
	Scope string `json:"scope"`
}

// NewSessionScope returns a fresh random session scope.
func NewSessionScope() string {
	return uuid.NewString()
}

func (s Session) validate() error {
	if s.Role == "" {
		return &domain.ValidationError{Field: "role", Reason: "must not be empty"}
	}
	return nil
}

// LayoutEvent is the payload of EventLayoutChanged.
type LayoutEvent struct {
	Session Session       `json:"session"`
	Layout  domain.Layout `json:"layout"`
}

// LayoutService owns the in-memory layout of each session. Reads are served
// from memory; every committed mutation is handed to the Persister.
// Callers always receive copies.
type LayoutService struct {
	store     domain.LayoutStore
	persister *Persister
	emitter   EventEmitter
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	layouts map[Session]*domain.Layout
}

// NewLayoutService creates a LayoutService reading seeds from store and
// writing through persister.
func NewLayoutService(store domain.LayoutStore, persister *Persister, emitter EventEmitter) *LayoutService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &LayoutService{
		store:     store,
		persister: persister,
		emitter:   emitter,
		log:       slog.Default().With("component", "layout"),
		now:       time.Now,
		layouts:   make(map[Session]*domain.Layout),
	}
}

// GetLayout returns the layout of sess, loading it from storage or seeding
// it from the role default on first use. A seeded layout is persisted
// before it is returned.
func (s *LayoutService) GetLayout(ctx context.Context, sess Session) (domain.Layout, error) {
	if err := sess.validate(); err != nil {
		return domain.Layout{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, sess).Clone(), nil
}

// SetLayout replaces the widget sequence. Widgets are ordered by their
// Order field (ties keep input order) and renumbered densely.
func (s *LayoutService) SetLayout(ctx context.Context, sess Session, widgets []domain.WidgetDescriptor) (domain.Layout, error) {
	if err := sess.validate(); err != nil {
		return domain.Layout{}, err
	}
	if err := domain.ValidateWidgets(widgets); err != nil {
		return domain.Layout{}, err
	}
	next := slices.Clone(widgets)
	sortByOrder(next)
	renumber(next)

	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		l.Widgets = next
		pruneWidgetState(l)
		return true
	})
}

// Reorder moves widgetID to targetIndex. Unknown ids and moves back to the
// same index change nothing and write nothing.
func (s *LayoutService) Reorder(ctx context.Context, sess Session, widgetID string, targetIndex int) (domain.Layout, error) {
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		from := IndexOf(l.Widgets, widgetID)
		if from < 0 {
			return false
		}
		next, moved := MoveWidget(l.Widgets, from, targetIndex)
		if !moved {
			return false
		}
		l.Widgets = next
		return true
	})
}

// Resize changes the size of widgetID; an absent id is a no-op.
func (s *LayoutService) Resize(ctx context.Context, sess Session, widgetID string, size domain.WidgetSize) (domain.Layout, error) {
	if !size.Valid() {
		return domain.Layout{}, &domain.ValidationError{Field: "size", Reason: "unknown size " + string(size)}
	}
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		i := IndexOf(l.Widgets, widgetID)
		if i < 0 || l.Widgets[i].Size == size {
			return false
		}
		l.Widgets[i].Size = size
		return true
	})
}

// SetVisible shows or hides widgetID; an absent id is a no-op.
func (s *LayoutService) SetVisible(ctx context.Context, sess Session, widgetID string, visible bool) (domain.Layout, error) {
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		i := IndexOf(l.Widgets, widgetID)
		if i < 0 || l.Widgets[i].Visible == visible {
			return false
		}
		l.Widgets[i].Visible = visible
		return true
	})
}

// ResetToDefault discards the current layout, including collapsed state and
// widget settings, and re-seeds it from the role default.
func (s *LayoutService) ResetToDefault(ctx context.Context, sess Session) (domain.Layout, error) {
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		*l = s.seed(sess.Role, sess.Role)
		return true
	})
}

// ApplyPreset replaces the widgets with the default layout of another role.
func (s *LayoutService) ApplyPreset(ctx context.Context, sess Session, presetRole string) (domain.Layout, error) {
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		*l = s.seed(sess.Role, presetRole)
		return true
	})
}

// AddWidget appends a widget. An empty ID gets a generated one; the size
// defaults to md. New widgets are always visible.
func (s *LayoutService) AddWidget(ctx context.Context, sess Session, d domain.WidgetDescriptor) (domain.Layout, error) {
	if d.ID == "" {
		d.ID = d.Type + "-" + uuid.NewString()[:8]
	}
	if d.Size == "" {
		d.Size = domain.WidgetSizeMedium
	}
	d.Visible = true
	if err := domain.ValidateWidgets([]domain.WidgetDescriptor{d}); err != nil {
		return domain.Layout{}, err
	}

	var dup bool
	l, err := s.mutate(ctx, sess, func(l *domain.Layout) bool {
		if IndexOf(l.Widgets, d.ID) >= 0 {
			dup = true
			return false
		}
		d.Order = len(l.Widgets)
		l.Widgets = append(l.Widgets, d)
		return true
	})
	if err == nil && dup {
		return domain.Layout{}, &domain.ValidationError{Field: "id", Reason: "duplicate id " + d.ID}
	}
	return l, err
}

// RemoveWidget drops widgetID and renumbers the rest; an absent id is a no-op.
func (s *LayoutService) RemoveWidget(ctx context.Context, sess Session, widgetID string) (domain.Layout, error) {
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		i := IndexOf(l.Widgets, widgetID)
		if i < 0 {
			return false
		}
		l.Widgets = slices.Delete(l.Widgets, i, i+1)
		renumber(l.Widgets)
		pruneWidgetState(l)
		return true
	})
}

// ToggleCollapsed flips the collapsed flag of widgetID.
func (s *LayoutService) ToggleCollapsed(ctx context.Context, sess Session, widgetID string) (domain.Layout, error) {
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		if IndexOf(l.Widgets, widgetID) < 0 {
			return false
		}
		if i := slices.Index(l.Collapsed, widgetID); i >= 0 {
			l.Collapsed = slices.Delete(l.Collapsed, i, i+1)
		} else {
			l.Collapsed = append(l.Collapsed, widgetID)
		}
		return true
	})
}

// SetWidgetConfig merges cfg into the stored settings of widgetID.
func (s *LayoutService) SetWidgetConfig(ctx context.Context, sess Session, widgetID string, cfg domain.WidgetConfig) (domain.Layout, error) {
	return s.mutate(ctx, sess, func(l *domain.Layout) bool {
		if IndexOf(l.Widgets, widgetID) < 0 || len(cfg) == 0 {
			return false
		}
		if l.Configs == nil {
			l.Configs = make(map[string]domain.WidgetConfig)
		}
		cur := l.Configs[widgetID]
		if cur == nil {
			cur = domain.WidgetConfig{}
		}
		for k, v := range cfg {
			cur[k] = v
		}
		l.Configs[widgetID] = cur
		return true
	})
}

// WidgetConfig returns the settings of widgetID merged over the defaults
// of its type, or nil when the widget does not exist.
func (s *LayoutService) WidgetConfig(ctx context.Context, sess Session, widgetID string) (domain.WidgetConfig, error) {
	l, err := s.GetLayout(ctx, sess)
	if err != nil {
		return nil, err
	}
	i := IndexOf(l.Widgets, widgetID)
	if i < 0 {
		return nil, nil
	}
	return mergeConfig(l.Widgets[i].Type, l.Configs[widgetID]), nil
}

// Flush writes pending layouts immediately, e.g. on shutdown.
func (s *LayoutService) Flush(ctx context.Context) error {
	return s.persister.Flush(ctx)
}

// mutate applies fn to the session layout under the lock. fn reports
// whether it changed anything; only changes are committed.
func (s *LayoutService) mutate(ctx context.Context, sess Session, fn func(l *domain.Layout) bool) (domain.Layout, error) {
	if err := sess.validate(); err != nil {
		return domain.Layout{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.loadLocked(ctx, sess)
	next := cur.Clone()
	if !fn(&next) {
		return cur.Clone(), nil
	}
	next.UpdatedAt = s.now()
	s.layouts[sess] = &next

	out := next.Clone()
	s.persister.Schedule(sess, next.Clone())
	s.emitter.Emit(ctx, EventLayoutChanged, LayoutEvent{Session: sess, Layout: out})
	return out, nil
}

// loadLocked must be called with s.mu held.
func (s *LayoutService) loadLocked(ctx context.Context, sess Session) *domain.Layout {
	if l, ok := s.layouts[sess]; ok {
		return l
	}

	stored, err := s.store.LoadLayout(ctx, sess.Role, sess.Scope)
	if err != nil {
		s.log.Warn("load layout failed, serving default", "role", sess.Role, "scope", sess.Scope, "err", err)
		l := s.seed(sess.Role, sess.Role)
		s.layouts[sess] = &l
		return &l
	}
	if stored != nil {
		verr := stored.Validate()
		if verr == nil {
			l := stored.Clone()
			sortByOrder(l.Widgets)
			renumber(l.Widgets)
			s.layouts[sess] = &l
			return &l
		}
		s.log.Warn("stored layout invalid, re-seeding", "role", sess.Role, "scope", sess.Scope, "err", verr)
	}

	l := s.seed(sess.Role, sess.Role)
	s.layouts[sess] = &l
	if err := s.persister.SaveNow(ctx, sess, l.Clone()); err != nil {
		s.persister.Schedule(sess, l.Clone())
	}
	return &l
}

// seed builds the default layout of presetRole for a session of role.
func (s *LayoutService) seed(role, presetRole string) domain.Layout {
	return domain.Layout{
		Role:      role,
		Widgets:   DefaultLayoutFor(presetRole),
		UpdatedAt: s.now(),
	}
}

// sortByOrder sorts by Order; equal values keep their relative position.
func sortByOrder(widgets []domain.WidgetDescriptor) {
	slices.SortStableFunc(widgets, func(a, b domain.WidgetDescriptor) int { return cmp.Compare(a.Order, b.Order) })
}

// pruneWidgetState drops collapsed flags and settings of removed widgets.
func pruneWidgetState(l *domain.Layout) {
	l.Collapsed = slices.DeleteFunc(l.Collapsed, func(id string) bool { return IndexOf(l.Widgets, id) < 0 })
	for id := range l.Configs {
		if IndexOf(l.Widgets, id) < 0 {
			delete(l.Configs, id)
		}
	}
}
