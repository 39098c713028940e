package service

import (
	"log/slog"
	"sort"
	"sync"

	"opsdash/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Widget registry: widget type → render capability
// ─────────────────────────────────────────────────────────────

// WidgetView is what one resolved widget hands to the rendering layer.
type WidgetView struct {
	Type        string               `json:"type"`
	Status      domain.SectionStatus `json:"status,omitempty"`
	Data        any                  `json:"data,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Placeholder bool                 `json:"placeholder,omitempty"`
	Message     string               `json:"message,omitempty"`
}

// RenderCapability turns an overview snapshot into the view of one widget.
type RenderCapability interface {
	Render(data *domain.OverviewData, cfg domain.WidgetConfig) WidgetView
}

// RenderFunc adapts a plain function to RenderCapability.
type RenderFunc func(data *domain.OverviewData, cfg domain.WidgetConfig) WidgetView

func (f RenderFunc) Render(data *domain.OverviewData, cfg domain.WidgetConfig) WidgetView {
	return f(data, cfg)
}

// Fallback returns the placeholder capability for an unknown widget type.
// It closes over widgetType so the placeholder can name it.
func Fallback(widgetType string) RenderCapability {
	return RenderFunc(func(*domain.OverviewData, domain.WidgetConfig) WidgetView {
		return WidgetView{
			Type:        widgetType,
			Placeholder: true,
			Message:     widgetType + ": widget coming soon",
		}
	})
}

// WidgetRegistry maps widget types to render capabilities. Entries are
// registered during startup; Resolve is safe for concurrent use.
type WidgetRegistry struct {
	mu      sync.RWMutex
	entries map[string]RenderCapability

	missMu sync.Mutex
	misses map[string]int
	log    *slog.Logger
}

// NewWidgetRegistry creates an empty registry.
func NewWidgetRegistry() *WidgetRegistry {
	return &WidgetRegistry{
		entries: make(map[string]RenderCapability),
		misses:  make(map[string]int),
		log:     slog.Default().With("component", "registry"),
	}
}

// Register binds widgetType to c. Re-registering a type replaces the
// previous entry.
func (r *WidgetRegistry) Register(widgetType string, c RenderCapability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[widgetType] = c
}

// Resolve never fails: unknown types get the Fallback capability and the
// miss is recorded.
func (r *WidgetRegistry) Resolve(widgetType string) RenderCapability {
	r.mu.RLock()
	c, ok := r.entries[widgetType]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.missMu.Lock()
	r.misses[widgetType]++
	first := r.misses[widgetType] == 1
	r.missMu.Unlock()
	if first {
		r.log.Warn("unknown widget type", "type", widgetType)
	}
	return Fallback(widgetType)
}

// Has reports whether widgetType is registered.
func (r *WidgetRegistry) Has(widgetType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[widgetType]
	return ok
}

// Types lists the registered widget types in sorted order.
func (r *WidgetRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Misses returns how often each unknown type was resolved.
func (r *WidgetRegistry) Misses() map[string]int {
	r.missMu.Lock()
	defer r.missMu.Unlock()
	out := make(map[string]int, len(r.misses))
	for t, n := range r.misses {
		out[t] = n
	}
	return out
}
