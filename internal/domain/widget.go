package domain

import (
	"context"
	"fmt"
	"time"
)

// WidgetSize is the grid footprint of a widget.
type WidgetSize string

const (
	WidgetSizeSmall  WidgetSize = "sm"
	WidgetSizeMedium WidgetSize = "md"
	WidgetSizeLarge  WidgetSize = "lg"
	WidgetSizeFull   WidgetSize = "full"
)

// Valid reports whether s is one of the known sizes.
func (s WidgetSize) Valid() bool {
	switch s {
	case WidgetSizeSmall, WidgetSizeMedium, WidgetSizeLarge, WidgetSizeFull:
		return true
	}
	return false
}

// Widget types known to the built-in registry.
const (
	WidgetMyWorkToday        = "my-work-today"
	WidgetUpcomingDeadlines  = "upcoming-deadlines"
	WidgetRecentActivity     = "recent-activity"
	WidgetCurrentSprint      = "current-sprint"
	WidgetOrganizationHealth = "organization-health"
	WidgetTeamStatus         = "team-status"
	WidgetBlockers           = "blockers"
	WidgetFinancialSnapshot  = "financial-snapshot"
	WidgetRiskIndicators     = "risk-indicators"
	WidgetCriticalAlerts     = "critical-alerts"
	WidgetCommunicationHub   = "communication-hub"
)

// WidgetDescriptor is one widget instance inside a layout.
type WidgetDescriptor struct {
	ID      string     `json:"id"`
	Type    string     `json:"type"`
	Size    WidgetSize `json:"size"`
	Order   int        `json:"order"`
	Visible bool       `json:"visible"`
}

// WidgetConfig holds per-widget display settings (maxItems, daysAhead, ...).
type WidgetConfig map[string]any

// Layout is the ordered, role-scoped set of widgets a user sees.
type Layout struct {
	Role      string                  `json:"role"`
	Widgets   []WidgetDescriptor      `json:"widgets"`
	Collapsed []string                `json:"collapsed,omitempty"`
	Configs   map[string]WidgetConfig `json:"configs,omitempty"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// Clone returns a deep copy so callers never alias store-owned state.
func (l Layout) Clone() Layout {
	out := l
	out.Widgets = append([]WidgetDescriptor(nil), l.Widgets...)
	out.Collapsed = append([]string(nil), l.Collapsed...)
	if l.Configs != nil {
		out.Configs = make(map[string]WidgetConfig, len(l.Configs))
		for id, cfg := range l.Configs {
			c := make(WidgetConfig, len(cfg))
			for k, v := range cfg {
				c[k] = v
			}
			out.Configs[id] = c
		}
	}
	return out
}

// IsCollapsed reports whether widget id is collapsed.
func (l Layout) IsCollapsed(id string) bool {
	for _, c := range l.Collapsed {
		if c == id {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants every stored layout must hold:
// a role, valid widgets and distinct order values.
func (l Layout) Validate() error {
	if l.Role == "" {
		return &ValidationError{Field: "role", Reason: "must not be empty"}
	}
	if err := ValidateWidgets(l.Widgets); err != nil {
		return err
	}
	orders := make(map[int]string, len(l.Widgets))
	for i, w := range l.Widgets {
		if other, clash := orders[w.Order]; clash {
			return &ValidationError{Field: fmt.Sprintf("widgets[%d].order", i), Reason: fmt.Sprintf("order %d already used by %q", w.Order, other)}
		}
		orders[w.Order] = w.ID
	}
	return nil
}

// ValidateWidgets rejects empty or duplicate ids, empty types and unknown sizes.
func ValidateWidgets(widgets []WidgetDescriptor) error {
	ids := make(map[string]struct{}, len(widgets))
	for i, w := range widgets {
		if w.ID == "" {
			return &ValidationError{Field: fmt.Sprintf("widgets[%d].id", i), Reason: "must not be empty"}
		}
		if _, dup := ids[w.ID]; dup {
			return &ValidationError{Field: fmt.Sprintf("widgets[%d].id", i), Reason: fmt.Sprintf("duplicate id %q", w.ID)}
		}
		ids[w.ID] = struct{}{}
		if w.Type == "" {
			return &ValidationError{Field: fmt.Sprintf("widgets[%d].type", i), Reason: "must not be empty"}
		}
		if !w.Size.Valid() {
			return &ValidationError{Field: fmt.Sprintf("widgets[%d].size", i), Reason: fmt.Sprintf("unknown size %q", w.Size)}
		}
	}
	return nil
}

// LayoutStore is the persistence boundary for layouts.
// LoadLayout returns (nil, nil) when nothing is stored for role+scope.
type LayoutStore interface {
	LoadLayout(ctx context.Context, role, scope string) (*Layout, error)
	SaveLayout(ctx context.Context, role, scope string, layout Layout) error
}
