package service

import "opsdash/internal/domain"

// DefaultRole is used for roles without a table of their own.
const DefaultRole = "developer"

func w(id, widgetType string, size domain.WidgetSize) domain.WidgetDescriptor {
	return domain.WidgetDescriptor{ID: id, Type: widgetType, Size: size, Visible: true}
}

var defaultLayouts = map[string][]domain.WidgetDescriptor{
	"admin": {
		w("org-health", domain.WidgetOrganizationHealth, domain.WidgetSizeMedium),
		w("critical-alerts", domain.WidgetCriticalAlerts, domain.WidgetSizeMedium),
		w("team-status", domain.WidgetTeamStatus, domain.WidgetSizeMedium),
		w("upcoming-deadlines", domain.WidgetUpcomingDeadlines, domain.WidgetSizeMedium),
		w("recent-activity", domain.WidgetRecentActivity, domain.WidgetSizeMedium),
		w("financial-snapshot", domain.WidgetFinancialSnapshot, domain.WidgetSizeMedium),
	},
	"pm": {
		w("org-health", domain.WidgetOrganizationHealth, domain.WidgetSizeMedium),
		w("critical-alerts", domain.WidgetCriticalAlerts, domain.WidgetSizeMedium),
		w("my-work-today", domain.WidgetMyWorkToday, domain.WidgetSizeMedium),
		w("team-status", domain.WidgetTeamStatus, domain.WidgetSizeMedium),
		w("current-sprint", domain.WidgetCurrentSprint, domain.WidgetSizeMedium),
		w("upcoming-deadlines", domain.WidgetUpcomingDeadlines, domain.WidgetSizeMedium),
	},
	"developer": {
		w("my-work-today", domain.WidgetMyWorkToday, domain.WidgetSizeLarge),
		w("current-sprint", domain.WidgetCurrentSprint, domain.WidgetSizeMedium),
		w("blockers", domain.WidgetBlockers, domain.WidgetSizeMedium),
		w("upcoming-deadlines", domain.WidgetUpcomingDeadlines, domain.WidgetSizeMedium),
		w("recent-activity", domain.WidgetRecentActivity, domain.WidgetSizeMedium),
	},
	"designer": {
		w("my-work-today", domain.WidgetMyWorkToday, domain.WidgetSizeLarge),
		w("current-sprint", domain.WidgetCurrentSprint, domain.WidgetSizeMedium),
		w("upcoming-deadlines", domain.WidgetUpcomingDeadlines, domain.WidgetSizeMedium),
		w("recent-activity", domain.WidgetRecentActivity, domain.WidgetSizeMedium),
	},
	"qa": {
		w("my-work-today", domain.WidgetMyWorkToday, domain.WidgetSizeLarge),
		w("current-sprint", domain.WidgetCurrentSprint, domain.WidgetSizeMedium),
		w("blockers", domain.WidgetBlockers, domain.WidgetSizeMedium),
		w("upcoming-deadlines", domain.WidgetUpcomingDeadlines, domain.WidgetSizeMedium),
	},
	"client": {
		w("upcoming-deadlines", domain.WidgetUpcomingDeadlines, domain.WidgetSizeMedium),
		w("financial-snapshot", domain.WidgetFinancialSnapshot, domain.WidgetSizeMedium),
		w("recent-activity", domain.WidgetRecentActivity, domain.WidgetSizeMedium),
	},
}

// DefaultLayoutFor returns a fresh copy of the default widgets for role.
func DefaultLayoutFor(role string) []domain.WidgetDescriptor {
	src, ok := defaultLayouts[role]
	if !ok {
		src = defaultLayouts[DefaultRole]
	}
	out := append([]domain.WidgetDescriptor(nil), src...)
	renumber(out)
	return out
}

// KnownRoles lists the roles with a default table of their own.
func KnownRoles() []string {
	return []string{"admin", "pm", "developer", "designer", "qa", "client"}
}

// defaultWidgetConfigs are merged under per-widget overrides.
var defaultWidgetConfigs = map[string]domain.WidgetConfig{
	domain.WidgetMyWorkToday: {
		"priorityFilter": "all",
		"maxItems":       10,
	},
	domain.WidgetRecentActivity: {
		"filterCategory": "all",
		"maxItems":       10,
	},
	domain.WidgetUpcomingDeadlines: {
		"daysAhead":     14,
		"deadlineTypes": []string{"task", "project"},
	},
	domain.WidgetOrganizationHealth: {
		"showTrends": true,
	},
	domain.WidgetTeamStatus: {
		"showUtilization": true,
	},
}

// mergeConfig overlays override on the defaults of widgetType.
func mergeConfig(widgetType string, override domain.WidgetConfig) domain.WidgetConfig {
	out := domain.WidgetConfig{}
	for k, v := range defaultWidgetConfigs[widgetType] {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
