package plugins

import (
	"opsdash/internal/domain"
	"opsdash/internal/service"

	"github.com/samber/lo"
)

// ─────────────────────────────────────────────────────────────
// Built-in widget renderers
// ─────────────────────────────────────────────────────────────

// RegisterBuiltins binds every built-in widget type. Call once at startup,
// before the registry is shared.
func RegisterBuiltins(r *service.WidgetRegistry) {
	r.Register(domain.WidgetMyWorkToday, sectionRenderer(domain.WidgetMyWorkToday,
		func(d *domain.OverviewData) domain.Section[[]domain.MyWorkTask] { return d.MyWork },
		func(tasks []domain.MyWorkTask, cfg domain.WidgetConfig) any {
			if filter := stringOption(cfg, "priorityFilter", "all"); filter != "all" {
				tasks = lo.Filter(tasks, func(t domain.MyWorkTask, _ int) bool { return string(t.Priority) == filter })
			}
			return limit(tasks, intOption(cfg, "maxItems", 0))
		}))

	r.Register(domain.WidgetRecentActivity, sectionRenderer(domain.WidgetRecentActivity,
		func(d *domain.OverviewData) domain.Section[[]domain.ActivityEvent] { return d.Activity },
		func(events []domain.ActivityEvent, cfg domain.WidgetConfig) any {
			if cat := stringOption(cfg, "filterCategory", "all"); cat != "all" {
				events = lo.Filter(events, func(e domain.ActivityEvent, _ int) bool { return matchesCategory(e, cat) })
			}
			return limit(events, intOption(cfg, "maxItems", 0))
		}))

	r.Register(domain.WidgetCommunicationHub, sectionRenderer(domain.WidgetCommunicationHub,
		func(d *domain.OverviewData) domain.Section[[]domain.ActivityEvent] { return d.Activity },
		func(events []domain.ActivityEvent, cfg domain.WidgetConfig) any {
			comments := lo.Filter(events, func(e domain.ActivityEvent, _ int) bool { return e.Kind == domain.ActivityComment })
			return limit(comments, intOption(cfg, "maxItems", 0))
		}))

	r.Register(domain.WidgetUpcomingDeadlines, sectionRenderer(domain.WidgetUpcomingDeadlines,
		func(d *domain.OverviewData) domain.Section[[]domain.DeadlineItem] { return d.Deadlines },
		func(items []domain.DeadlineItem, cfg domain.WidgetConfig) any {
			if kinds := stringsOption(cfg, "deadlineTypes"); kinds != nil {
				items = lo.Filter(items, func(it domain.DeadlineItem, _ int) bool { return lo.Contains(kinds, it.Kind) })
			}
			days := intOption(cfg, "daysAhead", 0)
			if days <= 0 {
				return items
			}
			return lo.Filter(items, func(it domain.DeadlineItem, _ int) bool { return it.DaysUntil <= days })
		}))

	r.Register(domain.WidgetCurrentSprint, sectionRenderer(domain.WidgetCurrentSprint,
		func(d *domain.OverviewData) domain.Section[domain.SprintSnapshot] { return d.Sprint }, passThrough[domain.SprintSnapshot]))

	r.Register(domain.WidgetOrganizationHealth, sectionRenderer(domain.WidgetOrganizationHealth,
		func(d *domain.OverviewData) domain.Section[[]domain.OrganizationMetric] { return d.OrgHealth },
		func(metrics []domain.OrganizationMetric, cfg domain.WidgetConfig) any {
			if boolOption(cfg, "showTrends", true) {
				return metrics
			}
			return lo.Map(metrics, func(m domain.OrganizationMetric, _ int) domain.OrganizationMetric {
				m.Trend = ""
				return m
			})
		}))

	r.Register(domain.WidgetTeamStatus, sectionRenderer(domain.WidgetTeamStatus,
		func(d *domain.OverviewData) domain.Section[domain.TeamStatus] { return d.Team },
		func(team domain.TeamStatus, cfg domain.WidgetConfig) any {
			if boolOption(cfg, "showUtilization", true) {
				return team
			}
			members := lo.Map(team.Members, func(m domain.TeamMemberStatus, _ int) domain.TeamMemberStatus {
				m.LoadRatio = 0
				return m
			})
			return domain.TeamStatus{Members: members, Stats: team.Stats}
		}))

	r.Register(domain.WidgetBlockers, sectionRenderer(domain.WidgetBlockers,
		func(d *domain.OverviewData) domain.Section[[]domain.BlockerItem] { return d.Blockers }, passThrough[[]domain.BlockerItem]))

	r.Register(domain.WidgetFinancialSnapshot, sectionRenderer(domain.WidgetFinancialSnapshot,
		func(d *domain.OverviewData) domain.Section[domain.FinancialSnapshot] { return d.Financial }, passThrough[domain.FinancialSnapshot]))

	r.Register(domain.WidgetRiskIndicators, sectionRenderer(domain.WidgetRiskIndicators,
		func(d *domain.OverviewData) domain.Section[domain.RiskSummary] { return d.Risks }, passThrough[domain.RiskSummary]))

	r.Register(domain.WidgetCriticalAlerts, sectionRenderer(domain.WidgetCriticalAlerts,
		func(d *domain.OverviewData) domain.Section[[]domain.CriticalAlert] { return d.Alerts }, passThrough[[]domain.CriticalAlert]))
}

// sectionRenderer renders one overview section; shape runs only when the
// section carries data.
func sectionRenderer[T any](
	widgetType string,
	pick func(*domain.OverviewData) domain.Section[T],
	shape func(T, domain.WidgetConfig) any,
) service.RenderCapability {
	return service.RenderFunc(func(d *domain.OverviewData, cfg domain.WidgetConfig) service.WidgetView {
		if d == nil {
			return service.WidgetView{Type: widgetType, Status: domain.SectionUnavailable, Reason: "no overview data"}
		}
		sec := pick(d)
		view := service.WidgetView{Type: widgetType, Status: sec.Status, Reason: sec.Reason}
		if sec.Status == domain.SectionReady {
			view.Data = shape(sec.Data, cfg)
		}
		return view
	})
}

func passThrough[T any](v T, _ domain.WidgetConfig) any { return v }

func matchesCategory(e domain.ActivityEvent, category string) bool {
	switch category {
	case "comments":
		return e.Kind == domain.ActivityComment
	case "files":
		return e.Kind == domain.ActivityAttachment
	case "tickets":
		return e.EntityType == "ticket"
	case "projects":
		return e.EntityType == "project"
	case "clients":
		return e.EntityType == "client"
	}
	return true
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// Options arrive as Go values from defaults or as JSON numbers from clients.
func intOption(cfg domain.WidgetConfig, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func stringOption(cfg domain.WidgetConfig, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

// stringsOption returns nil when key is unset, so an explicit empty list
// filters everything out.
func stringsOption(cfg domain.WidgetConfig, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func boolOption(cfg domain.WidgetConfig, key string, def bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return def
}
