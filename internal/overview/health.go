package overview

import (
	"math"

	"opsdash/internal/domain"

	"github.com/samber/lo"
)

const openTicketsWarning = 20

// OrgHealth summarises ticket flow and, when members is non-nil, team
// utilisation as a percentage of capacity.
func OrgHealth(tickets []domain.Ticket, members []domain.TeamMember) []domain.OrganizationMetric {
	open := lo.CountBy(tickets, func(t domain.Ticket) bool { return !t.Status.Done() })
	resolved := lo.CountBy(tickets, func(t domain.Ticket) bool { return t.Status.Done() })
	critical := lo.CountBy(tickets, func(t domain.Ticket) bool {
		return !t.Status.Done() && t.Priority == domain.SeverityCritical
	})

	metrics := []domain.OrganizationMetric{
		{
			ID:     "open-tickets",
			Label:  "Open Tickets",
			Value:  float64(open),
			Trend:  domain.TrendStable,
			Status: lo.Ternary(open > openTicketsWarning, domain.HealthWarning, domain.HealthGood),
		},
		{
			ID:     "resolved",
			Label:  "Resolved",
			Value:  float64(resolved),
			Trend:  domain.TrendUp,
			Status: domain.HealthGood,
		},
		{
			ID:     "critical-issues",
			Label:  "Critical",
			Value:  float64(critical),
			Trend:  lo.Ternary(critical > 0, domain.TrendDown, domain.TrendStable),
			Status: lo.Ternary(critical > 0, domain.HealthCritical, domain.HealthGood),
		},
	}

	if members != nil {
		present := lo.Filter(members, func(m domain.TeamMember, _ int) bool { return !m.Away })
		load := lo.SumBy(present, func(m domain.TeamMember) float64 { return m.Load })
		capacity := lo.SumBy(present, func(m domain.TeamMember) float64 { return m.Capacity })
		util := math.Round(finiteOrZero(LoadRatio(load, capacity)) * 100)
		status := domain.HealthGood
		switch {
		case util > 100:
			status = domain.HealthCritical
		case util > 85:
			status = domain.HealthWarning
		}
		metrics = append(metrics, domain.OrganizationMetric{
			ID:     "team-utilization",
			Label:  "Utilization",
			Value:  util,
			Trend:  domain.TrendStable,
			Status: status,
		})
	}
	return metrics
}

// CriticalAlerts merges the critical blockers and critical risks.
func CriticalAlerts(blockers []domain.BlockerItem, risks []domain.RiskItem) []domain.CriticalAlert {
	alerts := make([]domain.CriticalAlert, 0)
	for _, b := range blockers {
		if b.Severity != domain.SeverityCritical {
			continue
		}
		alerts = append(alerts, domain.CriticalAlert{
			ID:          "blocker-" + b.ID,
			Kind:        "blocker",
			Title:       b.Title,
			ProjectName: b.ProjectName,
			Detail:      b.Reason,
		})
	}
	for _, r := range risks {
		if r.Severity != domain.SeverityCritical {
			continue
		}
		alerts = append(alerts, domain.CriticalAlert{
			ID:          "risk-" + r.ID,
			Kind:        "risk",
			Title:       r.Description,
			ProjectName: r.ProjectName,
			Detail:      r.Impact,
		})
	}
	return alerts
}
