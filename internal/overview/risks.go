package overview

import (
	"cmp"
	"slices"

	"opsdash/internal/domain"

	"github.com/samber/lo"
)

// Risks collects the open risk flags of projects into a summary. Counts
// cover every open risk; the list is ordered by severity, newest first
// within a severity, and truncated to limit.
func Risks(projects []domain.Project, limit int) domain.RiskSummary {
	items := make([]domain.RiskItem, 0)
	for _, p := range projects {
		for _, r := range p.Risks {
			if r.Resolved {
				continue
			}
			items = append(items, domain.RiskItem{
				ID:          r.ID,
				Category:    r.Category,
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Severity:    r.Severity,
				Description: r.Description,
				Impact:      r.Impact,
				Mitigation:  r.Mitigation,
				CreatedAt:   r.CreatedAt,
			})
		}
	}

	slices.SortStableFunc(items, func(a, b domain.RiskItem) int {
		if c := cmp.Compare(b.Severity.Rank(), a.Severity.Rank()); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	bySeverity := func(s domain.Severity) int {
		return lo.CountBy(items, func(r domain.RiskItem) bool { return r.Severity == s })
	}
	return domain.RiskSummary{
		Total:    len(items),
		Critical: bySeverity(domain.SeverityCritical),
		High:     bySeverity(domain.SeverityHigh),
		Medium:   bySeverity(domain.SeverityMedium),
		Low:      bySeverity(domain.SeverityLow),
		Risks:    capped(items, limit),
	}
}
