package overview

import (
	"math"
	"time"

	"opsdash/internal/domain"

	"github.com/samber/lo"
)

// Budget thresholds in percent of the total budget.
const (
	budgetWarningPct  = 75
	budgetCriticalPct = 90
)

type periodTotals struct {
	revenue     float64
	paid        float64
	outstanding float64
	overdue     float64
}

// totalsFor reduces invoices for the period [start, end). Outstanding and
// overdue are measured as of end.
func totalsFor(records []domain.FinancialRecord, start, end time.Time) periodTotals {
	var t periodTotals
	for _, r := range records {
		if !r.IssuedAt.Before(start) && r.IssuedAt.Before(end) {
			t.revenue += r.Amount
		}
		if r.PaidAt != nil && !r.PaidAt.Before(start) && r.PaidAt.Before(end) {
			t.paid += r.Amount
		}
		if !r.IssuedAt.Before(end) {
			continue
		}
		if r.PaidAt != nil && r.PaidAt.Before(end) {
			continue
		}
		t.outstanding += r.Amount
		if r.DueAt != nil && r.DueAt.Before(end) {
			t.overdue += r.Amount
		}
	}
	return t
}

// Financial builds the financial snapshot for the month containing now,
// compared with the previous month. No records yields an empty section so
// "no data" stays distinguishable from zero. projects may be nil when the
// project source is unavailable; the budget bar is then omitted.
func Financial(records []domain.FinancialRecord, projects []domain.Project, now time.Time) domain.Section[domain.FinancialSnapshot] {
	if len(records) == 0 {
		return domain.Empty[domain.FinancialSnapshot]("no financial data")
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart := monthStart.AddDate(0, -1, 0)
	// Inclusive of records stamped exactly at now.
	cur := totalsFor(records, monthStart, now.Add(time.Nanosecond))
	prev := totalsFor(records, prevStart, monthStart)

	snap := domain.FinancialSnapshot{
		Revenue:       metric("revenue", "Monthly Revenue", cur.revenue, prev.revenue),
		Outstanding:   metric("outstanding", "Outstanding", cur.outstanding, prev.outstanding),
		Overdue:       metric("overdue", "Overdue", cur.overdue, prev.overdue),
		PaidThisMonth: metric("paid", "Paid This Month", cur.paid, prev.paid),
	}
	if projects != nil {
		snap.Budget = Budget(projects)
	}
	return domain.Ready(snap)
}

func metric(id, label string, value, previous float64) domain.Metric {
	change := ChangePercent(value, previous)
	return domain.Metric{
		ID:     id,
		Label:  label,
		Value:  value,
		Change: change,
		Trend:  domain.TrendOf(change),
		Format: domain.FormatCurrency,
	}
}

// ChangePercent is the relative change from previous to current, rounded
// to one decimal. From a zero baseline any increase counts as +100%.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		switch {
		case current > 0:
			return 100
		case current < 0:
			return -100
		}
		return 0
	}
	pct := (current - previous) / math.Abs(previous) * 100
	return math.Round(pct*10) / 10
}

// Budget sums used and total budget over projects. Returns nil when no
// project has a budget.
func Budget(projects []domain.Project) *domain.BudgetProgress {
	withBudget := lo.Filter(projects, func(p domain.Project, _ int) bool { return p.BudgetTotal > 0 })
	if len(withBudget) == 0 {
		return nil
	}
	used := lo.SumBy(withBudget, func(p domain.Project) float64 { return p.BudgetUsed })
	total := lo.SumBy(withBudget, func(p domain.Project) float64 { return p.BudgetTotal })
	ratio := BudgetRatio(used, total)
	return &domain.BudgetProgress{
		Used:  used,
		Total: total,
		Ratio: ratio,
		Level: BudgetLevelFor(ratio * 100),
	}
}

// BudgetRatio guards the zero total.
func BudgetRatio(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used / total
}

// BudgetLevelFor maps a used-budget percentage to its display level.
func BudgetLevelFor(pct float64) domain.BudgetLevel {
	switch {
	case pct > budgetCriticalPct:
		return domain.BudgetCritical
	case pct > budgetWarningPct:
		return domain.BudgetWarning
	}
	return domain.BudgetNormal
}
