package overview_test

import (
	"fmt"
	"testing"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/overview"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) *time.Time {
	t := now.Add(-time.Duration(d) * 24 * time.Hour)
	return &t
}

func blockedTicket(id string, sev domain.Severity, days int) domain.Ticket {
	return domain.Ticket{
		ID:           id,
		Title:        "ticket " + id,
		Status:       domain.TicketInProgress,
		Priority:     sev,
		Blocked:      true,
		BlockedSince: daysAgo(days),
		CreatedAt:    now.AddDate(0, -1, 0),
	}
}

func TestBlockers_SeverityThenDays(t *testing.T) {
	tickets := []domain.Ticket{
		blockedTicket("a", domain.SeverityMedium, 1),
		blockedTicket("b", domain.SeverityCritical, 3),
		blockedTicket("c", domain.SeverityHigh, 2),
	}

	got := overview.Blockers(tickets, nil, now, 5)

	require.Len(t, got, 3)
	assert.Equal(t, domain.SeverityCritical, got[0].Severity)
	assert.Equal(t, 3, got[0].DaysBlocked)
	assert.Equal(t, domain.SeverityHigh, got[1].Severity)
	assert.Equal(t, 2, got[1].DaysBlocked)
	assert.Equal(t, domain.SeverityMedium, got[2].Severity)
	assert.Equal(t, 1, got[2].DaysBlocked)
}

func TestBlockers_SameSeverityLongestFirst(t *testing.T) {
	tickets := []domain.Ticket{
		blockedTicket("x", domain.SeverityHigh, 1),
		blockedTicket("y", domain.SeverityHigh, 9),
		blockedTicket("z", domain.SeverityHigh, 4),
	}

	got := overview.Blockers(tickets, nil, now, 0)

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"y", "z", "x"}, ids)
}

func TestBlockers_Capped(t *testing.T) {
	var tickets []domain.Ticket
	for i := range 8 {
		tickets = append(tickets, blockedTicket(fmt.Sprintf("t%d", i), domain.SeverityHigh, i))
	}

	got := overview.Blockers(tickets, nil, now, 5)

	require.Len(t, got, 5)
	assert.Equal(t, 7, got[0].DaysBlocked)
}

func TestBlockers_ReasonsAndFilters(t *testing.T) {
	tickets := []domain.Ticket{
		{ID: "client", Status: domain.TicketPendingClient, Priority: domain.SeverityHigh, CreatedAt: *daysAgo(2)},
		{ID: "sla", Status: domain.TicketOpen, Priority: domain.SeverityCritical, SLABreached: true, CreatedAt: *daysAgo(1)},
		{ID: "done", Status: domain.TicketResolved, Blocked: true, CreatedAt: *daysAgo(1)},
		{ID: "fine", Status: domain.TicketOpen, CreatedAt: *daysAgo(1)},
	}
	projects := []domain.Project{
		{ID: "p1", Name: "Acme Redesign", Blocked: true, BlockedSince: daysAgo(5)},
		{ID: "p2", Name: "Healthy"},
	}

	got := overview.Blockers(tickets, projects, now, 0)

	require.Len(t, got, 3)
	assert.Equal(t, "sla", got[0].ID)
	assert.Equal(t, "SLA breached", got[0].Reason)
	assert.Equal(t, "p1", got[1].ID)
	assert.Equal(t, "project", got[1].Source)
	assert.Equal(t, domain.SeverityHigh, got[1].Severity)
	assert.Equal(t, "client", got[2].ID)
	assert.Equal(t, "Waiting for client", got[2].Reason)
}

func TestDaysSince_RoundsUp(t *testing.T) {
	assert.Equal(t, 0, overview.DaysSince(now, now))
	assert.Equal(t, 1, overview.DaysSince(now.Add(-time.Hour), now))
	assert.Equal(t, 2, overview.DaysSince(now.Add(-25*time.Hour), now))
	assert.Equal(t, 0, overview.DaysSince(now.Add(time.Hour), now))
}

// ─────────────────────────────────────────────────────────────
// Risks
// ─────────────────────────────────────────────────────────────

func TestRisks_SummaryAndOrder(t *testing.T) {
	projects := []domain.Project{
		{ID: "p1", Name: "Acme", Risks: []domain.RiskFlag{
			{ID: "r1", Category: domain.RiskSchedule, Severity: domain.SeverityHigh, CreatedAt: now.AddDate(0, 0, -3)},
			{ID: "r2", Category: domain.RiskResource, Severity: domain.SeverityLow, CreatedAt: now},
			{ID: "r3", Category: domain.RiskBudget, Severity: domain.SeverityHigh, CreatedAt: now.AddDate(0, 0, -1)},
		}},
		{ID: "p2", Name: "TechCorp", Risks: []domain.RiskFlag{
			{ID: "r4", Category: domain.RiskQuality, Severity: domain.SeverityCritical, CreatedAt: now},
			{ID: "r5", Category: domain.RiskScope, Severity: domain.SeverityMedium, Resolved: true},
		}},
	}

	got := overview.Risks(projects, 3)

	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 1, got.Critical)
	assert.Equal(t, 2, got.High)
	assert.Equal(t, 0, got.Medium)
	assert.Equal(t, 1, got.Low)
	require.Len(t, got.Risks, 3)
	assert.Equal(t, "r4", got.Risks[0].ID)
	assert.Equal(t, "TechCorp", got.Risks[0].ProjectName)
	assert.Equal(t, "r3", got.Risks[1].ID)
	assert.Equal(t, "r1", got.Risks[2].ID)
}
