package overview

import (
	"opsdash/internal/domain"

	"github.com/samber/lo"
)

// ScopeTickets keeps the tickets whose project is visible to id.
func ScopeTickets(id domain.Identity, tickets []domain.Ticket) []domain.Ticket {
	return lo.Filter(tickets, func(t domain.Ticket, _ int) bool { return id.InScope(t.ProjectID) })
}

func ScopeProjects(id domain.Identity, projects []domain.Project) []domain.Project {
	return lo.Filter(projects, func(p domain.Project, _ int) bool { return id.InScope(p.ID) })
}

func ScopeSprints(id domain.Identity, sprints []domain.Sprint) []domain.Sprint {
	return lo.Filter(sprints, func(s domain.Sprint, _ int) bool { return id.InScope(s.ProjectID) })
}

func ScopeFinancial(id domain.Identity, records []domain.FinancialRecord) []domain.FinancialRecord {
	return lo.Filter(records, func(r domain.FinancialRecord, _ int) bool { return id.InScope(r.ProjectID) })
}

// ScopeActivity keeps events of visible projects and events not tied to any project.
func ScopeActivity(id domain.Identity, events []domain.ActivityEvent) []domain.ActivityEvent {
	return lo.Filter(events, func(e domain.ActivityEvent, _ int) bool {
		return e.ProjectID == "" || id.InScope(e.ProjectID)
	})
}
