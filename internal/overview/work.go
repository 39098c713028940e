package overview

import (
	"cmp"
	"slices"
	"time"

	"opsdash/internal/domain"

	"github.com/samber/lo"
)

// MyWork lists the open and in-progress tickets assigned to userID:
// highest priority first, then soonest due.
func MyWork(tickets []domain.Ticket, userID string, limit int) []domain.MyWorkTask {
	mine := lo.Filter(tickets, func(t domain.Ticket, _ int) bool {
		return t.AssigneeID == userID && (t.Status == domain.TicketOpen || t.Status == domain.TicketInProgress)
	})
	slices.SortStableFunc(mine, func(a, b domain.Ticket) int {
		if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
			return c
		}
		if c := compareDue(a.DueAt, b.DueAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	mine = capped(mine, limit)
	return lo.Map(mine, func(t domain.Ticket, _ int) domain.MyWorkTask {
		return domain.MyWorkTask{
			ID:               t.ID,
			Number:           t.Number,
			Title:            t.Title,
			Priority:         t.Priority,
			Status:           t.Status,
			DueAt:            t.DueAt,
			ProjectName:      t.ProjectName,
			IsBlocked:        t.IsBlocked(),
			EstimatedMinutes: t.EstimatedMinutes,
		}
	})
}

// compareDue sorts missing due dates last.
func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

// Deadlines lists unfinished tickets and active projects due within the
// next days, soonest first.
func Deadlines(tickets []domain.Ticket, projects []domain.Project, now time.Time, days, limit int) []domain.DeadlineItem {
	horizon := now.AddDate(0, 0, days)
	within := func(due *time.Time) bool {
		return due != nil && !due.Before(now) && !due.After(horizon)
	}

	items := make([]domain.DeadlineItem, 0)
	for _, t := range tickets {
		if t.Status.Done() || !within(t.DueAt) {
			continue
		}
		items = append(items, domain.DeadlineItem{
			ID:          t.ID,
			Title:       t.Title,
			DueAt:       *t.DueAt,
			Kind:        "task",
			ProjectName: t.ProjectName,
			Priority:    t.Priority,
			DaysUntil:   DaysSince(now, *t.DueAt),
		})
	}
	for _, p := range projects {
		if !p.Active || !within(p.DueAt) {
			continue
		}
		items = append(items, domain.DeadlineItem{
			ID:          p.ID,
			Title:       p.Name,
			DueAt:       *p.DueAt,
			Kind:        "project",
			ProjectName: p.Name,
			DaysUntil:   DaysSince(now, *p.DueAt),
		})
	}
	slices.SortStableFunc(items, func(a, b domain.DeadlineItem) int {
		if c := a.DueAt.Compare(b.DueAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return capped(items, limit)
}
