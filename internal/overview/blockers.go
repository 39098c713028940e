package overview

import (
	"cmp"
	"math"
	"slices"
	"time"

	"opsdash/internal/domain"
)

const (
	reasonWaitingClient = "Waiting for client"
	reasonSLABreached   = "SLA breached"
	reasonBlocked       = "Blocked"
)

// Blockers lists blocked tickets and projects, most severe first, then
// longest blocked, truncated to limit.
func Blockers(tickets []domain.Ticket, projects []domain.Project, now time.Time, limit int) []domain.BlockerItem {
	items := make([]domain.BlockerItem, 0)
	for _, t := range tickets {
		if !t.IsBlocked() {
			continue
		}
		since := t.CreatedAt
		if t.BlockedSince != nil {
			since = *t.BlockedSince
		}
		sev := t.Priority
		if sev.Rank() == 0 {
			sev = domain.SeverityMedium
		}
		items = append(items, domain.BlockerItem{
			ID:          t.ID,
			Title:       t.Title,
			Source:      "ticket",
			Severity:    sev,
			ProjectName: t.ProjectName,
			DaysBlocked: DaysSince(since, now),
			Assignee:    t.AssigneeName,
			Reason:      ticketBlockReason(t),
		})
	}
	for _, p := range projects {
		if !p.Blocked {
			continue
		}
		var days int
		if p.BlockedSince != nil {
			days = DaysSince(*p.BlockedSince, now)
		}
		sev := p.Severity
		if sev.Rank() == 0 {
			sev = domain.SeverityHigh
		}
		reason := p.BlockedReason
		if reason == "" {
			reason = reasonBlocked
		}
		items = append(items, domain.BlockerItem{
			ID:          p.ID,
			Title:       p.Name,
			Source:      "project",
			Severity:    sev,
			ProjectName: p.Name,
			DaysBlocked: days,
			Reason:      reason,
		})
	}

	SortBlockers(items)
	return capped(items, limit)
}

// SortBlockers orders by severity rank desc, daysBlocked desc, then id.
func SortBlockers(items []domain.BlockerItem) {
	slices.SortStableFunc(items, func(a, b domain.BlockerItem) int {
		if c := cmp.Compare(b.Severity.Rank(), a.Severity.Rank()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.DaysBlocked, a.DaysBlocked); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func ticketBlockReason(t domain.Ticket) string {
	switch {
	case t.BlockedReason != "":
		return t.BlockedReason
	case t.Status == domain.TicketPendingClient:
		return reasonWaitingClient
	case t.SLABreached:
		return reasonSLABreached
	}
	return reasonBlocked
}

// DaysSince rounds the elapsed time up to whole days; never negative.
func DaysSince(since, now time.Time) int {
	d := now.Sub(since)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}
