package overview

import (
	"cmp"
	"slices"
	"strings"

	"opsdash/internal/domain"
)

// rawKinds maps event names emitted by upstream systems to feed kinds.
var rawKinds = map[string]domain.ActivityKind{
	"comment":         domain.ActivityComment,
	"comment_added":   domain.ActivityComment,
	"status_change":   domain.ActivityStatusChange,
	"status_changed":  domain.ActivityStatusChange,
	"task_updated":    domain.ActivityStatusChange,
	"ticket_updated":  domain.ActivityStatusChange,
	"attachment":      domain.ActivityAttachment,
	"file_uploaded":   domain.ActivityAttachment,
	"assignment":      domain.ActivityAssignment,
	"ticket_assigned": domain.ActivityAssignment,
	"task_assigned":   domain.ActivityAssignment,
	"completion":      domain.ActivityCompletion,
	"task_completed":  domain.ActivityCompletion,
	"ticket_resolved": domain.ActivityCompletion,
	"created":         domain.ActivityCreated,
	"project_created": domain.ActivityCreated,
	"ticket_created":  domain.ActivityCreated,
	"task_created":    domain.ActivityCreated,
}

// NormalizeActivityKind maps a raw event name to a feed kind; unknown names
// become "other".
func NormalizeActivityKind(raw string) domain.ActivityKind {
	if k, ok := rawKinds[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return k
	}
	return domain.ActivityOther
}

// Activity returns the most recent events first, tagged with a normalized
// kind and truncated to limit. The input slice is not modified.
func Activity(events []domain.ActivityEvent, limit int) []domain.ActivityEvent {
	out := make([]domain.ActivityEvent, len(events))
	for i, e := range events {
		e.Kind = NormalizeActivityKind(string(e.Kind))
		out[i] = e
	}
	slices.SortStableFunc(out, func(a, b domain.ActivityEvent) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return capped(out, limit)
}
