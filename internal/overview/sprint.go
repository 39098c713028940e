package overview

import (
	"cmp"
	"math"
	"slices"
	"time"

	"opsdash/internal/domain"
)

// onTrackTolerance is how far progress may lag the elapsed-time share.
const onTrackTolerance = 0.10

// Progress is completed/planned, 0 when nothing is planned.
func Progress(completed, planned int) float64 {
	if planned <= 0 {
		return 0
	}
	return float64(completed) / float64(planned)
}

// ActiveSprint picks the active sprint with the latest start date; ties go
// to the smallest id so the choice is stable.
func ActiveSprint(sprints []domain.Sprint) (domain.Sprint, bool) {
	active := make([]domain.Sprint, 0, len(sprints))
	for _, s := range sprints {
		if s.Status == domain.SprintActive {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return domain.Sprint{}, false
	}
	slices.SortStableFunc(active, func(a, b domain.Sprint) int {
		if c := startOf(b).Compare(startOf(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return active[0], true
}

func startOf(s domain.Sprint) time.Time {
	if s.StartDate == nil {
		return time.Time{}
	}
	return *s.StartDate
}

// Sprint builds the sprint widget model from the sprints in scope.
func Sprint(sprints []domain.Sprint, now time.Time) domain.Section[domain.SprintSnapshot] {
	s, ok := ActiveSprint(sprints)
	if !ok {
		return domain.Empty[domain.SprintSnapshot]("no active sprint")
	}

	progress := Progress(s.CompletedPoints, s.PlannedPoints)
	expected := expectedProgress(s, now)
	snap := domain.SprintSnapshot{
		ID:               s.ID,
		Name:             s.Name,
		ProjectName:      s.ProjectName,
		StartDate:        s.StartDate,
		EndDate:          s.EndDate,
		PlannedPoints:    s.PlannedPoints,
		CompletedPoints:  s.CompletedPoints,
		Progress:         progress,
		ExpectedProgress: expected,
		OnTrack:          progress >= expected-onTrackTolerance,
		TotalTasks:       s.TotalTasks,
		CompletedTasks:   s.CompletedTasks,
		InProgressTasks:  s.InProgressTasks,
		BlockedTasks:     s.BlockedTasks,
	}
	if s.EndDate != nil {
		snap.DaysRemaining = DaysSince(now, *s.EndDate)
	}
	return domain.Ready(snap)
}

// expectedProgress is the elapsed share of the sprint window in [0, 1].
func expectedProgress(s domain.Sprint, now time.Time) float64 {
	if s.StartDate == nil || s.EndDate == nil {
		return 0
	}
	total := s.EndDate.Sub(*s.StartDate)
	if total <= 0 {
		return 1
	}
	elapsed := now.Sub(*s.StartDate)
	return math.Min(1, math.Max(0, float64(elapsed)/float64(total)))
}
