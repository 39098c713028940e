package overview

import (
	"math"

	"opsdash/internal/domain"

	"github.com/samber/lo"
)

// Load ratio thresholds.
const (
	busyRatio       = 0.70
	atCapacityRatio = 1.00
	overloadedRatio = 1.20
)

// LoadRatio is load/capacity. A member with no capacity is overloaded by
// any load and idle otherwise.
func LoadRatio(load, capacity float64) float64 {
	if capacity <= 0 {
		if load > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return load / capacity
}

// StatusForLoad maps a load ratio and the availability flag to exactly one
// status. NaN and negative ratios count as idle.
func StatusForLoad(ratio float64, away bool) domain.MemberStatus {
	if away {
		return domain.MemberAway
	}
	if math.IsNaN(ratio) {
		ratio = 0
	}
	switch {
	case ratio < busyRatio:
		return domain.MemberAvailable
	case ratio < atCapacityRatio:
		return domain.MemberBusy
	case ratio < overloadedRatio:
		return domain.MemberAtCapacity
	}
	return domain.MemberOverloaded
}

// Team derives each member's status and the header stats.
func Team(members []domain.TeamMember) domain.TeamStatus {
	out := lo.Map(members, func(m domain.TeamMember, _ int) domain.TeamMemberStatus {
		ratio := LoadRatio(m.Load, m.Capacity)
		return domain.TeamMemberStatus{
			ID:             m.ID,
			Name:           m.Name,
			Image:          m.Image,
			Status:         StatusForLoad(ratio, m.Away),
			LoadRatio:      finiteOrZero(ratio),
			ActiveTasks:    m.ActiveTasks,
			CompletedToday: m.CompletedToday,
		}
	})
	return domain.TeamStatus{Members: out, Stats: teamStats(out)}
}

func teamStats(members []domain.TeamMemberStatus) domain.TeamStats {
	count := func(statuses ...domain.MemberStatus) int {
		return lo.CountBy(members, func(m domain.TeamMemberStatus) bool { return lo.Contains(statuses, m.Status) })
	}
	stats := domain.TeamStats{
		Available:  count(domain.MemberAvailable),
		Busy:       count(domain.MemberBusy, domain.MemberAtCapacity),
		Overloaded: count(domain.MemberOverloaded),
		Away:       count(domain.MemberAway),
		TotalTasks: lo.SumBy(members, func(m domain.TeamMemberStatus) int { return m.ActiveTasks }),
	}
	if len(members) > 0 {
		stats.AvgTasks = math.Round(float64(stats.TotalTasks)/float64(len(members))*10) / 10
	}
	return stats
}

// finiteOrZero keeps +Inf out of JSON payloads.
func finiteOrZero(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}
