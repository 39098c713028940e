// Package overview reduces raw domain records into the small, widget-ready
// view models of the dashboard overview. Every function here is pure: the
// caller passes the reference time and the limits.
package overview

// Limits bounds the list-shaped view models.
type Limits struct {
	Blockers     int `json:"blockers" mapstructure:"blocker_limit"`
	Risks        int `json:"risks" mapstructure:"risk_limit"`
	Activity     int `json:"activity" mapstructure:"activity_limit"`
	Deadlines    int `json:"deadlines" mapstructure:"deadline_limit"`
	DeadlineDays int `json:"deadlineDays" mapstructure:"deadline_days"`
	MyWork       int `json:"myWork" mapstructure:"my_work_limit"`
}

// DefaultLimits keeps every widget glanceable.
func DefaultLimits() Limits {
	return Limits{
		Blockers:     5,
		Risks:        5,
		Activity:     20,
		Deadlines:    5,
		DeadlineDays: 14,
		MyWork:       10,
	}
}

// Normalized replaces zero or negative limits with the defaults, so every
// list stays bounded.
func (l Limits) Normalized() Limits {
	d := DefaultLimits()
	pick := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}
	return Limits{
		Blockers:     pick(l.Blockers, d.Blockers),
		Risks:        pick(l.Risks, d.Risks),
		Activity:     pick(l.Activity, d.Activity),
		Deadlines:    pick(l.Deadlines, d.Deadlines),
		DeadlineDays: pick(l.DeadlineDays, d.DeadlineDays),
		MyWork:       pick(l.MyWork, d.MyWork),
	}
}

// capped truncates s to n items; n <= 0 means no cap.
func capped[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
