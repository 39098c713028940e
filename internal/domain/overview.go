package domain

import "time"

// SectionStatus distinguishes real data from "nothing to show" and from
// "could not compute", so zero and unknown never look alike.
type SectionStatus string

const (
	SectionReady       SectionStatus = "ready"
	SectionEmpty       SectionStatus = "empty"
	SectionUnavailable SectionStatus = "unavailable"
)

// Section wraps one independently computed part of OverviewData.
type Section[T any] struct {
	Status SectionStatus `json:"status"`
	Data   T             `json:"data"`
	Reason string        `json:"reason,omitempty"`
}

func Ready[T any](data T) Section[T] {
	return Section[T]{Status: SectionReady, Data: data}
}

func Empty[T any](reason string) Section[T] {
	return Section[T]{Status: SectionEmpty, Reason: reason}
}

func Unavailable[T any](err error) Section[T] {
	s := Section[T]{Status: SectionUnavailable}
	if err != nil {
		s.Reason = err.Error()
	}
	return s
}

// Available reports whether the section carries data.
func (s Section[T]) Available() bool { return s.Status == SectionReady }

// Trend is the direction of a metric against the previous period.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// TrendOf maps a change percentage to its direction.
func TrendOf(change float64) Trend {
	switch {
	case change > 0:
		return TrendUp
	case change < 0:
		return TrendDown
	}
	return TrendStable
}

type MetricFormat string

const (
	FormatCurrency MetricFormat = "currency"
	FormatNumber   MetricFormat = "number"
	FormatPercent  MetricFormat = "percent"
)

// Metric is a named value with its change against the previous period.
type Metric struct {
	ID     string       `json:"id"`
	Label  string       `json:"label"`
	Value  float64      `json:"value"`
	Change float64      `json:"change"`
	Trend  Trend        `json:"trend"`
	Format MetricFormat `json:"format"`
}

type BudgetLevel string

const (
	BudgetNormal   BudgetLevel = "normal"
	BudgetWarning  BudgetLevel = "warning"
	BudgetCritical BudgetLevel = "critical"
)

// BudgetProgress drives the project budget progress bar.
type BudgetProgress struct {
	Used  float64     `json:"used"`
	Total float64     `json:"total"`
	Ratio float64     `json:"ratio"`
	Level BudgetLevel `json:"level"`
}

type FinancialSnapshot struct {
	Revenue       Metric          `json:"revenue"`
	Outstanding   Metric          `json:"outstanding"`
	Overdue       Metric          `json:"overdue"`
	PaidThisMonth Metric          `json:"paidThisMonth"`
	Budget        *BudgetProgress `json:"budget,omitempty"`
}

// BlockerItem is one row of the blockers widget.
type BlockerItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Source      string   `json:"source"` // "ticket" | "project"
	Severity    Severity `json:"severity"`
	ProjectName string   `json:"projectName"`
	DaysBlocked int      `json:"daysBlocked"`
	Assignee    string   `json:"assignee,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

type RiskItem struct {
	ID          string       `json:"id"`
	Category    RiskCategory `json:"category"`
	ProjectID   string       `json:"projectId"`
	ProjectName string       `json:"projectName"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	Impact      string       `json:"impact"`
	Mitigation  string       `json:"mitigation,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// RiskSummary counts every open risk in scope; Risks is capped.
type RiskSummary struct {
	Total    int        `json:"total"`
	Critical int        `json:"critical"`
	High     int        `json:"high"`
	Medium   int        `json:"medium"`
	Low      int        `json:"low"`
	Risks    []RiskItem `json:"risks"`
}

type SprintSnapshot struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	ProjectName      string     `json:"projectName"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	PlannedPoints    int        `json:"plannedPoints"`
	CompletedPoints  int        `json:"completedPoints"`
	Progress         float64    `json:"progress"`
	ExpectedProgress float64    `json:"expectedProgress"`
	OnTrack          bool       `json:"onTrack"`
	DaysRemaining    int        `json:"daysRemaining"`
	TotalTasks       int        `json:"totalTasks"`
	CompletedTasks   int        `json:"completedTasks"`
	InProgressTasks  int        `json:"inProgressTasks"`
	BlockedTasks     int        `json:"blockedTasks"`
}

// MemberStatus is the derived workload state of a team member.
type MemberStatus string

const (
	MemberAvailable  MemberStatus = "available"
	MemberBusy       MemberStatus = "busy"
	MemberAtCapacity MemberStatus = "at_capacity"
	MemberOverloaded MemberStatus = "overloaded"
	MemberAway       MemberStatus = "away"
)

type TeamMemberStatus struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Image          string       `json:"image,omitempty"`
	Status         MemberStatus `json:"status"`
	LoadRatio      float64      `json:"loadRatio"`
	ActiveTasks    int          `json:"activeTasks"`
	CompletedToday int          `json:"completedToday"`
}

// TeamStats summarises the team widget header. Busy includes at_capacity.
type TeamStats struct {
	Available  int     `json:"available"`
	Busy       int     `json:"busy"`
	Overloaded int     `json:"overloaded"`
	Away       int     `json:"away"`
	TotalTasks int     `json:"totalTasks"`
	AvgTasks   float64 `json:"avgTasks"`
}

type TeamStatus struct {
	Members []TeamMemberStatus `json:"members"`
	Stats   TeamStats          `json:"stats"`
}

type MyWorkTask struct {
	ID               string       `json:"id"`
	Number           string       `json:"number,omitempty"`
	Title            string       `json:"title"`
	Priority         Severity     `json:"priority"`
	Status           TicketStatus `json:"status"`
	DueAt            *time.Time   `json:"dueAt,omitempty"`
	ProjectName      string       `json:"projectName,omitempty"`
	IsBlocked        bool         `json:"isBlocked"`
	EstimatedMinutes int          `json:"estimatedMinutes,omitempty"`
}

type DeadlineItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	DueAt       time.Time `json:"dueAt"`
	Kind        string    `json:"kind"` // "task" | "project"
	ProjectName string    `json:"projectName,omitempty"`
	Priority    Severity  `json:"priority,omitempty"`
	DaysUntil   int       `json:"daysUntil"`
}

type HealthStatus string

const (
	HealthGood     HealthStatus = "good"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

type OrganizationMetric struct {
	ID     string       `json:"id"`
	Label  string       `json:"label"`
	Value  float64      `json:"value"`
	Trend  Trend        `json:"trend,omitempty"`
	Status HealthStatus `json:"status"`
}

// CriticalAlert merges critical blockers and critical risks.
type CriticalAlert struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"` // "blocker" | "risk"
	Title       string `json:"title"`
	ProjectName string `json:"projectName,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// OverviewData is an immutable snapshot produced by one aggregation.
type OverviewData struct {
	Scope       string    `json:"scope"`
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generatedAt"`

	Financial Section[FinancialSnapshot]    `json:"financial"`
	Blockers  Section[[]BlockerItem]        `json:"blockers"`
	Risks     Section[RiskSummary]          `json:"risks"`
	Sprint    Section[SprintSnapshot]       `json:"sprint"`
	Team      Section[TeamStatus]           `json:"team"`
	Activity  Section[[]ActivityEvent]      `json:"activity"`
	MyWork    Section[[]MyWorkTask]         `json:"myWork"`
	Deadlines Section[[]DeadlineItem]       `json:"deadlines"`
	OrgHealth Section[[]OrganizationMetric] `json:"orgHealth"`
	Alerts    Section[[]CriticalAlert]      `json:"alerts"`
}
