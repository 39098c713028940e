package domain

import (
	"context"
	"time"
)

// Severity ranks blockers, risks and ticket priorities.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities: critical=4 > high=3 > medium=2 > low=1; unknown is 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// TicketStatus is the workflow state of a ticket.
type TicketStatus string

const (
	TicketOpen          TicketStatus = "open"
	TicketInProgress    TicketStatus = "in_progress"
	TicketPendingClient TicketStatus = "pending_client"
	TicketResolved      TicketStatus = "resolved"
	TicketClosed        TicketStatus = "closed"
)

// Done reports whether the ticket no longer needs work.
func (s TicketStatus) Done() bool {
	return s == TicketResolved || s == TicketClosed
}

// Ticket is a unit of client or internal work.
type Ticket struct {
	ID               string       `json:"id" bson:"_id"`
	Number           string       `json:"number" bson:"number"`
	Title            string       `json:"title" bson:"title"`
	ProjectID        string       `json:"projectId" bson:"project_id"`
	ProjectName      string       `json:"projectName" bson:"project_name"`
	AssigneeID       string       `json:"assigneeId" bson:"assignee_id"`
	AssigneeName     string       `json:"assigneeName" bson:"assignee_name"`
	Status           TicketStatus `json:"status" bson:"status"`
	Priority         Severity     `json:"priority" bson:"priority"`
	Blocked          bool         `json:"blocked" bson:"blocked"`
	BlockedReason    string       `json:"blockedReason,omitempty" bson:"blocked_reason"`
	BlockedSince     *time.Time   `json:"blockedSince,omitempty" bson:"blocked_since"`
	SLABreached      bool         `json:"slaBreached" bson:"sla_breached"`
	DueAt            *time.Time   `json:"dueAt,omitempty" bson:"due_at"`
	EstimatedMinutes int          `json:"estimatedMinutes" bson:"estimated_minutes"`
	CreatedAt        time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time    `json:"updatedAt" bson:"updated_at"`
}

// IsBlocked reports whether the ticket counts as a blocker: explicitly
// flagged, waiting on the client, or past its SLA while still open.
func (t Ticket) IsBlocked() bool {
	if t.Status.Done() {
		return false
	}
	return t.Blocked || t.Status == TicketPendingClient || t.SLABreached
}

// RiskCategory groups project risk flags.
type RiskCategory string

const (
	RiskSchedule RiskCategory = "schedule"
	RiskBudget   RiskCategory = "budget"
	RiskScope    RiskCategory = "scope"
	RiskResource RiskCategory = "resource"
	RiskQuality  RiskCategory = "quality"
)

// RiskFlag is a risk raised against a project.
type RiskFlag struct {
	ID          string       `json:"id" bson:"id"`
	Category    RiskCategory `json:"category" bson:"category"`
	Severity    Severity     `json:"severity" bson:"severity"`
	Description string       `json:"description" bson:"description"`
	Impact      string       `json:"impact" bson:"impact"`
	Mitigation  string       `json:"mitigation,omitempty" bson:"mitigation"`
	Resolved    bool         `json:"resolved" bson:"resolved"`
	CreatedAt   time.Time    `json:"createdAt" bson:"created_at"`
}

// Project is a client engagement with a budget and risk flags.
type Project struct {
	ID            string     `json:"id" bson:"_id"`
	Name          string     `json:"name" bson:"name"`
	ClientName    string     `json:"clientName" bson:"client_name"`
	Active        bool       `json:"active" bson:"active"`
	Blocked       bool       `json:"blocked" bson:"blocked"`
	BlockedReason string     `json:"blockedReason,omitempty" bson:"blocked_reason"`
	BlockedSince  *time.Time `json:"blockedSince,omitempty" bson:"blocked_since"`
	Severity      Severity   `json:"severity" bson:"severity"`
	BudgetUsed    float64    `json:"budgetUsed" bson:"budget_used"`
	BudgetTotal   float64    `json:"budgetTotal" bson:"budget_total"`
	DueAt         *time.Time `json:"dueAt,omitempty" bson:"due_at"`
	Risks         []RiskFlag `json:"risks,omitempty" bson:"risks"`
}

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// Sprint is a time-boxed iteration of a project.
type Sprint struct {
	ID              string       `json:"id" bson:"_id"`
	Name            string       `json:"name" bson:"name"`
	ProjectID       string       `json:"projectId" bson:"project_id"`
	ProjectName     string       `json:"projectName" bson:"project_name"`
	Status          SprintStatus `json:"status" bson:"status"`
	StartDate       *time.Time   `json:"startDate,omitempty" bson:"start_date"`
	EndDate         *time.Time   `json:"endDate,omitempty" bson:"end_date"`
	PlannedPoints   int          `json:"plannedPoints" bson:"planned_points"`
	CompletedPoints int          `json:"completedPoints" bson:"completed_points"`
	TotalTasks      int          `json:"totalTasks" bson:"total_tasks"`
	CompletedTasks  int          `json:"completedTasks" bson:"completed_tasks"`
	InProgressTasks int          `json:"inProgressTasks" bson:"in_progress_tasks"`
	BlockedTasks    int          `json:"blockedTasks" bson:"blocked_tasks"`
}

// TeamMember is a person whose workload is shown on the team widget.
// Load and Capacity share a unit (hours per week in practice).
type TeamMember struct {
	ID             string  `json:"id" bson:"_id"`
	Name           string  `json:"name" bson:"name"`
	Image          string  `json:"image,omitempty" bson:"image"`
	Role           string  `json:"role" bson:"role"`
	Load           float64 `json:"load" bson:"load"`
	Capacity       float64 `json:"capacity" bson:"capacity"`
	Away           bool    `json:"away" bson:"away"`
	ActiveTasks    int     `json:"activeTasks" bson:"active_tasks"`
	CompletedToday int     `json:"completedToday" bson:"completed_today"`
}

// FinancialRecord is an invoice; it is outstanding until PaidAt is set.
type FinancialRecord struct {
	ID         string     `json:"id" bson:"_id"`
	ProjectID  string     `json:"projectId" bson:"project_id"`
	ClientName string     `json:"clientName" bson:"client_name"`
	Amount     float64    `json:"amount" bson:"amount"`
	IssuedAt   time.Time  `json:"issuedAt" bson:"issued_at"`
	DueAt      *time.Time `json:"dueAt,omitempty" bson:"due_at"`
	PaidAt     *time.Time `json:"paidAt,omitempty" bson:"paid_at"`
}

// ActivityKind tags an activity event for icon selection.
type ActivityKind string

const (
	ActivityComment      ActivityKind = "comment"
	ActivityStatusChange ActivityKind = "status_change"
	ActivityAttachment   ActivityKind = "attachment"
	ActivityAssignment   ActivityKind = "assignment"
	ActivityCompletion   ActivityKind = "completion"
	ActivityCreated      ActivityKind = "created"
	ActivityOther        ActivityKind = "other"
)

// ActivityEvent is a single entry of the activity feed.
type ActivityEvent struct {
	ID          string       `json:"id" bson:"_id"`
	Kind        ActivityKind `json:"kind" bson:"kind"`
	Description string       `json:"description" bson:"description"`
	ActorName   string       `json:"actorName" bson:"actor_name"`
	ActorImage  string       `json:"actorImage,omitempty" bson:"actor_image"`
	EntityType  string       `json:"entityType" bson:"entity_type"`
	EntityID    string       `json:"entityId" bson:"entity_id"`
	EntityName  string       `json:"entityName" bson:"entity_name"`
	ProjectID   string       `json:"projectId,omitempty" bson:"project_id"`
	OccurredAt  time.Time    `json:"occurredAt" bson:"occurred_at"`
}

// ─────────────────────────────────────────────────────────────
// Read-only data collaborators
// ─────────────────────────────────────────────────────────────

type TicketSource interface {
	ListTickets(ctx context.Context) ([]Ticket, error)
}

type ProjectSource interface {
	ListProjects(ctx context.Context) ([]Project, error)
}

type SprintSource interface {
	ListSprints(ctx context.Context) ([]Sprint, error)
}

type TeamSource interface {
	ListTeamMembers(ctx context.Context) ([]TeamMember, error)
}

type FinancialSource interface {
	ListFinancialRecords(ctx context.Context) ([]FinancialRecord, error)
}

type ActivitySource interface {
	ListActivity(ctx context.Context, since time.Time) ([]ActivityEvent, error)
}

// RecordSource is implemented by backends that serve every collection.
type RecordSource interface {
	TicketSource
	ProjectSource
	SprintSource
	TeamSource
	FinancialSource
	ActivitySource
}
