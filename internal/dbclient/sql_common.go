package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/overview"
)

// Schema is the table layout read by sqlSource. SQLite sources create it
// on open; server databases are expected to expose the same tables (or
// views with these columns).
const Schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	project_name TEXT NOT NULL DEFAULT '',
	assignee_id TEXT NOT NULL DEFAULT '',
	assignee_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'open',
	priority TEXT NOT NULL DEFAULT 'medium',
	blocked INTEGER NOT NULL DEFAULT 0,
	blocked_reason TEXT NOT NULL DEFAULT '',
	blocked_since DATETIME,
	sla_breached INTEGER NOT NULL DEFAULT 0,
	due_at DATETIME,
	estimated_minutes INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	client_name TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	blocked INTEGER NOT NULL DEFAULT 0,
	blocked_reason TEXT NOT NULL DEFAULT '',
	blocked_since DATETIME,
	severity TEXT NOT NULL DEFAULT '',
	budget_used REAL NOT NULL DEFAULT 0,
	budget_total REAL NOT NULL DEFAULT 0,
	due_at DATETIME
);
CREATE TABLE IF NOT EXISTS project_risks (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	category TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL DEFAULT 'medium',
	description TEXT NOT NULL DEFAULT '',
	impact TEXT NOT NULL DEFAULT '',
	mitigation TEXT NOT NULL DEFAULT '',
	resolved INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_project_risks_project ON project_risks(project_id);
CREATE TABLE IF NOT EXISTS sprints (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	project_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'planned',
	start_date DATETIME,
	end_date DATETIME,
	planned_points INTEGER NOT NULL DEFAULT 0,
	completed_points INTEGER NOT NULL DEFAULT 0,
	total_tasks INTEGER NOT NULL DEFAULT 0,
	completed_tasks INTEGER NOT NULL DEFAULT 0,
	in_progress_tasks INTEGER NOT NULL DEFAULT 0,
	blocked_tasks INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS team_members (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	load REAL NOT NULL DEFAULT 0,
	capacity REAL NOT NULL DEFAULT 0,
	away INTEGER NOT NULL DEFAULT 0,
	active_tasks INTEGER NOT NULL DEFAULT 0,
	completed_today INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL DEFAULT '',
	client_name TEXT NOT NULL DEFAULT '',
	amount REAL NOT NULL DEFAULT 0,
	issued_at DATETIME NOT NULL,
	due_at DATETIME,
	paid_at DATETIME
);
CREATE TABLE IF NOT EXISTS activity (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL DEFAULT 'other',
	description TEXT NOT NULL DEFAULT '',
	actor_name TEXT NOT NULL DEFAULT '',
	actor_image TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id TEXT NOT NULL DEFAULT '',
	entity_name TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	occurred_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_occurred ON activity(occurred_at);
`

// queryTimeout bounds every read.
const queryTimeout = 30 * time.Second

// sqlSource is the shared implementation for MySQL, Postgres, and SQLite.
type sqlSource struct {
	driverName string
	db         *sql.DB
}

// newSQLSource creates a generic SQL source.
func newSQLSource(driverName, dsn string) (*sqlSource, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlSource{driverName: driverName, db: db}, nil
}

func (s *sqlSource) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *sqlSource) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the record tables. Statements run one at a time
// since not every driver accepts multi-statement Exec.
func (s *sqlSource) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *sqlSource) rebind(query string) string {
	if s.driverName != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// list runs query and scans every row with scan.
func list[T any](ctx context.Context, s *sqlSource, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func (s *sqlSource) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	return list(ctx, s, `SELECT id, number, title, project_id, project_name, assignee_id, assignee_name,
		status, priority, blocked, blocked_reason, blocked_since, sla_breached, due_at,
		estimated_minutes, created_at, updated_at
		FROM tickets ORDER BY id`,
		func(rows *sql.Rows) (domain.Ticket, error) {
			var t domain.Ticket
			var blockedSince, dueAt sql.NullTime
			err := rows.Scan(&t.ID, &t.Number, &t.Title, &t.ProjectID, &t.ProjectName, &t.AssigneeID, &t.AssigneeName,
				&t.Status, &t.Priority, &t.Blocked, &t.BlockedReason, &blockedSince, &t.SLABreached, &dueAt,
				&t.EstimatedMinutes, &t.CreatedAt, &t.UpdatedAt)
			t.BlockedSince = timePtr(blockedSince)
			t.DueAt = timePtr(dueAt)
			return t, err
		})
}

func (s *sqlSource) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects, err := list(ctx, s, `SELECT id, name, client_name, active, blocked, blocked_reason, blocked_since,
		severity, budget_used, budget_total, due_at
		FROM projects ORDER BY id`,
		func(rows *sql.Rows) (domain.Project, error) {
			var p domain.Project
			var blockedSince, dueAt sql.NullTime
			err := rows.Scan(&p.ID, &p.Name, &p.ClientName, &p.Active, &p.Blocked, &p.BlockedReason, &blockedSince,
				&p.Severity, &p.BudgetUsed, &p.BudgetTotal, &dueAt)
			p.BlockedSince = timePtr(blockedSince)
			p.DueAt = timePtr(dueAt)
			return p, err
		})
	if err != nil {
		return nil, err
	}

	type projectRisk struct {
		projectID string
		flag      domain.RiskFlag
	}
	risks, err := list(ctx, s, `SELECT project_id, id, category, severity, description, impact, mitigation, resolved, created_at
		FROM project_risks ORDER BY id`,
		func(rows *sql.Rows) (projectRisk, error) {
			var r projectRisk
			err := rows.Scan(&r.projectID, &r.flag.ID, &r.flag.Category, &r.flag.Severity, &r.flag.Description,
				&r.flag.Impact, &r.flag.Mitigation, &r.flag.Resolved, &r.flag.CreatedAt)
			return r, err
		})
	if err != nil {
		return nil, fmt.Errorf("project risks: %w", err)
	}

	index := make(map[string]int, len(projects))
	for i, p := range projects {
		index[p.ID] = i
	}
	for _, r := range risks {
		if i, ok := index[r.projectID]; ok {
			projects[i].Risks = append(projects[i].Risks, r.flag)
		}
	}
	return projects, nil
}

func (s *sqlSource) ListSprints(ctx context.Context) ([]domain.Sprint, error) {
	return list(ctx, s, `SELECT id, name, project_id, project_name, status, start_date, end_date,
		planned_points, completed_points, total_tasks, completed_tasks, in_progress_tasks, blocked_tasks
		FROM sprints ORDER BY id`,
		func(rows *sql.Rows) (domain.Sprint, error) {
			var sp domain.Sprint
			var start, end sql.NullTime
			err := rows.Scan(&sp.ID, &sp.Name, &sp.ProjectID, &sp.ProjectName, &sp.Status, &start, &end,
				&sp.PlannedPoints, &sp.CompletedPoints, &sp.TotalTasks, &sp.CompletedTasks, &sp.InProgressTasks, &sp.BlockedTasks)
			sp.StartDate = timePtr(start)
			sp.EndDate = timePtr(end)
			return sp, err
		})
}

func (s *sqlSource) ListTeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	return list(ctx, s, `SELECT id, name, image, role, load, capacity, away, active_tasks, completed_today
		FROM team_members ORDER BY name, id`,
		func(rows *sql.Rows) (domain.TeamMember, error) {
			var m domain.TeamMember
			err := rows.Scan(&m.ID, &m.Name, &m.Image, &m.Role, &m.Load, &m.Capacity, &m.Away, &m.ActiveTasks, &m.CompletedToday)
			return m, err
		})
}

func (s *sqlSource) ListFinancialRecords(ctx context.Context) ([]domain.FinancialRecord, error) {
	return list(ctx, s, `SELECT id, project_id, client_name, amount, issued_at, due_at, paid_at
		FROM invoices ORDER BY issued_at, id`,
		func(rows *sql.Rows) (domain.FinancialRecord, error) {
			var r domain.FinancialRecord
			var dueAt, paidAt sql.NullTime
			err := rows.Scan(&r.ID, &r.ProjectID, &r.ClientName, &r.Amount, &r.IssuedAt, &dueAt, &paidAt)
			r.DueAt = timePtr(dueAt)
			r.PaidAt = timePtr(paidAt)
			return r, err
		})
}

func (s *sqlSource) ListActivity(ctx context.Context, since time.Time) ([]domain.ActivityEvent, error) {
	return list(ctx, s, `SELECT id, kind, description, actor_name, actor_image, entity_type, entity_id,
		entity_name, project_id, occurred_at
		FROM activity WHERE occurred_at >= ? ORDER BY occurred_at DESC, id`,
		func(rows *sql.Rows) (domain.ActivityEvent, error) {
			var e domain.ActivityEvent
			var kind string
			err := rows.Scan(&e.ID, &kind, &e.Description, &e.ActorName, &e.ActorImage, &e.EntityType, &e.EntityID,
				&e.EntityName, &e.ProjectID, &e.OccurredAt)
			e.Kind = overview.NormalizeActivityKind(kind)
			return e, err
		}, since.UTC())
}
