package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/overview"
	"opsdash/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves fixed collections. failing names collections that
// return an error; gate, when set, blocks the first ListTickets call.
type fakeSource struct {
	tickets   []domain.Ticket
	projects  []domain.Project
	sprints   []domain.Sprint
	team      []domain.TeamMember
	financial []domain.FinancialRecord
	activity  []domain.ActivityEvent
	failing   map[string]bool

	gate        chan struct{}
	ticketCalls atomic.Int32
}

var errBackend = errors.New("backend down")

func (f *fakeSource) err(name string) error {
	if f.failing[name] {
		return errBackend
	}
	return nil
}

func (f *fakeSource) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	if f.ticketCalls.Add(1) == 1 && f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.tickets, f.err("tickets")
}

func (f *fakeSource) ListProjects(context.Context) ([]domain.Project, error) {
	return f.projects, f.err("projects")
}

func (f *fakeSource) ListSprints(context.Context) ([]domain.Sprint, error) {
	return f.sprints, f.err("sprints")
}

func (f *fakeSource) ListTeamMembers(context.Context) ([]domain.TeamMember, error) {
	return f.team, f.err("team")
}

func (f *fakeSource) ListFinancialRecords(context.Context) ([]domain.FinancialRecord, error) {
	return f.financial, f.err("financial")
}

func (f *fakeSource) ListActivity(_ context.Context, since time.Time) ([]domain.ActivityEvent, error) {
	var out []domain.ActivityEvent
	for _, e := range f.activity {
		if !e.OccurredAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, f.err("activity")
}

func ago(d time.Duration) *time.Time {
	t := time.Now().Add(-d)
	return &t
}

const day = 24 * time.Hour

func sampleSource() *fakeSource {
	return &fakeSource{
		tickets: []domain.Ticket{
			{ID: "A", Title: "Login broken", ProjectID: "p1", Status: domain.TicketOpen, Priority: domain.SeverityCritical, Blocked: true, BlockedSince: ago(3*day - time.Hour), AssigneeID: "u1"},
			{ID: "B", Title: "Waiting on copy", ProjectID: "p1", Status: domain.TicketPendingClient, Priority: domain.SeverityHigh, CreatedAt: time.Now().Add(-10*day + time.Hour), AssigneeID: "u1"},
			{ID: "C", Title: "Closed", ProjectID: "p2", Status: domain.TicketClosed, Priority: domain.SeverityCritical, Blocked: true},
			{ID: "D", Title: "Other project", ProjectID: "p3", Status: domain.TicketOpen, Priority: domain.SeverityLow, SLABreached: true},
		},
		projects: []domain.Project{
			{ID: "p1", Name: "Portal", Active: true, Risks: []domain.RiskFlag{
				{ID: "r1", Category: domain.RiskBudget, Severity: domain.SeverityCritical, Description: "over budget"},
				{ID: "r2", Category: domain.RiskSchedule, Severity: domain.SeverityLow, Resolved: true},
			}},
			{ID: "p2", Name: "Shop", Active: true},
		},
		team: []domain.TeamMember{
			{ID: "u1", Name: "Ana", Load: 30, Capacity: 40},
			{ID: "u2", Name: "Bo", Load: 50, Capacity: 40},
		},
		activity: []domain.ActivityEvent{
			{ID: "e1", Kind: domain.ActivityComment, ProjectID: "p1", OccurredAt: time.Now().Add(-time.Hour)},
			{ID: "e2", Kind: domain.ActivityCreated, ProjectID: "p3", OccurredAt: time.Now().Add(-2 * time.Hour)},
			{ID: "old", Kind: domain.ActivityComment, ProjectID: "p1", OccurredAt: time.Now().Add(-30 * day)},
		},
	}
}

var scopedUser = domain.Identity{UserID: "u1", Role: "pm", ProjectIDs: []string{"p1", "p2"}}

func TestOverview_BlockersScopedAndOrdered(t *testing.T) {
	svc := service.NewOverviewService(service.SourcesFrom(sampleSource()), overview.DefaultLimits(), nil)

	data, err := svc.Aggregate(context.Background(), scopedUser)
	require.NoError(t, err)

	require.Equal(t, domain.SectionReady, data.Blockers.Status)
	require.Len(t, data.Blockers.Data, 2, "closed and out-of-scope tickets are excluded")
	assert.Equal(t, "A", data.Blockers.Data[0].ID)
	assert.Equal(t, 3, data.Blockers.Data[0].DaysBlocked)
	assert.Equal(t, "B", data.Blockers.Data[1].ID)
	assert.Equal(t, 10, data.Blockers.Data[1].DaysBlocked)
	assert.Equal(t, "Waiting for client", data.Blockers.Data[1].Reason)
}

func TestOverview_FailingSourceDegradesOnlyDependents(t *testing.T) {
	src := sampleSource()
	src.failing = map[string]bool{"projects": true}
	svc := service.NewOverviewService(service.SourcesFrom(src), overview.DefaultLimits(), nil)

	data, err := svc.Aggregate(context.Background(), scopedUser)
	require.NoError(t, err)

	assert.Equal(t, domain.SectionUnavailable, data.Risks.Status)
	assert.NotEmpty(t, data.Risks.Reason)
	assert.Equal(t, domain.SectionReady, data.Blockers.Status)
	assert.Equal(t, "project blockers unavailable", data.Blockers.Reason)
	assert.Equal(t, domain.SectionReady, data.Team.Status)
	assert.Equal(t, domain.SectionReady, data.Activity.Status)
	assert.Equal(t, domain.SectionReady, data.Alerts.Status)
	assert.Equal(t, domain.SectionEmpty, data.Financial.Status)
}

func TestOverview_NilSourceIsUnavailable(t *testing.T) {
	src := sampleSource()
	svc := service.NewOverviewService(service.Sources{Tickets: src, Activity: src}, overview.DefaultLimits(), nil)

	data, err := svc.Aggregate(context.Background(), scopedUser)
	require.NoError(t, err)

	assert.Equal(t, domain.SectionUnavailable, data.Team.Status)
	assert.Equal(t, domain.SectionUnavailable, data.Sprint.Status)
	assert.Equal(t, domain.SectionReady, data.MyWork.Status)
	assert.Equal(t, domain.SectionReady, data.Activity.Status)
}

func TestOverview_ActivityWindowAndScope(t *testing.T) {
	svc := service.NewOverviewService(service.SourcesFrom(sampleSource()), overview.DefaultLimits(), nil)

	data, err := svc.Aggregate(context.Background(), scopedUser)
	require.NoError(t, err)

	require.Len(t, data.Activity.Data, 1)
	assert.Equal(t, "e1", data.Activity.Data[0].ID)
}

func TestOverview_TeamAndRisks(t *testing.T) {
	svc := service.NewOverviewService(service.SourcesFrom(sampleSource()), overview.DefaultLimits(), nil)

	data, err := svc.Aggregate(context.Background(), domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 1, data.Risks.Data.Total)
	assert.Equal(t, 1, data.Risks.Data.Critical)
	assert.Equal(t, 1, data.Team.Data.Stats.Busy)
	assert.Equal(t, 1, data.Team.Data.Stats.Overloaded)
	require.Len(t, data.MyWork.Data, 1, "pending_client is not my work")
	assert.Equal(t, "A", data.MyWork.Data[0].ID)
}

func TestOverview_LimitsApply(t *testing.T) {
	limits := overview.DefaultLimits()
	limits.Blockers = 1
	svc := service.NewOverviewService(service.SourcesFrom(sampleSource()), limits, nil)

	data, err := svc.Aggregate(context.Background(), scopedUser)
	require.NoError(t, err)
	assert.Len(t, data.Blockers.Data, 1)

	limits.Blockers = 10
	svc.SetLimits(limits)
	assert.Equal(t, 10, svc.Limits().Blockers)
	data, err = svc.Aggregate(context.Background(), scopedUser)
	require.NoError(t, err)
	assert.Len(t, data.Blockers.Data, 2)
}

func TestOverview_GenerationsIncreasePerScope(t *testing.T) {
	em := &service.MockEmitter{}
	svc := service.NewOverviewService(service.SourcesFrom(sampleSource()), overview.DefaultLimits(), em)
	ctx := context.Background()

	first, err := svc.Aggregate(ctx, scopedUser)
	require.NoError(t, err)
	second, err := svc.Aggregate(ctx, scopedUser)
	require.NoError(t, err)
	other, err := svc.Aggregate(ctx, domain.Identity{UserID: "u2"})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Generation)
	assert.Equal(t, uint64(2), second.Generation)
	assert.Equal(t, uint64(1), other.Generation)
	assert.Len(t, em.Named(service.EventOverviewUpdated), 3)

	latest, ok := svc.Latest(scopedUser.ScopeKey())
	require.True(t, ok)
	assert.Same(t, second, latest)
}

func TestOverview_SupersededResultIsDiscarded(t *testing.T) {
	src := sampleSource()
	src.gate = make(chan struct{})
	em := &service.MockEmitter{}
	svc := service.NewOverviewService(service.SourcesFrom(src), overview.DefaultLimits(), em)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := svc.Aggregate(ctx, scopedUser)
		slow <- err
	}()
	require.Eventually(t, func() bool { return src.ticketCalls.Load() == 1 }, time.Second, time.Millisecond)

	fresh, err := svc.Aggregate(ctx, scopedUser)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), fresh.Generation)

	close(src.gate)
	assert.ErrorIs(t, <-slow, domain.ErrSuperseded)

	latest, _ := svc.Latest(scopedUser.ScopeKey())
	assert.Equal(t, uint64(2), latest.Generation)
	assert.Len(t, em.Named(service.EventOverviewUpdated), 1)
}

func TestOverview_RefreshSkipsWhileRunning(t *testing.T) {
	src := sampleSource()
	src.gate = make(chan struct{})
	svc := service.NewOverviewService(service.SourcesFrom(src), overview.DefaultLimits(), nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- svc.Refresh(ctx, scopedUser) }()
	require.Eventually(t, func() bool { return src.ticketCalls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Refresh(ctx, scopedUser))
	assert.Equal(t, int32(1), src.ticketCalls.Load(), "second refresh of the same scope is skipped")

	close(src.gate)
	require.NoError(t, <-done)
	svc.WaitRunning(ctx)
	_, ok := svc.Latest(scopedUser.ScopeKey())
	assert.True(t, ok)
}

func TestOverview_ZeroLimitsFallBackToDefaults(t *testing.T) {
	src := sampleSource()
	for i := 0; i < 8; i++ {
		src.projects = append(src.projects, domain.Project{
			ID: fmt.Sprintf("stuck-%d", i), Name: "Stuck", Active: true, Blocked: true,
		})
	}
	svc := service.NewOverviewService(service.SourcesFrom(src), overview.Limits{}, nil)
	assert.Equal(t, overview.DefaultLimits(), svc.Limits())

	data, err := svc.Aggregate(context.Background(), domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, data.Blockers.Data, overview.DefaultLimits().Blockers)

	svc.SetLimits(overview.Limits{Blockers: 2})
	assert.Equal(t, 2, svc.Limits().Blockers)
	assert.Equal(t, overview.DefaultLimits().Activity, svc.Limits().Activity)
}

func TestOverview_TicketFailureKeepsProjectBlockers(t *testing.T) {
	src := sampleSource()
	src.projects = append(src.projects, domain.Project{ID: "p9", Name: "Migration", Active: true, Blocked: true, BlockedReason: "vendor"})
	src.failing = map[string]bool{"tickets": true}
	svc := service.NewOverviewService(service.SourcesFrom(src), overview.DefaultLimits(), nil)

	data, err := svc.Aggregate(context.Background(), domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, domain.SectionReady, data.Blockers.Status)
	assert.Equal(t, "ticket blockers unavailable", data.Blockers.Reason)
	require.Len(t, data.Blockers.Data, 1)
	assert.Equal(t, "p9", data.Blockers.Data[0].ID)
	assert.Equal(t, domain.SectionUnavailable, data.MyWork.Status)

	src.failing["projects"] = true
	data, err = svc.Aggregate(context.Background(), domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SectionUnavailable, data.Blockers.Status)
}
