package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/overview"
)

// DefaultActivityWindow is how far back the activity source is queried.
const DefaultActivityWindow = 7 * 24 * time.Hour

// Sources bundles the read-only data collaborators. A nil source is
// reported as unavailable.
type Sources struct {
	Tickets   domain.TicketSource
	Projects  domain.ProjectSource
	Sprints   domain.SprintSource
	Team      domain.TeamSource
	Financial domain.FinancialSource
	Activity  domain.ActivitySource
}

// SourcesFrom uses one backend for every collection.
func SourcesFrom(rs domain.RecordSource) Sources {
	return Sources{
		Tickets:   rs,
		Projects:  rs,
		Sprints:   rs,
		Team:      rs,
		Financial: rs,
		Activity:  rs,
	}
}

// OverviewService runs aggregations. Each aggregation fetches every source
// concurrently and computes every section independently, so one failing
// source or computation only degrades the sections that depend on it.
// A newer aggregation for the same scope supersedes older ones.
type OverviewService struct {
	src            Sources
	emitter        EventEmitter
	log            *slog.Logger
	now            func() time.Time
	activityWindow time.Duration
	refreshing     scopeGuard

	limitsMu sync.RWMutex
	limits   overview.Limits

	mu          sync.Mutex
	generations map[string]uint64
	latest      map[string]*domain.OverviewData
}

// NewOverviewService creates an OverviewService.
func NewOverviewService(src Sources, limits overview.Limits, emitter EventEmitter) *OverviewService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &OverviewService{
		src:            src,
		emitter:        emitter,
		log:            slog.Default().With("component", "overview"),
		now:            time.Now,
		activityWindow: DefaultActivityWindow,
		limits:         limits.Normalized(),
		generations:    make(map[string]uint64),
		latest:         make(map[string]*domain.OverviewData),
	}
}

// SetLimits replaces the list limits used by later aggregations. Unset
// limits fall back to the defaults.
func (s *OverviewService) SetLimits(l overview.Limits) {
	s.limitsMu.Lock()
	defer s.limitsMu.Unlock()
	s.limits = l.Normalized()
}

// Limits returns the current list limits.
func (s *OverviewService) Limits() overview.Limits {
	s.limitsMu.RLock()
	defer s.limitsMu.RUnlock()
	return s.limits
}

// Latest returns the last published snapshot of a scope.
func (s *OverviewService) Latest(scope string) (*domain.OverviewData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.latest[scope]
	return d, ok
}

// Aggregate builds a fresh snapshot for id. It returns ErrSuperseded, and
// publishes nothing, when a newer aggregation for the same scope started
// while this one was running.
func (s *OverviewService) Aggregate(ctx context.Context, id domain.Identity) (*domain.OverviewData, error) {
	scope := id.ScopeKey()
	s.mu.Lock()
	s.generations[scope]++
	gen := s.generations[scope]
	s.mu.Unlock()

	data := s.build(ctx, id)
	data.Scope = scope
	data.Generation = gen

	s.mu.Lock()
	if s.generations[scope] != gen {
		s.mu.Unlock()
		s.log.Debug("discarding superseded overview", "scope", scope, "generation", gen)
		return nil, domain.ErrSuperseded
	}
	s.latest[scope] = data
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventOverviewUpdated, data)
	return data, nil
}

// Snapshot aggregates for id and, when that result was superseded, falls
// back to the newer published snapshot.
func (s *OverviewService) Snapshot(ctx context.Context, id domain.Identity) (*domain.OverviewData, error) {
	for attempt := 0; attempt < 3; attempt++ {
		data, err := s.Aggregate(ctx, id)
		if !errors.Is(err, domain.ErrSuperseded) {
			return data, err
		}
		if latest, ok := s.Latest(id.ScopeKey()); ok {
			return latest, nil
		}
	}
	return nil, domain.ErrSuperseded
}

// Refresh aggregates for id unless a refresh of the same scope is already
// running. Superseded results are not an error.
func (s *OverviewService) Refresh(ctx context.Context, id domain.Identity) error {
	scope := id.ScopeKey()
	if !s.refreshing.TryLock(scope) {
		s.log.Debug("refresh already running", "scope", scope)
		return nil
	}
	defer s.refreshing.Unlock(scope)

	if _, err := s.Aggregate(ctx, id); err != nil && !errors.Is(err, domain.ErrSuperseded) {
		return err
	}
	return nil
}

// WaitRunning blocks until running refreshes finish or ctx is cancelled.
func (s *OverviewService) WaitRunning(ctx context.Context) {
	s.refreshing.WaitAll(ctx)
}

// fetched holds the raw, scoped collections of one aggregation.
type fetched struct {
	tickets      []domain.Ticket
	ticketsErr   error
	projects     []domain.Project
	projectsErr  error
	sprints      []domain.Sprint
	sprintsErr   error
	team         []domain.TeamMember
	teamErr      error
	financial    []domain.FinancialRecord
	financialErr error
	activity     []domain.ActivityEvent
	activityErr  error
}

func (s *OverviewService) fetchAll(ctx context.Context, id domain.Identity, now time.Time) fetched {
	var (
		f  fetched
		wg sync.WaitGroup
	)
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	since := now.Add(-s.activityWindow)

	run(func() { f.tickets, f.ticketsErr = fetch(ctx, "tickets", s.src.Tickets, domain.TicketSource.ListTickets) })
	run(func() { f.projects, f.projectsErr = fetch(ctx, "projects", s.src.Projects, domain.ProjectSource.ListProjects) })
	run(func() { f.sprints, f.sprintsErr = fetch(ctx, "sprints", s.src.Sprints, domain.SprintSource.ListSprints) })
	run(func() { f.team, f.teamErr = fetch(ctx, "team", s.src.Team, domain.TeamSource.ListTeamMembers) })
	run(func() {
		f.financial, f.financialErr = fetch(ctx, "financial", s.src.Financial, domain.FinancialSource.ListFinancialRecords)
	})
	run(func() {
		f.activity, f.activityErr = fetch(ctx, "activity", s.src.Activity,
			func(src domain.ActivitySource, ctx context.Context) ([]domain.ActivityEvent, error) {
				return src.ListActivity(ctx, since)
			})
	})
	wg.Wait()

	f.tickets = overview.ScopeTickets(id, f.tickets)
	f.projects = overview.ScopeProjects(id, f.projects)
	f.sprints = overview.ScopeSprints(id, f.sprints)
	f.financial = overview.ScopeFinancial(id, f.financial)
	f.activity = overview.ScopeActivity(id, f.activity)

	for _, err := range []error{f.ticketsErr, f.projectsErr, f.sprintsErr, f.teamErr, f.financialErr, f.activityErr} {
		if err != nil {
			s.log.Warn("data source failed", "err", err)
		}
	}
	return f
}

func (s *OverviewService) build(ctx context.Context, id domain.Identity) *domain.OverviewData {
	now := s.now()
	limits := s.Limits()
	f := s.fetchAll(ctx, id, now)

	data := &domain.OverviewData{GeneratedAt: now}

	allBlockers := section(s.log, "blockers", func() domain.Section[[]domain.BlockerItem] {
		switch {
		case f.ticketsErr != nil && f.projectsErr != nil:
			return domain.Unavailable[[]domain.BlockerItem](errors.Join(f.ticketsErr, f.projectsErr))
		case f.ticketsErr != nil:
			sec := domain.Ready(overview.Blockers(nil, f.projects, now, 0))
			sec.Reason = "ticket blockers unavailable"
			return sec
		}
		sec := domain.Ready(overview.Blockers(f.tickets, f.projects, now, 0))
		if f.projectsErr != nil {
			sec.Reason = "project blockers unavailable"
		}
		return sec
	})
	data.Blockers = allBlockers
	if allBlockers.Available() {
		data.Blockers.Data = capList(allBlockers.Data, limits.Blockers)
	}

	data.Risks = section(s.log, "risks", func() domain.Section[domain.RiskSummary] {
		if f.projectsErr != nil {
			return domain.Unavailable[domain.RiskSummary](f.projectsErr)
		}
		return domain.Ready(overview.Risks(f.projects, limits.Risks))
	})

	data.Financial = section(s.log, "financial", func() domain.Section[domain.FinancialSnapshot] {
		if f.financialErr != nil {
			return domain.Unavailable[domain.FinancialSnapshot](f.financialErr)
		}
		projects := f.projects
		if f.projectsErr != nil {
			projects = nil
		} else if projects == nil {
			projects = []domain.Project{}
		}
		return overview.Financial(f.financial, projects, now)
	})

	data.Sprint = section(s.log, "sprint", func() domain.Section[domain.SprintSnapshot] {
		if f.sprintsErr != nil {
			return domain.Unavailable[domain.SprintSnapshot](f.sprintsErr)
		}
		return overview.Sprint(f.sprints, now)
	})

	data.Team = section(s.log, "team", func() domain.Section[domain.TeamStatus] {
		if f.teamErr != nil {
			return domain.Unavailable[domain.TeamStatus](f.teamErr)
		}
		return domain.Ready(overview.Team(f.team))
	})

	data.Activity = section(s.log, "activity", func() domain.Section[[]domain.ActivityEvent] {
		if f.activityErr != nil {
			return domain.Unavailable[[]domain.ActivityEvent](f.activityErr)
		}
		return domain.Ready(overview.Activity(f.activity, limits.Activity))
	})

	data.MyWork = section(s.log, "my-work", func() domain.Section[[]domain.MyWorkTask] {
		if f.ticketsErr != nil {
			return domain.Unavailable[[]domain.MyWorkTask](f.ticketsErr)
		}
		return domain.Ready(overview.MyWork(f.tickets, id.UserID, limits.MyWork))
	})

	data.Deadlines = section(s.log, "deadlines", func() domain.Section[[]domain.DeadlineItem] {
		if f.ticketsErr != nil {
			return domain.Unavailable[[]domain.DeadlineItem](f.ticketsErr)
		}
		return domain.Ready(overview.Deadlines(f.tickets, f.projects, now, limits.DeadlineDays, limits.Deadlines))
	})

	data.OrgHealth = section(s.log, "org-health", func() domain.Section[[]domain.OrganizationMetric] {
		if f.ticketsErr != nil {
			return domain.Unavailable[[]domain.OrganizationMetric](f.ticketsErr)
		}
		members := f.team
		if f.teamErr != nil {
			members = nil
		} else if members == nil {
			members = []domain.TeamMember{}
		}
		return domain.Ready(overview.OrgHealth(f.tickets, members))
	})

	data.Alerts = section(s.log, "alerts", func() domain.Section[[]domain.CriticalAlert] {
		if !allBlockers.Available() && !data.Risks.Available() {
			return domain.Unavailable[[]domain.CriticalAlert](fmt.Errorf("%w: blockers and risks", domain.ErrSourceUnavailable))
		}
		var risks []domain.RiskItem
		if data.Risks.Available() {
			risks = overview.Risks(f.projects, 0).Risks
		}
		return domain.Ready(overview.CriticalAlerts(allBlockers.Data, risks))
	})

	return data
}

// fetch calls fn on src, turning nil sources, errors and panics into
// ErrSourceUnavailable.
func fetch[S any, T any](ctx context.Context, name string, src S, fn func(S, context.Context) ([]T, error)) (out []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%s: %w: panic: %v", name, domain.ErrSourceUnavailable, r)
		}
	}()
	if any(src) == nil {
		return nil, fmt.Errorf("%s: %w: not configured", name, domain.ErrSourceUnavailable)
	}
	out, err = fn(src, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, domain.ErrSourceUnavailable, err)
	}
	return out, nil
}

// section runs one sub-computation; a panic marks only that section unavailable.
func section[T any](log *slog.Logger, name string, fn func() domain.Section[T]) (out domain.Section[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("overview section panicked", "section", name, "panic", r)
			out = domain.Unavailable[T](fmt.Errorf("%s: computation failed", name))
		}
	}()
	return fn()
}

func capList[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
