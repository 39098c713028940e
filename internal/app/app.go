package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"opsdash/internal/config"
	"opsdash/internal/dbclient"
	"opsdash/internal/domain"
	"opsdash/internal/live"
	mcpserver "opsdash/internal/mcp"
	"opsdash/internal/overview"
	"opsdash/internal/plugins"
	"opsdash/internal/presence"
	"opsdash/internal/service"
	"opsdash/internal/storage"
)

// layoutRetention is how long an untouched layout is kept in sqlite.
const layoutRetention = 90 * 24 * time.Hour

// App owns the stores, services and background workers of one process.
type App struct {
	cfg config.Config
	log *slog.Logger

	db     *storage.DB
	redis  *storage.RedisLayoutStore
	source dbclient.Source

	notifier  *mcpserver.Notifier
	layouts   *service.LayoutService
	overview  *service.OverviewService
	dashboard *service.DashboardService
	registry  *service.WidgetRegistry
	presence  *presence.Machine
	scheduler *service.RefreshScheduler

	identity domain.Identity
	session  service.Session
	stopLive context.CancelFunc
}

// New creates an App for cfg. Nothing is opened until Startup.
func New(cfg config.Config) *App {
	return &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}
}

// Startup opens storage and the data source, wires the services and starts
// the live feed and the refresh scheduler.
func (a *App) Startup(ctx context.Context) error {
	store, err := a.openLayoutStore(ctx)
	if err != nil {
		return err
	}

	a.notifier = mcpserver.NewNotifier()
	emitter := service.MultiEmitter{
		a.notifier,
		service.LogEmitter{Logger: a.log},
	}

	a.identity = a.cfg.Identity.Identity()
	a.session = service.Session{Role: a.identity.Role, Scope: a.sessionScope()}

	a.layouts = service.NewLayoutService(store, service.NewPersister(store, a.cfg.Layout.SaveDebounce), emitter)
	a.overview = service.NewOverviewService(a.openSources(ctx), a.cfg.Overview, emitter)
	a.registry = service.NewWidgetRegistry()
	plugins.RegisterBuiltins(a.registry)
	a.presence = presence.New(emitter)
	a.dashboard = service.NewDashboardService(a.layouts, a.overview, a.registry, a.presence)

	a.startLive(ctx)

	a.scheduler = service.NewRefreshScheduler(a.overview)
	a.scheduler.Track(a.identity)
	if err := a.scheduler.Start(ctx, a.cfg.Refresh.Schedule); err != nil {
		return err
	}
	if a.cfg.Path != "" {
		path := a.cfg.Path
		err := a.scheduler.WatchConfig(ctx, path, func() (overview.Limits, error) {
			c, err := config.LoadFrom(path)
			if err != nil {
				return overview.Limits{}, err
			}
			return c.Overview, nil
		})
		if err != nil {
			a.log.Warn("config hot reload disabled", "path", path, "err", err)
		}
	}
	return nil
}

// Shutdown flushes pending layouts and releases every resource. It is safe
// to call after a failed Startup.
func (a *App) Shutdown(ctx context.Context) {
	if a.stopLive != nil {
		a.stopLive()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.overview != nil {
		a.overview.WaitRunning(ctx)
	}
	if a.layouts != nil {
		if err := a.layouts.Flush(ctx); err != nil {
			a.log.Warn("flush layouts on shutdown", "err", err)
		}
	}
	if a.source != nil {
		a.source.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// MCPServer builds the MCP server over the running services.
func (a *App) MCPServer() *mcpserver.Server {
	return mcpserver.New(mcpserver.Deps{
		Layouts:   a.layouts,
		Overview:  a.overview,
		Dashboard: a.dashboard,
		Registry:  a.registry,
		Presence:  a.presence,
		Notifier:  a.notifier,
		Identity:  a.identity,
		Session:   a.session,
	})
}

func (a *App) openLayoutStore(ctx context.Context) (domain.LayoutStore, error) {
	switch a.cfg.Layout.Backend {
	case "redis":
		rs, err := storage.NewRedisLayoutStore(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rs
		return rs, nil
	default:
		db, err := storage.New(a.cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		store := storage.NewSQLiteLayoutStore(db)
		if n, err := store.PruneBefore(ctx, time.Now().Add(-layoutRetention)); err != nil {
			a.log.Warn("prune stale layouts", "err", err)
		} else if n > 0 {
			a.log.Info("pruned stale layouts", "count", n)
		}
		return store, nil
	}
}

// openSources connects the record backend. A backend that cannot be reached
// leaves every section unavailable instead of failing startup.
func (a *App) openSources(ctx context.Context) service.Sources {
	src, err := dbclient.NewSource(ctx, a.cfg.Source)
	if err != nil {
		a.log.Warn("record source unavailable", "driver", a.cfg.Source.Driver, "err", err)
		return service.Sources{}
	}
	if err := src.Ping(ctx); err != nil {
		a.log.Warn("record source ping failed", "driver", a.cfg.Source.Driver, "err", err)
	}
	a.source = src
	return service.SourcesFrom(src)
}

func (a *App) startLive(ctx context.Context) {
	liveCtx, cancel := context.WithCancel(ctx)
	a.stopLive = cancel

	var t live.Transport
	if a.cfg.Live.URL != "" {
		t = live.NewWSTransport(live.WSOptions{
			URL:        a.cfg.Live.URL,
			MaxRetries: a.cfg.Live.MaxRetries,
		}, a.presence)
	} else if a.source != nil {
		t = live.NewPollTransport(a.source, a.presence, live.PollOptions{
			Interval:   a.cfg.Live.PollInterval,
			MaxRetries: a.cfg.Live.MaxRetries,
		})
	} else {
		a.presence.Fail(ctx, domain.ErrSourceUnavailable)
		return
	}

	go func() {
		err := t.Run(liveCtx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, live.ErrRetriesExhausted):
			a.log.Error("live feed gave up", "err", err)
		default:
			a.log.Warn("live feed stopped", "err", err)
		}
	}()
}

// sessionScope keys persisted layouts by user so they survive restarts.
func (a *App) sessionScope() string {
	if a.identity.UserID != "" {
		return a.identity.UserID
	}
	return "local"
}
