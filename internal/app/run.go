package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opsdash/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Run serves the dashboard as an MCP server on stdin/stdout until the client
// disconnects or the process is interrupted.
func Run(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := New(cfg)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		a.Shutdown(sctx)
	}()

	if err := a.Startup(ctx); err != nil {
		return err
	}

	// First snapshot so resources have data before the first tick.
	go func() {
		if err := a.overview.Refresh(ctx, a.identity); err != nil {
			a.log.Warn("initial overview refresh", "err", err)
		}
	}()

	a.log.Info("starting stdio server", "role", a.session.Role, "scope", a.session.Scope)
	return a.MCPServer().ServeStdio()
}
