package main

import (
	"fmt"
	"log/slog"
	"os"

	"opsdash/internal/app"
	"opsdash/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// stdout is the MCP channel; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	})))

	if err := app.Run(cfg); err != nil {
		slog.Error("opsdash stopped", "err", err)
		os.Exit(1)
	}
}
