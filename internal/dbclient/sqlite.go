package dbclient

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"
)

// newSQLiteSource opens a local SQLite file in WAL mode with a busy timeout
// and creates the record tables when they are missing.
func newSQLiteSource(ctx context.Context, cfg Config) (*sqlSource, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("sqlite source: database path is empty")
	}
	src, err := newSQLSource("sqlite", cfg.Database+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := src.EnsureSchema(ctx); err != nil {
		src.Close()
		return nil, err
	}
	return src, nil
}
