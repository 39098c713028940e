package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"opsdash/internal/dbclient"
	"opsdash/internal/overview"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Empty(t, c.Path)
	assert.Equal(t, "sqlite", c.Layout.Backend)
	assert.Equal(t, time.Second, c.Layout.SaveDebounce)
	assert.Equal(t, overview.DefaultLimits(), c.Overview)
	assert.Equal(t, dbclient.DriverSQLite, c.Source.Driver)
	assert.Equal(t, 15*time.Second, c.Live.PollInterval)
	assert.Equal(t, "@every 1m", c.Refresh.Schedule)
	assert.Equal(t, "developer", c.Identity.Role)
	assert.Equal(t, slog.LevelInfo, c.Log.SlogLevel())
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
[layout]
backend = "redis"
save_debounce = "250ms"

[redis]
addr = "cache:6379"
db = 2

[source]
driver = "postgres"
host = "db"
database = "ops"

[overview]
blocker_limit = 3

[identity]
user_id = "u1"
role = "pm"
project_ids = ["p1", "p2"]

[log]
level = "debug"
`)
	t.Setenv("OPSDASH_OVERVIEW_RISK_LIMIT", "7")
	t.Setenv("OPSDASH_SOURCE_PASSWORD", "from-env")

	c, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, path, c.Path)
	assert.Equal(t, "redis", c.Layout.Backend)
	assert.Equal(t, 250*time.Millisecond, c.Layout.SaveDebounce)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
	assert.Equal(t, 2, c.Redis.DB)
	assert.Equal(t, dbclient.DriverPostgres, c.Source.Driver)
	assert.Equal(t, "from-env", c.Source.Password)
	assert.Equal(t, 3, c.Overview.Blockers)
	assert.Equal(t, 7, c.Overview.Risks)
	assert.Equal(t, overview.DefaultLimits().Activity, c.Overview.Activity)
	assert.Equal(t, slog.LevelDebug, c.Log.SlogLevel())

	id := c.Identity.Identity()
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, []string{"p1", "p2"}, id.ProjectIDs)
}

func TestLoadFrom_Invalid(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, "[layout]\nbackend = \"etcd\"\n"))
	assert.ErrorContains(t, err, "layout.backend")

	_, err = LoadFrom(writeConfig(t, "[overview]\nblocker_limit = -1\n"))
	assert.ErrorContains(t, err, "blocker_limit")

	_, err = LoadFrom(writeConfig(t, "[overview]\nactivity_limit = 0\n"))
	assert.ErrorContains(t, err, "activity_limit")

	_, err = LoadFrom(writeConfig(t, "[overview\nbroken"))
	assert.Error(t, err)
}

func TestLoad_UsesEnvPath(t *testing.T) {
	path := writeConfig(t, "[refresh]\nschedule = \"@every 5m\"\n")
	t.Setenv("OPSDASH_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "@every 5m", c.Refresh.Schedule)
}
