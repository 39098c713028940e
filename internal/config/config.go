package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"opsdash/internal/dbclient"
	"opsdash/internal/domain"
	"opsdash/internal/overview"
	"opsdash/internal/storage"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig       `mapstructure:"database"`
	Layout   LayoutConfig         `mapstructure:"layout"`
	Redis    storage.RedisOptions `mapstructure:"redis"`
	Source   dbclient.Config      `mapstructure:"source"`
	Overview overview.Limits      `mapstructure:"overview"`
	Live     LiveConfig           `mapstructure:"live"`
	Refresh  RefreshConfig        `mapstructure:"refresh"`
	Identity IdentityConfig       `mapstructure:"identity"`
	Log      LogConfig            `mapstructure:"log"`

	// Path is the config file that was read, empty when none was found.
	Path string
}

// DatabaseConfig holds the local sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LayoutConfig selects the layout backend.
type LayoutConfig struct {
	Backend      string        `mapstructure:"backend"` // sqlite | redis
	SaveDebounce time.Duration `mapstructure:"save_debounce"`
}

// LiveConfig configures the live activity feed. An empty URL selects
// polling.
type LiveConfig struct {
	URL          string        `mapstructure:"url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// RefreshConfig holds the cron schedule of background overview refreshes.
type RefreshConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// IdentityConfig is the caller the process serves.
type IdentityConfig struct {
	UserID      string   `mapstructure:"user_id"`
	Role        string   `mapstructure:"role"`
	Permissions []string `mapstructure:"permissions"`
	ProjectIDs  []string `mapstructure:"project_ids"`
}

func (c IdentityConfig) Identity() domain.Identity {
	return domain.Identity{
		UserID:      c.UserID,
		Role:        c.Role,
		Permissions: c.Permissions,
		ProjectIDs:  c.ProjectIDs,
	}
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel parses Level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "opsdash")
}

// Load reads configuration from file and env. The file is OPSDASH_CONFIG
// or ~/.config/opsdash/config.toml. Env var overrides use prefix OPSDASH_.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("OPSDASH_CONFIG"))
}

// LoadFrom is Load with an explicit config file; an empty path searches
// the default location.
func LoadFrom(path string) (Config, error) {
	v := viper.New()

	// default values
	limits := overview.DefaultLimits()
	v.SetDefault("database.path", filepath.Join(dataDir(), "opsdash.db"))
	v.SetDefault("layout.backend", "sqlite")
	v.SetDefault("layout.save_debounce", "1s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("source.driver", string(dbclient.DriverSQLite))
	v.SetDefault("source.database", filepath.Join(dataDir(), "records.db"))
	v.SetDefault("source.host", "")
	v.SetDefault("source.port", 0)
	v.SetDefault("source.username", "")
	v.SetDefault("source.password", "")
	v.SetDefault("source.ssl_mode", "")
	v.SetDefault("source.uri", "")
	v.SetDefault("overview.blocker_limit", limits.Blockers)
	v.SetDefault("overview.risk_limit", limits.Risks)
	v.SetDefault("overview.activity_limit", limits.Activity)
	v.SetDefault("overview.deadline_limit", limits.Deadlines)
	v.SetDefault("overview.deadline_days", limits.DeadlineDays)
	v.SetDefault("overview.my_work_limit", limits.MyWork)
	v.SetDefault("live.url", "")
	v.SetDefault("live.poll_interval", "15s")
	v.SetDefault("live.max_retries", 10)
	v.SetDefault("refresh.schedule", "@every 1m")
	v.SetDefault("identity.user_id", "")
	v.SetDefault("identity.role", "developer")
	v.SetDefault("identity.permissions", []string{})
	v.SetDefault("identity.project_ids", []string{})
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "opsdash"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OPSDASH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine, a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Path = v.ConfigFileUsed()
	if c.Path != "" {
		if _, err := os.Stat(c.Path); err != nil {
			c.Path = ""
		}
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.Layout.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("invalid layout.backend %q: want sqlite or redis", c.Layout.Backend)
	}
	for name, n := range map[string]int{
		"overview.blocker_limit":  c.Overview.Blockers,
		"overview.risk_limit":     c.Overview.Risks,
		"overview.activity_limit": c.Overview.Activity,
		"overview.deadline_limit": c.Overview.Deadlines,
		"overview.deadline_days":  c.Overview.DeadlineDays,
		"overview.my_work_limit":  c.Overview.MyWork,
	} {
		if n <= 0 {
			return fmt.Errorf("invalid %s %d: must be positive", name, n)
		}
	}
	return nil
}
