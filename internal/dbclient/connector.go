package dbclient

import (
	"context"
	"fmt"

	"opsdash/internal/domain"
)

// Driver names the database engine behind the record source.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverMongoDB  Driver = "mongodb"
	DriverSQLite   Driver = "sqlite"
)

// Config holds the metadata for connecting to the operational database.
type Config struct {
	Driver   Driver            `mapstructure:"driver"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"` // db name, or file path for sqlite
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	SSLMode  string            `mapstructure:"ssl_mode"`
	URI      string            `mapstructure:"uri"`   // full mongodb:// URI, overrides host/port
	Extra    map[string]string `mapstructure:"extra"` // extra mongo URI params (authSource, replicaSet...)
}

// Source serves every collection the overview reads.
type Source interface {
	domain.RecordSource

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}

// NewSource opens a Source for cfg.
func NewSource(ctx context.Context, cfg Config) (Source, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return newSQLiteSource(ctx, cfg)
	case DriverMySQL:
		return newSQLSource("mysql", buildMySQLDSN(cfg))
	case DriverPostgres:
		return newSQLSource("postgres", buildPostgresDSN(cfg))
	case DriverMongoDB:
		return newMongoSource(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %q", cfg.Driver)
	}
}
