package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	defaultPingTimeout = 5 * time.Second
)

// ConnectionConfig describes a database connection for the agent stores.
// It satisfies the persistence client's config surface.
type ConnectionConfig struct {
	Driver         string
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c ConnectionConfig) GetDebug() bool {
	return c.Debug
}

func (c ConnectionConfig) GetDriver() string {
	return strings.TrimSpace(strings.ToLower(c.Driver))
}

func (c ConnectionConfig) GetServer() string {
	return strings.TrimSpace(c.DSN)
}

func (c ConnectionConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return defaultPingTimeout
	}
	return c.PingTimeout
}

func (c ConnectionConfig) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return "partneragent"
	}
	return c.OtelIdentifier
}

// Open connects to the configured database and returns a persistence client
// ready for the repository factory. The caller owns the client and closes it.
func Open(cfg ConnectionConfig) (*persistence.Client, error) {
	driver := cfg.GetDriver()
	dsn := cfg.GetServer()
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: connection dsn is required")
	}

	var dialect schema.Dialect
	switch driver {
	case DriverPostgres, "pg", "postgresql":
		driver = DriverPostgres
		dialect = pgdialect.New()
	case DriverSQLite, "sqlite":
		driver = DriverSQLite
		dialect = sqlitedialect.New()
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// Shared-cache sqlite misbehaves with concurrent writers.
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	return client, nil
}

// OpenAndMigrate opens the configured database and applies the migrations
// from the given filesystem before returning the client.
func OpenAndMigrate(ctx context.Context, cfg ConnectionConfig, migrationsFS fs.FS) (*persistence.Client, error) {
	client, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if migrationsFS != nil {
		client.RegisterSQLMigrations(migrationsFS)
		if err := client.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("sqlstore: migrate %s: %w", cfg.GetDriver(), err)
		}
	}
	return client, nil
}
