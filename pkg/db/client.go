package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

const pingTimeout = 3 * time.Second

// sqlitePragmas run once per connection. The pool is capped at one
// connection for sqlite, so running them after open is enough.
var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Client owns the process-wide gorm handle. Repositories take DB() and
// services take the Client for WithTx.
type Client struct {
	conn   *gorm.DB
	driver string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	driver, dialector, err := open(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", driver, err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	if err := tune(ctx, sqlDB, cfg, driver); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	c := &Client{conn: conn, driver: driver}
	if err := c.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "db_driver", driver), "database connection established")
	}
	return c, nil
}

// FromConn wraps an already open handle. Tests use it with in-memory sqlite.
func FromConn(conn *gorm.DB) *Client {
	c := &Client{conn: conn, driver: config.DBDriverPostgres}
	if conn != nil && conn.Dialector != nil && conn.Dialector.Name() == "sqlite" {
		c.driver = config.DBDriverSQLite
	}
	return c
}

func open(cfg config.DBConfig) (string, gorm.Dialector, error) {
	if cfg.IsSQLite() {
		return config.DBDriverSQLite, sqlite.Open(cfg.DSN), nil
	}
	if cfg.Driver != "" && cfg.Driver != config.DBDriverPostgres {
		return "", nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	return config.DBDriverPostgres, postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), nil
}

func tune(ctx context.Context, sqlDB *sql.DB, cfg config.DBConfig, driver string) error {
	if driver == config.DBDriverSQLite {
		// one writer at a time, otherwise "database is locked"
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range sqlitePragmas {
			if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	}
	// zero keeps the database/sql default
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return nil
}

func (c *Client) DB() *gorm.DB { return c.conn }

// Driver is config.DBDriverPostgres or config.DBDriverSQLite.
func (c *Client) Driver() string { return c.driver }

// Ping bounds the check so a stuck pool cannot hang the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx commits when fn returns nil and rolls back otherwise, including
// when fn panics.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
