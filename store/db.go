package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/PeterSurowski/ai-event-search/observe"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config configures the database connection.
type Config struct {
	Driver          string        `mapstructure:"driver"` // postgres|sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// DB is an open database handle shared by the stores.
type DB struct {
	gorm    *gorm.DB
	dialect string
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger observe.Logger) (*DB, error) {
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 20
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 200 * time.Millisecond
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		connCfg, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: parse dsn: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: stdlib.OpenDB(*connCfg)})
		cfg.Driver = DriverPostgres
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
		// SQLite serializes writers; one connection avoids lock errors.
		cfg.MaxOpenConns = 1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(logger, cfg.SlowThreshold),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("store: sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := &DB{gorm: gdb, dialect: cfg.Driver}
	if err := db.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an existing gorm handle. The dialect is taken from the handle.
func New(gdb *gorm.DB) *DB {
	dialect := gdb.Dialector.Name()
	if dialect != DriverPostgres {
		dialect = DriverSQLite
	}
	return &DB{gorm: gdb, dialect: dialect}
}

// Migrate creates or updates the schema.
func (db *DB) Migrate(ctx context.Context) error {
	tx := db.gorm.WithContext(ctx)
	if db.dialect == DriverPostgres {
		if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("store: enable pgvector: %w", err)
		}
	}
	if err := tx.AutoMigrate(&eventRow{}, &credentialRow{}, &auditRow{}); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return fmt.Errorf("store: sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Dialect reports the active driver name.
func (db *DB) Dialect() string { return db.dialect }

// Gorm exposes the underlying handle.
func (db *DB) Gorm() *gorm.DB { return db.gorm }
