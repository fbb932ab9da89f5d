// Package db opens the database that hosts the proposal blob and keeps its
// schema current.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-proposals/internal/config"
	"github.com/diewo77/go-proposals/internal/storage"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Conn bundles the opened database with the blob store built on it.
type Conn struct {
	// DB is nil for the memory driver.
	DB     *gorm.DB
	Store  storage.BlobStore
	Driver string
	dsn    string
}

// connectAttempts bounds the postgres retry loop; the server usually
// starts before the database container is ready.
var connectAttempts = 10

// Open connects to the configured backend. It does not migrate.
func Open(cfg config.StorageConfig, log *zap.Logger) (*Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("memory storage selected, proposals will not survive a restart")
		return &Conn{Store: storage.NewMemoryStore(), Driver: config.DriverMemory}, nil

	case config.DriverSQLite, "":
		d, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		log.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
		return newConn(d, config.DriverSQLite, cfg.SQLitePath)

	case config.DriverPostgres:
		dsn := NormalizeDSN(cfg.PostgresDSN())
		if dsn == "" {
			return nil, fmt.Errorf("postgres storage selected but no DSN configured")
		}
		var d *gorm.DB
		var err error
		for i := 0; i < connectAttempts; i++ {
			d, err = gorm.Open(postgres.Open(dsn), gcfg)
			if err == nil {
				break
			}
			log.Warn("database not ready, retrying", zap.Int("attempt", i+1), zap.Error(err))
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect database after retries: %w", err)
		}
		log.Info("using postgres storage", zap.String("dsn", MaskDSN(dsn)))
		return newConn(d, config.DriverPostgres, dsn)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newConn(d *gorm.DB, driver, dsn string) (*Conn, error) {
	if err := d.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return &Conn{DB: d, Store: storage.NewGormStore(d), Driver: driver, dsn: dsn}, nil
}

// Ping checks the database is reachable. The memory driver is always up.
func (c *Conn) Ping(ctx context.Context) error {
	if c.DB == nil {
		return nil
	}
	return c.DB.WithContext(ctx).Exec("SELECT 1").Error
}

// Close releases the underlying connection pool.
func (c *Conn) Close() error {
	if c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
