package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-proposals/internal/config"
	"github.com/diewo77/go-proposals/internal/storage"
	migrate "github.com/golang-migrate/migrate/v4"
	// registers the postgres driver for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the kv_entries table up to date. With useSQL on postgres
// the embedded SQL migrations run through golang-migrate; every other case
// uses gorm AutoMigrate.
func Migrate(c *Conn, useSQL bool, log *zap.Logger) error {
	if c.DB == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if useSQL && c.Driver == config.DriverPostgres {
		log.Info("running sql migrations")
		if err := runSQLMigrations(ToURLDSN(c.dsn)); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if useSQL {
			log.Warn("sql migrations only target postgres, falling back to AutoMigrate", zap.String("driver", c.Driver))
		}
		if err := c.DB.AutoMigrate(&storage.Entry{}); err != nil {
			return fmt.Errorf("automigrate %T: %w", storage.Entry{}, err)
		}
	}

	if !c.DB.Migrator().HasTable(storage.Entry{}.TableName()) {
		return errors.New("missing table after migration: " + storage.Entry{}.TableName())
	}
	return nil
}

func runSQLMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
