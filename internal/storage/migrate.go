package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"churchbot/internal/storage/migrations"
	logx "churchbot/pkg/logx"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// migrateUp applies the embedded migrations for dialect.
// It takes ownership of db and closes it.
func migrateUp(db *sql.DB, dialect string, log logx.Logger) error {
	src, err := iofs.New(migrations.FS, dialect)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrations source: %w", err)
	}

	var drv database.Driver
	switch dialect {
	case dialectSQLite:
		drv, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	case dialectPostgres:
		drv, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	default:
		err = fmt.Errorf("no migration driver for %q", dialect)
	}
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return fmt.Errorf("migrations driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, drv)
	if err != nil {
		_ = src.Close()
		_ = drv.Close()
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	log.Info("schema ready", logx.String("dialect", dialect), logx.Uint64("version", uint64(version)), logx.Bool("dirty", dirty))
	return nil
}
