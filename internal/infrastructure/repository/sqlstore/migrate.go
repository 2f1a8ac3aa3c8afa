package sqlstore

import (
	"database/sql"
	"embed"
	"errors"

	crerr "github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationSource returns the embedded schema for driver.
func MigrationSource(driver string) (source.Driver, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, crerr.Newf("unsupported local store driver %q", driver)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, crerr.Wrapf(err, "open %s migrations", driver)
	}
	return src, nil
}

// NewMigrator binds the embedded schema to an open database handle.
func NewMigrator(db *sql.DB, driver string) (*migrate.Migrate, error) {
	src, err := MigrationSource(driver)
	if err != nil {
		return nil, err
	}

	var target database.Driver
	switch driver {
	case DriverSQLite:
		target, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return nil, crerr.Wrapf(err, "open %s migration target", driver)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return nil, crerr.Wrap(err, "create migrator")
	}
	return m, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(db *sql.DB, driver string) error {
	m, err := NewMigrator(db, driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return crerr.Wrap(err, "apply migrations")
	}
	return nil
}
