// Package migrate applies the embedded audit schema to PostgreSQL.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Status is the schema version recorded in the database.
type Status struct {
	Version uint
	Dirty   bool
}

// schema is the part of *migrate.Migrate used here.
type schema interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
}

// openSchema is replaced in tests.
var openSchema = func(db *sql.DB) (schema, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("audit schema driver: %w", err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("audit schema source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return m, nil
}

// Run applies pending migrations and returns the resulting status.
// An up-to-date schema is not an error.
func Run(db *sql.DB) (Status, error) {
	s, err := openSchema(db)
	if err != nil {
		return Status{}, err
	}
	if err := s.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Status{}, fmt.Errorf("applying audit schema: %w", err)
	}
	return status(s)
}

// Current reports the schema status without changing it. A database that
// was never migrated reports version 0.
func Current(db *sql.DB) (Status, error) {
	s, err := openSchema(db)
	if err != nil {
		return Status{}, err
	}
	return status(s)
}

// Down drops the audit schema.
func Down(db *sql.DB) error {
	s, err := openSchema(db)
	if err != nil {
		return err
	}
	if err := s.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("dropping audit schema: %w", err)
	}
	return nil
}

func status(s schema) (Status, error) {
	v, dirty, err := s.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("reading audit schema version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}
