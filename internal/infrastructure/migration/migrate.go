// Package migration applies the settlement schema migrations with golang-migrate.
// Migrations come either from the binary (embedded) or from a directory on disk.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/erp/settlement/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Status describes the schema version of a database
type Status struct {
	Version uint
	Dirty   bool
	// Applied is false when no migration has run yet
	Applied bool
}

// Migrator runs schema migrations against one PostgreSQL database
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator for db. An empty migrationsPath selects the embedded migrations.
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "settlement_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	var m *migrate.Migrate
	if migrationsPath == "" {
		src, srcErr := embeddedSource(migrations.FS)
		if srcErr != nil {
			return nil, srcErr
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	} else {
		m, err = migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: orNop(logger)}, nil
}

// NewFromURL creates a Migrator from a database URL and a migrations directory
func NewFromURL(databaseURL, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{migrate: m, logger: orNop(logger)}, nil
}

func embeddedSource(fsys fs.FS) (source.Driver, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return src, nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	m.logger.Info("Applying settlement migrations")
	applied, err := m.apply("up", m.migrate.Up)
	if err != nil || !applied {
		return err
	}
	return m.logStatus("Settlement schema is up to date")
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	m.logger.Info("Rolling back settlement migrations")
	applied, err := m.apply("down", m.migrate.Down)
	if err != nil || !applied {
		return err
	}
	m.logger.Info("All settlement migrations rolled back")
	return nil
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Applying migration steps", zap.Int("steps", n))
	applied, err := m.apply("steps", func() error { return m.migrate.Steps(n) })
	if err != nil || !applied {
		return err
	}
	return m.logStatus("Migration steps completed")
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	m.logger.Info("Migrating to version", zap.Uint("target_version", version))
	applied, err := m.apply(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) })
	if err != nil || !applied {
		return err
	}
	return m.logStatus("Migration to version completed")
}

// apply runs fn and reports whether it changed the schema
func (m *Migrator) apply(op string, fn func() error) (bool, error) {
	err := fn()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Info("No migrations to apply", zap.String("operation", op))
		return false, nil
	case err != nil:
		return false, fmt.Errorf("migration %s failed: %w", op, err)
	}
	return true, nil
}

func (m *Migrator) logStatus(msg string) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info(msg,
		zap.Uint("version", st.Version),
		zap.Bool("dirty", st.Dirty),
	)
	return nil
}

// Status returns the current schema version
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty, Applied: true}, nil
}

// Version returns the current version and dirty flag; 0 when nothing is applied
func (m *Migrator) Version() (uint, bool, error) {
	st, err := m.Status()
	return st.Version, st.Dirty, err
}

// Force records version as applied without running it.
// Only for repairing a dirty schema.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table in the database
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping settlement database, all data will be lost")
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	return nil
}

// Close releases the source and the database handle
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
