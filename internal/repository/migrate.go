package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies pending up migrations on a dedicated connection, which
// it closes before returning.
func Migrate(cfg Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("db.migrate.close_error", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("db.migrate.up_to_date")
		return nil
	}
	if err != nil {
		logger.Error("db.migrate.error", "error", err)
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("db.migrate.ok", "version", version, "dirty", dirty)
	return nil
}

// MigrationVersion reports the applied schema version.
func MigrationVersion(cfg Config) (uint, bool, error) {
	m, err := newMigrator(cfg)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func newMigrator(cfg Config) (*migrate.Migrate, error) {
	var (
		sqlDriver, dir string
		newDriver      func(*sql.DB) (database.Driver, error)
	)
	switch cfg.Driver {
	case DriverPostgres, "":
		sqlDriver, dir = "pgx", "migrations/postgres"
		newDriver = func(db *sql.DB) (database.Driver, error) {
			return migratepgx.WithInstance(db, &migratepgx.Config{})
		}
	case DriverSQLite:
		sqlDriver, dir = "sqlite", "migrations/sqlite"
		newDriver = func(db *sql.DB) (database.Driver, error) {
			return migratesqlite.WithInstance(db, &migratesqlite.Config{})
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	db, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	drv, err := newDriver(db)
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, drv)
	if err != nil {
		_ = src.Close()
		_ = drv.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
