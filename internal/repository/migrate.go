package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Aswinikumar555/ai-customer-support/internal/repository/migrations"
)

// migrate applies all pending migrations bundled for the store's dialect.
func (s *SQLStore) migrate(ctx context.Context) (err error) {
	var (
		driver database.Driver
		dir    string
	)
	switch s.driver {
	case DriverPostgres:
		conn, connErr := s.db.Conn(ctx)
		if connErr != nil {
			return fmt.Errorf("acquire dedicated connection: %w", connErr)
		}
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{MigrationsTable: "schema_migrations"})
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("initialize postgres driver: %w", err)
		}
		// Closing the postgres driver releases only the dedicated connection.
		defer func() {
			if closeErr := driver.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("close migration connection: %w", closeErr)
			}
		}()
		dir = "postgres"
	default:
		// The sqlite3 driver closes the whole *sql.DB on Close, so it is left open.
		driver, err = sqlite3.WithInstance(s.db, &sqlite3.Config{MigrationsTable: "schema_migrations"})
		if err != nil {
			return fmt.Errorf("initialize sqlite3 driver: %w", err)
		}
		dir = "sqlite"
	}

	sub, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dir, err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer func() {
		if closeErr := source.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close migration source: %w", closeErr)
		}
	}()

	migrator, err := migrate.NewWithInstance("iofs", source, s.driver, driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	_, dirty, verr := migrator.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", verr)
	}
	if dirty {
		return errors.New("database schema is dirty; fix it manually before restarting")
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
