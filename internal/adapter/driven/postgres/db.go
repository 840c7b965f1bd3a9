// Package postgres implements the RecordStore port on a hosted PostgreSQL
// database. It backs the sync server when a DSN is configured; unlike the
// sqlite adapter it enforces uniqueness of (service, username) and resolves
// conflicts by upsert, last write wins.
package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"passvault/internal/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open connects to the database at dsn and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &model.ConnectionError{Path: "postgres", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &model.ConnectionError{Path: "postgres", Err: fmt.Errorf("ping: %w", err)}
	}
	return db, nil
}

// RunMigrations applies all pending migrations embedded in the binary.
func RunMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
