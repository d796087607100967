// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fieldbook-app/fieldbook/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
	Queries *Queries
}

// New opens a SQLite database for the given data source name, ensures SQLite
// foreign keys are enabled in the DSN, applies embedded migrations, and
// returns a DB with queries bound to the connection.
func New(dataSourceName string) (*DB, error) {
	dataSourceName = ensureForeignKeysEnabledDSN(dataSourceName)
	sqlDB, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &DB{
		DB:      sqlDB,
		Queries: NewQueries(sqlDB),
	}, nil
}

// NewFromConfig opens the configured database, creating the database directory
// if needed, applies migrations, and returns a DB with queries bound to the
// opened connection.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	if cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}
	return New(cfg.Database.Filename)
}

// ensureForeignKeysEnabledDSN adds the `_fk=1` query parameter if missing so
// SQLite enforces foreign keys.
func ensureForeignKeysEnabledDSN(dataSourceName string) string {
	if strings.Contains(dataSourceName, "_fk=") {
		return dataSourceName
	}
	if strings.Contains(dataSourceName, "?") {
		return dataSourceName + "&_fk=1"
	}
	return dataSourceName + "?_fk=1"
}

// runMigrations applies the embedded SQL migrations to the provided database.
// A "no change" result is not treated as an error.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not create source: %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", source,
		"sqlite3", driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// WithTx creates a new DB instance with queries bound to the given transaction
func (db *DB) WithTx(tx *sql.Tx) *DB {
	return &DB{
		DB:      db.DB,
		Queries: NewQueries(tx),
	}
}

// BeginTx starts a transaction
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	return tx, nil
}

// RunInTx runs the given function in a transaction
func (db *DB) RunInTx(ctx context.Context, fn func(*DB) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txDB := db.WithTx(tx)
	if err := fn(txDB); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}
