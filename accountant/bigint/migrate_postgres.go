package bigint

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v4/stdlib"
)

// OpenPostgres opens the Postgres-backed deployment of the same schema
// (spec.md section 2 domain-stack note: a multi-node deployment can point
// every Accountant at a shared Postgres instance instead of the embedded
// per-node sqlite file) and brings it up to date with golang-migrate,
// which has first-class Postgres support unlike the sqlite path. The
// pgx stdlib adapter is used rather than lib/pq, matching the Postgres
// driver the teacher's own nested kvdb module depends on.
func OpenPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("bigint: opening postgres: %w", err)
	}

	if err := migratePostgresSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

//go:embed migrations/*.sql
var postgresMigrationFiles embed.FS

func migratePostgresSchema(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("bigint: postgres migrate driver: %w", err)
	}

	source, err := iofs.New(postgresMigrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("bigint: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("bigint: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("bigint: running postgres migrations: %w", err)
	}

	return nil
}
