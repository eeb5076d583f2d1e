package bigint

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrateSchema applies every *.up.sql file under migrations/, in name
// order, using plain CREATE-TABLE-IF-NOT-EXISTS statements. golang-migrate
// itself is used for the Postgres deployment path (see
// migrate_postgres.go): its sqlite3 database driver needs the cgo
// mattn/go-sqlite3 binding, which conflicts with the pure-Go
// modernc.org/sqlite driver this package otherwise depends on, so the
// embedded path applies the same migration files directly instead.
func migrateSchema(db *sql.DB) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("bigint: reading migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := migrationFiles.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("bigint: reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(contents)); err != nil {
			return fmt.Errorf("bigint: applying migration %s: %w", name, err)
		}
		log.Infof("bigint: applied migration %s", name)
	}

	return nil
}
