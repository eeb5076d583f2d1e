package bigint

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	sqlite "modernc.org/sqlite"
)

const (
	dbFileName       = "accountant.db"
	dbFilePermission = 0600
)

// Open opens (creating if necessary) the embedded SQL database at dbPath,
// applies any pending schema migrations, and registers the slope_drop UDFs
// on every new connection. This mirrors the teacher's channeldb.Open
// shape: create-if-missing, then bring the schema up to date.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return nil, fmt.Errorf("bigint: creating db directory %s: %w", dbPath, err)
	}

	path := filepath.Join(dbPath, dbFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("bigint: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // one cooperative actor owns this connection at a time

	conn, err := db.Conn(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	defer conn.Close()

	if err := conn.Raw(func(driverConn interface{}) error {
		sc, ok := driverConn.(*sqlite.Conn)
		if !ok {
			return fmt.Errorf("bigint: unexpected driver connection type %T", driverConn)
		}
		return RegisterSlopeDropFunctions(sc)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bigint: registering UDFs: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

