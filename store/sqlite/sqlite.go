/*
Package sqlite opens a SQLite database for the revenue engine.

PURPOSE:
  Thin opener over store/sqldb. All queries live in sqldb; this package
  only owns the driver, the DSN flags and the pool size.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.Open("./data/revenue.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := forecast.NewEngine(store)

SEE ALSO:
  - store/sqldb: Schema and queries
  - store/postgres: PostgreSQL opener
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/revenue-engine/store/sqldb"
)

// Open opens (and migrates) the database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*sqldb.Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store, err := sqldb.New(db, sqldb.DialectSQLite)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	if path == ":memory:" {
		return path + "?_foreign_keys=on"
	}
	return path + "?_foreign_keys=on&_journal_mode=WAL"
}
