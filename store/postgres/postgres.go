// Package postgres opens a PostgreSQL database for the revenue engine
// through the pgx stdlib driver.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/warp/revenue-engine/store/sqldb"
)

type ConnectionInfo struct {
	Host     string
	Port     int
	Username string
	DBName   string
	SSLMode  string
	Password string
}

// DSN renders the keyword/value connection string understood by pgx.
func (info ConnectionInfo) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s password=%s",
		info.Host,
		info.Port,
		info.Username,
		info.DBName,
		info.SSLMode,
		info.Password,
	)
}

// Open connects, pings and migrates.
func Open(info ConnectionInfo) (*sqldb.Store, error) {
	db, err := sql.Open("pgx", info.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres at %s:%d: %w", info.Host, info.Port, err)
	}

	store, err := sqldb.New(db, sqldb.DialectPostgres)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
