/*
Package sqldb implements forecast.MetricSource and the record writers on
top of database/sql.

PURPOSE:
  One implementation serves both SQLite (store/sqlite) and PostgreSQL
  (store/postgres). Queries are written with "?" placeholders and rebound
  to "$n" for PostgreSQL.

STORAGE FORMAT:
  Every date, timestamp and numeric column is TEXT:
  - dates:      YYYY-MM-DD (lexicographic order == chronological order)
  - timestamps: RFC3339 in UTC with a fixed nine-digit fraction
                (text order == chronological order)
  - numbers:    decimal strings; a value that does not parse is read back
                as an invalid NullDecimal and counted as zero by the engine

KEY TABLES:
  companies:              Tenants
  payment_metrics:        Billing arrangements (one per company per model)
  payment_metric_details: Installment rows of installment metrics
  projects:               Units of work billed by percentage metrics
  forecast_snapshots:     Audit copies of computed forecasts

CONCURRENCY:
  Safe for concurrent use; database/sql pools connections. The SQLite
  opener limits the pool to one connection.

SEE ALSO:
  - forecast/source.go: The read contract
  - store/memory: In-memory implementation for tests
*/
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Store implements forecast.MetricSource over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ forecast.MetricSource = (*Store)(nil)

// New wraps an open database and migrates the schema.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle (health checks, tests).
func (s *Store) DB() *sql.DB { return s.db }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS payment_metrics (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		metric_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_value TEXT,
		planning_percentage TEXT,
		homologation_percentage TEXT,
		completion_percentage TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_metrics_company_active
		ON payment_metrics(company_id, is_active)`,

	`CREATE TABLE IF NOT EXISTS payment_metric_details (
		id TEXT PRIMARY KEY,
		payment_metric_id TEXT NOT NULL,
		detail_type TEXT NOT NULL,
		installment_number INTEGER NOT NULL,
		due_date TEXT,
		month_year TEXT,
		value TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_details_metric_due
		ON payment_metric_details(payment_metric_id, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_details_metric_month
		ON payment_metric_details(payment_metric_id, month_year)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		name TEXT NOT NULL,
		budget TEXT,
		status TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_company_status
		ON projects(company_id, status)`,

	`CREATE TABLE IF NOT EXISTS forecast_snapshots (
		id TEXT PRIMARY KEY,
		period TEXT NOT NULL,
		company_filter TEXT NOT NULL DEFAULT '',
		total TEXT NOT NULL,
		breakdown_json TEXT NOT NULL,
		warning_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_period
		ON forecast_snapshots(period, created_at)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Reset deletes every row. Only used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"forecast_snapshots", "payment_metric_details", "payment_metrics", "projects", "companies"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

// rebind rewrites "?" placeholders for the active dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return s.execOn(ctx, s.db, query, args...)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execOn(ctx context.Context, e execer, query string, args ...any) error {
	_, err := e.ExecContext(ctx, s.rebind(query), args...)
	return err
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// timeLayout is RFC3339 with a fixed nine-digit fraction, so that text
// order of stored timestamps is chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (*generic.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
