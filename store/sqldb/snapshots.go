package sqldb

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// FORECAST SNAPSHOTS - Audit copies, never read by the engine
// =============================================================================

// Snapshot is a persisted forecast result.
type Snapshot struct {
	ID            string
	Period        string // "YYYY-MM" or "YYYY"
	CompanyFilter string // comma separated IDs, "" = all companies
	Total         string
	BreakdownJSON string
	WarningCount  int
	CreatedAt     time.Time
}

func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	err := s.exec(ctx, `
		INSERT INTO forecast_snapshots (id, period, company_filter, total, breakdown_json, warning_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Period, snap.CompanyFilter, snap.Total, snap.BreakdownJSON,
		snap.WarningCount, formatTime(snap.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// ListSnapshots returns the newest snapshots first. An empty period matches all.
func (s *Store) ListSnapshots(ctx context.Context, period string, limit int) ([]Snapshot, error) {
	q := `SELECT id, period, company_filter, total, breakdown_json, warning_count, created_at
		FROM forecast_snapshots`
	var args []any
	if period != "" {
		q += ` WHERE period = ?`
		args = append(args, period)
	}
	q += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdAt string
		if err := rows.Scan(&snap.ID, &snap.Period, &snap.CompanyFilter, &snap.Total,
			&snap.BreakdownJSON, &snap.WarningCount, &createdAt); err != nil {
			return nil, err
		}
		snap.CreatedAt, _ = parseTime(createdAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// HasSnapshot reports whether the period was already snapshotted for the filter.
func (s *Store) HasSnapshot(ctx context.Context, period, companyFilter string) (bool, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM forecast_snapshots WHERE period = ? AND company_filter = ?`,
		period, companyFilter).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot: %w", err)
	}
	return n > 0, nil
}
