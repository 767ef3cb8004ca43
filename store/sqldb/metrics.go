package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// PAYMENT METRICS
// =============================================================================

const metricColumns = `m.id, m.company_id, COALESCE(c.name, ''), m.is_active, m.metric_type,
	m.start_date, m.end_date, m.total_value, m.planning_percentage,
	m.homologation_percentage, m.completion_percentage, m.created_at, m.updated_at`

const metricFrom = ` FROM payment_metrics m LEFT JOIN companies c ON c.id = m.company_id`

// SaveMetric inserts or replaces a metric. Its installment rows are left
// untouched; use ReplaceMetric to write both.
func (s *Store) SaveMetric(ctx context.Context, m forecast.PaymentMetric) error {
	return s.saveMetric(ctx, s.db, m)
}

// ReplaceMetric upserts a metric and replaces all of its installment rows
// in one transaction. Writing the same metric twice leaves one set of rows.
func (s *Store) ReplaceMetric(ctx context.Context, m forecast.PaymentMetric, details []forecast.PaymentMetricDetail) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.saveMetric(ctx, tx, m); err != nil {
			return err
		}
		if err := s.execOn(ctx, tx, `DELETE FROM payment_metric_details WHERE payment_metric_id = ?`, m.ID); err != nil {
			return fmt.Errorf("failed to clear installments of %s: %w", m.ID, err)
		}
		for _, d := range details {
			if err := s.addDetail(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) saveMetric(ctx context.Context, e execer, m forecast.PaymentMetric) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	err := s.execOn(ctx, e, `
		INSERT INTO payment_metrics (id, company_id, is_active, metric_type, start_date, end_date,
			total_value, planning_percentage, homologation_percentage, completion_percentage,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			company_id = excluded.company_id,
			is_active = excluded.is_active,
			metric_type = excluded.metric_type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			total_value = excluded.total_value,
			planning_percentage = excluded.planning_percentage,
			homologation_percentage = excluded.homologation_percentage,
			completion_percentage = excluded.completion_percentage,
			updated_at = excluded.updated_at`,
		m.ID, m.CompanyID, boolToInt(m.IsActive), string(m.Type),
		m.StartDate.String(), m.EndDate.String(),
		generic.FormatNull(m.TotalValue),
		generic.FormatNull(m.PlanningPercentage),
		generic.FormatNull(m.HomologationPercentage),
		generic.FormatNull(m.CompletionPercentage),
		formatTime(m.CreatedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment metric %s: %w", m.ID, err)
	}
	return nil
}

// GetMetric returns a metric regardless of IsActive.
func (s *Store) GetMetric(ctx context.Context, id string) (*forecast.PaymentMetric, error) {
	row := s.queryRow(ctx, `SELECT `+metricColumns+metricFrom+` WHERE m.id = ?`, id)
	m, err := scanMetric(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrMetricNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMetrics returns every metric, active or not, optionally for one company.
func (s *Store) ListMetrics(ctx context.Context, companyID string) ([]forecast.PaymentMetric, error) {
	q := `SELECT ` + metricColumns + metricFrom
	var args []any
	if companyID != "" {
		q += ` WHERE m.company_id = ?`
		args = append(args, companyID)
	}
	q += ` ORDER BY m.company_id, m.id`
	return s.queryMetrics(ctx, q, args...)
}

// ActiveMetrics implements forecast.MetricSource.
func (s *Store) ActiveMetrics(ctx context.Context, companyIDs []string) ([]forecast.PaymentMetric, error) {
	if companyIDs != nil && len(companyIDs) == 0 {
		return nil, nil
	}
	q := `SELECT ` + metricColumns + metricFrom + ` WHERE m.is_active = 1`
	args := make([]any, 0, len(companyIDs))
	if companyIDs != nil {
		q += ` AND m.company_id IN (` + placeholders(len(companyIDs)) + `)`
		for _, id := range companyIDs {
			args = append(args, id)
		}
	}
	q += ` ORDER BY m.company_id, m.id`
	return s.queryMetrics(ctx, q, args...)
}

func (s *Store) queryMetrics(ctx context.Context, q string, args ...any) ([]forecast.PaymentMetric, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment metrics: %w", err)
	}
	defer rows.Close()

	var out []forecast.PaymentMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetric(sc scanner) (forecast.PaymentMetric, error) {
	var (
		m                                 forecast.PaymentMetric
		isActive                          int
		metricType, start, end            string
		total, planning, homolog, complet sql.NullString
		createdAt, updatedAt              string
	)
	if err := sc.Scan(&m.ID, &m.CompanyID, &m.CompanyName, &isActive, &metricType,
		&start, &end, &total, &planning, &homolog, &complet, &createdAt, &updatedAt); err != nil {
		return m, err
	}

	var err error
	if m.StartDate, err = generic.ParseDate(start); err != nil {
		return m, fmt.Errorf("payment metric %s start_date: %w", m.ID, err)
	}
	if m.EndDate, err = generic.ParseDate(end); err != nil {
		return m, fmt.Errorf("payment metric %s end_date: %w", m.ID, err)
	}
	m.IsActive = isActive != 0
	m.Type = forecast.MetricType(metricType)
	m.TotalValue = generic.ParseAmount(total.String)
	m.PlanningPercentage = generic.ParseAmount(planning.String)
	m.HomologationPercentage = generic.ParseAmount(homolog.String)
	m.CompletionPercentage = generic.ParseAmount(complet.String)
	m.CreatedAt, _ = parseTime(createdAt)
	m.UpdatedAt, _ = parseTime(updatedAt)
	return m, nil
}

// =============================================================================
// PAYMENT METRIC DETAILS
// =============================================================================

const detailColumns = `id, payment_metric_id, detail_type, installment_number, due_date, month_year, value`

// AddDetail inserts one installment row.
func (s *Store) AddDetail(ctx context.Context, d forecast.PaymentMetricDetail) error {
	return s.addDetail(ctx, s.db, d)
}

// AddDetails inserts rows all or nothing.
func (s *Store) AddDetails(ctx context.Context, details []forecast.PaymentMetricDetail) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range details {
			if err := s.addDetail(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) addDetail(ctx context.Context, e execer, d forecast.PaymentMetricDetail) error {
	err := s.execOn(ctx, e, `
		INSERT INTO payment_metric_details (`+detailColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.PaymentMetricID, string(d.DetailType), d.InstallmentNumber,
		nullDate(d.DueDate), nullString(d.MonthYear), generic.FormatNull(d.Value),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment metric detail %s: %w", d.ID, err)
	}
	return nil
}

// ListDetails returns every row of a metric.
func (s *Store) ListDetails(ctx context.Context, metricID string) ([]forecast.PaymentMetricDetail, error) {
	return s.queryDetails(ctx, `SELECT `+detailColumns+` FROM payment_metric_details
		WHERE payment_metric_id = ? ORDER BY installment_number, id`, metricID)
}

// InstallmentsDueBetween implements forecast.MetricSource.
func (s *Store) InstallmentsDueBetween(ctx context.Context, metricID string, from, to generic.Date) ([]forecast.PaymentMetricDetail, error) {
	return s.queryDetails(ctx, `SELECT `+detailColumns+` FROM payment_metric_details
		WHERE payment_metric_id = ? AND due_date IS NOT NULL AND due_date >= ? AND due_date <= ?
		ORDER BY installment_number, id`, metricID, from.String(), to.String())
}

// InstallmentsTagged implements forecast.MetricSource.
func (s *Store) InstallmentsTagged(ctx context.Context, metricID string, month generic.MonthYear) ([]forecast.PaymentMetricDetail, error) {
	return s.queryDetails(ctx, `SELECT `+detailColumns+` FROM payment_metric_details
		WHERE payment_metric_id = ? AND month_year = ?
		ORDER BY installment_number, id`, metricID, month.String())
}

// InstallmentCount implements forecast.MetricSource.
func (s *Store) InstallmentCount(ctx context.Context, metricID string) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM payment_metric_details
		WHERE payment_metric_id = ? AND detail_type = ?`, metricID, string(forecast.DetailInstallment)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count installments of %s: %w", metricID, err)
	}
	return n, nil
}

func (s *Store) queryDetails(ctx context.Context, q string, args ...any) ([]forecast.PaymentMetricDetail, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment metric details: %w", err)
	}
	defer rows.Close()

	var out []forecast.PaymentMetricDetail
	for rows.Next() {
		var (
			d               forecast.PaymentMetricDetail
			detailType      string
			due, tag, value sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.PaymentMetricID, &detailType, &d.InstallmentNumber, &due, &tag, &value); err != nil {
			return nil, err
		}
		d.DetailType = forecast.DetailType(detailType)
		if d.DueDate, err = parseNullDate(due); err != nil {
			return nil, fmt.Errorf("payment metric detail %s due_date: %w", d.ID, err)
		}
		if tag.Valid && tag.String != "" {
			t := tag.String
			d.MonthYear = &t
		}
		d.Value = generic.ParseAmount(value.String)
		out = append(out, d)
	}
	return out, rows.Err()
}
