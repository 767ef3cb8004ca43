/*
source.go - Read-only data access contract of the engine

PURPOSE:
  The engine never owns data. Metrics, installment rows and projects come
  from a MetricSource supplied by the integrator (SQL store, in-memory
  store, a remote service).

TENANT SCOPING:
  ActiveMetrics(ctx, nil) returns metrics for ALL companies. This is a
  "no filter" call, not an error. A non-nil slice restricts the result to
  those companies; an empty non-nil slice matches nothing.

INSTALLMENT FALLBACK:
  Legacy installment rows carry a "YYYY-MM" tag instead of a due date. For
  month queries the engine runs the due-date query first and only when it
  returns nothing runs the tag query. Year queries never fall back.

IMPLEMENTATIONS:
  - store/sqldb:  SQLite or PostgreSQL
  - store/memory: In-memory for tests and demos
*/
package forecast

import (
	"context"

	"github.com/warp/revenue-engine/generic"
)

// MetricSource is the read side used by the engine. All methods must be
// safe for concurrent use.
type MetricSource interface {
	// ActiveMetrics returns metrics with IsActive=true, CompanyName filled in.
	ActiveMetrics(ctx context.Context, companyIDs []string) ([]PaymentMetric, error)

	// InstallmentsDueBetween returns detail rows with DueDate in [from, to].
	InstallmentsDueBetween(ctx context.Context, metricID string, from, to generic.Date) ([]PaymentMetricDetail, error)

	// InstallmentsTagged returns detail rows whose MonthYear tag equals month.
	InstallmentsTagged(ctx context.Context, metricID string, month generic.MonthYear) ([]PaymentMetricDetail, error)

	// InstallmentCount is the number of installment rows ever configured for
	// the metric, counting only rows with DetailType == DetailInstallment.
	// Legacy DetailInstallmentAmount rows are excluded. It is the "Y" of the
	// "X de Y Parcelado" breakdown text.
	InstallmentCount(ctx context.Context, metricID string) (int, error)

	// BillableProjects returns the company's projects in a billable status.
	BillableProjects(ctx context.Context, companyID string) ([]Project, error)
}

// InstallmentsForMonth returns the month's installment rows, falling back to
// legacy MonthYear tags when no row has a due date inside the month.
func InstallmentsForMonth(ctx context.Context, src MetricSource, metricID string, m generic.MonthYear) ([]PaymentMetricDetail, error) {
	byDue, err := src.InstallmentsDueBetween(ctx, metricID, m.Start(), m.End())
	if err != nil {
		return nil, &generic.DataAccessError{Op: "InstallmentsDueBetween", Err: err}
	}
	if len(byDue) > 0 {
		return byDue, nil
	}
	byTag, err := src.InstallmentsTagged(ctx, metricID, m)
	if err != nil {
		return nil, &generic.DataAccessError{Op: "InstallmentsTagged", Err: err}
	}
	return byTag, nil
}

// InstallmentsForYear returns rows due within the calendar year.
func InstallmentsForYear(ctx context.Context, src MetricSource, metricID string, year int) ([]PaymentMetricDetail, error) {
	details, err := src.InstallmentsDueBetween(ctx, metricID, generic.StartOfYear(year), generic.EndOfYear(year))
	if err != nil {
		return nil, &generic.DataAccessError{Op: "InstallmentsDueBetween", Err: err}
	}
	return details, nil
}
