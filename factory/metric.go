package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory converts documents to validated forecast records.
type RecordFactory struct {
	Now   func() time.Time
	NewID func() string
}

// NewRecordFactory creates a factory using the wall clock and uuid v4 IDs.
func NewRecordFactory() *RecordFactory {
	return &RecordFactory{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// ParseMetric parses a JSON metric document including its details.
func (f *RecordFactory) ParseMetric(data []byte) (*forecast.PaymentMetric, []forecast.PaymentMetricDetail, error) {
	var mj MetricJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return nil, nil, fmt.Errorf("failed to parse metric JSON: %w", err)
	}
	return f.Metric(mj)
}

// Metric validates a metric document.
func (f *RecordFactory) Metric(mj MetricJSON) (*forecast.PaymentMetric, []forecast.PaymentMetricDetail, error) {
	if strings.TrimSpace(mj.CompanyID) == "" {
		return nil, nil, invalid("company_id", "is required")
	}

	metricType := forecast.MetricType(mj.Type)
	if !metricType.IsValid() {
		return nil, nil, invalid("metric_type", fmt.Sprintf("unknown type %q", mj.Type))
	}

	start, end, err := parseWindow(mj.StartDate, mj.EndDate)
	if err != nil {
		return nil, nil, err
	}

	m := &forecast.PaymentMetric{
		ID:        f.idOr(mj.ID),
		CompanyID: mj.CompanyID,
		IsActive:  mj.IsActive == nil || *mj.IsActive,
		Type:      metricType,
		StartDate: start,
		EndDate:   end,
		CreatedAt: f.Now(),
	}
	m.UpdatedAt = m.CreatedAt

	if m.TotalValue, err = amount("total_value", mj.TotalValue); err != nil {
		return nil, nil, err
	}
	if metricType == forecast.MetricMonthlyFixed && !m.TotalValue.Valid {
		return nil, nil, invalid("total_value", "is required for monthly_fixed metrics")
	}

	if m.PlanningPercentage, err = fraction("planning_percentage", mj.PlanningPercentage); err != nil {
		return nil, nil, err
	}
	if m.HomologationPercentage, err = fraction("homologation_percentage", mj.HomologationPercentage); err != nil {
		return nil, nil, err
	}
	if m.CompletionPercentage, err = fraction("completion_percentage", mj.CompletionPercentage); err != nil {
		return nil, nil, err
	}

	details := make([]forecast.PaymentMetricDetail, 0, len(mj.Details))
	for i, dj := range mj.Details {
		d, err := f.Detail(m.ID, i, dj)
		if err != nil {
			return nil, nil, fmt.Errorf("details[%d]: %w", i, err)
		}
		details = append(details, *d)
	}

	return m, details, nil
}

// Detail validates one installment row. position is the 0-based index used
// when installment_number is omitted.
func (f *RecordFactory) Detail(metricID string, position int, dj DetailJSON) (*forecast.PaymentMetricDetail, error) {
	d := &forecast.PaymentMetricDetail{
		ID:                f.idOr(dj.ID),
		PaymentMetricID:   metricID,
		DetailType:        forecast.DetailInstallment,
		InstallmentNumber: dj.InstallmentNumber,
	}

	if dj.DetailType != "" {
		d.DetailType = forecast.DetailType(dj.DetailType)
		if !d.DetailType.IsValid() {
			return nil, invalid("detail_type", fmt.Sprintf("unknown type %q", dj.DetailType))
		}
	}
	if d.InstallmentNumber == 0 {
		d.InstallmentNumber = position + 1
	}
	if d.InstallmentNumber < 0 {
		return nil, invalid("installment_number", "must be positive")
	}

	if dj.DueDate != "" {
		due, err := generic.ParseDate(dj.DueDate)
		if err != nil {
			return nil, err
		}
		d.DueDate = &due
	}
	if dj.MonthYear != "" {
		my, err := generic.ParseMonthYear(dj.MonthYear)
		if err != nil {
			return nil, err
		}
		tag := my.String()
		d.MonthYear = &tag
	}
	if d.DueDate == nil && d.MonthYear == nil {
		return nil, invalid("due_date", "a due_date or month_year is required")
	}

	var err error
	if d.Value, err = amount("value", dj.Value); err != nil {
		return nil, err
	}
	if !d.Value.Valid {
		return nil, invalid("value", "is required")
	}
	return d, nil
}

// ParseProject parses a JSON project document.
func (f *RecordFactory) ParseProject(data []byte) (*forecast.Project, error) {
	var pj ProjectJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("failed to parse project JSON: %w", err)
	}
	return f.Project(pj)
}

// Project validates a project document.
func (f *RecordFactory) Project(pj ProjectJSON) (*forecast.Project, error) {
	if strings.TrimSpace(pj.CompanyID) == "" {
		return nil, invalid("company_id", "is required")
	}
	if strings.TrimSpace(pj.Name) == "" {
		return nil, invalid("name", "is required")
	}
	status := forecast.ProjectStatus(pj.Status)
	if !status.IsValid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", pj.Status))
	}

	p := &forecast.Project{
		ID:        f.idOr(pj.ID),
		CompanyID: pj.CompanyID,
		Name:      pj.Name,
		Status:    status,
	}

	var err error
	if p.Budget, err = amount("budget", pj.Budget); err != nil {
		return nil, err
	}

	// A missing timestamp takes the other one, or now when both are missing.
	p.CreatedAt = f.Now()
	if pj.UpdatedAt != "" {
		if p.UpdatedAt, err = parseTimestamp("updated_at", pj.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.UpdatedAt
	}
	if pj.CreatedAt != "" {
		if p.CreatedAt, err = parseTimestamp("created_at", pj.CreatedAt); err != nil {
			return nil, err
		}
	}
	if pj.UpdatedAt == "" {
		p.UpdatedAt = p.CreatedAt
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		return nil, invalid("updated_at", "is before created_at")
	}

	if pj.EndDate != "" {
		end, err := generic.ParseDate(pj.EndDate)
		if err != nil {
			return nil, err
		}
		p.EndDate = &end
	}
	return p, nil
}

// Company validates a company document.
func (f *RecordFactory) Company(cj CompanyJSON) (*forecast.Company, error) {
	if strings.TrimSpace(cj.Name) == "" {
		return nil, invalid("name", "is required")
	}
	return &forecast.Company{ID: f.idOr(cj.ID), Name: cj.Name}, nil
}

// =============================================================================
// TO DOCUMENT
// =============================================================================

// MetricToJSON converts a stored metric (and its rows) back to a document.
func MetricToJSON(m forecast.PaymentMetric, details []forecast.PaymentMetricDetail) MetricJSON {
	active := m.IsActive
	mj := MetricJSON{
		ID:                     m.ID,
		CompanyID:              m.CompanyID,
		IsActive:               &active,
		Type:                   string(m.Type),
		StartDate:              m.StartDate.String(),
		EndDate:                m.EndDate.String(),
		TotalValue:             AmountOf(m.TotalValue),
		PlanningPercentage:     AmountOf(m.PlanningPercentage),
		HomologationPercentage: AmountOf(m.HomologationPercentage),
		CompletionPercentage:   AmountOf(m.CompletionPercentage),
	}
	for _, d := range details {
		dj := DetailJSON{
			ID:                d.ID,
			DetailType:        string(d.DetailType),
			InstallmentNumber: d.InstallmentNumber,
			Value:             AmountOf(d.Value),
		}
		if d.DueDate != nil {
			dj.DueDate = d.DueDate.String()
		}
		if d.MonthYear != nil {
			dj.MonthYear = *d.MonthYear
		}
		mj.Details = append(mj.Details, dj)
	}
	return mj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func (f *RecordFactory) idOr(id string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return f.NewID()
}

func invalid(field, reason string) error {
	return &generic.InvalidRecordError{Field: field, Reason: reason}
}

func parseWindow(startStr, endStr string) (generic.Date, generic.Date, error) {
	start, err := generic.ParseDate(startStr)
	if err != nil {
		return generic.Date{}, generic.Date{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := generic.ParseDate(endStr)
	if err != nil {
		return generic.Date{}, generic.Date{}, fmt.Errorf("end_date: %w", err)
	}
	if end.Before(start) {
		return generic.Date{}, generic.Date{}, fmt.Errorf("%w: end_date %s is before start_date %s",
			generic.ErrInvalidPeriod, end, start)
	}
	return start, end, nil
}

func amount(field string, a Amount) (decimal.NullDecimal, error) {
	d, ok, err := a.Decimal()
	if err != nil {
		return decimal.NullDecimal{}, invalid(field, fmt.Sprintf("%q is not a number", string(a)))
	}
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, invalid(field, "must not be negative")
	}
	return generic.Valid(d), nil
}

var one = decimal.NewFromInt(1)

func fraction(field string, a Amount) (decimal.NullDecimal, error) {
	n, err := amount(field, a)
	if err != nil || !n.Valid {
		return n, err
	}
	if n.Decimal.GreaterThan(one) {
		return decimal.NullDecimal{}, invalid(field, "must be a fraction between 0 and 1")
	}
	return n, nil
}

func parseTimestamp(field, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := generic.ParseDate(s)
	if err != nil {
		return time.Time{}, invalid(field, fmt.Sprintf("%q is neither RFC3339 nor YYYY-MM-DD", s))
	}
	return d.Time, nil
}
