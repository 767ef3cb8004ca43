package forecast

import (
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// RESULT - Output of one Compute call
// =============================================================================

// Result is the forecast for one period. Total always equals the sum of
// every Breakdown[i].ExpectedValue.
type Result struct {
	Period    generic.ReportPeriod
	Total     decimal.Decimal
	Breakdown []Line

	// Warnings lists records whose numeric fields were counted as zero.
	// They never change Total beyond that zero.
	Warnings []*generic.MalformedRecordError
}

// Line is one itemized contribution, traceable to its metric and, for
// percentage metrics, its project.
type Line struct {
	CompanyID     string
	CompanyName   string
	MetricID      string
	MetricType    MetricType
	ExpectedValue decimal.Decimal
	Details       string
	Project       *ProjectRef
}

// ProjectRef identifies the project behind a percentage line.
type ProjectRef struct {
	ID         string
	Name       string
	Status     ProjectStatus
	Percentage decimal.Decimal // fraction of budget, 0.5 = 50%
}

// MetricTypeLabel is the display name of the line's billing model.
func (l Line) MetricTypeLabel() string { return l.MetricType.Label() }

// =============================================================================
// EVALUATION - Output of one evaluator for one metric
// =============================================================================

// Evaluation is what an evaluator contributes for a single metric.
type Evaluation struct {
	Amount   decimal.Decimal
	Lines    []Line
	Warnings []*generic.MalformedRecordError
}

func (e *Evaluation) addLine(l Line) {
	e.Amount = e.Amount.Add(l.ExpectedValue)
	e.Lines = append(e.Lines, l)
}

func (e *Evaluation) warn(record, id, field string) {
	e.Warnings = append(e.Warnings, &generic.MalformedRecordError{
		Record:   record,
		RecordID: id,
		Field:    field,
	})
}

func metricLine(m PaymentMetric, amount decimal.Decimal, details string) Line {
	return Line{
		CompanyID:     m.CompanyID,
		CompanyName:   m.CompanyName,
		MetricID:      m.ID,
		MetricType:    m.Type,
		ExpectedValue: amount,
		Details:       details,
	}
}

const (
	recordMetric  = "payment_metric"
	recordDetail  = "payment_metric_detail"
	recordProject = "project"
)
