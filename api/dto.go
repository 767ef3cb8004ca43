/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the forecast model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are rendered as JSON numbers rounded to the minor unit. All
  arithmetic happens on decimals before conversion; the float is only the
  wire representation.

TYPES:
  Forecast:  ForecastDTO, LineDTO, WarningDTO
  Records:   MetricDTO (wraps factory.MetricJSON), ProjectDTO, CompanyDTO
  Snapshots: SnapshotDTO
  Scenarios: ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/records.go: Request documents for records
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/store/sqldb"
)

// =============================================================================
// FORECAST
// =============================================================================

// ForecastDTO is the response of the forecast endpoints.
type ForecastDTO struct {
	Period      string       `json:"period"`
	Granularity string       `json:"granularity"`
	Total       float64      `json:"total"`
	Breakdown   []LineDTO    `json:"breakdown"`
	Warnings    []WarningDTO `json:"warnings,omitempty"`
	ComputedAt  string       `json:"computed_at"`
}

// LineDTO is one breakdown line.
type LineDTO struct {
	CompanyID       string   `json:"company_id"`
	CompanyName     string   `json:"company_name"`
	MetricID        string   `json:"metric_id"`
	MetricType      string   `json:"metric_type"`
	MetricTypeLabel string   `json:"metric_type_label"`
	ExpectedValue   float64  `json:"expected_value"`
	Details         string   `json:"details"`
	ProjectID       string   `json:"project_id,omitempty"`
	ProjectName     string   `json:"project_name,omitempty"`
	ProjectStatus   string   `json:"project_status,omitempty"`
	Percentage      *float64 `json:"percentage,omitempty"` // 0-100
}

// WarningDTO names a record whose numeric field was counted as zero.
type WarningDTO struct {
	Record   string `json:"record"`
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// =============================================================================
// RECORDS
// =============================================================================

// MetricDTO represents a payment metric in API responses.
type MetricDTO struct {
	factory.MetricJSON
	CompanyName string `json:"company_name,omitempty"`
	TypeLabel   string `json:"metric_type_label"`
}

type ProjectDTO struct {
	ID          string   `json:"id"`
	CompanyID   string   `json:"company_id"`
	Name        string   `json:"name"`
	Budget      *float64 `json:"budget"`
	Status      string   `json:"status"`
	StatusLabel string   `json:"status_label"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	EndDate     string   `json:"end_date,omitempty"`
}

type CompanyDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

type SnapshotDTO struct {
	ID            string  `json:"id"`
	Period        string  `json:"period"`
	CompanyFilter string  `json:"company_filter,omitempty"`
	Total         float64 `json:"total"`
	WarningCount  int     `json:"warning_count"`
	CreatedAt     string  `json:"created_at"`
}

// RunSnapshotRequest is the optional body of POST /api/snapshots/run.
type RunSnapshotRequest struct {
	Month string `json:"month,omitempty"` // defaults to the current month
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Month       string `json:"month,omitempty"` // the month the scenario is built around
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func toForecastDTO(res *forecast.Result, computedAt time.Time) ForecastDTO {
	dto := ForecastDTO{
		Period:      res.Period.String(),
		Granularity: res.Period.Granularity.String(),
		Total:       money(res.Total),
		Breakdown:   make([]LineDTO, 0, len(res.Breakdown)),
		ComputedAt:  computedAt.UTC().Format(time.RFC3339),
	}
	for _, l := range res.Breakdown {
		dto.Breakdown = append(dto.Breakdown, toLineDTO(l))
	}
	for _, w := range res.Warnings {
		dto.Warnings = append(dto.Warnings, WarningDTO{
			Record:   w.Record,
			RecordID: w.RecordID,
			Field:    w.Field,
			Message:  w.Error(),
		})
	}
	return dto
}

func toLineDTO(l forecast.Line) LineDTO {
	dto := LineDTO{
		CompanyID:       l.CompanyID,
		CompanyName:     l.CompanyName,
		MetricID:        l.MetricID,
		MetricType:      string(l.MetricType),
		MetricTypeLabel: l.MetricTypeLabel(),
		ExpectedValue:   money(l.ExpectedValue),
		Details:         l.Details,
	}
	if l.Project != nil {
		dto.ProjectID = l.Project.ID
		dto.ProjectName = l.Project.Name
		dto.ProjectStatus = l.Project.Status.Label()
		pct, _ := l.Project.Percentage.Mul(hundred).Round(2).Float64()
		dto.Percentage = &pct
	}
	return dto
}

func toMetricDTO(m forecast.PaymentMetric, details []forecast.PaymentMetricDetail) MetricDTO {
	return MetricDTO{
		MetricJSON:  factory.MetricToJSON(m, details),
		CompanyName: m.CompanyName,
		TypeLabel:   m.Type.Label(),
	}
}

func toProjectDTO(p forecast.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		Name:        p.Name,
		Status:      string(p.Status),
		StatusLabel: p.Status.Label(),
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.Budget.Valid {
		b := money(p.Budget.Decimal)
		dto.Budget = &b
	}
	if p.EndDate != nil {
		dto.EndDate = p.EndDate.String()
	}
	return dto
}

func toSnapshotDTO(s sqldb.Snapshot) SnapshotDTO {
	total, _ := decimal.NewFromString(s.Total)
	return SnapshotDTO{
		ID:            s.ID,
		Period:        s.Period,
		CompanyFilter: s.CompanyFilter,
		Total:         money(total),
		WarningCount:  s.WarningCount,
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
