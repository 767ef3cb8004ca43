// Package forecast implements the revenue forecasting engine.
// It evaluates payment metrics of client companies for a calendar month or
// year and returns a total with an itemized breakdown.
package forecast

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// METRIC TYPE - Billing model
// =============================================================================

type MetricType string

const (
	MetricMonthlyFixed        MetricType = "monthly_fixed"
	MetricPercentageByPhase   MetricType = "percentage_by_phase"
	MetricInstallmentSchedule MetricType = "installment_schedule"
)

// Label is the text shown in breakdown lines.
func (t MetricType) Label() string {
	switch t {
	case MetricMonthlyFixed:
		return "Mensal Fixo"
	case MetricPercentageByPhase:
		return "Porcentagem por Fase"
	case MetricInstallmentSchedule:
		return "Parcelado"
	default:
		return string(t)
	}
}

func (t MetricType) IsValid() bool {
	switch t {
	case MetricMonthlyFixed, MetricPercentageByPhase, MetricInstallmentSchedule:
		return true
	}
	return false
}

// =============================================================================
// PAYMENT METRIC - One billing arrangement for one company
// =============================================================================

// PaymentMetric is a billing arrangement. Which fields matter depends on Type:
//   - MonthlyFixed:        StartDate, EndDate, TotalValue
//   - PercentageByPhase:   the three percentages (window is ignored)
//   - InstallmentSchedule: its Detail rows (window is ignored)
//
// Numeric fields are nullable: a store that cannot read a value leaves it
// invalid and the evaluators count it as zero.
type PaymentMetric struct {
	ID          string
	CompanyID   string
	CompanyName string
	IsActive    bool
	Type        MetricType
	StartDate   generic.Date
	EndDate     generic.Date

	TotalValue decimal.NullDecimal

	PlanningPercentage     decimal.NullDecimal
	HomologationPercentage decimal.NullDecimal
	CompletionPercentage   decimal.NullDecimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// PAYMENT METRIC DETAIL - One scheduled installment
// =============================================================================

type DetailType string

const (
	DetailInstallment       DetailType = "installment"
	DetailInstallmentAmount DetailType = "installment_amount"
)

// PaymentMetricDetail is one row of an installment schedule. DueDate is nil on
// legacy rows, which carry only a MonthYear tag ("YYYY-MM").
func (t DetailType) IsValid() bool {
	return t == DetailInstallment || t == DetailInstallmentAmount
}

type PaymentMetricDetail struct {
	ID                string
	PaymentMetricID   string
	DetailType        DetailType
	InstallmentNumber int
	DueDate           *generic.Date
	MonthYear         *string
	Value             decimal.NullDecimal
}

// =============================================================================
// PROJECT - Unit of work billed by percentage
// =============================================================================

type ProjectStatus string

const (
	StatusPlanning     ProjectStatus = "planning"
	StatusInProgress   ProjectStatus = "in_progress"
	StatusDevelopment  ProjectStatus = "development"
	StatusTesting      ProjectStatus = "testing"
	StatusHomologation ProjectStatus = "homologation"
	StatusCompleted    ProjectStatus = "completed"
	StatusCancelled    ProjectStatus = "cancelled"
	StatusOnHold       ProjectStatus = "on_hold"
)

// BillableStatuses are the statuses a project must have to be considered by
// percentage metrics.
var BillableStatuses = []ProjectStatus{
	StatusPlanning,
	StatusInProgress,
	StatusDevelopment,
	StatusTesting,
	StatusHomologation,
	StatusCompleted,
}

type Project struct {
	ID        string
	CompanyID string
	Name      string
	Budget    decimal.NullDecimal
	Status    ProjectStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	EndDate   *generic.Date
}

// Company is the owner of metrics and projects.
type Company struct {
	ID   string
	Name string
}
