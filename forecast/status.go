package forecast

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// PROJECT LIFECYCLE - Fixed mapping, not a state machine
// =============================================================================

// Stage groups statuses by how much of a project's budget they unlock.
// Planning < in-flight < Completed.
type Stage int

const (
	StagePlanning Stage = iota
	StageInFlight
	StageCompleted
)

// StageOf maps a status to its stage. Unknown statuses count as planning.
func StageOf(s ProjectStatus) Stage {
	switch s {
	case StatusCompleted:
		return StageCompleted
	case StatusInProgress, StatusDevelopment, StatusTesting, StatusHomologation:
		return StageInFlight
	default:
		return StagePlanning
	}
}

// IsBillable reports whether percentage metrics consider the project.
func (s ProjectStatus) IsBillable() bool {
	for _, b := range BillableStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// IsValid reports whether s is one of the eight lifecycle statuses.
func (s ProjectStatus) IsValid() bool {
	return s.IsBillable() || s == StatusCancelled || s == StatusOnHold
}

// Label is the status text shown in breakdown lines.
func (s ProjectStatus) Label() string {
	switch s {
	case StatusPlanning:
		return "Planejamento"
	case StatusInProgress:
		return "Em Andamento"
	case StatusDevelopment:
		return "Desenvolvimento"
	case StatusTesting:
		return "Testes"
	case StatusHomologation:
		return "Homologação"
	case StatusCompleted:
		return "Concluído"
	case StatusCancelled:
		return "Cancelado"
	case StatusOnHold:
		return "Pausado"
	default:
		return string(s)
	}
}

// CumulativePercentage is the fraction of budget earned by a project in the
// given status. Accumulation is strictly additive; the homologation
// percentage is shared by every in-flight status. Missing percentages are 0.
func CumulativePercentage(m PaymentMetric, s ProjectStatus) decimal.Decimal {
	pct := generic.OrZero(m.PlanningPercentage)
	switch StageOf(s) {
	case StageCompleted:
		pct = pct.Add(generic.OrZero(m.HomologationPercentage)).
			Add(generic.OrZero(m.CompletionPercentage))
	case StageInFlight:
		pct = pct.Add(generic.OrZero(m.HomologationPercentage))
	}
	return pct
}

// AttributionTime is the timestamp whose month receives the project's
// cumulative percentage: creation while planning, last update otherwise.
func AttributionTime(p Project) time.Time {
	if p.Status == StatusPlanning {
		return p.CreatedAt
	}
	return p.UpdatedAt
}

// AttributionMonth is the calendar month of AttributionTime.
func AttributionMonth(p Project) generic.MonthYear {
	return generic.MonthOf(AttributionTime(p))
}
