package forecast

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// MonthlyFixedEvaluator amortizes TotalValue evenly over the months of the
// metric's window.
type MonthlyFixedEvaluator struct{}

var _ Evaluator = MonthlyFixedEvaluator{}

// MonthlyAmount is TotalValue / InclusiveMonthSpan, rounded to the minor unit.
// ok is false when TotalValue is missing or non-numeric.
func MonthlyAmount(m PaymentMetric) (amount decimal.Decimal, ok bool) {
	if !m.TotalValue.Valid {
		return decimal.Zero, false
	}
	span := generic.InclusiveMonthSpan(m.StartDate, m.EndDate)
	return generic.RoundMoney(m.TotalValue.Decimal.Div(decimal.NewFromInt(int64(span)))), true
}

func (MonthlyFixedEvaluator) EvaluateMonth(_ context.Context, _ *Env, m PaymentMetric, month generic.MonthYear) (Evaluation, error) {
	var ev Evaluation
	if !generic.MonthIntersects(m.StartDate, m.EndDate, month) {
		return ev, nil
	}
	amount, ok := MonthlyAmount(m)
	if !ok {
		ev.warn(recordMetric, m.ID, "total_value")
		return ev, nil
	}

	span := generic.InclusiveMonthSpan(m.StartDate, m.EndDate)
	ordinal := generic.CurrentOrdinal(m.StartDate, m.EndDate, month)
	ev.addLine(metricLine(m, amount, fmt.Sprintf("%d de %d Parcelas Mensais", ordinal, span)))
	return ev, nil
}

// EvaluateYear bills one monthly amount per calendar month of the window that
// falls inside the year.
func (MonthlyFixedEvaluator) EvaluateYear(_ context.Context, _ *Env, m PaymentMetric, year int) (Evaluation, error) {
	var ev Evaluation
	if !generic.YearIntersects(m.StartDate, m.EndDate, year) {
		return ev, nil
	}
	months := generic.OverlapMonths(m.StartDate, m.EndDate, year)
	if months == 0 {
		return ev, nil
	}
	perMonth, ok := MonthlyAmount(m)
	if !ok {
		ev.warn(recordMetric, m.ID, "total_value")
		return ev, nil
	}

	amount := generic.RoundMoney(perMonth.Mul(decimal.NewFromInt(int64(months))))
	ev.addLine(metricLine(m, amount, fmt.Sprintf("%d Parcelas Mensais em %d", months, year)))
	return ev, nil
}
