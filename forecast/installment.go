package forecast

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// InstallmentEvaluator sums the explicit installment rows of a metric that
// fall in the requested period. The metric's own window is not checked.
type InstallmentEvaluator struct{}

var _ Evaluator = InstallmentEvaluator{}

func (InstallmentEvaluator) EvaluateMonth(ctx context.Context, env *Env, m PaymentMetric, month generic.MonthYear) (Evaluation, error) {
	var ev Evaluation
	details, err := InstallmentsForMonth(ctx, env.Source(), m.ID, month)
	if err != nil {
		return ev, err
	}
	if len(details) == 0 {
		return ev, nil
	}

	amount := sumInstallments(&ev, details)

	text := fmt.Sprintf("%d parcela(s) do mês", len(details))
	if len(details) == 1 {
		total, err := env.Source().InstallmentCount(ctx, m.ID)
		if err != nil {
			return Evaluation{}, &generic.DataAccessError{Op: "InstallmentCount", Err: err}
		}
		text = fmt.Sprintf("%d de %d Parcelado", details[0].InstallmentNumber, total)
	}
	ev.addLine(metricLine(m, amount, text))
	return ev, nil
}

func (InstallmentEvaluator) EvaluateYear(ctx context.Context, env *Env, m PaymentMetric, year int) (Evaluation, error) {
	var ev Evaluation
	details, err := InstallmentsForYear(ctx, env.Source(), m.ID, year)
	if err != nil {
		return ev, err
	}
	if len(details) == 0 {
		return ev, nil
	}

	amount := sumInstallments(&ev, details)
	ev.addLine(metricLine(m, amount, fmt.Sprintf("%d parcela(s) em %d", len(details), year)))
	return ev, nil
}

// sumInstallments adds valid values; unusable ones are recorded as warnings.
func sumInstallments(ev *Evaluation, details []PaymentMetricDetail) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range details {
		if !d.Value.Valid {
			ev.warn(recordDetail, d.ID, "value")
			continue
		}
		sum = sum.Add(d.Value.Decimal)
	}
	return generic.RoundMoney(sum)
}
