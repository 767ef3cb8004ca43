package forecast

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// PercentageEvaluator recognizes a share of each billable project's budget.
//
// Month mode recognizes the project's cumulative percentage exactly once, in
// the month of the status transition that produced it (creation for
// planning, last update otherwise). The metric's own window is not checked.
//
// Year mode answers "total annual billing": 100% of the budget of every
// project whose end date falls inside the year.
type PercentageEvaluator struct{}

var _ Evaluator = PercentageEvaluator{}

var hundred = decimal.NewFromInt(100)

func (PercentageEvaluator) EvaluateMonth(ctx context.Context, env *Env, m PaymentMetric, month generic.MonthYear) (Evaluation, error) {
	var ev Evaluation
	projects, err := env.BillableProjects(ctx, m.CompanyID)
	if err != nil {
		return ev, err
	}

	for _, p := range projects {
		if !p.Status.IsBillable() || AttributionMonth(p) != month {
			continue
		}
		pct := CumulativePercentage(m, p.Status)
		if !pct.IsPositive() {
			continue
		}
		if !p.Budget.Valid {
			ev.warn(recordProject, p.ID, "budget")
			continue
		}
		amount := generic.RoundMoney(p.Budget.Decimal.Mul(pct))
		ev.addLine(projectLine(m, p, amount, pct,
			fmt.Sprintf("%s (%s) - %s%%", p.Name, p.Status.Label(), pct.Mul(hundred).Round(2).String())))
	}
	return ev, nil
}

func (PercentageEvaluator) EvaluateYear(ctx context.Context, env *Env, m PaymentMetric, year int) (Evaluation, error) {
	var ev Evaluation
	projects, err := env.BillableProjects(ctx, m.CompanyID)
	if err != nil {
		return ev, err
	}

	for _, p := range projects {
		if !p.Status.IsBillable() || p.EndDate == nil || p.EndDate.Year() != year {
			continue
		}
		if !p.Budget.Valid {
			ev.warn(recordProject, p.ID, "budget")
			continue
		}
		amount := generic.RoundMoney(p.Budget.Decimal)
		ev.addLine(projectLine(m, p, amount, decimal.NewFromInt(1),
			fmt.Sprintf("%s (%s) - término em %s", p.Name, p.Status.Label(), p.EndDate)))
	}
	return ev, nil
}

func projectLine(m PaymentMetric, p Project, amount, pct decimal.Decimal, details string) Line {
	l := metricLine(m, amount, details)
	l.Project = &ProjectRef{
		ID:         p.ID,
		Name:       p.Name,
		Status:     p.Status,
		Percentage: pct,
	}
	return l
}
