/*
engine.go - Forecast aggregator

PURPOSE:
  Computes the revenue to recognize for one calendar month or year:
  fetch active metrics, dispatch each to the evaluator of its billing
  model, sum the amounts and collect the breakdown lines.

CONTRACT:
  - Side-effect free and idempotent: same snapshot in, same result out
  - Total == sum of Breakdown[i].ExpectedValue
  - Breakdown is grouped by metric, in the order ActiveMetrics returned
  - Any source failure fails the whole call (no partial forecasts)
  - Malformed numeric fields count as 0 and are reported in Warnings

CONCURRENCY:
  Metrics are evaluated in parallel, bounded by Concurrency. Every worker
  writes only its own slot, so the merge order never depends on
  scheduling. Billable projects are fetched once per company per call.

EXAMPLE:
  engine := forecast.NewEngine(store)
  res, err := engine.Monthly(ctx, "2024-06", []string{"acme"})
  fmt.Println(res.Total)
*/
package forecast

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency bounds parallel metric evaluation.
const DefaultConcurrency = 8

// Evaluator turns one metric into an amount and breakdown lines.
type Evaluator interface {
	EvaluateMonth(ctx context.Context, env *Env, m PaymentMetric, month generic.MonthYear) (Evaluation, error)
	EvaluateYear(ctx context.Context, env *Env, m PaymentMetric, year int) (Evaluation, error)
}

// DefaultEvaluators maps each billing model to its evaluator.
func DefaultEvaluators() map[MetricType]Evaluator {
	return map[MetricType]Evaluator{
		MetricMonthlyFixed:        MonthlyFixedEvaluator{},
		MetricPercentageByPhase:   PercentageEvaluator{},
		MetricInstallmentSchedule: InstallmentEvaluator{},
	}
}

// Engine holds no mutable state between calls.
type Engine struct {
	Source      MetricSource
	Evaluators  map[MetricType]Evaluator
	Concurrency int
}

func NewEngine(src MetricSource) *Engine {
	return &Engine{
		Source:      src,
		Evaluators:  DefaultEvaluators(),
		Concurrency: DefaultConcurrency,
	}
}

// Monthly computes the forecast for "YYYY-MM". nil companyIDs means all companies.
func (e *Engine) Monthly(ctx context.Context, month string, companyIDs []string) (*Result, error) {
	m, err := generic.ParseMonthYear(month)
	if err != nil {
		return nil, err
	}
	return e.Compute(ctx, generic.ForMonth(m), companyIDs)
}

// Yearly computes the forecast for "YYYY". nil companyIDs means all companies.
func (e *Engine) Yearly(ctx context.Context, year string, companyIDs []string) (*Result, error) {
	y, err := generic.ParseYear(year)
	if err != nil {
		return nil, err
	}
	return e.Compute(ctx, generic.ForYear(y), companyIDs)
}

// Compute evaluates every active metric for the period.
func (e *Engine) Compute(ctx context.Context, period generic.ReportPeriod, companyIDs []string) (*Result, error) {
	metrics, err := e.Source.ActiveMetrics(ctx, companyIDs)
	if err != nil {
		return nil, &generic.DataAccessError{Op: "ActiveMetrics", Err: err}
	}

	env := newEnv(e.Source)
	evals := make([]Evaluation, len(metrics))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for i, m := range metrics {
		if !m.IsActive {
			continue
		}
		ev, ok := e.Evaluators[m.Type]
		if !ok {
			evals[i].warn(recordMetric, m.ID, "metric_type")
			continue
		}
		i, m := i, m
		g.Go(func() error {
			res, err := evaluate(gctx, ev, env, m, period)
			if err != nil {
				return err
			}
			evals[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Period:    period,
		Total:     decimal.Zero,
		Breakdown: make([]Line, 0),
	}
	for _, ev := range evals {
		result.Total = result.Total.Add(ev.Amount)
		result.Breakdown = append(result.Breakdown, ev.Lines...)
		result.Warnings = append(result.Warnings, ev.Warnings...)
	}
	return result, nil
}

func evaluate(ctx context.Context, ev Evaluator, env *Env, m PaymentMetric, period generic.ReportPeriod) (Evaluation, error) {
	if period.Granularity == generic.GranularityYear {
		return ev.EvaluateYear(ctx, env, m, period.Year)
	}
	return ev.EvaluateMonth(ctx, env, m, period.Month)
}

func (e *Engine) concurrency() int {
	if e.Concurrency < 1 {
		return 1
	}
	return e.Concurrency
}

// =============================================================================
// ENV - Per-call view of the data source
// =============================================================================

// Env is created for one Compute call and discarded with it. It memoizes
// billable projects per company so several percentage metrics of the same
// company share one query.
type Env struct {
	src MetricSource

	group    singleflight.Group
	mu       sync.Mutex
	projects map[string][]Project
}

func newEnv(src MetricSource) *Env {
	return &Env{src: src, projects: make(map[string][]Project)}
}

// Source is the underlying data source.
func (e *Env) Source() MetricSource { return e.src }

// BillableProjects returns the company's billable projects, querying the
// source at most once per company for the lifetime of the Env.
func (e *Env) BillableProjects(ctx context.Context, companyID string) ([]Project, error) {
	e.mu.Lock()
	cached, ok := e.projects[companyID]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := e.group.Do(companyID, func() (any, error) {
		projects, err := e.src.BillableProjects(ctx, companyID)
		if err != nil {
			return nil, &generic.DataAccessError{Op: "BillableProjects", Err: err}
		}
		e.mu.Lock()
		e.projects[companyID] = projects
		e.mu.Unlock()
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Project), nil
}
