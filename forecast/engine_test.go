package forecast_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/forecast"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.NullDecimal { return generic.Valid(decimal.RequireFromString(s)) }

func datePtr(s string) *generic.Date {
	d := generic.MustParseDate(s)
	return &d
}

func strPtr(s string) *string { return &s }

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// requireAdditive checks Total == sum of breakdown lines.
func requireAdditive(t *testing.T, res *forecast.Result) {
	t.Helper()
	sum := decimal.Zero
	for _, l := range res.Breakdown {
		sum = sum.Add(l.ExpectedValue)
	}
	require.True(t, sum.Equal(res.Total), "total %s != sum of lines %s", res.Total, sum)
}

func newStore() *memory.Memory {
	s := memory.New()
	s.PutCompany(forecast.Company{ID: "acme", Name: "Acme Ltda"})
	s.PutCompany(forecast.Company{ID: "globex", Name: "Globex SA"})
	return s
}

func monthlyFixed(id, company, total, start, end string) forecast.PaymentMetric {
	return forecast.PaymentMetric{
		ID:         id,
		CompanyID:  company,
		IsActive:   true,
		Type:       forecast.MetricMonthlyFixed,
		StartDate:  generic.MustParseDate(start),
		EndDate:    generic.MustParseDate(end),
		TotalValue: dec(total),
	}
}

func percentageMetric(id, company string) forecast.PaymentMetric {
	return forecast.PaymentMetric{
		ID:                     id,
		CompanyID:              company,
		IsActive:               true,
		Type:                   forecast.MetricPercentageByPhase,
		StartDate:              generic.MustParseDate("2020-01-01"),
		EndDate:                generic.MustParseDate("2020-01-31"),
		PlanningPercentage:     dec("0.2"),
		HomologationPercentage: dec("0.3"),
		CompletionPercentage:   dec("0.5"),
	}
}

func installmentMetric(id, company string) forecast.PaymentMetric {
	return forecast.PaymentMetric{
		ID:        id,
		CompanyID: company,
		IsActive:  true,
		Type:      forecast.MetricInstallmentSchedule,
		StartDate: generic.MustParseDate("2024-01-01"),
		EndDate:   generic.MustParseDate("2024-12-31"),
	}
}

func installment(metricID string, n int, due, value string) forecast.PaymentMetricDetail {
	return forecast.PaymentMetricDetail{
		ID:                fmt.Sprintf("%s-%d", metricID, n),
		PaymentMetricID:   metricID,
		DetailType:        forecast.DetailInstallment,
		InstallmentNumber: n,
		DueDate:           datePtr(due),
		Value:             dec(value),
	}
}

func monthly(t *testing.T, e *forecast.Engine, month string, companies []string) *forecast.Result {
	t.Helper()
	res, err := e.Monthly(context.Background(), month, companies)
	require.NoError(t, err)
	requireAdditive(t, res)
	return res
}

func yearly(t *testing.T, e *forecast.Engine, year string, companies []string) *forecast.Result {
	t.Helper()
	res, err := e.Yearly(context.Background(), year, companies)
	require.NoError(t, err)
	requireAdditive(t, res)
	return res
}

// =============================================================================
// MONTHLY FIXED
// =============================================================================

func TestMonthlyFixed_AmortizesEvenly(t *testing.T) {
	// GIVEN: 120000 over Jan-Dec 2024 (span 12)
	s := newStore()
	s.PutMetric(monthlyFixed("mf-1", "acme", "120000", "2024-01-01", "2024-12-31"))
	e := forecast.NewEngine(s)

	// WHEN/THEN: every in-range month bills 10000
	for _, m := range []string{"2024-01", "2024-06", "2024-12"} {
		res := monthly(t, e, m, nil)
		requireAmount(t, "10000", res.Total)
	}

	// Outside the window: nothing, and no line
	res := monthly(t, e, "2025-01", nil)
	requireAmount(t, "0", res.Total)
	assert.Empty(t, res.Breakdown)
}

func TestMonthlyFixed_BreakdownLine(t *testing.T) {
	s := newStore()
	s.PutMetric(monthlyFixed("mf-1", "acme", "120000", "2024-01-01", "2024-12-31"))
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-03", nil)
	require.Len(t, res.Breakdown, 1)

	line := res.Breakdown[0]
	assert.Equal(t, "acme", line.CompanyID)
	assert.Equal(t, "Acme Ltda", line.CompanyName)
	assert.Equal(t, forecast.MetricMonthlyFixed, line.MetricType)
	assert.Equal(t, "Mensal Fixo", line.MetricTypeLabel())
	assert.Equal(t, "3 de 12 Parcelas Mensais", line.Details)
	assert.Nil(t, line.Project)
}

func TestMonthlyFixed_RoundsToMinorUnit(t *testing.T) {
	// 10000 / 3 = 3333.333... -> 3333.33
	s := newStore()
	s.PutMetric(monthlyFixed("mf-1", "acme", "10000", "2024-01-01", "2024-03-31"))
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-02", nil)
	requireAmount(t, "3333.33", res.Total)
}

func TestMonthlyFixed_TrailingPartialMonthStillBills(t *testing.T) {
	// GIVEN: span is 6 (day 10 < day 15) but the window touches 7 months
	s := newStore()
	s.PutMetric(monthlyFixed("mf-1", "acme", "60000", "2024-01-15", "2024-07-10"))
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-07", nil)
	requireAmount(t, "10000", res.Total)
	assert.Equal(t, "6 de 6 Parcelas Mensais", res.Breakdown[0].Details)
}

func TestMonthlyFixed_Year(t *testing.T) {
	// GIVEN: 120000 over Jul 2024 - Jun 2025 (span 12, 10000/month)
	s := newStore()
	s.PutMetric(monthlyFixed("mf-1", "acme", "120000", "2024-07-01", "2025-06-30"))
	e := forecast.NewEngine(s)

	res := yearly(t, e, "2024", nil)
	requireAmount(t, "60000", res.Total)
	assert.Equal(t, "6 Parcelas Mensais em 2024", res.Breakdown[0].Details)

	res = yearly(t, e, "2025", nil)
	requireAmount(t, "60000", res.Total)

	res = yearly(t, e, "2026", nil)
	requireAmount(t, "0", res.Total)
	assert.Empty(t, res.Breakdown)
}

func TestMonthlyFixed_YearMatchesSumOfMonths(t *testing.T) {
	s := newStore()
	s.PutMetric(monthlyFixed("mf-1", "acme", "10000", "2024-01-01", "2024-03-31"))
	e := forecast.NewEngine(s)

	sum := decimal.Zero
	for _, m := range []string{"2024-01", "2024-02", "2024-03"} {
		sum = sum.Add(monthly(t, e, m, nil).Total)
	}
	res := yearly(t, e, "2024", nil)
	assert.True(t, sum.Equal(res.Total), "year %s, months %s", res.Total, sum)
}

// =============================================================================
// PERCENTAGE BY PHASE
// =============================================================================

func TestPercentage_RecognizedOnceInTransitionMonth(t *testing.T) {
	// GIVEN: created 2024-03, moved to completed 2024-05, budget 100000
	s := newStore()
	s.PutMetric(percentageMetric("pct-1", "acme"))
	s.PutProject(forecast.Project{
		ID:        "proj-1",
		CompanyID: "acme",
		Name:      "Portal",
		Budget:    dec("100000"),
		Status:    forecast.StatusCompleted,
		CreatedAt: ts("2024-03-04T10:00:00Z"),
		UpdatedAt: ts("2024-05-20T16:30:00Z"),
	})
	e := forecast.NewEngine(s)

	// Creation month no longer attributes: status is completed now
	requireAmount(t, "0", monthly(t, e, "2024-03", nil).Total)

	// Transition month receives the full cumulative 20+30+50 = 100%
	res := monthly(t, e, "2024-05", nil)
	requireAmount(t, "100000", res.Total)
	require.Len(t, res.Breakdown, 1)
	line := res.Breakdown[0]
	require.NotNil(t, line.Project)
	assert.Equal(t, "Portal", line.Project.Name)
	assert.Equal(t, forecast.StatusCompleted, line.Project.Status)
	assert.True(t, decimal.NewFromInt(1).Equal(line.Project.Percentage))
	assert.Equal(t, "Portal (Concluído) - 100%", line.Details)

	for _, m := range []string{"2024-04", "2024-06", "2025-05"} {
		requireAmount(t, "0", monthly(t, e, m, nil).Total)
	}
}

func TestPercentage_CumulativeByStage(t *testing.T) {
	metric := percentageMetric("pct-1", "acme")

	tests := []struct {
		status forecast.ProjectStatus
		want   string
	}{
		{forecast.StatusPlanning, "0.2"},
		{forecast.StatusInProgress, "0.5"},
		{forecast.StatusDevelopment, "0.5"},
		{forecast.StatusTesting, "0.5"},
		{forecast.StatusHomologation, "0.5"},
		{forecast.StatusCompleted, "1"},
		{forecast.ProjectStatus("unknown"), "0.2"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := forecast.CumulativePercentage(metric, tt.status)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPercentage_PlanningAttributesToCreationMonth(t *testing.T) {
	s := newStore()
	s.PutMetric(percentageMetric("pct-1", "acme"))
	s.PutProject(forecast.Project{
		ID:        "proj-1",
		CompanyID: "acme",
		Name:      "App",
		Budget:    dec("50000"),
		Status:    forecast.StatusPlanning,
		CreatedAt: ts("2024-02-10T09:00:00Z"),
		UpdatedAt: ts("2024-04-01T09:00:00Z"),
	})
	e := forecast.NewEngine(s)

	requireAmount(t, "10000", monthly(t, e, "2024-02", nil).Total)
	requireAmount(t, "0", monthly(t, e, "2024-04", nil).Total)
}

func TestPercentage_IgnoresMetricWindowAndNonBillableProjects(t *testing.T) {
	// The metric window is 2020; the project transitions in 2024.
	s := newStore()
	s.PutMetric(percentageMetric("pct-1", "acme"))
	s.PutProject(forecast.Project{
		ID: "p-ok", CompanyID: "acme", Name: "Ok", Budget: dec("1000"),
		Status: forecast.StatusTesting, CreatedAt: ts("2024-01-01T00:00:00Z"), UpdatedAt: ts("2024-06-15T00:00:00Z"),
	})
	s.PutProject(forecast.Project{
		ID: "p-cancel", CompanyID: "acme", Name: "Cancelled", Budget: dec("9999"),
		Status: forecast.StatusCancelled, CreatedAt: ts("2024-01-01T00:00:00Z"), UpdatedAt: ts("2024-06-15T00:00:00Z"),
	})
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-06", nil)
	requireAmount(t, "500", res.Total)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, "Ok (Testes) - 50%", res.Breakdown[0].Details)
}

func TestPercentage_ZeroPercentageEmitsNoLine(t *testing.T) {
	s := newStore()
	metric := percentageMetric("pct-1", "acme")
	metric.PlanningPercentage = decimal.NullDecimal{}
	s.PutMetric(metric)
	s.PutProject(forecast.Project{
		ID: "p-1", CompanyID: "acme", Name: "New", Budget: dec("1000"),
		Status: forecast.StatusPlanning, CreatedAt: ts("2024-06-01T00:00:00Z"), UpdatedAt: ts("2024-06-01T00:00:00Z"),
	})
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-06", nil)
	requireAmount(t, "0", res.Total)
	assert.Empty(t, res.Breakdown)
	assert.Empty(t, res.Warnings)
}

func TestPercentage_YearBillsFullBudgetOfProjectsEndingInYear(t *testing.T) {
	s := newStore()
	s.PutMetric(percentageMetric("pct-1", "acme"))
	s.PutProject(forecast.Project{
		ID: "p-1", CompanyID: "acme", Name: "Ends 2024", Budget: dec("80000"),
		Status: forecast.StatusDevelopment, EndDate: datePtr("2024-11-30"),
		CreatedAt: ts("2023-01-01T00:00:00Z"), UpdatedAt: ts("2023-06-01T00:00:00Z"),
	})
	s.PutProject(forecast.Project{
		ID: "p-2", CompanyID: "acme", Name: "Ends 2025", Budget: dec("1000"),
		Status: forecast.StatusCompleted, EndDate: datePtr("2025-01-31"),
	})
	s.PutProject(forecast.Project{
		ID: "p-3", CompanyID: "acme", Name: "Open ended", Budget: dec("1000"),
		Status: forecast.StatusPlanning,
	})
	e := forecast.NewEngine(s)

	res := yearly(t, e, "2024", nil)
	requireAmount(t, "80000", res.Total)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, "Ends 2024", res.Breakdown[0].Project.Name)
	assert.True(t, decimal.NewFromInt(1).Equal(res.Breakdown[0].Project.Percentage))
}

// =============================================================================
// INSTALLMENT SCHEDULE
// =============================================================================

func TestInstallment_SumsRowsDueInPeriod(t *testing.T) {
	s := newStore()
	s.PutMetric(installmentMetric("inst-1", "acme"))
	s.PutDetail(installment("inst-1", 1, "2024-06-05", "500"))
	s.PutDetail(installment("inst-1", 2, "2024-06-20", "700"))
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-06", nil)
	requireAmount(t, "1200", res.Total)
	assert.Equal(t, "2 parcela(s) do mês", res.Breakdown[0].Details)

	requireAmount(t, "1200", yearly(t, e, "2024", nil).Total)

	res = monthly(t, e, "2024-07", nil)
	requireAmount(t, "0", res.Total)
	assert.Empty(t, res.Breakdown)
}

func TestInstallment_SingleRowShowsPosition(t *testing.T) {
	s := newStore()
	s.PutMetric(installmentMetric("inst-1", "acme"))
	for i := 1; i <= 4; i++ {
		s.PutDetail(installment("inst-1", i, fmt.Sprintf("2024-0%d-10", i), "250"))
	}
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-03", nil)
	requireAmount(t, "250", res.Total)
	assert.Equal(t, "3 de 4 Parcelado", res.Breakdown[0].Details)
}

func TestInstallment_LegacyTagFallbackForMonthOnly(t *testing.T) {
	// GIVEN: a legacy row without due date, tagged 2024-08
	s := newStore()
	s.PutMetric(installmentMetric("inst-1", "acme"))
	s.PutDetail(forecast.PaymentMetricDetail{
		ID: "legacy-1", PaymentMetricID: "inst-1", DetailType: forecast.DetailInstallment,
		InstallmentNumber: 1, MonthYear: strPtr("2024-08"), Value: dec("900"),
	})
	e := forecast.NewEngine(s)

	requireAmount(t, "900", monthly(t, e, "2024-08", nil).Total)

	// Year mode never falls back
	requireAmount(t, "0", yearly(t, e, "2024", nil).Total)
}

func TestInstallment_DueDateRowsWinOverTags(t *testing.T) {
	s := newStore()
	s.PutMetric(installmentMetric("inst-1", "acme"))
	s.PutDetail(installment("inst-1", 1, "2024-08-15", "100"))
	s.PutDetail(forecast.PaymentMetricDetail{
		ID: "legacy-2", PaymentMetricID: "inst-1", DetailType: forecast.DetailInstallment,
		InstallmentNumber: 2, MonthYear: strPtr("2024-08"), Value: dec("900"),
	})
	e := forecast.NewEngine(s)

	requireAmount(t, "100", monthly(t, e, "2024-08", nil).Total)
}

// =============================================================================
// AGGREGATION
// =============================================================================

func seedMixed(s *memory.Memory) {
	s.PutMetric(monthlyFixed("mf-acme", "acme", "120000", "2024-01-01", "2024-12-31"))
	s.PutMetric(monthlyFixed("mf-globex", "globex", "24000", "2024-01-01", "2024-12-31"))
	s.PutMetric(installmentMetric("inst-acme", "acme"))
	s.PutDetail(installment("inst-acme", 1, "2024-06-05", "500"))
	s.PutMetric(percentageMetric("pct-globex", "globex"))
	s.PutProject(forecast.Project{
		ID: "gp-1", CompanyID: "globex", Name: "ERP", Budget: dec("10000"),
		Status: forecast.StatusHomologation, CreatedAt: ts("2024-01-01T00:00:00Z"), UpdatedAt: ts("2024-06-30T23:00:00Z"),
	})
}

func TestCompute_CompanyScoping(t *testing.T) {
	s := newStore()
	seedMixed(s)
	e := forecast.NewEngine(s)

	all := monthly(t, e, "2024-06", nil)
	requireAmount(t, "17500", all.Total) // 10000 + 2000 + 500 + 5000

	acme := monthly(t, e, "2024-06", []string{"acme"})
	requireAmount(t, "10500", acme.Total)
	for _, l := range acme.Breakdown {
		assert.Equal(t, "acme", l.CompanyID)
	}

	none := monthly(t, e, "2024-06", []string{})
	requireAmount(t, "0", none.Total)
	assert.Empty(t, none.Breakdown)
}

func TestCompute_Deterministic(t *testing.T) {
	s := newStore()
	seedMixed(s)
	e := forecast.NewEngine(s)

	first := monthly(t, e, "2024-06", nil)
	for i := 0; i < 20; i++ {
		again := monthly(t, e, "2024-06", nil)
		assert.Equal(t, first.Breakdown, again.Breakdown)
		assert.True(t, first.Total.Equal(again.Total))
	}
}

func TestCompute_SequentialAndParallelAgree(t *testing.T) {
	s := newStore()
	seedMixed(s)

	parallel := forecast.NewEngine(s)
	sequential := forecast.NewEngine(s)
	sequential.Concurrency = 1

	a := monthly(t, parallel, "2024-06", nil)
	b := monthly(t, sequential, "2024-06", nil)
	assert.Equal(t, a.Breakdown, b.Breakdown)
}

func TestCompute_InactiveMetricsNeverEvaluated(t *testing.T) {
	s := newStore()
	m := monthlyFixed("mf-1", "acme", "120000", "2024-01-01", "2024-12-31")
	m.IsActive = false
	s.PutMetric(m)
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-06", nil)
	requireAmount(t, "0", res.Total)
	assert.Empty(t, res.Breakdown)
}

func TestCompute_MalformedRecordContained(t *testing.T) {
	// GIVEN: one metric with an unreadable total, one healthy metric
	s := newStore()
	broken := monthlyFixed("mf-broken", "acme", "0", "2024-01-01", "2024-12-31")
	broken.TotalValue = decimal.NullDecimal{}
	s.PutMetric(broken)
	s.PutMetric(monthlyFixed("mf-ok", "globex", "12000", "2024-01-01", "2024-12-31"))
	s.PutMetric(installmentMetric("inst-1", "globex"))
	s.PutDetail(installment("inst-1", 1, "2024-06-01", "300"))
	bad := installment("inst-1", 2, "2024-06-02", "0")
	bad.Value = decimal.NullDecimal{}
	s.PutDetail(bad)
	e := forecast.NewEngine(s)

	// WHEN
	res := monthly(t, e, "2024-06", nil)

	// THEN: healthy records still count, broken ones are reported
	requireAmount(t, "1300", res.Total)
	require.Len(t, res.Warnings, 2)
	assert.ErrorIs(t, res.Warnings[0], generic.ErrMalformedRecord)
	assert.Equal(t, "mf-broken", res.Warnings[0].RecordID)
	assert.Equal(t, "total_value", res.Warnings[0].Field)
	assert.Equal(t, "inst-1-2", res.Warnings[1].RecordID)
}

func TestCompute_InvalidDateOrderingDegradesToSingleInstallment(t *testing.T) {
	// end precedes start: span degrades to 1 instead of failing the batch
	s := newStore()
	s.PutMetric(monthlyFixed("mf-1", "acme", "5000", "2024-06-30", "2024-06-01"))
	s.PutMetric(monthlyFixed("mf-2", "globex", "1200", "2024-01-01", "2024-12-31"))
	e := forecast.NewEngine(s)

	res := monthly(t, e, "2024-06", nil)
	requireAmount(t, "5100", res.Total)
	assert.Equal(t, "1 de 1 Parcelas Mensais", res.Breakdown[0].Details)

	requireAmount(t, "100", monthly(t, e, "2024-07", nil).Total)
	requireAmount(t, "6200", yearly(t, e, "2024", nil).Total)
}

func TestComputeYearly_InvertedWindowAcrossMonthsAddsNothing(t *testing.T) {
	// GIVEN: a legacy metric whose end precedes its start by several months
	s := newStore()
	s.PutMetric(monthlyFixed("mf-bad", "acme", "12000", "2024-08-15", "2024-03-10"))
	s.PutMetric(monthlyFixed("mf-ok", "acme", "1200", "2024-01-01", "2024-12-31"))
	e := forecast.NewEngine(s)

	// WHEN
	res := yearly(t, e, "2024", nil)

	// THEN: the year equals the sum of its months and never goes negative
	requireAmount(t, "1200", res.Total)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, "mf-ok", res.Breakdown[0].MetricID)

	sum := decimal.Zero
	for m := 1; m <= 12; m++ {
		sum = sum.Add(monthly(t, e, fmt.Sprintf("2024-%02d", m), nil).Total)
	}
	requireAmount(t, res.Total.String(), sum)
}

func TestCompute_RejectsBadPeriod(t *testing.T) {
	e := forecast.NewEngine(newStore())

	_, err := e.Monthly(context.Background(), "2024-6", nil)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = e.Yearly(context.Background(), "twenty", nil)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

// =============================================================================
// DATA ACCESS FAILURES
// =============================================================================

// failingSource wraps a store and fails one operation.
type failingSource struct {
	*memory.Memory
	failOn string
	calls  map[string]int
}

var errBoom = errors.New("boom")

func (f *failingSource) ActiveMetrics(ctx context.Context, ids []string) ([]forecast.PaymentMetric, error) {
	if f.failOn == "ActiveMetrics" {
		return nil, errBoom
	}
	return f.Memory.ActiveMetrics(ctx, ids)
}

func (f *failingSource) BillableProjects(ctx context.Context, companyID string) ([]forecast.Project, error) {
	f.calls["BillableProjects"]++
	if f.failOn == "BillableProjects" {
		return nil, errBoom
	}
	return f.Memory.BillableProjects(ctx, companyID)
}

func (f *failingSource) InstallmentsTagged(ctx context.Context, id string, m generic.MonthYear) ([]forecast.PaymentMetricDetail, error) {
	if f.failOn == "InstallmentsTagged" {
		return nil, errBoom
	}
	return f.Memory.InstallmentsTagged(ctx, id, m)
}

func TestCompute_DataAccessFailureFailsWholeCall(t *testing.T) {
	for _, op := range []string{"ActiveMetrics", "BillableProjects", "InstallmentsTagged"} {
		t.Run(op, func(t *testing.T) {
			s := newStore()
			seedMixed(s)
			src := &failingSource{Memory: s, failOn: op, calls: map[string]int{}}
			e := forecast.NewEngine(src)

			// July: the installment metric has no due rows, forcing the tag query
			res, err := e.Monthly(context.Background(), "2024-07", nil)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, generic.ErrDataAccess)
			assert.ErrorIs(t, err, errBoom)
			var dae *generic.DataAccessError
			require.ErrorAs(t, err, &dae)
			assert.Equal(t, op, dae.Op)
		})
	}
}

func TestCompute_ProjectsFetchedOncePerCompany(t *testing.T) {
	s := newStore()
	s.PutMetric(percentageMetric("pct-1", "acme"))
	s.PutMetric(percentageMetric("pct-2", "acme"))
	s.PutMetric(percentageMetric("pct-3", "acme"))
	src := &failingSource{Memory: s, calls: map[string]int{}}
	e := forecast.NewEngine(src)
	e.Concurrency = 1

	_, err := e.Monthly(context.Background(), "2024-06", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls["BillableProjects"])

	// A new call never reuses the previous call's projects
	_, err = e.Monthly(context.Background(), "2024-06", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls["BillableProjects"])
}
