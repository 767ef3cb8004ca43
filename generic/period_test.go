package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/generic"
)

func date(s string) generic.Date { return generic.MustParseDate(s) }

func month(s string) generic.MonthYear { return generic.MustParseMonthYear(s) }

// =============================================================================
// INTERSECTION
// =============================================================================

func TestMonthIntersects(t *testing.T) {
	start, end := date("2024-01-15"), date("2024-07-10")

	tests := []struct {
		month string
		want  bool
	}{
		{"2023-12", false},
		{"2024-01", true}, // window starts mid-month
		{"2024-04", true},
		{"2024-07", true}, // window ends mid-month
		{"2024-08", false},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			assert.Equal(t, tt.want, generic.MonthIntersects(start, end, month(tt.month)))
		})
	}
}

func TestMonthIntersects_SingleDayWindow(t *testing.T) {
	d := date("2024-02-29")
	assert.True(t, generic.MonthIntersects(d, d, month("2024-02")))
	assert.False(t, generic.MonthIntersects(d, d, month("2024-03")))
}

func TestYearIntersects(t *testing.T) {
	start, end := date("2023-11-01"), date("2024-02-28")

	assert.False(t, generic.YearIntersects(start, end, 2022))
	assert.True(t, generic.YearIntersects(start, end, 2023))
	assert.True(t, generic.YearIntersects(start, end, 2024))
	assert.False(t, generic.YearIntersects(start, end, 2025))
}

// =============================================================================
// MONTH SPAN
// =============================================================================

func TestInclusiveMonthSpan(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{"end day before start day", "2024-01-15", "2024-07-10", 6},
		{"end day after start day", "2024-01-10", "2024-07-15", 7},
		{"same day of month", "2024-01-10", "2024-07-10", 7},
		{"full calendar year", "2024-01-01", "2024-12-31", 12},
		{"single day", "2024-03-05", "2024-03-05", 1},
		{"within one month, day regresses", "2024-03-20", "2024-04-05", 1},
		{"across year boundary", "2023-11-01", "2024-02-29", 4},
		{"end before start degrades to one", "2024-07-01", "2024-01-01", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generic.InclusiveMonthSpan(date(tt.start), date(tt.end)))
		})
	}
}

func TestCurrentOrdinal(t *testing.T) {
	start, end := date("2024-01-01"), date("2024-12-31")

	assert.Equal(t, 1, generic.CurrentOrdinal(start, end, month("2024-01")))
	assert.Equal(t, 3, generic.CurrentOrdinal(start, end, month("2024-03")))
	assert.Equal(t, 12, generic.CurrentOrdinal(start, end, month("2024-12")))

	// Clamped into [1, span]
	assert.Equal(t, 1, generic.CurrentOrdinal(start, end, month("2023-06")))
	assert.Equal(t, 12, generic.CurrentOrdinal(start, end, month("2025-06")))
}

func TestCurrentOrdinal_TrailingPartialMonthClamps(t *testing.T) {
	// Span is 6 but the window still touches July.
	start, end := date("2024-01-15"), date("2024-07-10")
	assert.Equal(t, 6, generic.CurrentOrdinal(start, end, month("2024-07")))
}

func TestOverlapMonths(t *testing.T) {
	start, end := date("2023-11-15"), date("2024-03-10")

	assert.Equal(t, 2, generic.OverlapMonths(start, end, 2023))
	assert.Equal(t, 3, generic.OverlapMonths(start, end, 2024))
	assert.Equal(t, 0, generic.OverlapMonths(start, end, 2025))
	assert.Equal(t, 12, generic.OverlapMonths(date("2020-01-01"), date("2030-01-01"), 2024))
}

func TestOverlapMonths_InvertedWindow(t *testing.T) {
	// same month: counted once, like MonthIntersects for June
	assert.Equal(t, 1, generic.OverlapMonths(date("2024-06-30"), date("2024-06-01"), 2024))

	// across months: no month intersects, so nothing overlaps
	assert.Equal(t, 0, generic.OverlapMonths(date("2024-08-15"), date("2024-03-10"), 2024))
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseReportPeriod(t *testing.T) {
	rp, err := generic.ParseReportPeriod("2024-06", "")
	require.NoError(t, err)
	assert.Equal(t, generic.GranularityMonth, rp.Granularity)
	assert.Equal(t, time.June, rp.Month.Month)
	assert.Equal(t, "2024-06", rp.String())
	assert.Equal(t, date("2024-06-30"), rp.Bounds().End)

	rp, err = generic.ParseReportPeriod("", "2024")
	require.NoError(t, err)
	assert.Equal(t, generic.GranularityYear, rp.Granularity)
	assert.Equal(t, "2024", rp.String())
	assert.Equal(t, date("2024-01-01"), rp.Bounds().Start)

	for _, bad := range [][2]string{{"", ""}, {"2024-06", "2024"}, {"2024-13", ""}, {"", "24"}, {"June", ""}} {
		_, err := generic.ParseReportPeriod(bad[0], bad[1])
		assert.ErrorIs(t, err, generic.ErrInvalidPeriod, "input %v", bad)
		assert.True(t, generic.IsClientError(err))
	}
}

func TestEndOfMonth_LeapYear(t *testing.T) {
	assert.Equal(t, date("2024-02-29"), generic.EndOfMonth(2024, time.February))
	assert.Equal(t, date("2023-02-28"), generic.EndOfMonth(2023, time.February))
	assert.Equal(t, date("2024-12-31"), generic.EndOfMonth(2024, time.December))
}

// =============================================================================
// MONEY AND ERRORS
// =============================================================================

func TestRoundMoney_HalfUp(t *testing.T) {
	assert.Equal(t, "10.01", generic.RoundMoney(decimal.RequireFromString("10.005")).StringFixed(2))
	assert.Equal(t, "3333.33", generic.RoundMoney(decimal.NewFromInt(10000).Div(decimal.NewFromInt(3))).StringFixed(2))
}

func TestParseAmount(t *testing.T) {
	assert.True(t, generic.ParseAmount("120000.50").Valid)
	assert.False(t, generic.ParseAmount("").Valid)
	assert.False(t, generic.ParseAmount("abc").Valid)
	assert.True(t, generic.OrZero(generic.ParseAmount("n/a")).IsZero())
}

func TestDataAccessError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&generic.DataAccessError{Op: "ActiveMetrics", Err: cause})

	assert.ErrorIs(t, err, generic.ErrDataAccess)
	assert.ErrorIs(t, err, cause)
	assert.False(t, generic.IsClientError(err))
}
