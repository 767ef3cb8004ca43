package generic

import (
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// PERIOD - Closed date interval [Start, End]
// =============================================================================

// Period is a closed interval of calendar days.
//
// Examples:
//   - Calendar month 2024-06: Jun 1 - Jun 30
//   - Calendar year 2024:     Jan 1 - Dec 31
//   - A billing window:       metric start date - metric end date
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Intersects reports whether two closed intervals share at least one day.
func (p Period) Intersects(other Period) bool {
	return !(p.End.Before(other.Start) || p.Start.After(other.End))
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// MONTH YEAR - A calendar month, "YYYY-MM"
// =============================================================================

type MonthYear struct {
	Year  int
	Month time.Month
}

const monthYearLayout = "2006-01"

// ParseMonthYear parses YYYY-MM.
func ParseMonthYear(s string) (MonthYear, error) {
	t, err := time.Parse(monthYearLayout, s)
	if err != nil {
		return MonthYear{}, fmt.Errorf("%w: month %q (use YYYY-MM)", ErrInvalidPeriod, s)
	}
	return MonthYear{Year: t.Year(), Month: t.Month()}, nil
}

func MustParseMonthYear(s string) MonthYear {
	m, err := ParseMonthYear(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MonthOf returns the calendar month of a timestamp in UTC.
func MonthOf(t time.Time) MonthYear {
	u := t.UTC()
	return MonthYear{Year: u.Year(), Month: u.Month()}
}

func (m MonthYear) Start() Date   { return StartOfMonth(m.Year, m.Month) }
func (m MonthYear) End() Date     { return EndOfMonth(m.Year, m.Month) }
func (m MonthYear) Period() Period { return Period{Start: m.Start(), End: m.End()} }
func (m MonthYear) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// ParseYear parses a four digit calendar year.
func ParseYear(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("%w: year %q (use YYYY)", ErrInvalidPeriod, s)
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1 {
		return 0, fmt.Errorf("%w: year %q (use YYYY)", ErrInvalidPeriod, s)
	}
	return y, nil
}

func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// =============================================================================
// REPORT PERIOD - What a forecast is computed for
// =============================================================================

// Granularity selects which evaluator mode runs.
type Granularity int

const (
	GranularityMonth Granularity = iota
	GranularityYear
)

func (g Granularity) String() string {
	if g == GranularityYear {
		return "year"
	}
	return "month"
}

// ReportPeriod is either one calendar month or one calendar year.
type ReportPeriod struct {
	Granularity Granularity
	Month       MonthYear // set when Granularity == GranularityMonth
	Year        int
}

func ForMonth(m MonthYear) ReportPeriod {
	return ReportPeriod{Granularity: GranularityMonth, Month: m, Year: m.Year}
}

func ForYear(year int) ReportPeriod {
	return ReportPeriod{Granularity: GranularityYear, Year: year}
}

// Bounds returns the days covered by the report period.
func (rp ReportPeriod) Bounds() Period {
	if rp.Granularity == GranularityYear {
		return YearPeriod(rp.Year)
	}
	return rp.Month.Period()
}

func (rp ReportPeriod) String() string {
	if rp.Granularity == GranularityYear {
		return fmt.Sprintf("%04d", rp.Year)
	}
	return rp.Month.String()
}

// ParseReportPeriod accepts exactly one of month ("YYYY-MM") or year ("YYYY").
func ParseReportPeriod(month, year string) (ReportPeriod, error) {
	switch {
	case month != "" && year != "":
		return ReportPeriod{}, fmt.Errorf("%w: month and year are mutually exclusive", ErrInvalidPeriod)
	case month != "":
		m, err := ParseMonthYear(month)
		if err != nil {
			return ReportPeriod{}, err
		}
		return ForMonth(m), nil
	case year != "":
		y, err := ParseYear(year)
		if err != nil {
			return ReportPeriod{}, err
		}
		return ForYear(y), nil
	default:
		return ReportPeriod{}, fmt.Errorf("%w: month or year is required", ErrInvalidPeriod)
	}
}

// =============================================================================
// BILLING WINDOW ARITHMETIC
// =============================================================================

// MonthIntersects reports whether [start, end] overlaps the calendar month.
func MonthIntersects(start, end Date, m MonthYear) bool {
	return Period{Start: start, End: end}.Intersects(m.Period())
}

// YearIntersects reports whether [start, end] overlaps Jan 1 - Dec 31 of year.
func YearIntersects(start, end Date, year int) bool {
	return Period{Start: start, End: end}.Intersects(YearPeriod(year))
}

// monthsBetween is the plain calendar-month difference, ignoring days.
func monthsBetween(from, to Date) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// InclusiveMonthSpan is the number of monthly installments implied by a
// window. The trailing partial month counts only when the end day-of-month
// is at least the start day-of-month. Never less than 1; a window whose end
// precedes its start also yields 1.
func InclusiveMonthSpan(start, end Date) int {
	if end.Before(start) {
		return 1
	}
	span := monthsBetween(start, end)
	if end.Day() >= start.Day() {
		span++
	}
	if span < 1 {
		return 1
	}
	return span
}

// CurrentOrdinal is the 1-based position of m inside the window, clamped
// to [1, InclusiveMonthSpan(start, end)].
func CurrentOrdinal(start, end Date, m MonthYear) int {
	span := InclusiveMonthSpan(start, end)
	pos := monthsBetween(start, m.Start()) + 1
	if pos < 1 {
		return 1
	}
	if pos > span {
		return span
	}
	return pos
}

// OverlapMonths counts the calendar months touched by the overlap of
// [start, end] with the given year. Zero when they do not overlap. An
// inverted window inside one month counts that month once; one spanning
// several months touches none, matching MonthIntersects.
func OverlapMonths(start, end Date, year int) int {
	if !YearIntersects(start, end, year) {
		return 0
	}
	from := MaxDate(start, StartOfYear(year))
	to := MinDate(end, EndOfYear(year))
	n := monthsBetween(from, to)
	if n < 0 {
		return 0
	}
	return n + 1
}
