// Package export renders forecast results as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/revenue-engine/forecast"
)

const (
	SheetBreakdown = "Forecast"
	SheetWarnings  = "Warnings"
)

type column struct {
	Header string
	Width  float64
	Value  func(l forecast.Line) any
}

var columns = []column{
	{"Empresa", 28, func(l forecast.Line) any { return l.CompanyName }},
	{"Tipo", 22, func(l forecast.Line) any { return l.MetricTypeLabel() }},
	{"Detalhes", 40, func(l forecast.Line) any { return l.Details }},
	{"Projeto", 28, func(l forecast.Line) any {
		if l.Project == nil {
			return ""
		}
		return l.Project.Name
	}},
	{"Status", 18, func(l forecast.Line) any {
		if l.Project == nil {
			return ""
		}
		return l.Project.Status.Label()
	}},
	{"Percentual", 12, func(l forecast.Line) any {
		if l.Project == nil {
			return ""
		}
		f, _ := l.Project.Percentage.Float64()
		return f
	}},
	{"Valor Esperado", 18, func(l forecast.Line) any {
		f, _ := l.ExpectedValue.Float64()
		return f
	}},
}

// FileName is the download name for a result, e.g. "forecast_2024-06.xlsx".
func FileName(res *forecast.Result) string {
	return fmt.Sprintf("forecast_%s.xlsx", res.Period)
}

// Workbook builds the workbook: one row per breakdown line, a total row,
// and a second sheet listing record warnings when there are any.
func Workbook(res *forecast.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetBreakdown); err != nil {
		f.Close()
		return nil, err
	}
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Revenue forecast %s", res.Period),
		Creator: "revenue-engine",
	})

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, err
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetBreakdown, cell, col.Header)
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetBreakdown, name, name, col.Width)
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	_ = f.SetCellStyle(SheetBreakdown, "A1", last, bold)

	rowIdx := 2
	for _, line := range res.Breakdown {
		for colIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			_ = f.SetCellValue(SheetBreakdown, cell, col.Value(line))
		}
		rowIdx++
	}

	valueCol, _ := excelize.ColumnNumberToName(len(columns))
	pctCol, _ := excelize.ColumnNumberToName(len(columns) - 1)
	if rowIdx > 2 {
		_ = f.SetCellStyle(SheetBreakdown, fmt.Sprintf("%s2", valueCol), fmt.Sprintf("%s%d", valueCol, rowIdx-1), money)
		_ = f.SetCellStyle(SheetBreakdown, fmt.Sprintf("%s2", pctCol), fmt.Sprintf("%s%d", pctCol, rowIdx-1), percent)
	}

	total, _ := res.Total.Float64()
	_ = f.SetCellValue(SheetBreakdown, fmt.Sprintf("A%d", rowIdx), "Total")
	totalCell := fmt.Sprintf("%s%d", valueCol, rowIdx)
	_ = f.SetCellValue(SheetBreakdown, totalCell, total)
	_ = f.SetCellStyle(SheetBreakdown, fmt.Sprintf("A%d", rowIdx), fmt.Sprintf("A%d", rowIdx), bold)
	_ = f.SetCellStyle(SheetBreakdown, totalCell, totalCell, money)

	if len(res.Warnings) > 0 {
		if _, err := f.NewSheet(SheetWarnings); err != nil {
			f.Close()
			return nil, err
		}
		for i, h := range []string{"Record", "ID", "Field"} {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			_ = f.SetCellValue(SheetWarnings, cell, h)
		}
		for i, w := range res.Warnings {
			row := i + 2
			_ = f.SetCellValue(SheetWarnings, fmt.Sprintf("A%d", row), w.Record)
			_ = f.SetCellValue(SheetWarnings, fmt.Sprintf("B%d", row), w.RecordID)
			_ = f.SetCellValue(SheetWarnings, fmt.Sprintf("C%d", row), w.Field)
		}
	}

	return f, nil
}

// Write streams the workbook of res to w.
func Write(w io.Writer, res *forecast.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
