package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jittakal/sentimentetl/pkg/table"
)

// Sheet names written by WriteWorkbook, in order.
const (
	SheetOverview  = "Overview"
	SheetByWeekday = "By Weekday"
	SheetByYear    = "By Year"
	SheetByQuarter = "By Quarter"
	SheetTopWords  = "Top Words"
)

// WriteWorkbook writes s to an XLSX file at path, replacing it.
func WriteWorkbook(path string, s *Stats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetByWeekday, SheetByYear, SheetByQuarter, SheetTopWords} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	overview := [][]any{
		{"Metric", "Value"},
		{"Period start", formatDate(s.PeriodStart)},
		{"Period end", formatDate(s.PeriodEnd)},
		{"Total rows", s.TotalRows},
		{"Positive", s.Positive},
		{"Negative", s.Negative},
		{"Positive %", round1(s.PositiveShare)},
		{"Negative %", round1(s.NegativeShare)},
		{"Null cells", s.Nulls},
		{"Completeness %", round1(s.Completeness)},
	}
	if err := writeRows(f, SheetOverview, overview, header); err != nil {
		return err
	}

	for _, sheet := range []struct {
		name string
		key  string
		rows []Breakdown
	}{
		{SheetByWeekday, "Day", s.ByWeekday},
		{SheetByYear, "Year", s.ByYear},
		{SheetByQuarter, "Quarter", s.ByQuarter},
	} {
		rows := [][]any{{sheet.key, "Positivo", "Negativo", "Total"}}
		for _, b := range sheet.rows {
			rows = append(rows, []any{b.Key, b.Positive, b.Negative, b.Total()})
		}
		if err := writeRows(f, sheet.name, rows, header); err != nil {
			return err
		}
	}

	words := [][]any{{"Word", "Count"}}
	for _, w := range s.TopWords {
		words = append(words, []any{w.Word, w.Count})
	}
	if err := writeRows(f, SheetTopWords, words, header); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "A", 18)
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return table.FormatValue(d)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
