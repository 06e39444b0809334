package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// Workbook sheet names
const (
	SheetCleaned     = "Cleaned"
	SheetInvalid     = "Invalid Values"
	SheetCleaningLog = "Cleaning Log"
)

// WriteXLSX exports the cleaned table and both logs to an Excel workbook
func WriteXLSX(path string, t *model.Table, invalid model.InvalidValueLog, cleaningLog model.CleaningLog) error {
	if t == nil {
		t = model.NewTable()
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetCleaned); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetInvalid, SheetCleaningLog} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	w := &sheetWriter{f: f, headerStyle: headerStyle}

	// Cleaned rows
	w.header(SheetCleaned, t.ColumnNames())
	for i, row := range t.Rows {
		values := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			values[j] = row[col.Name]
		}
		w.row(SheetCleaned, i+2, values)
	}

	// Invalid numeric values
	w.header(SheetInvalid, []string{"Column", "Row", "Value", "Reason"})
	r := 2
	for _, column := range invalid.Columns() {
		for _, e := range invalid[column] {
			w.row(SheetInvalid, r, []interface{}{column, e.Index, converter.ToText(e.Value), e.Reason})
			r++
		}
	}

	// Categorical actions
	w.header(SheetCleaningLog, []string{"Column", "Action"})
	r = 2
	for _, column := range cleaningLog.Columns() {
		for _, action := range cleaningLog[column] {
			w.row(SheetCleaningLog, r, []interface{}{column, action})
			r++
		}
	}

	if w.err != nil {
		return w.err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// sheetWriter writes whole rows and remembers the first error
type sheetWriter struct {
	f           *excelize.File
	headerStyle int
	err         error
}

func (w *sheetWriter) header(sheet string, headers []string) {
	if w.err != nil || len(headers) == 0 {
		return
	}
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	w.row(sheet, 1, values)
	if w.err != nil {
		return
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.headerStyle); err != nil {
		w.err = fmt.Errorf("failed to style header of %s: %w", sheet, err)
		return
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := w.f.SetColWidth(sheet, "A", lastCol, 15); err != nil {
		w.err = fmt.Errorf("failed to size columns of %s: %w", sheet, err)
	}
}

func (w *sheetWriter) row(sheet string, rowNum int, values []interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
}
