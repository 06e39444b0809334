// pkg/source/xlsx.go
package source

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// XLSXLoader reads one worksheet whose first row is the header
type XLSXLoader struct {
	Path  string
	Sheet string // First sheet when empty
}

// Name returns the file path and sheet
func (l *XLSXLoader) Name() string {
	if l.Sheet == "" {
		return l.Path
	}
	return l.Path + "#" + l.Sheet
}

// Load reads the worksheet as text cells
func (l *XLSXLoader) Load(ctx context.Context) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sheet, err := l.resolveSheet(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}

	return buildTable(rows[0], rows[1:]), nil
}

func (l *XLSXLoader) resolveSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %s has no sheets", l.Path)
	}
	if l.Sheet == "" {
		return sheets[0], nil
	}
	for _, name := range sheets {
		if name == l.Sheet {
			return name, nil
		}
	}
	return "", fmt.Errorf("sheet %s not found in %s", l.Sheet, l.Path)
}
