// pkg/source/csv.go
package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// CSVLoader reads a delimited text file with a header row
type CSVLoader struct {
	Path      string
	Delimiter rune
}

// Name returns the file path
func (l *CSVLoader) Name() string {
	return l.Path
}

// Load parses the file with every column kept as text
func (l *CSVLoader) Load(ctx context.Context) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", l.Path, err)
	}
	defer f.Close()

	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	}
	if l.Delimiter != 0 {
		opts = append(opts, dataframe.WithDelimiter(l.Delimiter))
	}

	df := dataframe.ReadCSV(f, opts...)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.Path, df.Err)
	}

	return frameToTable(df), nil
}

// frameToTable copies a string-typed frame into a table, NaN cells become nil
func frameToTable(df dataframe.DataFrame) *model.Table {
	names := df.Names()
	trimmed := make([]string, len(names))
	for j, name := range names {
		trimmed[j] = strings.TrimSpace(name)
	}
	table := model.NewTable(trimmed...)

	columns := make([][]string, len(names))
	missing := make([][]bool, len(names))
	for j, name := range names {
		col := df.Col(name)
		columns[j] = col.Records()
		missing[j] = col.IsNaN()
	}

	for i := 0; i < df.Nrow(); i++ {
		row := make(map[string]interface{}, len(names))
		for j, name := range trimmed {
			if missing[j][i] {
				row[name] = nil
				continue
			}
			row[name] = columns[j][i]
		}
		table.AppendRow(row)
	}
	return table
}
