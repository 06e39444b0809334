// pkg/source/source.go
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// Loader produces the raw dataset for a cleaning run
type Loader interface {
	// Name identifies the dataset in logs and the audit trail
	Name() string

	// Load reads the whole dataset into a table
	Load(ctx context.Context) (*model.Table, error)
}

// TableQuerier is satisfied by the database connectors
type TableQuerier interface {
	LoadTable(ctx context.Context, query string) (*model.Table, error)
}

// naValues are the cell spellings read as missing
var naValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var naLookup = func() map[string]struct{} {
	m := make(map[string]struct{}, len(naValues))
	for _, v := range naValues {
		m[v] = struct{}{}
	}
	return m
}()

func isNA(cell string) bool {
	_, ok := naLookup[cell]
	return ok
}

// QueryLoader loads a dataset through a database connector
type QueryLoader struct {
	Querier TableQuerier
	Query   string
	Label   string
}

// Name returns the label, or the query when no label is set
func (l *QueryLoader) Name() string {
	if l.Label != "" {
		return l.Label
	}
	return l.Query
}

// Load runs the query
func (l *QueryLoader) Load(ctx context.Context) (*model.Table, error) {
	if l.Querier == nil {
		return nil, fmt.Errorf("no database connector for query %q", l.Query)
	}
	if strings.TrimSpace(l.Query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	return l.Querier.LoadTable(ctx, l.Query)
}

// NewFileLoader picks a loader from the file extension
func NewFileLoader(path, sheet string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return &CSVLoader{Path: path}, nil
	case ".xlsx", ".xlsm":
		return &XLSXLoader{Path: path, Sheet: sheet}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// buildTable turns a header and string records into a table, reading NA spellings as nil
func buildTable(header []string, records [][]string) *model.Table {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	table := model.NewTable(names...)
	for _, record := range records {
		row := make(map[string]interface{}, len(names))
		for i, name := range names {
			if i >= len(record) || isNA(record[i]) {
				row[name] = nil
				continue
			}
			row[name] = record[i]
		}
		table.AppendRow(row)
	}
	return table
}
