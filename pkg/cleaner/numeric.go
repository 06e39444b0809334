// pkg/cleaner/numeric.go
package cleaner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// DefaultSentinel marks invalid or missing integer entries
const DefaultSentinel int64 = -1

// NumericOptions configures a numeric pass
type NumericOptions struct {
	Ranges   map[string]model.Range // Optional inclusive range per column
	Sentinel int64                  // Replacement for invalid entries
	Verbose  bool                   // Report invalid entries at info level
}

// DefaultRanges returns the valid ranges for the vehicle-sales numeric columns
func DefaultRanges() map[string]model.Range {
	return map[string]model.Range{
		"year":     {Min: 1900, Max: 2026},
		"odometer": {Min: 0, Max: 999999},
	}
}

// DefaultNumericOptions returns options with the default ranges and sentinel
func DefaultNumericOptions() NumericOptions {
	return NumericOptions{
		Ranges:   DefaultRanges(),
		Sentinel: DefaultSentinel,
	}
}

// NormalizeNumeric converts the named columns to int64.
// Values that fail coercion or fall outside the column range are replaced with
// the sentinel and recorded in the returned log. Absent columns are skipped
// with a warning; a failing column is logged and the remaining columns still run.
func (c *DataCleaner) NormalizeNumeric(
	table *model.Table,
	columns []string,
	opts NumericOptions,
) (*model.Table, model.InvalidValueLog) {
	invalid := model.InvalidValueLog{}
	if table == nil {
		table = model.NewTable()
	}

	for _, column := range columns {
		if !table.HasColumn(column) {
			c.missingColumn(column)
			continue
		}

		err := guardColumn(column, func() error {
			return c.normalizeNumericColumn(table, column, opts, invalid)
		})
		if err != nil {
			c.logger.Error("Error converting column",
				zap.String("column", column),
				zap.Error(err))
			invalid.Add(column, model.InvalidEntry{Index: -1, Value: err.Error(), Reason: model.ReasonError})
			c.record(NewErrorRecord(err, CategoryColumnFailure).WithColumn(column, nil))
		}
	}

	return table, invalid
}

func (c *DataCleaner) normalizeNumericColumn(
	table *model.Table,
	column string,
	opts NumericOptions,
	invalid model.InvalidValueLog,
) error {
	coerced := make([]int64, table.Len())
	failed := make([]bool, table.Len())

	// Coerce every value, remembering the originals that failed
	var coercionFailures []model.InvalidEntry
	for i, row := range table.Rows {
		original := row[column]
		value, err := converter.ToInteger(original)
		if err != nil {
			failed[i] = true
			coerced[i] = opts.Sentinel
			coercionFailures = append(coercionFailures, model.InvalidEntry{
				Index:  table.Label(i),
				Value:  original,
				Reason: model.ReasonCoercion,
			})
			c.record(NewErrorRecord(err, CategoryCoercion).WithColumn(column, original).WithRow(table.Label(i)))
			continue
		}
		coerced[i] = value
	}

	if len(coercionFailures) > 0 {
		for _, entry := range coercionFailures {
			invalid.Add(column, entry)
		}
		if opts.Verbose {
			c.logger.Info("Column has invalid values",
				zap.String("column", column),
				zap.Strings("entries", formatEntries(coercionFailures)))
		}
	}

	// Validate range if specified for this column
	if valid, ok := opts.Ranges[column]; ok {
		var outOfRange []model.InvalidEntry
		for i, value := range coerced {
			if failed[i] || valid.Contains(value) {
				continue
			}
			outOfRange = append(outOfRange, model.InvalidEntry{
				Index:  table.Label(i),
				Value:  value,
				Reason: model.ReasonOutOfRange,
			})
			rangeErr := fmt.Errorf("value %d outside range [%d, %d]", value, valid.Min, valid.Max)
			c.record(NewErrorRecord(rangeErr, CategoryOutOfRange).WithColumn(column, value).WithRow(table.Label(i)))
			coerced[i] = opts.Sentinel
		}

		for _, entry := range outOfRange {
			invalid.Add(column, entry)
		}
		if opts.Verbose && len(outOfRange) > 0 {
			c.logger.Info("Column has values outside range",
				zap.String("column", column),
				zap.Int64("min", valid.Min),
				zap.Int64("max", valid.Max),
				zap.Strings("entries", formatEntries(outOfRange)))
		}
	}

	for i, row := range table.Rows {
		row[column] = coerced[i]
	}
	table.GetColumnByName(column).Kind = model.KindInteger

	return nil
}

func formatEntries(entries []model.InvalidEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}
