// pkg/cleaner/categorical.go
package cleaner

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// NormalizeCategorical cleans the named columns according to their policies:
// case and whitespace normalization, synonym mapping, missing-value handling,
// rare-value folding and conversion to a fixed category. Every action is
// appended to the returned log in the order performed.
func (c *DataCleaner) NormalizeCategorical(
	table *model.Table,
	columns []string,
	verbose bool,
) (*model.Table, model.CleaningLog) {
	cleaningLog := model.CleaningLog{}
	if table == nil {
		table = model.NewTable()
	}

	for _, column := range columns {
		if !table.HasColumn(column) {
			c.missingColumn(column)
			continue
		}

		cleaningLog[column] = []string{}
		policy := c.policies.Lookup(column)

		err := guardColumn(column, func() error {
			return c.normalizeCategoricalColumn(table, policy, cleaningLog)
		})
		if err != nil {
			c.logger.Error("Error cleaning column",
				zap.String("column", column),
				zap.Error(err))
			cleaningLog.Add(column, "Error: "+err.Error())
			c.record(NewErrorRecord(err, CategoryColumnFailure).WithColumn(column, nil))
		}

		if verbose {
			c.logger.Info("Cleaning summary",
				zap.String("column", column),
				zap.Strings("actions", cleaningLog[column]))
		}
	}

	return table, cleaningLog
}

func (c *DataCleaner) normalizeCategoricalColumn(
	table *model.Table,
	policy ColumnPolicy,
	cleaningLog model.CleaningLog,
) error {
	column := policy.Column
	titler := cases.Title(language.Und)

	// Standardize text and apply synonyms
	missing := 0
	for _, row := range table.Rows {
		value := row[column]
		if converter.IsNull(value) {
			row[column] = nil
			missing++
			continue
		}
		row[column] = standardizeValue(converter.ToText(value), policy, titler)
	}
	if len(policy.Synonyms) > 0 {
		cleaningLog.Add(column, fmt.Sprintf("Applied %s mapping: %s", column, describeMapping(policy.Synonyms)))
	}

	// Handle missing values
	if missing > 0 {
		switch policy.Missing {
		case MissingDrop:
			dropped := table.DropRows(func(row map[string]interface{}) bool {
				return row[column] == nil
			})
			cleaningLog.Add(column, fmt.Sprintf("Dropped %d rows with missing %s", dropped, column))
		default:
			for _, row := range table.Rows {
				if row[column] == nil {
					row[column] = policy.FillValue
				}
			}
			cleaningLog.Add(column, fmt.Sprintf("Imputed missing %s with '%s'", column, policy.FillValue))
		}
	}

	// Group rare values into the overflow category
	if policy.RareThreshold > 0 && table.Len() > 0 {
		if folded := foldRareValues(table, column, policy); folded > 0 {
			cleaningLog.Add(column, fmt.Sprintf("Grouped %d rare %s values into '%s'",
				folded, column, policy.OverflowValue))
		}
	}

	values := make([]string, 0, table.Len())
	for _, row := range table.Rows {
		values = append(values, converter.ToText(row[column]))
	}
	table.GetColumnByName(column).SetCategories(values)
	cleaningLog.Add(column, fmt.Sprintf("Converted %s to category type", column))

	return nil
}

// standardizeValue lower-cases, trims and maps a single value.
// The fill and overflow labels keep their canonical spelling so a second pass
// leaves them untouched.
func standardizeValue(text string, policy ColumnPolicy, titler cases.Caser) string {
	value := strings.ToLower(strings.TrimSpace(norm.NFKC.String(text)))

	switch {
	case policy.FillValue != "" && strings.EqualFold(value, policy.FillValue):
		return policy.FillValue
	case policy.OverflowValue != "" && strings.EqualFold(value, policy.OverflowValue):
		return policy.OverflowValue
	}

	if mapped, ok := policy.Synonyms[value]; ok {
		value = mapped
	}
	if policy.TitleCase {
		value = titler.String(value)
	}
	return value
}

// foldRareValues replaces values whose share of rows is below the policy
// threshold with the overflow value and returns how many distinct values were folded
func foldRareValues(table *model.Table, column string, policy ColumnPolicy) int {
	counts := make(map[string]int)
	for _, row := range table.Rows {
		counts[converter.ToText(row[column])]++
	}

	total := float64(table.Len())
	rare := make(map[string]struct{})
	for value, n := range counts {
		if value == policy.OverflowValue {
			continue
		}
		if float64(n)/total < policy.RareThreshold {
			rare[value] = struct{}{}
		}
	}
	if len(rare) == 0 {
		return 0
	}

	for _, row := range table.Rows {
		if _, ok := rare[converter.ToText(row[column])]; ok {
			row[column] = policy.OverflowValue
		}
	}
	return len(rare)
}
