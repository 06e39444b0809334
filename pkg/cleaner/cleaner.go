// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// DataCleaner runs the numeric and categorical column passes over a table
type DataCleaner struct {
	logger   *zap.Logger
	policies PolicySet
	issues   []ErrorRecord
}

// Option configures a DataCleaner
type Option func(*DataCleaner)

// WithPolicies replaces the default categorical column policies
func WithPolicies(policies PolicySet) Option {
	return func(c *DataCleaner) {
		if policies != nil {
			c.policies = policies
		}
	}
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(logger *zap.Logger, opts ...Option) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cleaner := &DataCleaner{
		logger:   logger,
		policies: DefaultPolicies(),
	}
	for _, opt := range opts {
		opt(cleaner)
	}

	if err := cleaner.policies.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate column policies: %w", err)
	}

	return cleaner, nil
}

// Policies returns the categorical policies in use
func (c *DataCleaner) Policies() PolicySet {
	return c.policies
}

// Issues returns the error records raised since the last ResetIssues.
// Records accumulate across NormalizeNumeric and NormalizeCategorical calls
// so one pipeline run can collect both passes. Callers that reuse a cleaner
// for unrelated tables call ResetIssues between them.
func (c *DataCleaner) Issues() []ErrorRecord {
	return append([]ErrorRecord(nil), c.issues...)
}

// ResetIssues clears the recorded error records
func (c *DataCleaner) ResetIssues() {
	c.issues = nil
}

// DropIncomplete removes every row that has a missing value in any column
// and returns the number of rows removed
func (c *DataCleaner) DropIncomplete(table *model.Table) int {
	if table == nil {
		return 0
	}
	names := table.ColumnNames()
	removed := table.DropRows(func(row map[string]interface{}) bool {
		for _, name := range names {
			if converter.IsNull(row[name]) {
				return true
			}
		}
		return false
	})

	rows, cols := table.Shape()
	c.logger.Info("Dropped rows with missing values",
		zap.Int("removed", removed),
		zap.Int("rows", rows),
		zap.Int("columns", cols))
	return removed
}

// missingColumn records and logs a requested column that is absent
func (c *DataCleaner) missingColumn(column string) {
	record := NewErrorRecord(ErrColumnNotFound, CategoryMissingColumn).WithColumn(column, nil)
	c.issues = append(c.issues, record)
	c.logger.Warn("Column not found in table", zap.String("column", column))
}

// record stores an issue raised while cleaning a column
func (c *DataCleaner) record(record ErrorRecord) {
	c.issues = append(c.issues, record)
}

// guardColumn runs fn and turns a panic into an error so sibling columns
// are still processed
func guardColumn(column string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure cleaning column %s: %v", column, r)
		}
	}()
	return fn()
}
