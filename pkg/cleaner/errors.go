// pkg/cleaner/errors.go
package cleaner

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCategory classifies problems met while cleaning a column
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	// CategoryMissingColumn: requested column absent, column skipped
	CategoryMissingColumn
	// CategoryCoercion: value could not be converted, replaced with the sentinel
	CategoryCoercion
	// CategoryOutOfRange: value outside the declared range, replaced with the sentinel
	CategoryOutOfRange
	// CategoryColumnFailure: unexpected failure, column abandoned
	CategoryColumnFailure
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case CategoryNone:
		return "None"
	case CategoryMissingColumn:
		return "MissingColumn"
	case CategoryCoercion:
		return "Coercion"
	case CategoryOutOfRange:
		return "OutOfRange"
	case CategoryColumnFailure:
		return "ColumnFailure"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// ErrColumnNotFound is recorded when a requested column is absent from the table
var ErrColumnNotFound = errors.New("column not found")

// ErrorRecord represents a single issue raised during a cleaning pass
type ErrorRecord struct {
	Category    ErrorCategory
	ColumnName  string
	RowIndex    int
	SourceValue interface{}
	Error       error
	Message     string // Derived from Error but stored for reporting
	Timestamp   time.Time
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:  category,
		Error:     err,
		RowIndex:  -1,
		Timestamp: time.Now(),
	}
	if err != nil {
		record.Message = err.Error()
	}
	return record
}

// WithColumn adds column information to the error record
func (r ErrorRecord) WithColumn(columnName string, sourceValue interface{}) ErrorRecord {
	r.ColumnName = columnName
	r.SourceValue = sourceValue
	return r
}

// WithRow adds the row label to the error record
func (r ErrorRecord) WithRow(index int) ErrorRecord {
	r.RowIndex = index
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.ColumnName != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", r.ColumnName))
	}
	if r.RowIndex >= 0 {
		sb.WriteString(fmt.Sprintf("Row: %d ", r.RowIndex))
	}
	if r.SourceValue != nil {
		sb.WriteString(fmt.Sprintf("Value: %v ", r.SourceValue))
	}

	if r.Error != nil {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Error.Error()))
	} else if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	return strings.TrimSpace(sb.String())
}

// Summarize counts records by category
func Summarize(records []ErrorRecord) map[ErrorCategory]int {
	counts := make(map[ErrorCategory]int)
	for _, r := range records {
		counts[r.Category]++
	}
	return counts
}
