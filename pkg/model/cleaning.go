// pkg/model/cleaning.go
package model

import (
	"fmt"
	"sort"
	"time"
)

// Reasons attached to invalid-value entries
const (
	ReasonCoercion   = "coercion_failed"
	ReasonOutOfRange = "out_of_range"
	ReasonError      = "error"
)

// InvalidEntry is a value flagged during numeric conversion
type InvalidEntry struct {
	Index  int         // Original row label, -1 for column-level errors
	Value  interface{} // Original value, or coerced value when out of range
	Reason string      // One of the Reason* constants
}

// String formats the entry as an (index, value) pair
func (e InvalidEntry) String() string {
	if e.Index < 0 {
		return fmt.Sprintf("(error, %v)", e.Value)
	}
	return fmt.Sprintf("(%d, %v)", e.Index, e.Value)
}

// InvalidValueLog maps column names to the entries flagged in that column
type InvalidValueLog map[string][]InvalidEntry

// Add appends an entry for a column
func (l InvalidValueLog) Add(column string, entry InvalidEntry) {
	l[column] = append(l[column], entry)
}

// Count returns the total number of entries across columns
func (l InvalidValueLog) Count() int {
	n := 0
	for _, entries := range l {
		n += len(entries)
	}
	return n
}

// Columns returns the logged column names sorted
func (l InvalidValueLog) Columns() []string {
	return sortedKeys(l)
}

// CleaningLog maps column names to the ordered actions taken on that column
type CleaningLog map[string][]string

// Add appends an action for a column
func (l CleaningLog) Add(column, action string) {
	l[column] = append(l[column], action)
}

// Count returns the total number of actions across columns
func (l CleaningLog) Count() int {
	n := 0
	for _, actions := range l {
		n += len(actions)
	}
	return n
}

// Columns returns the logged column names sorted
func (l CleaningLog) Columns() []string {
	return sortedKeys(l)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CleaningOperation represents a single audited cleaning action
type CleaningOperation struct {
	RunID             string      // Identifier shared by every operation of one run
	Dataset           string      // Dataset the run cleaned
	ColumnName        string      // Column that was cleaned
	RowIndex          int         // Original row label, -1 for column-wide actions
	OriginalValue     interface{} // Original value (may be nil)
	NewValue          string      // New value after cleaning
	CleaningOperation string      // Type of cleaning performed (e.g., "sentinel_replacement")
	CleaningReason    string      // Reason for cleaning (e.g., "out_of_range")
	CleanedAt         time.Time   // When the cleaning occurred (set by database)
}
