package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// Integrity issue types
const (
	IssueNonInteger     = "non_integer"
	IssueOutOfRange     = "out_of_range"
	IssueMissingValue   = "missing_value"
	IssueUnknownLevel   = "unknown_category"
	IssueRareValue      = "rare_value"
	IssueIndexNotSorted = "index_not_sorted"
)

// StructureDiscrepancy represents a column whose kind is not what the pass produces
type StructureDiscrepancy struct {
	ColumnName   string
	ExpectedKind model.ColumnKind
	ActualKind   model.ColumnKind
}

// IntegrityIssue represents a data integrity issue
type IntegrityIssue struct {
	IssueType    string
	Description  string
	ColumnName   string
	AffectedRows int64
}

// VerificationReport contains the results of checking a cleaned table
type VerificationReport struct {
	Dataset                string
	VerificationTime       time.Time
	RowCount               int
	MissingColumns         []string
	SkippedColumns         []string // Columns whose pass failed
	StructureMatches       bool
	StructureDiscrepancies []StructureDiscrepancy
	IntegrityVerified      bool
	IntegrityIssues        []IntegrityIssue
	Duration               time.Duration
}

// Passed reports whether the table satisfied every check
func (r *VerificationReport) Passed() bool {
	return r.StructureMatches && r.IntegrityVerified
}

// Verifier checks a cleaned table against the guarantees of the column passes
type Verifier struct {
	policies cleaner.PolicySet
	logger   *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(policies cleaner.PolicySet, logger *zap.Logger) *Verifier {
	if policies == nil {
		policies = cleaner.DefaultPolicies()
	}
	return &Verifier{
		policies: policies,
		logger:   logger,
	}
}

// Verify checks the numeric and categorical columns of a cleaned table.
// Columns whose pass failed are reported as skipped rather than checked.
func (v *Verifier) Verify(
	dataset string,
	table *model.Table,
	opts Options,
	invalid model.InvalidValueLog,
	cleaningLog model.CleaningLog,
) *VerificationReport {
	startTime := time.Now()
	report := &VerificationReport{
		Dataset:           dataset,
		VerificationTime:  startTime,
		RowCount:          table.Len(),
		StructureMatches:  true,
		IntegrityVerified: true,
	}

	for _, column := range opts.NumericColumns {
		col := table.GetColumnByName(column)
		switch {
		case col == nil:
			report.MissingColumns = append(report.MissingColumns, column)
		case numericFailed(invalid[column]):
			report.SkippedColumns = append(report.SkippedColumns, column)
		default:
			v.checkKind(report, col, model.KindInteger)
			v.checkNumeric(report, table, column, opts.Numeric)
		}
	}

	for _, column := range opts.CategoricalColumns {
		col := table.GetColumnByName(column)
		switch {
		case col == nil:
			report.MissingColumns = append(report.MissingColumns, column)
		case categoricalFailed(cleaningLog[column]):
			report.SkippedColumns = append(report.SkippedColumns, column)
		default:
			v.checkKind(report, col, model.KindCategory)
			v.checkCategorical(report, table, col, v.policies.Lookup(column))
		}
	}

	v.checkIndex(report, table)

	report.Duration = time.Since(startTime)

	if v.logger != nil {
		fields := []zap.Field{
			zap.String("dataset", dataset),
			zap.Bool("structure_match", report.StructureMatches),
			zap.Int("issues", len(report.IntegrityIssues)),
			zap.Duration("duration", report.Duration),
		}
		if report.Passed() {
			v.logger.Info("Verification completed", fields...)
		} else {
			v.logger.Warn("Verification found issues", fields...)
		}
	}

	return report
}

func (v *Verifier) checkKind(report *VerificationReport, col *model.Column, expected model.ColumnKind) {
	if col.Kind == expected {
		return
	}
	report.StructureMatches = false
	report.StructureDiscrepancies = append(report.StructureDiscrepancies, StructureDiscrepancy{
		ColumnName:   col.Name,
		ExpectedKind: expected,
		ActualKind:   col.Kind,
	})
}

func (v *Verifier) addIssue(report *VerificationReport, issue IntegrityIssue) {
	if issue.AffectedRows == 0 {
		return
	}
	report.IntegrityVerified = false
	report.IntegrityIssues = append(report.IntegrityIssues, issue)
}

// checkNumeric verifies every entry is an integer and non-sentinel entries lie in range
func (v *Verifier) checkNumeric(report *VerificationReport, table *model.Table, column string, opts cleaner.NumericOptions) {
	valid, hasRange := opts.Ranges[column]

	var nonInteger, outOfRange int64
	for _, row := range table.Rows {
		value, ok := row[column].(int64)
		if !ok {
			nonInteger++
			continue
		}
		if hasRange && value != opts.Sentinel && !valid.Contains(value) {
			outOfRange++
		}
	}

	v.addIssue(report, IntegrityIssue{
		IssueType:    IssueNonInteger,
		Description:  "value is not an int64",
		ColumnName:   column,
		AffectedRows: nonInteger,
	})
	v.addIssue(report, IntegrityIssue{
		IssueType:    IssueOutOfRange,
		Description:  fmt.Sprintf("value outside [%d, %d] and not the sentinel %d", valid.Min, valid.Max, opts.Sentinel),
		ColumnName:   column,
		AffectedRows: outOfRange,
	})
}

// checkCategorical verifies no value is missing, every value is a declared
// category and no value other than the overflow label is rare
func (v *Verifier) checkCategorical(report *VerificationReport, table *model.Table, col *model.Column, policy cleaner.ColumnPolicy) {
	levels := make(map[string]struct{}, len(col.Categories))
	for _, c := range col.Categories {
		levels[c] = struct{}{}
	}

	var missing, unknown int64
	counts := make(map[string]int)
	for _, row := range table.Rows {
		value := row[col.Name]
		if converter.IsNull(value) {
			missing++
			continue
		}
		text := converter.ToText(value)
		if _, ok := levels[text]; !ok {
			unknown++
		}
		counts[text]++
	}

	v.addIssue(report, IntegrityIssue{
		IssueType:    IssueMissingValue,
		Description:  "missing value after cleaning",
		ColumnName:   col.Name,
		AffectedRows: missing,
	})
	v.addIssue(report, IntegrityIssue{
		IssueType:    IssueUnknownLevel,
		Description:  "value is not a declared category",
		ColumnName:   col.Name,
		AffectedRows: unknown,
	})

	if policy.RareThreshold <= 0 || table.Len() == 0 {
		return
	}
	var rare int64
	var rareValues []string
	total := float64(table.Len())
	for value, n := range counts {
		if value == policy.OverflowValue {
			continue
		}
		if float64(n)/total < policy.RareThreshold {
			rare += int64(n)
			rareValues = append(rareValues, value)
		}
	}
	sort.Strings(rareValues)
	v.addIssue(report, IntegrityIssue{
		IssueType:    IssueRareValue,
		Description:  fmt.Sprintf("values below %.2f%% share: %s", policy.RareThreshold*100, strings.Join(rareValues, ", ")),
		ColumnName:   col.Name,
		AffectedRows: rare,
	})
}

// checkIndex verifies surviving row labels are still strictly increasing
func (v *Verifier) checkIndex(report *VerificationReport, table *model.Table) {
	var unordered int64
	for i := 1; i < len(table.Index); i++ {
		if table.Index[i] <= table.Index[i-1] {
			unordered++
		}
	}
	v.addIssue(report, IntegrityIssue{
		IssueType:    IssueIndexNotSorted,
		Description:  "row labels are not strictly increasing",
		AffectedRows: unordered,
	})
}

func numericFailed(entries []model.InvalidEntry) bool {
	for _, e := range entries {
		if e.Reason == model.ReasonError {
			return true
		}
	}
	return false
}

func categoricalFailed(actions []string) bool {
	for _, a := range actions {
		if strings.HasPrefix(a, "Error: ") {
			return true
		}
	}
	return false
}
