package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

func issueTypes(report *VerificationReport) map[string]int64 {
	out := make(map[string]int64)
	for _, issue := range report.IntegrityIssues {
		out[issue.ColumnName+"/"+issue.IssueType] = issue.AffectedRows
	}
	return out
}

func TestVerifier_DetectsViolations(t *testing.T) {
	table := model.NewTable("year", "body")
	require.NoError(t, table.AppendValues(int64(2015), "Sedan"))
	require.NoError(t, table.AppendValues("2014", nil))
	require.NoError(t, table.AppendValues(int64(2031), "Coupe"))
	table.GetColumnByName("body").SetCategories([]string{"Sedan"})
	table.Index = []int{0, 2, 1}

	opts := Options{
		NumericColumns:     []string{"year", "odometer"},
		CategoricalColumns: []string{"body"},
		Numeric:            cleaner.DefaultNumericOptions(),
	}

	v := NewVerifier(cleaner.DefaultPolicies(), zaptest.NewLogger(t))
	report := v.Verify("sales", table, opts, model.InvalidValueLog{}, model.CleaningLog{})

	assert.False(t, report.Passed())
	assert.False(t, report.StructureMatches)
	assert.Equal(t, []StructureDiscrepancy{{
		ColumnName:   "year",
		ExpectedKind: model.KindInteger,
		ActualKind:   model.KindUnknown,
	}}, report.StructureDiscrepancies)
	assert.Equal(t, []string{"odometer"}, report.MissingColumns)

	assert.Equal(t, map[string]int64{
		"year/non_integer":      1,
		"year/out_of_range":     1,
		"body/missing_value":    1,
		"body/unknown_category": 1,
		"/index_not_sorted":     1,
	}, issueTypes(report))
}

func TestVerifier_SkipsFailedColumns(t *testing.T) {
	table := model.NewTable("year", "trim")
	require.NoError(t, table.AppendValues("bad", nil))

	opts := Options{
		NumericColumns:     []string{"year"},
		CategoricalColumns: []string{"trim"},
		Numeric:            cleaner.DefaultNumericOptions(),
	}
	invalid := model.InvalidValueLog{}
	invalid.Add("year", model.InvalidEntry{Index: -1, Value: "boom", Reason: model.ReasonError})
	cleaningLog := model.CleaningLog{}
	cleaningLog.Add("trim", "Error: boom")

	report := NewVerifier(nil, nil).Verify("sales", table, opts, invalid, cleaningLog)

	assert.True(t, report.Passed())
	assert.Equal(t, []string{"year", "trim"}, report.SkippedColumns)
}

func TestVerifier_RareValues(t *testing.T) {
	table := model.NewTable("trim")
	for i := 0; i < 199; i++ {
		require.NoError(t, table.AppendValues("Base"))
	}
	require.NoError(t, table.AppendValues("Platinum"))
	table.GetColumnByName("trim").SetCategories([]string{"Base", "Platinum"})

	opts := Options{CategoricalColumns: []string{"trim"}}
	report := NewVerifier(nil, nil).Verify("sales", table, opts, nil, nil)

	require.Len(t, report.IntegrityIssues, 1)
	assert.Equal(t, IssueRareValue, report.IntegrityIssues[0].IssueType)
	assert.Equal(t, int64(1), report.IntegrityIssues[0].AffectedRows)
	assert.Contains(t, report.IntegrityIssues[0].Description, "Platinum")
}
