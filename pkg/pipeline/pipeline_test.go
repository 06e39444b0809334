package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

type tableLoader struct {
	table *model.Table
	err   error
}

func (l *tableLoader) Name() string { return "car_prices.csv" }

func (l *tableLoader) Load(context.Context) (*model.Table, error) {
	return l.table, l.err
}

type recordingSink struct {
	runID    string
	dataset  string
	sentinel int64
	invalid  model.InvalidValueLog
	cleaning model.CleaningLog
	err      error
}

func (s *recordingSink) RecordRun(
	_ context.Context,
	runID, dataset string,
	sentinel int64,
	invalid model.InvalidValueLog,
	cleaningLog model.CleaningLog,
) error {
	s.runID, s.dataset, s.sentinel = runID, dataset, sentinel
	s.invalid, s.cleaning = invalid, cleaningLog
	return s.err
}

func salesTable(t *testing.T) *model.Table {
	t.Helper()

	table := model.NewTable("year", "odometer", "make", "model", "trim", "transmission", "body")
	rows := [][]interface{}{
		{"2015", "16639", "kia", "Sorento", "LX", "automatic", "SUV"},
		{"oops", "9393", "BMW", "3 Series", "328i", "auto", "Sedan"},
		{"2030", "1331", "chevy", "Malibu", "LT", nil, "g sedan"},
		{"2014", "-5", "volvo", "S60", "T5", "MT", "sedan"},
	}
	for _, r := range rows {
		require.NoError(t, table.AppendValues(r...))
	}
	return table
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()

	logger := zaptest.NewLogger(t)
	dc, err := cleaner.NewDataCleaner(logger)
	require.NoError(t, err)

	p, err := New(dc, logger, opts...)
	require.NoError(t, err)
	p.newRunID = func() string { return "run-1" }
	return p
}

func TestPipeline_Run(t *testing.T) {
	sink := &recordingSink{}
	p := newTestPipeline(t, WithAudit(sink))

	result, err := p.Run(context.Background(), &tableLoader{table: salesTable(t)}, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, result.LoadErr)

	table := result.Table
	assert.Equal(t, []int{0, 1, 3}, table.Index)
	assert.Equal(t, []interface{}{int64(2015), int64(-1), int64(2014)}, table.Values("year"))
	assert.Equal(t, []interface{}{int64(16639), int64(9393), int64(-1)}, table.Values("odometer"))
	assert.Equal(t, []interface{}{"Kia", "Bmw", "Volvo"}, table.Values("make"))
	assert.Equal(t, []interface{}{"automatic", "automatic", "manual"}, table.Values("transmission"))
	assert.Equal(t, []interface{}{"Suv", "Sedan", "Sedan"}, table.Values("body"))

	assert.Equal(t, []model.InvalidEntry{{Index: 1, Value: "oops", Reason: model.ReasonCoercion}}, result.Invalid["year"])
	assert.Equal(t, []model.InvalidEntry{{Index: 3, Value: int64(-5), Reason: model.ReasonOutOfRange}}, result.Invalid["odometer"])
	assert.Equal(t, []string{
		"Applied transmission mapping: {'10sp': 'automatic', '6sp': 'automatic', 'at': 'automatic', 'auto': 'automatic', 'man': 'manual', 'mt': 'manual'}",
		"Converted transmission to category type",
	}, result.CleaningLog["transmission"])

	require.NotNil(t, result.Verification)
	assert.True(t, result.Verification.Passed(), "%+v", result.Verification)

	m := result.Metrics
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, 4, m.RowsRead)
	assert.Equal(t, 1, m.IncompleteRowsDropped)
	assert.Equal(t, 3, m.RowsOut)
	assert.Equal(t, 1, m.RowsRemoved())
	assert.Equal(t, 2, m.InvalidValues)
	assert.Equal(t, result.CleaningLog.Count(), m.CleaningActions)
	assert.Equal(t, 1, m.ErrorCounts[cleaner.CategoryCoercion])
	assert.Equal(t, 1, m.ErrorCounts[cleaner.CategoryOutOfRange])

	assert.Equal(t, "run-1", sink.runID)
	assert.Equal(t, "car_prices.csv", sink.dataset)
	assert.Equal(t, int64(-1), sink.sentinel)
	assert.Equal(t, result.Invalid, sink.invalid)
	assert.Equal(t, result.CleaningLog, sink.cleaning)
}

func TestPipeline_RunKeepsIncompleteRows(t *testing.T) {
	p := newTestPipeline(t)

	opts := DefaultOptions()
	opts.DropIncomplete = false

	result, err := p.Run(context.Background(), &tableLoader{table: salesTable(t)}, opts)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Table.Len())
	assert.Equal(t, "Unknown", result.Table.Rows[2]["transmission"])
	assert.Equal(t, "Chevrolet", result.Table.Rows[2]["make"])
	assert.Equal(t, "Sedan", result.Table.Rows[2]["body"])
	assert.Equal(t, int64(-1), result.Table.Rows[2]["year"])
	assert.Contains(t, result.CleaningLog["transmission"], "Imputed missing transmission with 'Unknown'")
}

func TestPipeline_LoadFailureFallsBackToEmptyTable(t *testing.T) {
	p := newTestPipeline(t)

	result, err := p.Run(context.Background(), &tableLoader{err: errors.New("no such file")}, DefaultOptions())
	require.NoError(t, err)

	assert.EqualError(t, result.LoadErr, "no such file")
	assert.Equal(t, 0, result.Table.Len())
	assert.Empty(t, result.Invalid)
	assert.Empty(t, result.CleaningLog)
	assert.Len(t, result.Issues, 7)
	assert.Equal(t, 7, result.Metrics.ErrorCounts[cleaner.CategoryMissingColumn])
	assert.Len(t, result.Verification.MissingColumns, 7)
	assert.True(t, result.Verification.Passed())
}

func TestPipeline_AuditFailure(t *testing.T) {
	p := newTestPipeline(t, WithAudit(&recordingSink{err: errors.New("disk full")}))

	result, err := p.Run(context.Background(), &tableLoader{table: salesTable(t)}, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Table.Len())
}

func TestNew_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := New(nil, logger)
	assert.Error(t, err)

	dc, err := cleaner.NewDataCleaner(logger)
	require.NoError(t, err)
	_, err = New(dc, nil)
	assert.Error(t, err)

	p, err := New(dc, logger)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestRunMetrics_Report(t *testing.T) {
	m := NewRunMetrics("run-7", nil)
	m.RowsRead = 10
	m.RowsOut = 8
	done := m.StartStage("numeric")
	done()
	m.RecordIssues([]cleaner.ErrorRecord{
		cleaner.NewErrorRecord(cleaner.ErrColumnNotFound, cleaner.CategoryMissingColumn),
	})
	m.Complete()

	report := m.GenerateMetricsReport()
	assert.Contains(t, report, "run-7")
	assert.Contains(t, report, "- numeric:")
	assert.Contains(t, report, "- MissingColumn: 1")

	data, err := m.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-7", decoded["runId"])
	assert.Equal(t, float64(10), decoded["rowsRead"])
	assert.Equal(t, map[string]interface{}{"MissingColumn": float64(1)}, decoded["issues"])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.50 KB", formatBytes(1536))
	assert.Equal(t, "2.00 MB", formatBytes(2*1024*1024))
}
