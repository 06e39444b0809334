// Package pipeline runs a full cleaning pass over a vehicle-sales dataset:
// load, drop incomplete rows, normalize numeric and categorical columns,
// verify the result and record the audit trail.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
	"github.com/David-Botos/vehicle-cleaner/pkg/source"
)

// AuditSink stores the logs of a run
type AuditSink interface {
	RecordRun(
		ctx context.Context,
		runID, dataset string,
		sentinel int64,
		invalid model.InvalidValueLog,
		cleaningLog model.CleaningLog,
	) error
}

// Options selects the columns and settings of a run
type Options struct {
	NumericColumns     []string
	CategoricalColumns []string
	Numeric            cleaner.NumericOptions
	DropIncomplete     bool
}

// DefaultOptions returns the vehicle-sales defaults
func DefaultOptions() Options {
	return Options{
		NumericColumns:     []string{"year", "odometer"},
		CategoricalColumns: []string{"make", "model", "trim", "transmission", "body"},
		Numeric:            cleaner.DefaultNumericOptions(),
		DropIncomplete:     true,
	}
}

// Result holds everything a run produced
type Result struct {
	RunID        string
	Dataset      string
	Table        *model.Table
	Invalid      model.InvalidValueLog
	CleaningLog  model.CleaningLog
	Issues       []cleaner.ErrorRecord
	Verification *VerificationReport
	Metrics      *RunMetrics
	LoadErr      error // Set when loading failed and the run fell back to an empty table
}

// Pipeline wires a DataCleaner to a source, a verifier and an optional audit sink
type Pipeline struct {
	cleaner  *cleaner.DataCleaner
	verifier *Verifier
	audit    AuditSink
	logger   *zap.Logger
	newRunID func() string
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithAudit records every run through sink
func WithAudit(sink AuditSink) Option {
	return func(p *Pipeline) {
		p.audit = sink
	}
}

// New creates a Pipeline
func New(dc *cleaner.DataCleaner, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if dc == nil {
		return nil, errors.New("data cleaner cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	p := &Pipeline{
		cleaner:  dc,
		verifier: NewVerifier(dc.Policies(), logger.Named("verifier")),
		logger:   logger,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run loads the dataset and cleans it. A load failure is logged and the run
// continues on an empty table; only an audit failure is returned as an error.
func (p *Pipeline) Run(ctx context.Context, loader source.Loader, opts Options) (*Result, error) {
	if loader == nil {
		return nil, errors.New("loader cannot be nil")
	}

	table, loadErr := loader.Load(ctx)
	if loadErr != nil {
		p.logger.Error("Error loading dataset",
			zap.String("dataset", loader.Name()),
			zap.Error(loadErr))
		table = model.NewTable()
	} else {
		rows, cols := table.Shape()
		p.logger.Info("Dataset loaded successfully",
			zap.String("dataset", loader.Name()),
			zap.Int("rows", rows),
			zap.Int("columns", cols))
	}

	result, err := p.Clean(ctx, loader.Name(), table, opts)
	if result != nil {
		result.LoadErr = loadErr
	}
	return result, err
}

// Clean runs the passes over an already loaded table, modifying it in place
func (p *Pipeline) Clean(ctx context.Context, dataset string, table *model.Table, opts Options) (*Result, error) {
	if table == nil {
		table = model.NewTable()
	}

	runID := p.newRunID()
	logger := p.logger.With(zap.String("run_id", runID))
	metrics := NewRunMetrics(runID, logger)
	metrics.RowsRead = table.Len()
	p.cleaner.ResetIssues()

	result := &Result{
		RunID:   runID,
		Dataset: dataset,
		Metrics: metrics,
	}

	if opts.DropIncomplete {
		done := metrics.StartStage("drop_incomplete")
		metrics.IncompleteRowsDropped = p.cleaner.DropIncomplete(table)
		done()
	}

	done := metrics.StartStage("numeric")
	table, result.Invalid = p.cleaner.NormalizeNumeric(table, opts.NumericColumns, opts.Numeric)
	done()

	done = metrics.StartStage("categorical")
	table, result.CleaningLog = p.cleaner.NormalizeCategorical(table, opts.CategoricalColumns, opts.Numeric.Verbose)
	done()

	done = metrics.StartStage("verify")
	result.Verification = p.verifier.Verify(dataset, table, opts, result.Invalid, result.CleaningLog)
	done()

	result.Table = table
	result.Issues = p.cleaner.Issues()
	metrics.RecordIssues(result.Issues)
	metrics.RowsOut = table.Len()
	metrics.InvalidValues = result.Invalid.Count()
	metrics.CleaningActions = result.CleaningLog.Count()

	var auditErr error
	if p.audit != nil {
		done = metrics.StartStage("audit")
		auditErr = p.audit.RecordRun(ctx, runID, dataset, opts.Numeric.Sentinel, result.Invalid, result.CleaningLog)
		done()
		if auditErr != nil {
			logger.Error("Failed to record audit trail", zap.Error(auditErr))
			auditErr = fmt.Errorf("failed to record audit trail: %w", auditErr)
		}
	}

	metrics.Complete()
	return result, auditErr
}
