package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
	"github.com/David-Botos/vehicle-cleaner/pkg/config"
	"github.com/David-Botos/vehicle-cleaner/pkg/connector"
	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/pipeline"
	"github.com/David-Botos/vehicle-cleaner/pkg/report"
	"github.com/David-Botos/vehicle-cleaner/pkg/source"
)

type runFlags struct {
	source         string
	input          string
	query          string
	sheet          string
	exportXLSX     string
	exportTable    string
	policyFile     string
	verbose        bool
	head           int
	keepIncomplete bool
}

// RootCmd builds the vehiclesclean command
func RootCmd() *cobra.Command {
	flags := &runFlags{}

	root := &cobra.Command{
		Use:   "vehiclesclean",
		Short: "Clean a vehicle-sales dataset",
		Long: "Loads a vehicle-sales dataset from a CSV/XLSX file or a database query, " +
			"normalizes the numeric and categorical columns and prints what was changed.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags)
		},
	}

	f := root.Flags()
	f.StringVar(&flags.source, "source", "file", "dataset source: file, snowflake or postgres")
	f.StringVarP(&flags.input, "input", "i", "", "CSV or XLSX file to clean")
	f.StringVarP(&flags.query, "query", "q", "", "query to run against a database source")
	f.StringVar(&flags.sheet, "sheet", "", "worksheet to read from an XLSX input (default first sheet)")
	f.StringVar(&flags.exportXLSX, "export-xlsx", "", "write the cleaned table and logs to this workbook")
	f.StringVar(&flags.exportTable, "export-table", "", "write the cleaned table to this PostgreSQL table")
	f.StringVar(&flags.policyFile, "policy-file", "", "YAML file overriding the categorical column policies")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "report every invalid value and cleaning action")
	f.IntVar(&flags.head, "head", report.DefaultHead, "rows of the cleaned table to print")
	f.BoolVar(&flags.keepIncomplete, "keep-incomplete", false, "keep rows with missing values instead of dropping them first")

	return root
}

func (f *runFlags) validate() error {
	switch f.source {
	case "file":
		if f.input == "" {
			return errors.New("--input is required for a file source")
		}
	case "snowflake", "postgres":
		if strings.TrimSpace(f.query) == "" {
			return fmt.Errorf("--query is required for a %s source", f.source)
		}
	default:
		return fmt.Errorf("unsupported source: %s", f.source)
	}
	return nil
}

func run(cmd *cobra.Command, flags *runFlags) error {
	if err := flags.validate(); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.policyFile != "" {
		cfg.PolicyFile = flags.policyFile
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()
	restore := zap.ReplaceGlobals(logger)
	defer restore()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []cleaner.Option
	if cfg.PolicyFile != "" {
		policies, err := cleaner.LoadPolicies(cfg.PolicyFile)
		if err != nil {
			return err
		}
		opts = append(opts, cleaner.WithPolicies(policies))
	}
	dc, err := cleaner.NewDataCleaner(logger.Named("cleaner"), opts...)
	if err != nil {
		return err
	}

	factory := connector.NewConnectorFactory(cfg, logger)

	loader, closeSource, err := newLoader(ctx, factory, flags)
	if err != nil {
		return err
	}
	defer closeSource()

	var pipelineOpts []pipeline.Option
	if cfg.Audit.Enabled() {
		db, err := cleaner.OpenAuditDB(cfg.Audit.Driver, cfg.Audit.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		recorder, err := cleaner.NewAuditRecorder(ctx, db, logger.Named("audit"))
		if err != nil {
			return err
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithAudit(recorder))
	}

	p, err := pipeline.New(dc, logger, pipelineOpts...)
	if err != nil {
		return err
	}

	// An audit failure still returns the cleaned result, so the summary and
	// exports run before that error is reported
	result, runErr := p.Run(ctx, loader, pipeline.Options{
		NumericColumns:     cfg.NumericColumns,
		CategoricalColumns: cfg.CategoricalColumns,
		Numeric: cleaner.NumericOptions{
			Ranges:   cfg.Ranges,
			Sentinel: cfg.Sentinel,
			Verbose:  flags.verbose,
		},
		DropIncomplete: !flags.keepIncomplete,
	})
	if result == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	err = report.PrintSummary(out, report.Summary{
		Table:       result.Table,
		Invalid:     result.Invalid,
		CleaningLog: result.CleaningLog,
		Head:        flags.head,
	})
	if err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}
	if flags.verbose {
		fmt.Fprint(out, result.Metrics.GenerateMetricsReport())
	}

	if flags.exportXLSX != "" {
		if err := report.WriteXLSX(flags.exportXLSX, result.Table, result.Invalid, result.CleaningLog); err != nil {
			return err
		}
		logger.Info("Exported workbook", zap.String("path", flags.exportXLSX))
	}

	if flags.exportTable != "" {
		if err := exportTable(ctx, factory, flags.exportTable, result, logger); err != nil {
			return err
		}
	}

	return runErr
}

// newLoader returns the dataset loader and a func releasing its connection
func newLoader(
	ctx context.Context,
	factory *connector.ConnectorFactory,
	flags *runFlags,
) (source.Loader, func(), error) {
	if flags.source == "file" {
		loader, err := source.NewFileLoader(flags.input, flags.sheet)
		return loader, func() {}, err
	}

	conn, err := factory.CreateSource(ctx, flags.source)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Validate(ctx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to validate %s connection: %w", flags.source, err)
	}

	loader := &source.QueryLoader{Querier: conn, Query: flags.query, Label: flags.source}
	return loader, func() { conn.Close() }, nil
}

func exportTable(
	ctx context.Context,
	factory *connector.ConnectorFactory,
	name string,
	result *pipeline.Result,
	logger *zap.Logger,
) error {
	pg, err := factory.CreatePostgresConnector(ctx)
	if err != nil {
		return err
	}
	defer pg.Close()

	if _, err := pg.WriteTable(ctx, name, result.Table, converter.NewTypeConverter(logger)); err != nil {
		return fmt.Errorf("failed to export cleaned table: %w", err)
	}
	return nil
}

// newLogger builds the root logger; json uses the production config and
// console the development config
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zapCfg zap.Config
	switch format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = lvl

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
