// pkg/connector/postgres.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/config"
	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// PostgresConnector reads datasets from and writes cleaned tables to PostgreSQL
type PostgresConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig) (*PostgresConnector, error) {
	logger := zap.L().Named("postgres-connector")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	connector := &PostgresConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return connector, nil
}

// DB returns the underlying database connection
func (c *PostgresConnector) DB() *sql.DB {
	return c.db.DB
}

// Validate verifies the PostgreSQL connection and the export schema
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	if err := c.ensureSchema(ctx, c.cfg.Schema); err != nil {
		return fmt.Errorf("failed to create/verify schema %s: %w", c.cfg.Schema, err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresConnector) Close() error {
	c.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db.DB)
	return c.db.Close()
}

// LoadTable runs a query and returns its result set as a table
func (c *PostgresConnector) LoadTable(ctx context.Context, query string) (*model.Table, error) {
	table, err := QueryTable(ctx, c.db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load table from PostgreSQL: %w", err)
	}
	rows, cols := table.Shape()
	c.logger.Info("Loaded table from PostgreSQL", zap.Int("rows", rows), zap.Int("columns", cols))
	return table, nil
}

// ensureSchema creates a schema if it doesn't exist
func (c *PostgresConnector) ensureSchema(ctx context.Context, schema string) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", converter.QuoteIdentifier(schema)))
	return err
}

// ExecWithTimeout executes a statement with a timeout
func (c *PostgresConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.ExecContext(queryCtx, query, args...)
}

// WriteTable exports a cleaned table into the configured schema
func (c *PostgresConnector) WriteTable(
	ctx context.Context,
	name string,
	table *model.Table,
	conv *converter.TypeConverter,
) (int64, error) {
	if err := c.ensureSchema(ctx, c.cfg.Schema); err != nil {
		return 0, fmt.Errorf("failed to create schema %s: %w", c.cfg.Schema, err)
	}

	if err := c.CreateTableIfNotExists(ctx, c.cfg.Schema, name, conv.GenerateColumnDefinitions(table)); err != nil {
		return 0, err
	}

	values, err := conv.RowValues(table)
	if err != nil {
		return 0, fmt.Errorf("failed to convert rows for export: %w", err)
	}

	columns := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = converter.QuoteIdentifier(col.Name)
	}

	inserted, err := c.BatchInsert(ctx, c.cfg.Schema, name, columns, values, 1000)
	if err != nil {
		return inserted, err
	}

	c.logger.Info("Exported cleaned table",
		zap.String("schema", c.cfg.Schema),
		zap.String("table", name),
		zap.Int64("rows", inserted))
	return inserted, nil
}

// BatchInsert performs a bulk insert into a table
func (c *PostgresConnector) BatchInsert(
	ctx context.Context,
	schema string,
	table string,
	columns []string,
	valueRows [][]interface{},
	batchSize int,
) (int64, error) {
	if len(valueRows) == 0 {
		return 0, nil
	}
	batchSize = maxBatchRows(batchSize, len(columns))

	fullTableName := qualifiedName(schema, table)
	columnStr := strings.Join(columns, ", ")

	var totalRowsInserted int64
	for i := 0; i < len(valueRows); i += batchSize {
		end := i + batchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}
		query, args := buildInsert(fullTableName, columnStr, len(columns), valueRows[i:end])

		result, err := c.ExecWithTimeout(ctx, query, 30*time.Second, args...)
		if err != nil {
			return totalRowsInserted, fmt.Errorf("batch insert failed: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			c.logger.Warn("Couldn't get rows affected", zap.Error(err))
		} else {
			totalRowsInserted += rowsAffected
		}
	}

	return totalRowsInserted, nil
}

// maxPlaceholders is the bind parameter limit of one PostgreSQL statement
const maxPlaceholders = 65535

// maxBatchRows returns the rows per INSERT so a batch stays within maxPlaceholders
func maxBatchRows(batchSize, width int) int {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if width > 0 && batchSize*width > maxPlaceholders {
		batchSize = max(maxPlaceholders/width, 1)
	}
	return batchSize
}

// buildInsert renders a multi-row INSERT with $n placeholders
func buildInsert(fullTableName, columnStr string, width int, batch [][]interface{}) (string, []interface{}) {
	placeholders := make([]string, len(batch))
	args := make([]interface{}, 0, len(batch)*width)

	for j, row := range batch {
		rowPlaceholders := make([]string, width)
		for k := 0; k < width; k++ {
			rowPlaceholders[k] = fmt.Sprintf("$%d", j*width+k+1)
			args = append(args, row[k])
		}
		placeholders[j] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		fullTableName, columnStr, strings.Join(placeholders, ", "))
	return query, args
}

// CreateTableIfNotExists creates a table with the given column definitions if it doesn't exist
func (c *PostgresConnector) CreateTableIfNotExists(
	ctx context.Context,
	schema string,
	table string,
	columnDefs []string,
) error {
	fullTableName := qualifiedName(schema, table)

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		fullTableName,
		strings.Join(columnDefs, ",\n\t"),
	)

	if _, err := c.ExecWithTimeout(ctx, createSQL, 30*time.Second); err != nil {
		return fmt.Errorf("failed to create table %s: %w", fullTableName, err)
	}

	c.logger.Debug("Ensured table exists", zap.String("table", fullTableName))
	return nil
}

func qualifiedName(schema, table string) string {
	return converter.QuoteIdentifier(schema) + "." + converter.QuoteIdentifier(table)
}
