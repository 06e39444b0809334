// pkg/connector/snowflake.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/config"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// SnowflakeConnector reads vehicle-sales datasets from Snowflake
type SnowflakeConnector struct {
	db        *sqlx.DB
	logger    *zap.Logger
	cfg       *config.SnowflakeConfig
	batchSize int
}

// NewSnowflakeConnector creates a new Snowflake connection
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig, batchSize int) (*SnowflakeConnector, error) {
	logger := zap.L().Named("snowflake-connector")

	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("warehouse", cfg.Warehouse))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sqlx.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if cfg.QueryTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d",
				int(cfg.QueryTimeout.Seconds())),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db.DB, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 10000
	}

	connector := &SnowflakeConnector{
		db:        db,
		logger:    logger,
		cfg:       cfg,
		batchSize: batchSize,
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return connector, nil
}

// DB returns the underlying database connection
func (c *SnowflakeConnector) DB() *sql.DB {
	return c.db.DB
}

// Validate verifies the Snowflake connection and that the session landed in
// the configured database
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, warehouse string
	err := c.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	if !strings.EqualFold(database, c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, c.cfg.Database)
	}

	return nil
}

// Close closes the database connection
func (c *SnowflakeConnector) Close() error {
	c.logger.Info("Closing Snowflake connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db.DB)
	return c.db.Close()
}

// LoadTable pages through the query result and collects it into a table
func (c *SnowflakeConnector) LoadTable(ctx context.Context, query string) (*model.Table, error) {
	var table *model.Table

	err := c.BatchQuery(ctx, query, c.batchSize, func(rows *sql.Rows) error {
		if table == nil {
			columns, err := rows.Columns()
			if err != nil {
				return fmt.Errorf("failed to read result columns: %w", err)
			}
			table = model.NewTable(columns...)
		}
		return appendScannedRow(table, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load table from Snowflake: %w", err)
	}

	// No rows came back, so there were no columns to learn either
	if table == nil {
		table = model.NewTable()
	}

	rowCount, colCount := table.Shape()
	c.logger.Info("Loaded table from Snowflake", zap.Int("rows", rowCount), zap.Int("columns", colCount))
	return table, nil
}

// BatchQuery fetches data in batches to handle large result sets
func (c *SnowflakeConnector) BatchQuery(
	ctx context.Context,
	query string,
	batchSize int,
	processor func(*sql.Rows) error,
) error {
	if batchSize <= 0 {
		batchSize = 10000
	}

	offset := 0
	for {
		batchQuery := fmt.Sprintf("%s LIMIT %d OFFSET %d", strings.TrimRight(query, "; \n\t"), batchSize, offset)
		rowCount, err := c.processBatch(ctx, batchQuery, processor)
		if err != nil {
			return fmt.Errorf("batch at offset %d: %w", offset, err)
		}

		c.logger.Debug("Fetched batch", zap.Int("offset", offset), zap.Int("rows", rowCount))

		// If fewer rows than batch size were returned, we're done
		if rowCount < batchSize {
			return nil
		}
		offset += batchSize
	}
}

// processBatch runs one page and keeps its context alive until every row is consumed
func (c *SnowflakeConnector) processBatch(
	ctx context.Context,
	query string,
	processor func(*sql.Rows) error,
) (int, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.queryTimeout())
	defer cancel()

	rows, err := c.db.QueryContext(queryCtx, query)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	rowCount := 0
	for rows.Next() {
		rowCount++
		if err := processor(rows); err != nil {
			return rowCount, fmt.Errorf("row processing failed: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return rowCount, fmt.Errorf("error iterating rows: %w", err)
	}
	return rowCount, nil
}

func (c *SnowflakeConnector) queryTimeout() time.Duration {
	if c.cfg.QueryTimeout > 0 {
		return c.cfg.QueryTimeout
	}
	return 5 * time.Minute
}
