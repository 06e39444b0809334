// pkg/cleaner/audit.go
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// Audit operation names
const (
	OperationSentinel    = "sentinel_replacement"
	OperationCategorical = "categorical_cleaning"
	OperationColumnError = "column_error"
)

// AuditRecorder persists cleaning operations into the cleaning_audit table
type AuditRecorder struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// OpenAuditDB opens the audit database for a driver ("postgres" or "sqlite")
func OpenAuditDB(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported audit driver: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	return db, nil
}

// NewAuditRecorder creates an AuditRecorder and ensures the audit table exists
func NewAuditRecorder(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (*AuditRecorder, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	recorder := &AuditRecorder{
		db:     db,
		logger: logger,
	}

	if err := recorder.setupAuditTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to setup audit table: %w", err)
	}

	return recorder, nil
}

// setupAuditTable ensures the cleaning_audit tracking table exists
func (r *AuditRecorder) setupAuditTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	idColumn := "id SERIAL PRIMARY KEY"
	cleanedAt := "cleaned_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP"
	if r.db.DriverName() == "sqlite" {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
		cleanedAt = "cleaned_at TEXT DEFAULT CURRENT_TIMESTAMP"
	}

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS cleaning_audit (
			%s,
			run_id TEXT NOT NULL,
			dataset TEXT NOT NULL,
			column_name TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			original_value TEXT,
			new_value TEXT NOT NULL,
			cleaning_operation TEXT NOT NULL,
			cleaning_reason TEXT NOT NULL,
			%s
		)
	`, idColumn, cleanedAt)

	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	r.logger.Info("Ensured cleaning_audit table exists")
	return nil
}

// RecordCleaningOperations batch inserts cleaning operations into the audit table
func (r *AuditRecorder) RecordCleaningOperations(ctx context.Context, operations []model.CleaningOperation) (err error) {
	if len(operations) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO cleaning_audit
		(run_id, dataset, column_name, row_index, original_value, new_value,
		 cleaning_operation, cleaning_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, op := range operations {
		_, err = stmt.ExecContext(ctx,
			op.RunID,
			op.Dataset,
			op.ColumnName,
			op.RowIndex,
			toNullableString(op.OriginalValue),
			op.NewValue,
			op.CleaningOperation,
			op.CleaningReason,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cleaning operation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Recorded cleaning operations", zap.Int("count", len(operations)))
	return nil
}

// RecordRun converts both logs of a run into operations and stores them
func (r *AuditRecorder) RecordRun(
	ctx context.Context,
	runID, dataset string,
	sentinel int64,
	invalid model.InvalidValueLog,
	cleaningLog model.CleaningLog,
) error {
	return r.RecordCleaningOperations(ctx, BuildOperations(runID, dataset, sentinel, invalid, cleaningLog))
}

// LoadRun reads back the operations stored for a run, ordered by insertion
func (r *AuditRecorder) LoadRun(ctx context.Context, runID string) ([]model.CleaningOperation, error) {
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(`
		SELECT run_id, dataset, column_name, row_index, original_value, new_value,
		       cleaning_operation, cleaning_reason
		FROM cleaning_audit
		WHERE run_id = ?
		ORDER BY id
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit table: %w", err)
	}
	defer rows.Close()

	var operations []model.CleaningOperation
	for rows.Next() {
		var (
			op       model.CleaningOperation
			original *string
		)
		if err := rows.Scan(&op.RunID, &op.Dataset, &op.ColumnName, &op.RowIndex, &original,
			&op.NewValue, &op.CleaningOperation, &op.CleaningReason); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if original != nil {
			op.OriginalValue = *original
		}
		operations = append(operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return operations, nil
}

// BuildOperations flattens the invalid-value and cleaning logs into audit operations.
// Columns are emitted in sorted order, entries keep their logged order.
func BuildOperations(
	runID, dataset string,
	sentinel int64,
	invalid model.InvalidValueLog,
	cleaningLog model.CleaningLog,
) []model.CleaningOperation {
	var operations []model.CleaningOperation
	newValue := strconv.FormatInt(sentinel, 10)

	for _, column := range invalid.Columns() {
		for _, entry := range invalid[column] {
			op := model.CleaningOperation{
				RunID:             runID,
				Dataset:           dataset,
				ColumnName:        column,
				RowIndex:          entry.Index,
				OriginalValue:     entry.Value,
				NewValue:          newValue,
				CleaningOperation: OperationSentinel,
				CleaningReason:    entry.Reason,
			}
			if entry.Reason == model.ReasonError {
				op.OriginalValue = nil
				op.NewValue = ""
				op.CleaningOperation = OperationColumnError
				op.CleaningReason = converter.ToText(entry.Value)
			}
			operations = append(operations, op)
		}
	}

	for _, column := range cleaningLog.Columns() {
		for _, action := range cleaningLog[column] {
			operations = append(operations, model.CleaningOperation{
				RunID:             runID,
				Dataset:           dataset,
				ColumnName:        column,
				RowIndex:          -1,
				NewValue:          "",
				CleaningOperation: OperationCategorical,
				CleaningReason:    action,
			})
		}
	}

	return operations
}

// toNullableString safely converts an interface to a nullable string
func toNullableString(v interface{}) *string {
	if converter.IsNull(v) {
		return nil
	}
	s := converter.ToText(v)
	return &s
}
