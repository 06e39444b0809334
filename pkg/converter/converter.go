// pkg/converter/converter.go
package converter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// TypeConverter maps cleaned column kinds and values onto PostgreSQL
type TypeConverter struct {
	logger *zap.Logger
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Whether to write empty strings as NULL
	EmptyStringAsNull bool
	// Column type used for columns that were never settled by a cleaner pass
	FallbackType string
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		EmptyStringAsNull: true,
		FallbackType:      "TEXT",
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// MapKindToPostgres returns the PostgreSQL type for a column kind
func (c *TypeConverter) MapKindToPostgres(kind model.ColumnKind) string {
	switch kind {
	case model.KindInteger:
		return "BIGINT"
	case model.KindCategory, model.KindText:
		return "TEXT"
	default:
		return c.config.FallbackType
	}
}

// GenerateColumnDefinitions creates PostgreSQL column definitions for a table
func (c *TypeConverter) GenerateColumnDefinitions(table *model.Table) []string {
	definitions := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		// Cleaned columns never hold NULL after a pass, everything else may
		nullability := "NULL"
		if col.Kind == model.KindInteger || col.Kind == model.KindCategory {
			nullability = "NOT NULL"
		}
		definitions = append(definitions, fmt.Sprintf("%s %s %s",
			QuoteIdentifier(col.Name),
			c.MapKindToPostgres(col.Kind),
			nullability))
	}
	return definitions
}

// ConvertValueForPostgres converts a cell to a value the driver can bind
func (c *TypeConverter) ConvertValueForPostgres(value interface{}, kind model.ColumnKind, colName string) (interface{}, error) {
	if IsNull(value) {
		return nil, nil
	}

	switch kind {
	case model.KindInteger:
		i, err := ToInteger(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", colName, err)
		}
		return i, nil
	default:
		text := ToText(value)
		// Category columns are NOT NULL, an empty label stays a label
		if text == "" && c.config.EmptyStringAsNull && kind != model.KindCategory {
			return nil, nil
		}
		return text, nil
	}
}

// RowValues converts every row of the table into positional driver values
func (c *TypeConverter) RowValues(table *model.Table) ([][]interface{}, error) {
	out := make([][]interface{}, 0, table.Len())
	for i, row := range table.Rows {
		values := make([]interface{}, len(table.Columns))
		for j, col := range table.Columns {
			v, err := c.ConvertValueForPostgres(row[col.Name], col.Kind, col.Name)
			if err != nil {
				c.logger.Warn("Failed to convert value for export",
					zap.Int("row", table.Label(i)),
					zap.String("column", col.Name),
					zap.Error(err))
				return nil, err
			}
			values[j] = v
		}
		out = append(out, values)
	}
	return out, nil
}

// QuoteIdentifier quotes and escapes a PostgreSQL identifier
func QuoteIdentifier(name string) string {
	return fmt.Sprintf("\"%s\"", strings.ToLower(strings.ReplaceAll(name, "\"", "\"\"")))
}
