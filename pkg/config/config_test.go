package config

import (
	"testing"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(-1), cfg.Sentinel)
	assert.Equal(t, []string{"year", "odometer"}, cfg.NumericColumns)
	assert.Equal(t, []string{"make", "model", "trim", "transmission", "body"}, cfg.CategoricalColumns)
	assert.Equal(t, model.Range{Min: 1900, Max: 2026}, cfg.Ranges["year"])
	assert.Equal(t, model.Range{Min: 0, Max: 999999}, cfg.Ranges["odometer"])
	assert.False(t, cfg.Audit.Enabled())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("CLEANER_SENTINEL", "0")
	t.Setenv("CLEANER_NUMERIC_COLUMNS", "year, mmr ,")
	t.Setenv("CLEANER_RANGES", "mmr=100:90000")
	t.Setenv("AUDIT_DRIVER", "postgres")
	t.Setenv("AUDIT_DSN", "postgres://localhost/audit")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(0), cfg.Sentinel)
	assert.Equal(t, []string{"year", "mmr"}, cfg.NumericColumns)
	assert.Equal(t, map[string]model.Range{"mmr": {Min: 100, Max: 90000}}, cfg.Ranges)
	assert.True(t, cfg.Audit.Enabled())
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad range":        {"CLEANER_RANGES": "year=abc:2"},
		"inverted range":   {"CLEANER_RANGES": "year=2026:1900"},
		"missing bounds":   {"CLEANER_RANGES": "year"},
		"bad log format":   {"LOG_FORMAT": "xml"},
		"bad audit driver": {"AUDIT_DRIVER": "mysql", "AUDIT_DSN": "x"},
		"bad chunk size":   {"CHUNK_SIZE": "-3"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadSnowflakeConfig(t *testing.T) {
	_, err := LoadSnowflakeConfig()
	assert.ErrorContains(t, err, "SNOWFLAKE_USER")

	t.Setenv("SNOWFLAKE_USER", "u")
	t.Setenv("SNOWFLAKE_PASSWORD", "p")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acct")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "wh")
	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "OKTA")

	cfg, err := LoadSnowflakeConfig()
	require.NoError(t, err)
	assert.Equal(t, gosnowflake.AuthTypeOkta, cfg.Authenticator)
	assert.Equal(t, "VEHICLE_SALES", cfg.Database)
}

func TestLoadPostgresConfig(t *testing.T) {
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "cars")

	cfg, err := LoadPostgresConfig()
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=cars sslmode=disable", cfg.ConnectionString())
	assert.Equal(t, "public", cfg.Schema)
}
