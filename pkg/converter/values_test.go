package converter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

func TestToInteger(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		want    int64
		wantErr bool
	}{
		{"int", 1995, 1995, false},
		{"int64", int64(-3), -3, false},
		{"float truncates", 1995.9, 1995, false},
		{"negative float truncates toward zero", -2.7, -2, false},
		{"numeric string", " 2010 ", 2010, false},
		{"float string", "2010.0", 2010, false},
		{"bytes", []byte("42"), 42, false},
		{"word", "oops", 0, true},
		{"empty", "", 0, true},
		{"nil", nil, 0, true},
		{"nan", math.NaN(), 0, true},
		{"inf", math.Inf(1), 0, true},
		{"overflow", 1e20, 0, true},
		{"uint overflow", uint64(math.MaxUint64), 0, true},
		{"bool true", true, 0, true},
		{"bool false", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInteger(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotNumeric)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(math.NaN()))
	assert.False(t, IsNull(""))
	assert.False(t, IsNull(0))
}

func TestToText(t *testing.T) {
	assert.Equal(t, "", ToText(nil))
	assert.Equal(t, "Sedan", ToText("Sedan"))
	assert.Equal(t, "12.5", ToText(12.5))
	assert.Equal(t, "7", ToText(7))
}

func TestGenerateColumnDefinitions(t *testing.T) {
	table := model.NewTable("year", "make", "vin")
	table.Columns[0].Kind = model.KindInteger
	table.Columns[1].SetCategories([]string{"Ford"})

	defs := NewTypeConverter(zap.NewNop()).GenerateColumnDefinitions(table)

	assert.Equal(t, []string{
		`"year" BIGINT NOT NULL`,
		`"make" TEXT NOT NULL`,
		`"vin" TEXT NULL`,
	}, defs)
}

func TestRowValues(t *testing.T) {
	table := model.NewTable("year", "make")
	table.Columns[0].Kind = model.KindInteger
	require.NoError(t, table.AppendValues(int64(2010), "Ford"))
	require.NoError(t, table.AppendValues(int64(-1), ""))

	rows, err := NewTypeConverter(nil).RowValues(table)
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{
		{int64(2010), "Ford"},
		{int64(-1), nil},
	}, rows)
}

func TestConvertValueForPostgres(t *testing.T) {
	c := NewTypeConverter(nil)

	v, err := c.ConvertValueForPostgres("", model.KindCategory, "trim")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = c.ConvertValueForPostgres("2015", model.KindInteger, "year")
	require.NoError(t, err)
	assert.Equal(t, int64(2015), v)

	_, err = c.ConvertValueForPostgres("oops", model.KindInteger, "year")
	assert.ErrorIs(t, err, ErrNotNumeric)
}
