package cleaner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

func TestNormalizeCategorical_MapsTransmissionSynonyms(t *testing.T) {
	c := newTestCleaner(t)
	table := columnTable(t, "transmission", "AUTO", " Man", nil)

	out, log := c.NormalizeCategorical(table, []string{"transmission"}, true)

	assert.Equal(t, []interface{}{"automatic", "manual", "Unknown"}, out.Values("transmission"))
	assert.Equal(t, []string{
		"Applied transmission mapping: {'10sp': 'automatic', '6sp': 'automatic', 'at': 'automatic', " +
			"'auto': 'automatic', 'man': 'manual', 'mt': 'manual'}",
		"Imputed missing transmission with 'Unknown'",
		"Converted transmission to category type",
	}, log["transmission"])

	col := out.GetColumnByName("transmission")
	assert.Equal(t, model.KindCategory, col.Kind)
	assert.Equal(t, []string{"Unknown", "automatic", "manual"}, col.Categories)
}

func TestNormalizeCategorical_MakeDropsMissingRows(t *testing.T) {
	c := newTestCleaner(t)
	table := model.NewTable("make", "model")
	require.NoError(t, table.AppendValues("chevy", "malibu"))
	require.NoError(t, table.AppendValues(nil, "civic"))
	require.NoError(t, table.AppendValues(" VW ", nil))
	require.NoError(t, table.AppendValues("ford", "focus"))

	out, log := c.NormalizeCategorical(table, []string{"make", "model"}, false)

	assert.Equal(t, []interface{}{"Chevrolet", "Ford"}, out.Values("make"))
	assert.Equal(t, []interface{}{"Malibu", "Focus"}, out.Values("model"))
	assert.Equal(t, []int{0, 3}, out.Index)
	assert.Contains(t, log["make"], "Dropped 1 rows with missing make")
	assert.Contains(t, log["model"], "Dropped 1 rows with missing model")
}

func TestNormalizeCategorical_RareTrimFoldedIntoOther(t *testing.T) {
	c := newTestCleaner(t)
	table := model.NewTable("trim")
	for i := 0; i < 150; i++ {
		require.NoError(t, table.AppendValues("base"))
	}
	for i := 0; i < 48; i++ {
		require.NoError(t, table.AppendValues("SE"))
	}
	require.NoError(t, table.AppendValues("xle"))
	require.NoError(t, table.AppendValues(nil))

	out, log := c.NormalizeCategorical(table, []string{"trim"}, false)

	counts := map[interface{}]int{}
	for _, v := range out.Values("trim") {
		require.NotNil(t, v)
		counts[v]++
	}
	assert.Equal(t, map[interface{}]int{"Base": 150, "Se": 48, "Other": 2}, counts)
	assert.Equal(t, []string{
		"Imputed missing trim with 'Unknown'",
		"Grouped 2 rare trim values into 'Other'",
		"Converted trim to category type",
	}, log["trim"])

	for v, n := range counts {
		if v == "Other" {
			continue
		}
		assert.GreaterOrEqual(t, float64(n)/float64(out.Len()), DefaultRareThreshold)
	}
}

func TestNormalizeCategorical_TrimAtThresholdKept(t *testing.T) {
	c := newTestCleaner(t)
	table := model.NewTable("trim")
	for i := 0; i < 99; i++ {
		require.NoError(t, table.AppendValues("base"))
	}
	require.NoError(t, table.AppendValues("xle"))

	out, log := c.NormalizeCategorical(table, []string{"trim"}, false)

	values := out.Values("trim")
	assert.Equal(t, "Xle", values[99])
	assert.NotContains(t, values, "Other")
	for _, entry := range log["trim"] {
		assert.NotContains(t, entry, "Grouped")
	}
	assert.Equal(t, []string{"Base", "Xle"}, out.GetColumnByName("trim").Categories)
}

// makeTrimTable has one row with a missing make. Platinum holds 1 of 101 rows
// before that row is dropped and exactly 1 of 100 after.
func makeTrimTable(t *testing.T) *model.Table {
	t.Helper()
	table := model.NewTable("make", "trim")
	require.NoError(t, table.AppendValues(nil, "base"))
	for i := 0; i < 99; i++ {
		require.NoError(t, table.AppendValues("kia", "base"))
	}
	require.NoError(t, table.AppendValues("kia", "platinum"))
	return table
}

func TestNormalizeCategorical_RareSharesUseRowsLeftAfterDrops(t *testing.T) {
	c := newTestCleaner(t)

	out, log := c.NormalizeCategorical(makeTrimTable(t), []string{"make", "trim"}, false)

	require.Equal(t, 100, out.Len())
	assert.Equal(t, "Platinum", out.Values("trim")[99])
	assert.Contains(t, log["make"], "Dropped 1 rows with missing make")
	for _, entry := range log["trim"] {
		assert.NotContains(t, entry, "Grouped")
	}
	assert.Equal(t, []string{"Base", "Platinum"}, out.GetColumnByName("trim").Categories)
}

func TestNormalizeCategorical_RareSharesFollowColumnOrder(t *testing.T) {
	c := newTestCleaner(t)

	out, log := c.NormalizeCategorical(makeTrimTable(t), []string{"trim", "make"}, false)

	require.Equal(t, 100, out.Len())
	assert.Equal(t, "Other", out.Values("trim")[99])
	assert.Contains(t, log["trim"], "Grouped 1 rare trim values into 'Other'")
	assert.Contains(t, log["make"], "Dropped 1 rows with missing make")
	assert.Equal(t, []string{"Base", "Other"}, out.GetColumnByName("trim").Categories)
}

func TestNormalizeCategorical_BodySynonymsAndTitleCase(t *testing.T) {
	c := newTestCleaner(t)
	table := columnTable(t, "body", "Crew Cab", "hatchback", "SUV")

	out, log := c.NormalizeCategorical(table, []string{"body"}, false)

	assert.Equal(t, []interface{}{"Pickup", "Sedan", "Suv"}, out.Values("body"))
	require.Len(t, log["body"], 2)
	assert.Contains(t, log["body"][0], "Applied body mapping")
	assert.Equal(t, "Converted body to category type", log["body"][1])
}

func TestNormalizeCategorical_Idempotent(t *testing.T) {
	c := newTestCleaner(t)
	table := model.NewTable("make", "model", "trim", "transmission", "body")
	makes := []interface{}{"chevy", "Ford", "vw", "kia", nil}
	trims := []interface{}{"LT", "base", "unknown", nil, "OTHER"}
	bodies := []interface{}{"g sedan", "SUV", nil, "regular cab", "wagon"}
	transmissions := []interface{}{"AT", "manual", nil, "10sp", "cvt"}
	for i := 0; i < 200; i++ {
		require.NoError(t, table.AppendValues(
			makes[i%len(makes)],
			fmt.Sprintf("model %d", i%7),
			trims[i%len(trims)],
			transmissions[i%len(transmissions)],
			bodies[i%len(bodies)],
		))
	}
	// A single rare trim so folding happens on the first pass
	require.NoError(t, table.AppendValues("ford", "f-150", "platinum", "auto", "crew cab"))

	columns := []string{"make", "model", "trim", "transmission", "body"}
	first, _ := c.NormalizeCategorical(table, columns, false)
	snapshot := first.Clone()

	second, _ := c.NormalizeCategorical(first, columns, false)

	assert.Equal(t, snapshot.Rows, second.Rows)
	assert.Equal(t, snapshot.Index, second.Index)
	for _, column := range columns {
		for _, v := range second.Values(column) {
			assert.NotNil(t, v, "column %s contains nil", column)
		}
	}
}

func TestNormalizeCategorical_UnconfiguredColumnUsesGenericPolicy(t *testing.T) {
	c := newTestCleaner(t)
	table := columnTable(t, "color", " Black", nil, "WHITE")

	out, log := c.NormalizeCategorical(table, []string{"color", "interior"}, false)

	assert.Equal(t, []interface{}{"black", "Unknown", "white"}, out.Values("color"))
	assert.Equal(t, []string{
		"Imputed missing color with 'Unknown'",
		"Converted color to category type",
	}, log["color"])
	_, logged := log["interior"]
	assert.False(t, logged)
}

func TestNormalizeCategorical_ColumnFailureLogged(t *testing.T) {
	c := newTestCleaner(t)
	table := model.NewTable("make", "body")
	require.NoError(t, table.AppendValues("ford", "sedan"))
	table.AppendRow(nil)

	var log model.CleaningLog
	assert.NotPanics(t, func() {
		_, log = c.NormalizeCategorical(table, []string{"make", "body"}, false)
	})

	for _, column := range []string{"make", "body"} {
		require.NotEmpty(t, log[column])
		assert.Contains(t, log[column][len(log[column])-1], "Error: ")
	}
}
