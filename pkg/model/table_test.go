package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_DropRowsKeepsLabels(t *testing.T) {
	table := NewTable("make", "year")
	require.NoError(t, table.AppendValues("ford", 2010))
	require.NoError(t, table.AppendValues(nil, 2011))
	require.NoError(t, table.AppendValues("kia", 2012))

	removed := table.DropRows(func(row map[string]interface{}) bool {
		return row["make"] == nil
	})

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []int{0, 2}, table.Index)
	assert.Equal(t, "kia", table.Rows[1]["make"])
	assert.Equal(t, 2, table.Label(1))
}

func TestTable_AppendValuesRejectsWrongArity(t *testing.T) {
	table := NewTable("make", "year")
	err := table.AppendValues("ford")
	assert.Error(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestTable_HeadAndClone(t *testing.T) {
	table := NewTable("make")
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, table.AppendValues(v))
	}

	head := table.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, []int{0, 1}, head.Index)
	assert.Equal(t, 3, table.Head(10).Len())

	clone := table.Clone()
	clone.Rows[0]["make"] = "z"
	assert.Equal(t, "a", table.Rows[0]["make"])
}

func TestColumn_SetCategories(t *testing.T) {
	col := Column{Name: "body"}
	col.SetCategories([]string{"Suv", "Sedan", "Suv"})
	assert.Equal(t, KindCategory, col.Kind)
	assert.Equal(t, []string{"Sedan", "Suv"}, col.Categories)
}

func TestInvalidValueLog(t *testing.T) {
	log := InvalidValueLog{}
	log.Add("year", InvalidEntry{Index: 1, Value: "oops", Reason: ReasonCoercion})
	log.Add("odometer", InvalidEntry{Index: -1, Value: "boom", Reason: ReasonError})

	assert.Equal(t, 2, log.Count())
	assert.Equal(t, []string{"odometer", "year"}, log.Columns())
	assert.Equal(t, "(1, oops)", log["year"][0].String())
	assert.Equal(t, "(error, boom)", log["odometer"][0].String())
}
