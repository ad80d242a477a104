package nutrition

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyLedger_SerializesEntriesAsArray(t *testing.T) {
	data, err := json.Marshal(EmptyLedger())
	require.NoError(t, err)

	assert.JSONEq(t, `{"totalCalories":0,"totalProtein":0,"totalCarbs":0,"totalFat":0,"entries":[]}`, string(data))
	assert.True(t, EmptyLedger().IsEmpty())
}

func TestNormalize(t *testing.T) {
	l := DailyLedger{TotalCalories: 10}.Normalize()
	assert.NotNil(t, l.Entries)
	assert.False(t, l.IsEmpty())
}

func TestDates(t *testing.T) {
	assert.Equal(t, "2026-10-15", FormatDate(time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)))

	assert.True(t, ValidDate("2024-02-29"))
	assert.False(t, ValidDate("2023-02-29"))
	assert.False(t, ValidDate("2024-2-1"))
	assert.False(t, ValidDate(""))
	assert.False(t, ValidDate("2024-01-01T00:00:00Z"))
}

func TestFoodInfo_WireShape(t *testing.T) {
	var info FoodInfo
	require.NoError(t, json.Unmarshal([]byte(`{"barcode":"0001","name":"Banana","calories":105,"protein":1,"carbs":27,"fat":0}`), &info))

	assert.Equal(t, FoodInfo{Barcode: "0001", Name: "Banana", Calories: 105, Protein: 1, Carbs: 27}, info)
}
