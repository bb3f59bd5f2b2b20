package cmd

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripsplit/trip"
)

func TestParseCSVToExpenses(t *testing.T) {
	csvContent := [][]string{
		{"participant", "item", "amount"},
		{"alice", "cabin", "70"},
		{"bob", "beer", "30"},
		{"carol", "", "0"},
	}

	names, memberships, items, err := ParseCSVToExpenses(csvContent)
	require.NoError(t, err)
	assert.Len(t, names, 3)
	assert.Len(t, memberships, 3)
	assert.Len(t, items, 2)

	balances := trip.ComputeSplit(memberships, items)
	// 100 split three ways.
	third := decimal.RequireFromString("100").Div(decimal.NewFromInt(3))
	assert.True(t, balances[names["carol"]].Owes.Equal(third))
	assert.True(t, balances[names["alice"]].Collects.Equal(decimal.RequireFromString("70").Sub(third)))
}

func TestParseCSVToExpensesErrors(t *testing.T) {
	_, _, _, err := ParseCSVToExpenses(nil)
	assert.Error(t, err)

	_, _, _, err = ParseCSVToExpenses([][]string{
		{"participant", "item", "amount"},
		{"alice", "cabin"},
	})
	assert.ErrorContains(t, err, "expected 3 columns")

	_, _, _, err = ParseCSVToExpenses([][]string{
		{"participant", "item", "amount"},
		{"", "cabin", "70"},
	})
	assert.ErrorContains(t, err, "participant name is empty")

	_, _, _, err = ParseCSVToExpenses([][]string{
		{"participant", "item", "amount"},
		{"alice", "cabin", "seventy"},
	})
	assert.ErrorContains(t, err, "failed to parse amount")
}

func TestParseCSVSamePayerTwice(t *testing.T) {
	csvContent := [][]string{
		{"participant", "item", "amount"},
		{"alice", "cabin", "50"},
		{"alice", "fuel", "25"},
	}

	names, memberships, items, err := ParseCSVToExpenses(csvContent)
	require.NoError(t, err)
	assert.Len(t, names, 1)
	assert.Len(t, memberships, 1)
	assert.Len(t, items, 2)

	balances := trip.ComputeSplit(memberships, items)
	assert.True(t, balances[names["alice"]].Paid.Equal(decimal.RequireFromString("75")))
}
