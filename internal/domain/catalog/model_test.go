package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWeightedAvgCost(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name     string
		current  decimal.Decimal
		onHand   float64
		qty      float64
		unitCost decimal.Decimal
		want     decimal.Decimal
	}{
		{name: "first receipt takes the new cost", current: d("0"), onHand: 0, qty: 10, unitCost: d("25.50"), want: d("25.50")},
		{name: "negative cache treated as empty", current: d("99"), onHand: -1, qty: 5, unitCost: d("10"), want: d("10")},
		{name: "equal weights average evenly", current: d("10"), onHand: 10, qty: 10, unitCost: d("20"), want: d("15")},
		{name: "heavier existing stock dominates", current: d("10"), onHand: 30, qty: 10, unitCost: d("20"), want: d("12.5")},
		{name: "rounds to four decimals", current: d("1"), onHand: 1, qty: 2, unitCost: d("2"), want: d("1.6667")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAvgCost(tt.current, tt.onHand, tt.qty, tt.unitCost)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
