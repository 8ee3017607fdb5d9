package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeFungible   Type = "fungible"
	TypeSerialized Type = "serialized"
)

// Consumable is a master catalog item. StockWarehouse/StockAssigned are cached
// counters; the movements ledger is the source of truth and the only code path
// allowed to change them.
type Consumable struct {
	ID       int64
	Name     string
	Category string
	Type     Type
	// Equivalence group for interchangeable brand codes (filters etc.), nil if none.
	GroupID *int64
	// Category-specific technical value (viscosity grade, tire size, belt code).
	// Plain string so new technical domains need no schema change.
	TechSpec       string
	StockWarehouse float64
	StockAssigned  float64
	AvgUnitCost    decimal.Decimal
	MinStock       float64
	Active         bool
	CreatedAt      time.Time
}

// EquivalenceGroup groups consumables whose brand codes are interchangeable.
type EquivalenceGroup struct {
	ID        int64
	Category  string
	Code      string
	CreatedAt time.Time
}

// WeightedAvgCost recomputes the average unit cost after receiving qty units at
// unitCost, weighting by everything currently on hand (warehouse + assigned).
func WeightedAvgCost(current decimal.Decimal, onHand float64, qty float64, unitCost decimal.Decimal) decimal.Decimal {
	if onHand <= 0 {
		return unitCost
	}
	oh := decimal.NewFromFloat(onHand)
	q := decimal.NewFromFloat(qty)
	total := current.Mul(oh).Add(unitCost.Mul(q))
	return total.Div(oh.Add(q)).Round(4)
}
