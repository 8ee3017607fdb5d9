package maintenance

// PartRequest is one requested line of a maintenance order.
type PartRequest struct {
	ConsumableID int64
	Quantity     float64
}

// PlannedLine is the sufficiency verdict for one line.
type PlannedLine struct {
	ConsumableID int64
	Quantity     float64
	State        LineState
	// Shortfall is required - warehouse stock, clamped at zero. Only positive
	// shortfalls become requisition lines.
	Shortfall float64
}

// PlanLines compares each requested quantity against current warehouse stock.
// Pure; the caller supplies a snapshot of stock taken under row locks.
func PlanLines(parts []PartRequest, warehouseStock func(consumableID int64) float64) []PlannedLine {
	out := make([]PlannedLine, 0, len(parts))
	for _, p := range parts {
		line := PlannedLine{ConsumableID: p.ConsumableID, Quantity: p.Quantity, State: LineInStock}
		if avail := warehouseStock(p.ConsumableID); avail < p.Quantity {
			line.State = LineOutOfStock
			line.Shortfall = p.Quantity - avail
			if line.Shortfall > p.Quantity {
				line.Shortfall = p.Quantity
			}
		}
		out = append(out, line)
	}
	return out
}

// InitialOrderState picks the post-creation state from the planned lines.
func InitialOrderState(lines []PlannedLine) OrderState {
	for _, l := range lines {
		if l.State == LineOutOfStock {
			return OrderEsperandoStock
		}
	}
	return OrderPorEjecutar
}
