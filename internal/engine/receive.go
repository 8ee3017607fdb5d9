package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
)

// ReceiveStock books a priced purchase entry into the warehouse and refreshes
// the weighted average unit cost.
func (e *Engine) ReceiveStock(ctx context.Context, actorID int64, consumableID int64, qty float64, unitCost decimal.Decimal, note string) error {
	const op = "engine.ReceiveStock"

	if qty <= 0 {
		return fmt.Errorf("%s: qty must be positive: %w", op, errs.ErrValidation)
	}

	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		if err := e.receiveLocked(ctx, s, actorID, consumableID, qty, unitCost, inventory.MotiveReceipt, nil, note); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("stock received", "consumable_id", consumableID, "qty", qty, "actor_id", actorID)
	return nil
}

// receiveLocked is the shared warehouse-entry path for purchases and
// requisition receipts. It locks the consumable, writes one ledger entry with
// the cost at this moment and updates the cached average.
func (e *Engine) receiveLocked(ctx context.Context, s Stores, actorID, consumableID int64, qty float64, unitCost decimal.Decimal, motive inventory.Motive, orderID *int64, note string) error {
	c, err := s.Catalog.GetConsumableForUpdate(ctx, consumableID)
	if err != nil {
		return err
	}

	mv := &inventory.Movement{
		ConsumableID: c.ID,
		Qty:          qty,
		Direction:    inventory.MoveIn,
		UnitCost:     unitCost,
		Motive:       motive,
		Note:         note,
		OrderID:      orderID,
		ActorID:      actorID,
	}
	if _, err := s.Inventory.Apply(ctx, mv, qty, 0); err != nil {
		return err
	}

	avg := catalog.WeightedAvgCost(c.AvgUnitCost, c.StockWarehouse+c.StockAssigned, qty, unitCost)
	return s.Catalog.UpdateAvgCost(ctx, c.ID, avg)
}
