package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
	"github.com/hectormarrufor/WR-sub004/internal/domain/maintenance"
	"github.com/hectormarrufor/WR-sub004/internal/infra/metrics"
)

// CreateMaintenanceOrder opens an order for an asset. Every requested line is
// checked against current warehouse stock under row locks; shortfalls (never
// the full requested quantity) aggregate into one auto-created requisition.
// Order, lines, requisition header and its detail rows commit atomically.
func (e *Engine) CreateMaintenanceOrder(ctx context.Context, actorID int64, assetID int64, parts []maintenance.PartRequest, findingIDs []int64, description string) (*maintenance.MaintenanceOrder, error) {
	const op = "engine.CreateMaintenanceOrder"

	if len(parts) == 0 {
		return nil, fmt.Errorf("%s: order needs at least one part line: %w", op, errs.ErrValidation)
	}
	for _, p := range parts {
		if p.Quantity <= 0 {
			return nil, fmt.Errorf("%s: quantity must be positive: %w", op, errs.ErrValidation)
		}
	}

	var (
		order     *maintenance.MaintenanceOrder
		shortfall float64
	)
	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		asset, err := s.Assets.GetAsset(ctx, assetID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		// Lock every referenced consumable before reading stock so no
		// concurrent install can invalidate the sufficiency snapshot. Locks
		// are taken in ascending id order so two orders naming the same
		// consumables cannot deadlock each other.
		ids := make([]int64, 0, len(parts))
		for _, p := range parts {
			ids = append(ids, p.ConsumableID)
		}
		slices.Sort(ids)
		ids = slices.Compact(ids)

		stock := make(map[int64]float64, len(ids))
		for _, id := range ids {
			c, err := s.Catalog.GetConsumableForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			stock[c.ID] = c.StockWarehouse
		}

		planned := maintenance.PlanLines(parts, func(id int64) float64 { return stock[id] })
		state := maintenance.InitialOrderState(planned)

		order = &maintenance.MaintenanceOrder{
			AssetID:     asset.ID,
			State:       state,
			Description: description,
			ActorID:     actorID,
		}
		orderID, err := s.Maintenance.CreateOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		order.ID = orderID

		for _, l := range planned {
			if _, err := s.Maintenance.AddOrderLine(ctx, &maintenance.OrderLine{
				OrderID:      orderID,
				ConsumableID: l.ConsumableID,
				Quantity:     l.Quantity,
				State:        l.State,
			}); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		if state == maintenance.OrderEsperandoStock {
			req := &maintenance.Requisition{
				Code:    uuid.NewString(),
				OrderID: &orderID,
				State:   maintenance.RequisitionOpen,
				ActorID: actorID,
			}
			reqID, err := s.Maintenance.CreateRequisition(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			for _, l := range planned {
				if l.Shortfall <= 0 {
					continue
				}
				shortfall += l.Shortfall
				if _, err := s.Maintenance.AddRequisitionLine(ctx, &maintenance.RequisitionLine{
					RequisitionID: reqID,
					ConsumableID:  l.ConsumableID,
					Quantity:      l.Shortfall,
				}); err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
			}
			if err := s.Maintenance.SetOrderRequisition(ctx, orderID, reqID); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			order.RequisitionID = &reqID
		}

		for _, fid := range findingIDs {
			f, err := s.Maintenance.GetFinding(ctx, fid)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if f.AssetID != asset.ID {
				return fmt.Errorf("%s: finding %d belongs to asset %d: %w", op, fid, f.AssetID, errs.ErrValidation)
			}
			if err := s.Maintenance.AttachFindingToOrder(ctx, fid, orderID); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues(string(order.State)).Inc()
	if order.RequisitionID != nil {
		metrics.RequisitionsCreated.Inc()
		metrics.ShortfallQty.Add(shortfall)
	}
	e.log.Info("maintenance order created",
		"order_id", order.ID, "asset_id", assetID, "state", string(order.State), "actor_id", actorID)
	return order, nil
}

// StartOrder moves an order into execution.
func (e *Engine) StartOrder(ctx context.Context, actorID int64, orderID int64) error {
	return e.transitionOrder(ctx, actorID, orderID, maintenance.OrderEnEjecucion)
}

// CompleteOrder closes an executing order.
func (e *Engine) CompleteOrder(ctx context.Context, actorID int64, orderID int64) error {
	return e.transitionOrder(ctx, actorID, orderID, maintenance.OrderCompletada)
}

func (e *Engine) transitionOrder(ctx context.Context, actorID int64, orderID int64, to maintenance.OrderState) error {
	const op = "engine.transitionOrder"

	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		o, err := s.Maintenance.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !maintenance.CanTransition(o.State, to) {
			return fmt.Errorf("%s: order %d %s -> %s: %w", op, orderID, o.State, to, errs.ErrInvalidTransition)
		}
		return s.Maintenance.SetOrderState(ctx, orderID, to)
	})
	if err != nil {
		return err
	}
	e.log.Info("order state changed", "order_id", orderID, "state", string(to), "actor_id", actorID)
	return nil
}

// ReceiveRequisition books the purchased quantities into the warehouse (one
// priced entry per line), marks the requisition received and, when it was
// auto-created for an order, releases that order to por_ejecutar.
func (e *Engine) ReceiveRequisition(ctx context.Context, actorID int64, requisitionID int64, unitCosts map[int64]decimal.Decimal, note string) error {
	const op = "engine.ReceiveRequisition"

	return e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		req, err := s.Maintenance.GetRequisition(ctx, requisitionID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if req.State != maintenance.RequisitionOpen {
			return fmt.Errorf("%s: requisition %d is %s: %w", op, req.ID, req.State, errs.ErrValidation)
		}

		lines, err := s.Maintenance.ListRequisitionLines(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		for _, l := range lines {
			cost, ok := unitCosts[l.ConsumableID]
			if !ok {
				return fmt.Errorf("%s: missing unit cost for consumable %d: %w", op, l.ConsumableID, errs.ErrValidation)
			}
			if err := e.receiveLocked(ctx, s, actorID, l.ConsumableID, l.Quantity, cost, inventory.MotiveRequisitionReceipt, req.OrderID, note); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		if err := s.Maintenance.SetRequisitionState(ctx, req.ID, maintenance.RequisitionReceived); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if req.OrderID != nil {
			o, err := s.Maintenance.GetOrder(ctx, *req.OrderID)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if o.State == maintenance.OrderEsperandoStock {
				if err := s.Maintenance.SetOrderState(ctx, o.ID, maintenance.OrderPorEjecutar); err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
			}
		}
		return nil
	})
}

// CreateManualRequisition raises a requisition for every active consumable
// sitting below its minimum stock, for the gap up to the minimum.
func (e *Engine) CreateManualRequisition(ctx context.Context, actorID int64) (*maintenance.Requisition, error) {
	const op = "engine.CreateManualRequisition"

	var req *maintenance.Requisition
	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		low, err := s.Catalog.BelowMinimum(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if len(low) == 0 {
			return fmt.Errorf("%s: nothing below minimum stock: %w", op, errs.ErrNotFound)
		}

		req = &maintenance.Requisition{
			Code:    uuid.NewString(),
			State:   maintenance.RequisitionOpen,
			ActorID: actorID,
		}
		id, err := s.Maintenance.CreateRequisition(ctx, req)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		req.ID = id

		for _, c := range low {
			if _, err := s.Maintenance.AddRequisitionLine(ctx, &maintenance.RequisitionLine{
				RequisitionID: id,
				ConsumableID:  c.ID,
				Quantity:      c.MinStock - c.StockWarehouse,
			}); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RequisitionsCreated.Inc()
	return req, nil
}
