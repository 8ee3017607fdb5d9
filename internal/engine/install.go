package engine

import (
	"context"
	"fmt"

	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
	"github.com/hectormarrufor/WR-sub004/internal/infra/metrics"
)

type InstallParams struct {
	AssetID             int64
	SubsystemInstanceID int64
	ConsumableID        int64
	// RuleID links the install back to the recommendation it satisfies, if any.
	RuleID *int64
	// Quantity for fungible consumables.
	Quantity float64
	// Serials for serialized consumables. A serial unknown to the system is an
	// on-the-fly declaration: assigned stock grows with no warehouse decrement.
	Serials      []string
	LifeEstimate *float64
	Note         string
}

// InstallComponent fits a consumable to a subsystem instance. One transaction:
// unit transitions, counter shifts, ledger rows and installed components all
// commit together or not at all.
func (e *Engine) InstallComponent(ctx context.Context, actorID int64, p InstallParams) ([]*inventory.InstalledComponent, error) {
	const op = "engine.InstallComponent"

	var out []*inventory.InstalledComponent
	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		asset, err := s.Assets.GetAsset(ctx, p.AssetID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		si, err := s.Assets.GetSubsystemInstance(ctx, p.SubsystemInstanceID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if si.AssetID != asset.ID {
			return fmt.Errorf("%s: subsystem %d does not belong to asset %d: %w", op, si.ID, asset.ID, errs.ErrValidation)
		}

		c, err := s.Catalog.GetConsumableForUpdate(ctx, p.ConsumableID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		switch c.Type {
		case catalog.TypeSerialized:
			if len(p.Serials) == 0 {
				return fmt.Errorf("%s: serialized consumable requires serials: %w", op, errs.ErrValidation)
			}
			for _, serial := range p.Serials {
				ic, err := e.installSerial(ctx, s, actorID, asset.ID, si.ID, c, serial, p)
				if err != nil {
					return fmt.Errorf("%s: serial %q: %w", op, serial, err)
				}
				out = append(out, ic)
			}
		case catalog.TypeFungible:
			if p.Quantity <= 0 {
				return fmt.Errorf("%s: quantity must be positive: %w", op, errs.ErrValidation)
			}
			if c.StockWarehouse < p.Quantity {
				return fmt.Errorf("%s: %w", op, &errs.InsufficientStockError{
					ConsumableID: c.ID,
					Requested:    p.Quantity,
					Available:    c.StockWarehouse,
				})
			}
			mv := &inventory.Movement{
				ConsumableID: c.ID,
				Qty:          p.Quantity,
				Direction:    inventory.MoveOut,
				UnitCost:     c.AvgUnitCost,
				Motive:       inventory.MotiveInstall,
				Note:         p.Note,
				AssetID:      &asset.ID,
				ActorID:      actorID,
			}
			if _, err := s.Inventory.Apply(ctx, mv, -p.Quantity, p.Quantity); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			ic := &inventory.InstalledComponent{
				AssetID:             asset.ID,
				SubsystemInstanceID: si.ID,
				ConsumableID:        c.ID,
				Qty:                 p.Quantity,
				RuleID:              p.RuleID,
				LifeEstimate:        p.LifeEstimate,
				ActorID:             actorID,
			}
			id, err := s.Inventory.CreateComponent(ctx, ic)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			ic.ID = id
			ic.Active = true
			out = append(out, ic)
		default:
			return fmt.Errorf("%s: unknown consumable type %q: %w", op, c.Type, errs.ErrValidation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InstallsTotal.Inc()
	e.log.Info("component installed",
		"asset_id", p.AssetID, "subsystem_id", p.SubsystemInstanceID,
		"consumable_id", p.ConsumableID, "actor_id", actorID)
	return out, nil
}

// installSerial handles one serial. An existing in-warehouse unit walks
// in_warehouse -> assigned -> installed with a warehouse exit. A unit already
// assigned to this same asset/subsystem (reserved at propagation time) is
// promoted in place: its ledger exit was written when it was reserved, and its
// reservation component is reused. An unknown serial is created as an
// unaudited acquisition, growing assigned stock with no warehouse decrement.
// The latter intentionally breaks warehouse conservation and has its own
// ledger motive.
func (e *Engine) installSerial(ctx context.Context, s Stores, actorID, assetID, subsystemID int64, c *catalog.Consumable, serial string, p InstallParams) (*inventory.InstalledComponent, error) {
	u, err := s.Inventory.GetUnitBySerial(ctx, c.ID, serial)
	if err != nil {
		return nil, err
	}

	switch {
	case u == nil:
		u = &inventory.SerializedUnit{
			ConsumableID:        c.ID,
			Serial:              serial,
			State:               inventory.UnitAssigned,
			AssetID:             &assetID,
			SubsystemInstanceID: &subsystemID,
		}
		id, err := s.Inventory.CreateUnit(ctx, u)
		if err != nil {
			return nil, err
		}
		u.ID = id
		if err := inventory.Transition(u, inventory.UnitInstalled, &assetID, &subsystemID); err != nil {
			return nil, err
		}
		if err := s.Inventory.UpdateUnit(ctx, u); err != nil {
			return nil, err
		}
		mv := &inventory.Movement{
			ConsumableID: c.ID,
			Qty:          1,
			Direction:    inventory.MoveIn,
			UnitCost:     c.AvgUnitCost,
			Motive:       inventory.MotiveUnaudited,
			Note:         p.Note,
			AssetID:      &assetID,
			ActorID:      actorID,
		}
		if _, err := s.Inventory.Apply(ctx, mv, 0, 1); err != nil {
			return nil, err
		}

	case u.State == inventory.UnitAssigned:
		if u.AssetID == nil || *u.AssetID != assetID || u.SubsystemInstanceID == nil || *u.SubsystemInstanceID != subsystemID {
			return nil, fmt.Errorf("unit %d is reserved for another subsystem: %w", u.ID, errs.ErrValidation)
		}
		if err := inventory.Transition(u, inventory.UnitInstalled, &assetID, &subsystemID); err != nil {
			return nil, err
		}
		if err := s.Inventory.UpdateUnit(ctx, u); err != nil {
			return nil, err
		}
		ic, err := s.Inventory.GetActiveComponentByUnit(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if ic != nil {
			return ic, nil
		}

	default:
		if err := inventory.Transition(u, inventory.UnitAssigned, &assetID, &subsystemID); err != nil {
			return nil, err
		}
		if err := inventory.Transition(u, inventory.UnitInstalled, &assetID, &subsystemID); err != nil {
			return nil, err
		}
		if err := s.Inventory.UpdateUnit(ctx, u); err != nil {
			return nil, err
		}
		mv := &inventory.Movement{
			ConsumableID: c.ID,
			Qty:          1,
			Direction:    inventory.MoveOut,
			UnitCost:     c.AvgUnitCost,
			Motive:       inventory.MotiveInstall,
			Note:         p.Note,
			AssetID:      &assetID,
			ActorID:      actorID,
		}
		if _, err := s.Inventory.Apply(ctx, mv, -1, 1); err != nil {
			return nil, err
		}
	}

	uid := u.ID
	ic := &inventory.InstalledComponent{
		AssetID:             assetID,
		SubsystemInstanceID: subsystemID,
		ConsumableID:        c.ID,
		UnitID:              &uid,
		Qty:                 1,
		RuleID:              p.RuleID,
		LifeEstimate:        p.LifeEstimate,
		ActorID:             actorID,
	}
	id, err := s.Inventory.CreateComponent(ctx, ic)
	if err != nil {
		return nil, err
	}
	ic.ID = id
	ic.Active = true
	return ic, nil
}

// UninstallComponent terminates an installed component. registration_error
// undoes the install (stock returns to the warehouse, the serialized unit goes
// back to in_warehouse); worn_out burns the material (assigned shrinks, the
// unit retires, nothing returns to stock).
func (e *Engine) UninstallComponent(ctx context.Context, actorID int64, installedID int64, motive inventory.RemovalMotive, note string) error {
	const op = "engine.UninstallComponent"

	if motive != inventory.RemovalRegistrationError && motive != inventory.RemovalWornOut {
		return fmt.Errorf("%s: unknown removal motive %q: %w", op, motive, errs.ErrValidation)
	}

	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		ic, err := s.Inventory.GetComponent(ctx, installedID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !ic.Active {
			return fmt.Errorf("%s: component %d already removed: %w", op, ic.ID, errs.ErrValidation)
		}

		c, err := s.Catalog.GetConsumableForUpdate(ctx, ic.ConsumableID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if ic.UnitID != nil {
			u, err := s.Inventory.GetUnit(ctx, *ic.UnitID)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			target := inventory.UnitRetired
			if motive == inventory.RemovalRegistrationError {
				target = inventory.UnitInWarehouse
			}
			if err := inventory.Transition(u, target, nil, nil); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if err := s.Inventory.UpdateUnit(ctx, u); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		mv := &inventory.Movement{
			ConsumableID: ic.ConsumableID,
			Qty:          ic.Qty,
			UnitCost:     c.AvgUnitCost,
			Note:         note,
			AssetID:      &ic.AssetID,
			ActorID:      actorID,
		}
		if motive == inventory.RemovalRegistrationError {
			// The physical part was never really used; return it.
			mv.Direction = inventory.MoveIn
			mv.Motive = inventory.MotiveReturn
			_, err = s.Inventory.Apply(ctx, mv, ic.Qty, -ic.Qty)
		} else {
			// Worn or damaged: the material is gone.
			mv.Direction = inventory.MoveOut
			mv.Motive = inventory.MotiveWornOut
			_, err = s.Inventory.Apply(ctx, mv, 0, -ic.Qty)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.Inventory.TerminateComponent(ctx, ic.ID, motive, note); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.UninstallsTotal.WithLabelValues(string(motive)).Inc()
	e.log.Info("component removed", "installed_id", installedID, "motive", string(motive), "actor_id", actorID)
	return nil
}
