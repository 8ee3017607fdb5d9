package engine

import (
	"context"
	"fmt"

	"github.com/hectormarrufor/WR-sub004/internal/domain/assets"
	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
	"github.com/hectormarrufor/WR-sub004/internal/infra/metrics"
)

type CreateAssetParams struct {
	ModelID      int64
	Plate        string
	VIN          string
	SerialNumber string
	Odometer     float64
	HourMeter    float64
	PhotoURL     string
}

// CreateAssetInstance creates a physical asset and propagates its model's
// maintenance template: one subsystem instance per template, and for every
// recommendation rule a stock pre-allocation. All of it is one transaction;
// insufficient stock anywhere aborts the asset itself.
func (e *Engine) CreateAssetInstance(ctx context.Context, actorID int64, p CreateAssetParams) (*assets.Asset, error) {
	const op = "engine.CreateAssetInstance"

	var created *assets.Asset
	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		model, err := s.Assets.GetModel(ctx, p.ModelID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		a := &assets.Asset{
			ModelID:          model.ID,
			Kind:             model.Kind,
			Status:           assets.AssetActive,
			CurrentOdometer:  p.Odometer,
			CurrentHourMeter: p.HourMeter,
			PhotoURL:         p.PhotoURL,
		}
		d := &assets.AssetDetail{
			Kind:         model.Kind,
			Plate:        p.Plate,
			VIN:          p.VIN,
			SerialNumber: p.SerialNumber,
		}
		assetID, err := s.Assets.CreateAsset(ctx, a, d)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		a.ID = assetID

		templates, err := s.Assets.ListSubsystemTemplates(ctx, model.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		for _, t := range templates {
			if err := e.provisionSubsystem(ctx, s, actorID, a, t); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AssetsProvisioned.Inc()
	e.log.Info("asset provisioned", "asset_id", created.ID, "model_id", p.ModelID, "actor_id", actorID)
	return created, nil
}

func (e *Engine) provisionSubsystem(ctx context.Context, s Stores, actorID int64, a *assets.Asset, t assets.SubsystemTemplate) error {
	tid := t.ID
	si := &assets.SubsystemInstance{
		AssetID:    a.ID,
		TemplateID: &tid,
		Name:       t.Name,
		Category:   t.Category,
		Status:     assets.SubsystemOK,
	}
	siID, err := s.Assets.CreateSubsystemInstance(ctx, si)
	if err != nil {
		return err
	}
	si.ID = siID

	for _, rule := range t.Rules {
		if err := e.provisionRule(ctx, s, actorID, a, si, rule); err != nil {
			return fmt.Errorf("subsystem %q rule %d: %w", t.Name, rule.ID, err)
		}
	}
	return nil
}

// provisionRule resolves the rule into candidates (ascending id) and allocates
// stock from the first candidate that can cover the required quantity.
func (e *Engine) provisionRule(ctx context.Context, s Stores, actorID int64, a *assets.Asset, si *assets.SubsystemInstance, rule assets.RecommendationRule) error {
	candidates, err := s.Catalog.Resolve(ctx, rule.Criterion, rule.Category)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no consumable matches criterion %s in category %q: %w",
			rule.Criterion.Kind(), rule.Category, errs.ErrNotFound)
	}

	var (
		firstID    int64
		firstAvail float64
	)
	for i, cand := range candidates {
		c, err := s.Catalog.GetConsumableForUpdate(ctx, cand.ID)
		if err != nil {
			return err
		}
		ok, avail, err := e.allocateFrom(ctx, s, actorID, a, si, rule, c)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == 0 {
			firstID, firstAvail = c.ID, avail
		}
	}

	return &errs.InsufficientStockError{
		ConsumableID: firstID,
		Requested:    rule.Quantity,
		Available:    firstAvail,
	}
}

// allocateFrom attempts the pre-allocation against one locked candidate.
// When the candidate cannot cover the quantity it returns false plus the
// availability read under the lock (warehouse counter for fungibles, unit
// count for serialized), so the caller may try the next interchangeable one.
func (e *Engine) allocateFrom(ctx context.Context, s Stores, actorID int64, a *assets.Asset, si *assets.SubsystemInstance, rule assets.RecommendationRule, c *catalog.Consumable) (bool, float64, error) {
	ruleID := rule.ID

	if c.Type == catalog.TypeFungible {
		if c.StockWarehouse < rule.Quantity {
			return false, c.StockWarehouse, nil
		}
		mv := &inventory.Movement{
			ConsumableID: c.ID,
			Qty:          rule.Quantity,
			Direction:    inventory.MoveOut,
			UnitCost:     c.AvgUnitCost,
			Motive:       inventory.MotiveProvisioning,
			AssetID:      &a.ID,
			ActorID:      actorID,
		}
		if _, err := s.Inventory.Apply(ctx, mv, -rule.Quantity, rule.Quantity); err != nil {
			return false, 0, err
		}
		_, err := s.Inventory.CreateComponent(ctx, &inventory.InstalledComponent{
			AssetID:             a.ID,
			SubsystemInstanceID: si.ID,
			ConsumableID:        c.ID,
			Qty:                 rule.Quantity,
			RuleID:              &ruleID,
			ActorID:             actorID,
		})
		return true, 0, err
	}

	// Serialized: reserve the oldest in-warehouse units, one component each.
	need := int(rule.Quantity)
	units, err := s.Inventory.ListUnitsInWarehouse(ctx, c.ID, need)
	if err != nil {
		return false, 0, err
	}
	if len(units) < need {
		return false, float64(len(units)), nil
	}

	for i := range units {
		u := &units[i]
		if err := inventory.Transition(u, inventory.UnitAssigned, &a.ID, &si.ID); err != nil {
			return false, 0, err
		}
		if err := s.Inventory.UpdateUnit(ctx, u); err != nil {
			return false, 0, err
		}
		uid := u.ID
		if _, err := s.Inventory.CreateComponent(ctx, &inventory.InstalledComponent{
			AssetID:             a.ID,
			SubsystemInstanceID: si.ID,
			ConsumableID:        c.ID,
			UnitID:              &uid,
			Qty:                 1,
			RuleID:              &ruleID,
			ActorID:             actorID,
		}); err != nil {
			return false, 0, err
		}
	}

	mv := &inventory.Movement{
		ConsumableID: c.ID,
		Qty:          float64(need),
		Direction:    inventory.MoveOut,
		UnitCost:     c.AvgUnitCost,
		Motive:       inventory.MotiveProvisioning,
		AssetID:      &a.ID,
		ActorID:      actorID,
	}
	if _, err := s.Inventory.Apply(ctx, mv, -float64(need), float64(need)); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

// SubsystemSpec describes one subsystem in an UpdateTemplate call. A nil ID
// adds a new subsystem template; a non-nil ID is a metadata-only rename and
// never re-triggers provisioning.
type SubsystemSpec struct {
	ID       *int64
	Name     string
	Category string
	Position int
	Rules    []RuleSpec
}

type RuleSpec struct {
	Category  string
	Quantity  float64
	Criterion catalog.Criterion
	Position  int
}

// UpdateTemplate applies subsystem changes to a model. When propagate is set,
// every live asset of the model is back-filled with instances of the newly
// added subsystems, provisioning stock exactly as on asset creation.
func (e *Engine) UpdateTemplate(ctx context.Context, actorID int64, modelID int64, subsystems []SubsystemSpec, propagate bool) error {
	const op = "engine.UpdateTemplate"

	for _, sub := range subsystems {
		for _, r := range sub.Rules {
			if err := catalog.Validate(r.Criterion); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if r.Quantity <= 0 {
				return fmt.Errorf("%s: rule quantity must be positive: %w", op, errs.ErrValidation)
			}
		}
	}

	return e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		model, err := s.Assets.GetModel(ctx, modelID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		var added []assets.SubsystemTemplate
		for _, sub := range subsystems {
			if sub.ID != nil {
				if err := s.Assets.UpdateSubsystemTemplateMeta(ctx, *sub.ID, sub.Name, sub.Category); err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
				continue
			}

			t := assets.SubsystemTemplate{
				ModelID:  model.ID,
				Name:     sub.Name,
				Category: sub.Category,
				Position: sub.Position,
			}
			tID, err := s.Assets.CreateSubsystemTemplate(ctx, &t)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			t.ID = tID

			for _, rs := range sub.Rules {
				rule := assets.RecommendationRule{
					TemplateID: tID,
					Category:   rs.Category,
					Quantity:   rs.Quantity,
					Criterion:  rs.Criterion,
					Position:   rs.Position,
				}
				rID, err := s.Assets.CreateRule(ctx, &rule)
				if err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
				rule.ID = rID
				t.Rules = append(t.Rules, rule)
			}
			added = append(added, t)
		}

		if !propagate || len(added) == 0 {
			return nil
		}

		live, err := s.Assets.ListAssetsByModel(ctx, model.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		for i := range live {
			for _, t := range added {
				if err := e.provisionSubsystem(ctx, s, actorID, &live[i], t); err != nil {
					return fmt.Errorf("%s: asset %d: %w", op, live[i].ID, err)
				}
			}
		}
		return nil
	})
}
