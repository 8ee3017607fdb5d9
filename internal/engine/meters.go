package engine

import (
	"context"
	"fmt"

	"github.com/hectormarrufor/WR-sub004/internal/domain/assets"
	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/domain/maintenance"
)

// RecordMeter appends an immutable milestone to the odometer/hour-meter log
// and updates the cached projection on the asset row in the same transaction.
// The log is authoritative; the cached value is never written independently.
func (e *Engine) RecordMeter(ctx context.Context, actorID int64, assetID int64, kind assets.MeterKind, value float64) error {
	const op = "engine.RecordMeter"

	if kind != assets.MeterOdometer && kind != assets.MeterHourMeter {
		return fmt.Errorf("%s: unknown meter kind %q: %w", op, kind, errs.ErrValidation)
	}

	return e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		a, err := s.Assets.GetAsset(ctx, assetID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		current := a.CurrentOdometer
		if kind == assets.MeterHourMeter {
			current = a.CurrentHourMeter
		}
		if value < current {
			return fmt.Errorf("%s: %s cannot go backward (%.1f < %.1f): %w", op, kind, value, current, errs.ErrValidation)
		}

		_, err = s.Assets.InsertMeterEntry(ctx, &assets.MeterEntry{
			AssetID: assetID,
			Kind:    kind,
			Value:   value,
			ActorID: actorID,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// ReportFinding registers a fault on a subsystem instance and flips its
// status. The finding can later be attached to a maintenance order.
func (e *Engine) ReportFinding(ctx context.Context, actorID int64, assetID, subsystemInstanceID int64, description string) (*maintenance.Finding, error) {
	const op = "engine.ReportFinding"

	var f *maintenance.Finding
	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		si, err := s.Assets.GetSubsystemInstance(ctx, subsystemInstanceID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if si.AssetID != assetID {
			return fmt.Errorf("%s: subsystem %d belongs to asset %d: %w", op, si.ID, si.AssetID, errs.ErrValidation)
		}

		if err := s.Assets.SetSubsystemStatus(ctx, si.ID, assets.SubsystemFault); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		f = &maintenance.Finding{
			AssetID:             assetID,
			SubsystemInstanceID: si.ID,
			Description:         description,
			ActorID:             actorID,
		}
		id, err := s.Maintenance.CreateFinding(ctx, f)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		f.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// RetireAsset takes an asset out of service. The photo blob deletion is a
// best-effort external side effect: it runs after commit and a failure is
// logged as a warning, never unwinding the retirement.
func (e *Engine) RetireAsset(ctx context.Context, actorID int64, assetID int64) error {
	const op = "engine.RetireAsset"

	var photoURL string
	err := e.run.InTx(ctx, func(ctx context.Context, s Stores) error {
		a, err := s.Assets.GetAsset(ctx, assetID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if a.Status == assets.AssetRetired {
			return fmt.Errorf("%s: asset %d already retired: %w", op, assetID, errs.ErrValidation)
		}
		photoURL = a.PhotoURL
		return s.Assets.SetAssetStatus(ctx, assetID, assets.AssetRetired)
	})
	if err != nil {
		return err
	}

	if photoURL != "" && e.photos != nil {
		if err := e.photos.Delete(ctx, photoURL); err != nil {
			e.log.Warn("asset photo cleanup failed", "asset_id", assetID, "err", err)
		}
	}

	e.log.Info("asset retired", "asset_id", assetID, "actor_id", actorID)
	return nil
}
