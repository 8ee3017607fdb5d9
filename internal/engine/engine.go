// Package engine orchestrates the maintenance and inventory core: template
// propagation, component installation/removal, meter logging and the
// order/requisition cascade. Every mutating operation runs inside a single
// transaction supplied by a Runner; an error rolls the whole operation back,
// so callers always observe "nothing changed" on failure.
package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hectormarrufor/WR-sub004/internal/domain/assets"
	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
	"github.com/hectormarrufor/WR-sub004/internal/domain/maintenance"
)

type CatalogStore interface {
	GetConsumable(ctx context.Context, id int64) (*catalog.Consumable, error)
	GetConsumableForUpdate(ctx context.Context, id int64) (*catalog.Consumable, error)
	Resolve(ctx context.Context, crit catalog.Criterion, category string) ([]catalog.Consumable, error)
	UpdateAvgCost(ctx context.Context, id int64, cost decimal.Decimal) error
	BelowMinimum(ctx context.Context) ([]catalog.Consumable, error)
}

type AssetStore interface {
	GetModel(ctx context.Context, id int64) (*assets.AssetModel, error)
	CreateAsset(ctx context.Context, a *assets.Asset, d *assets.AssetDetail) (int64, error)
	GetAsset(ctx context.Context, id int64) (*assets.Asset, error)
	ListAssetsByModel(ctx context.Context, modelID int64) ([]assets.Asset, error)
	SetAssetStatus(ctx context.Context, id int64, status assets.AssetStatus) error

	CreateSubsystemTemplate(ctx context.Context, t *assets.SubsystemTemplate) (int64, error)
	UpdateSubsystemTemplateMeta(ctx context.Context, id int64, name, category string) error
	CreateRule(ctx context.Context, rule *assets.RecommendationRule) (int64, error)
	ListSubsystemTemplates(ctx context.Context, modelID int64) ([]assets.SubsystemTemplate, error)

	CreateSubsystemInstance(ctx context.Context, si *assets.SubsystemInstance) (int64, error)
	GetSubsystemInstance(ctx context.Context, id int64) (*assets.SubsystemInstance, error)
	SetSubsystemStatus(ctx context.Context, id int64, status assets.SubsystemStatus) error

	InsertMeterEntry(ctx context.Context, e *assets.MeterEntry) (int64, error)
}

type InventoryStore interface {
	Apply(ctx context.Context, mv *inventory.Movement, dWarehouse, dAssigned float64) (int64, error)

	CreateUnit(ctx context.Context, u *inventory.SerializedUnit) (int64, error)
	GetUnit(ctx context.Context, id int64) (*inventory.SerializedUnit, error)
	GetUnitBySerial(ctx context.Context, consumableID int64, serial string) (*inventory.SerializedUnit, error)
	ListUnitsInWarehouse(ctx context.Context, consumableID int64, limit int) ([]inventory.SerializedUnit, error)
	UpdateUnit(ctx context.Context, u *inventory.SerializedUnit) error

	CreateComponent(ctx context.Context, c *inventory.InstalledComponent) (int64, error)
	GetComponent(ctx context.Context, id int64) (*inventory.InstalledComponent, error)
	GetActiveComponentByUnit(ctx context.Context, unitID int64) (*inventory.InstalledComponent, error)
	TerminateComponent(ctx context.Context, id int64, motive inventory.RemovalMotive, note string) error
}

type MaintenanceStore interface {
	CreateOrder(ctx context.Context, o *maintenance.MaintenanceOrder) (int64, error)
	GetOrder(ctx context.Context, id int64) (*maintenance.MaintenanceOrder, error)
	SetOrderState(ctx context.Context, id int64, state maintenance.OrderState) error
	SetOrderRequisition(ctx context.Context, orderID, requisitionID int64) error
	AddOrderLine(ctx context.Context, l *maintenance.OrderLine) (int64, error)
	ListOrderLines(ctx context.Context, orderID int64) ([]maintenance.OrderLine, error)

	CreateRequisition(ctx context.Context, req *maintenance.Requisition) (int64, error)
	GetRequisition(ctx context.Context, id int64) (*maintenance.Requisition, error)
	SetRequisitionState(ctx context.Context, id int64, state maintenance.RequisitionState) error
	AddRequisitionLine(ctx context.Context, l *maintenance.RequisitionLine) (int64, error)
	ListRequisitionLines(ctx context.Context, requisitionID int64) ([]maintenance.RequisitionLine, error)

	CreateFinding(ctx context.Context, f *maintenance.Finding) (int64, error)
	GetFinding(ctx context.Context, id int64) (*maintenance.Finding, error)
	AttachFindingToOrder(ctx context.Context, findingID, orderID int64) error
}

// Stores is the transactional view handed to an operation: every store is
// bound to the same transaction.
type Stores struct {
	Catalog     CatalogStore
	Assets      AssetStore
	Inventory   InventoryStore
	Maintenance MaintenanceStore
}

// Runner owns the commit-or-rollback boundary.
type Runner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// PhotoDeleter is the external blob collaborator; strictly best-effort.
type PhotoDeleter interface {
	Delete(ctx context.Context, photoURL string) error
}

type Engine struct {
	run    Runner
	log    *slog.Logger
	photos PhotoDeleter
}

func New(run Runner, log *slog.Logger, photos PhotoDeleter) *Engine {
	return &Engine{run: run, log: log, photos: photos}
}
