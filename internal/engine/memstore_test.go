package engine_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hectormarrufor/WR-sub004/internal/domain/assets"
	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
	"github.com/hectormarrufor/WR-sub004/internal/domain/maintenance"
	"github.com/hectormarrufor/WR-sub004/internal/engine"
)

// memDB implements every engine store interface over plain maps. The paired
// memRunner snapshots the whole state before each operation and restores it on
// error, mirroring the commit-or-rollback contract of the Postgres runner.
type memDB struct {
	nextID int64

	consumables map[int64]catalog.Consumable
	units       map[int64]inventory.SerializedUnit
	components  map[int64]inventory.InstalledComponent
	movements   []inventory.Movement

	models    map[int64]assets.AssetModel
	templates map[int64]assets.SubsystemTemplate
	rules     map[int64]assets.RecommendationRule
	assets    map[int64]assets.Asset
	details   map[int64]assets.AssetDetail
	instances map[int64]assets.SubsystemInstance
	meters    []assets.MeterEntry

	orders     map[int64]maintenance.MaintenanceOrder
	orderLines map[int64]maintenance.OrderLine
	reqs       map[int64]maintenance.Requisition
	reqLines   map[int64]maintenance.RequisitionLine
	findings   map[int64]maintenance.Finding
}

func newMemDB() *memDB {
	return &memDB{
		consumables: map[int64]catalog.Consumable{},
		units:       map[int64]inventory.SerializedUnit{},
		components:  map[int64]inventory.InstalledComponent{},
		models:      map[int64]assets.AssetModel{},
		templates:   map[int64]assets.SubsystemTemplate{},
		rules:       map[int64]assets.RecommendationRule{},
		assets:      map[int64]assets.Asset{},
		details:     map[int64]assets.AssetDetail{},
		instances:   map[int64]assets.SubsystemInstance{},
		orders:      map[int64]maintenance.MaintenanceOrder{},
		orderLines:  map[int64]maintenance.OrderLine{},
		reqs:        map[int64]maintenance.Requisition{},
		reqLines:    map[int64]maintenance.RequisitionLine{},
		findings:    map[int64]maintenance.Finding{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memDB) clone() *memDB {
	c := &memDB{
		nextID:      m.nextID,
		consumables: copyMap(m.consumables),
		units:       copyMap(m.units),
		components:  copyMap(m.components),
		movements:   append([]inventory.Movement(nil), m.movements...),
		models:      copyMap(m.models),
		templates:   copyMap(m.templates),
		rules:       copyMap(m.rules),
		assets:      copyMap(m.assets),
		details:     copyMap(m.details),
		instances:   copyMap(m.instances),
		meters:      append([]assets.MeterEntry(nil), m.meters...),
		orders:      copyMap(m.orders),
		orderLines:  copyMap(m.orderLines),
		reqs:        copyMap(m.reqs),
		reqLines:    copyMap(m.reqLines),
		findings:    copyMap(m.findings),
	}
	return c
}

type memRunner struct{ db *memDB }

func (r *memRunner) InTx(ctx context.Context, fn func(ctx context.Context, s engine.Stores) error) error {
	snap := r.db.clone()
	err := fn(ctx, engine.Stores{Catalog: r.db, Assets: r.db, Inventory: r.db, Maintenance: r.db})
	if err != nil {
		*r.db = *snap
	}
	return err
}

// --- CatalogStore ---

func (m *memDB) GetConsumable(_ context.Context, id int64) (*catalog.Consumable, error) {
	c, ok := m.consumables[id]
	if !ok {
		return nil, fmt.Errorf("consumable %d: %w", id, errs.ErrNotFound)
	}
	return &c, nil
}

func (m *memDB) GetConsumableForUpdate(ctx context.Context, id int64) (*catalog.Consumable, error) {
	return m.GetConsumable(ctx, id)
}

func (m *memDB) Resolve(_ context.Context, crit catalog.Criterion, category string) ([]catalog.Consumable, error) {
	if err := catalog.Validate(crit); err != nil {
		return nil, err
	}
	var out []catalog.Consumable
	for _, c := range m.consumables {
		if catalog.Matches(c, crit, category) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDB) UpdateAvgCost(_ context.Context, id int64, cost decimal.Decimal) error {
	c, ok := m.consumables[id]
	if !ok {
		return fmt.Errorf("consumable %d: %w", id, errs.ErrNotFound)
	}
	c.AvgUnitCost = cost
	m.consumables[id] = c
	return nil
}

func (m *memDB) BelowMinimum(_ context.Context) ([]catalog.Consumable, error) {
	var out []catalog.Consumable
	for _, c := range m.consumables {
		if c.Active && c.MinStock > 0 && c.StockWarehouse < c.MinStock {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- AssetStore ---

func (m *memDB) GetModel(_ context.Context, id int64) (*assets.AssetModel, error) {
	v, ok := m.models[id]
	if !ok {
		return nil, fmt.Errorf("asset model %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) CreateAsset(_ context.Context, a *assets.Asset, d *assets.AssetDetail) (int64, error) {
	d2 := *d
	d2.ID = m.id()
	m.details[d2.ID] = d2

	a2 := *a
	a2.ID = m.id()
	a2.DetailID = d2.ID
	a2.CreatedAt = time.Now()
	m.assets[a2.ID] = a2
	return a2.ID, nil
}

func (m *memDB) GetAsset(_ context.Context, id int64) (*assets.Asset, error) {
	v, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) ListAssetsByModel(_ context.Context, modelID int64) ([]assets.Asset, error) {
	var out []assets.Asset
	for _, a := range m.assets {
		if a.ModelID == modelID && a.Status == assets.AssetActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDB) SetAssetStatus(_ context.Context, id int64, status assets.AssetStatus) error {
	a, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("asset %d: %w", id, errs.ErrNotFound)
	}
	a.Status = status
	m.assets[id] = a
	return nil
}

func (m *memDB) CreateSubsystemTemplate(_ context.Context, t *assets.SubsystemTemplate) (int64, error) {
	t2 := *t
	t2.ID = m.id()
	t2.Rules = nil
	m.templates[t2.ID] = t2
	return t2.ID, nil
}

func (m *memDB) UpdateSubsystemTemplateMeta(_ context.Context, id int64, name, category string) error {
	t, ok := m.templates[id]
	if !ok {
		return fmt.Errorf("subsystem template %d: %w", id, errs.ErrNotFound)
	}
	t.Name = name
	t.Category = category
	m.templates[id] = t
	return nil
}

func (m *memDB) CreateRule(_ context.Context, rule *assets.RecommendationRule) (int64, error) {
	r2 := *rule
	r2.ID = m.id()
	m.rules[r2.ID] = r2
	return r2.ID, nil
}

func (m *memDB) ListSubsystemTemplates(_ context.Context, modelID int64) ([]assets.SubsystemTemplate, error) {
	var out []assets.SubsystemTemplate
	for _, t := range m.templates {
		if t.ModelID != modelID {
			continue
		}
		t.Rules = nil
		for _, r := range m.rules {
			if r.TemplateID == t.ID {
				t.Rules = append(t.Rules, r)
			}
		}
		sort.Slice(t.Rules, func(i, j int) bool { return t.Rules[i].ID < t.Rules[j].ID })
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDB) CreateSubsystemInstance(_ context.Context, si *assets.SubsystemInstance) (int64, error) {
	s2 := *si
	s2.ID = m.id()
	m.instances[s2.ID] = s2
	return s2.ID, nil
}

func (m *memDB) GetSubsystemInstance(_ context.Context, id int64) (*assets.SubsystemInstance, error) {
	v, ok := m.instances[id]
	if !ok {
		return nil, fmt.Errorf("subsystem instance %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) SetSubsystemStatus(_ context.Context, id int64, status assets.SubsystemStatus) error {
	si, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("subsystem instance %d: %w", id, errs.ErrNotFound)
	}
	si.Status = status
	m.instances[id] = si
	return nil
}

func (m *memDB) InsertMeterEntry(_ context.Context, e *assets.MeterEntry) (int64, error) {
	a, ok := m.assets[e.AssetID]
	if !ok {
		return 0, fmt.Errorf("asset %d: %w", e.AssetID, errs.ErrNotFound)
	}
	e2 := *e
	e2.ID = m.id()
	e2.RecordedAt = time.Now()
	m.meters = append(m.meters, e2)

	if e2.Kind == assets.MeterOdometer {
		a.CurrentOdometer = e2.Value
	} else {
		a.CurrentHourMeter = e2.Value
	}
	m.assets[a.ID] = a
	return e2.ID, nil
}

// --- InventoryStore ---

func (m *memDB) Apply(_ context.Context, mv *inventory.Movement, dWarehouse, dAssigned float64) (int64, error) {
	c, ok := m.consumables[mv.ConsumableID]
	if !ok {
		return 0, fmt.Errorf("consumable %d: %w", mv.ConsumableID, errs.ErrNotFound)
	}
	if c.StockWarehouse+dWarehouse < 0 || c.StockAssigned+dAssigned < 0 {
		return 0, fmt.Errorf("consumable %d: %w", mv.ConsumableID, errs.ErrInsufficientStock)
	}
	c.StockWarehouse += dWarehouse
	c.StockAssigned += dAssigned
	m.consumables[c.ID] = c

	mv2 := *mv
	mv2.ID = m.id()
	mv2.CreatedAt = time.Now()
	m.movements = append(m.movements, mv2)
	return mv2.ID, nil
}

func (m *memDB) CreateUnit(_ context.Context, u *inventory.SerializedUnit) (int64, error) {
	u2 := *u
	u2.ID = m.id()
	u2.CreatedAt = time.Now()
	m.units[u2.ID] = u2
	return u2.ID, nil
}

func (m *memDB) GetUnit(_ context.Context, id int64) (*inventory.SerializedUnit, error) {
	v, ok := m.units[id]
	if !ok {
		return nil, fmt.Errorf("serialized unit %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) GetUnitBySerial(_ context.Context, consumableID int64, serial string) (*inventory.SerializedUnit, error) {
	for _, u := range m.units {
		if u.ConsumableID == consumableID && u.Serial == serial {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memDB) ListUnitsInWarehouse(_ context.Context, consumableID int64, limit int) ([]inventory.SerializedUnit, error) {
	var out []inventory.SerializedUnit
	for _, u := range m.units {
		if u.ConsumableID == consumableID && u.State == inventory.UnitInWarehouse {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDB) UpdateUnit(_ context.Context, u *inventory.SerializedUnit) error {
	if _, ok := m.units[u.ID]; !ok {
		return fmt.Errorf("serialized unit %d: %w", u.ID, errs.ErrNotFound)
	}
	m.units[u.ID] = *u
	return nil
}

func (m *memDB) CreateComponent(_ context.Context, c *inventory.InstalledComponent) (int64, error) {
	c2 := *c
	c2.ID = m.id()
	c2.Active = true
	c2.InstalledAt = time.Now()
	m.components[c2.ID] = c2
	return c2.ID, nil
}

func (m *memDB) GetComponent(_ context.Context, id int64) (*inventory.InstalledComponent, error) {
	v, ok := m.components[id]
	if !ok {
		return nil, fmt.Errorf("installed component %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) GetActiveComponentByUnit(_ context.Context, unitID int64) (*inventory.InstalledComponent, error) {
	for _, c := range m.components {
		if c.Active && c.UnitID != nil && *c.UnitID == unitID {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memDB) TerminateComponent(_ context.Context, id int64, motive inventory.RemovalMotive, note string) error {
	c, ok := m.components[id]
	if !ok || !c.Active {
		return fmt.Errorf("installed component %d: %w", id, errs.ErrNotFound)
	}
	now := time.Now()
	c.Active = false
	c.RemovedAt = &now
	c.RemovalMotive = &motive
	c.RemovalNote = note
	m.components[id] = c
	return nil
}

// --- MaintenanceStore ---

func (m *memDB) CreateOrder(_ context.Context, o *maintenance.MaintenanceOrder) (int64, error) {
	o2 := *o
	o2.ID = m.id()
	o2.CreatedAt = time.Now()
	m.orders[o2.ID] = o2
	return o2.ID, nil
}

func (m *memDB) GetOrder(_ context.Context, id int64) (*maintenance.MaintenanceOrder, error) {
	v, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("maintenance order %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) SetOrderState(_ context.Context, id int64, state maintenance.OrderState) error {
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("maintenance order %d: %w", id, errs.ErrNotFound)
	}
	o.State = state
	m.orders[id] = o
	return nil
}

func (m *memDB) SetOrderRequisition(_ context.Context, orderID, requisitionID int64) error {
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("maintenance order %d: %w", orderID, errs.ErrNotFound)
	}
	o.RequisitionID = &requisitionID
	m.orders[orderID] = o
	return nil
}

func (m *memDB) AddOrderLine(_ context.Context, l *maintenance.OrderLine) (int64, error) {
	l2 := *l
	l2.ID = m.id()
	m.orderLines[l2.ID] = l2
	return l2.ID, nil
}

func (m *memDB) ListOrderLines(_ context.Context, orderID int64) ([]maintenance.OrderLine, error) {
	var out []maintenance.OrderLine
	for _, l := range m.orderLines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDB) CreateRequisition(_ context.Context, req *maintenance.Requisition) (int64, error) {
	r2 := *req
	r2.ID = m.id()
	r2.CreatedAt = time.Now()
	m.reqs[r2.ID] = r2
	return r2.ID, nil
}

func (m *memDB) GetRequisition(_ context.Context, id int64) (*maintenance.Requisition, error) {
	v, ok := m.reqs[id]
	if !ok {
		return nil, fmt.Errorf("requisition %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) SetRequisitionState(_ context.Context, id int64, state maintenance.RequisitionState) error {
	r, ok := m.reqs[id]
	if !ok {
		return fmt.Errorf("requisition %d: %w", id, errs.ErrNotFound)
	}
	r.State = state
	m.reqs[id] = r
	return nil
}

func (m *memDB) AddRequisitionLine(_ context.Context, l *maintenance.RequisitionLine) (int64, error) {
	l2 := *l
	l2.ID = m.id()
	m.reqLines[l2.ID] = l2
	return l2.ID, nil
}

func (m *memDB) ListRequisitionLines(_ context.Context, requisitionID int64) ([]maintenance.RequisitionLine, error) {
	var out []maintenance.RequisitionLine
	for _, l := range m.reqLines {
		if l.RequisitionID == requisitionID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDB) CreateFinding(_ context.Context, f *maintenance.Finding) (int64, error) {
	f2 := *f
	f2.ID = m.id()
	f2.CreatedAt = time.Now()
	m.findings[f2.ID] = f2
	return f2.ID, nil
}

func (m *memDB) GetFinding(_ context.Context, id int64) (*maintenance.Finding, error) {
	v, ok := m.findings[id]
	if !ok {
		return nil, fmt.Errorf("finding %d: %w", id, errs.ErrNotFound)
	}
	return &v, nil
}

func (m *memDB) AttachFindingToOrder(_ context.Context, findingID, orderID int64) error {
	f, ok := m.findings[findingID]
	if !ok {
		return fmt.Errorf("finding %d: %w", findingID, errs.ErrNotFound)
	}
	f.OrderID = &orderID
	m.findings[findingID] = f
	return nil
}

// Interface checks.
var (
	_ engine.CatalogStore     = (*memDB)(nil)
	_ engine.AssetStore       = (*memDB)(nil)
	_ engine.InventoryStore   = (*memDB)(nil)
	_ engine.MaintenanceStore = (*memDB)(nil)
	_ engine.Runner           = (*memRunner)(nil)
)

func newTestEngine(m *memDB, photos engine.PhotoDeleter) *engine.Engine {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return engine.New(&memRunner{db: m}, log, photos)
}

// --- seed helpers ---

func (m *memDB) seedConsumable(c catalog.Consumable) int64 {
	c.ID = m.id()
	c.Active = true
	m.consumables[c.ID] = c
	return c.ID
}

func (m *memDB) seedUnit(consumableID int64, serial string) int64 {
	id := m.id()
	m.units[id] = inventory.SerializedUnit{
		ID: id, ConsumableID: consumableID, Serial: serial, State: inventory.UnitInWarehouse,
	}
	return id
}

func (m *memDB) seedModel(kind assets.Kind) int64 {
	id := m.id()
	m.models[id] = assets.AssetModel{ID: id, Kind: kind, Brand: "Mack", Model: "Granite", Year: 2020}
	return id
}

func (m *memDB) seedTemplate(modelID int64, name, category string, rules ...assets.RecommendationRule) int64 {
	id := m.id()
	m.templates[id] = assets.SubsystemTemplate{ID: id, ModelID: modelID, Name: name, Category: category}
	for _, r := range rules {
		r.ID = m.id()
		r.TemplateID = id
		m.rules[r.ID] = r
	}
	return id
}

func (m *memDB) seedAsset(modelID int64, kind assets.Kind) int64 {
	id := m.id()
	m.assets[id] = assets.Asset{ID: id, ModelID: modelID, Kind: kind, Status: assets.AssetActive}
	return id
}

func (m *memDB) seedInstance(assetID int64, name, category string) int64 {
	id := m.id()
	m.instances[id] = assets.SubsystemInstance{
		ID: id, AssetID: assetID, Name: name, Category: category, Status: assets.SubsystemOK,
	}
	return id
}

func (m *memDB) movementsFor(consumableID int64) []inventory.Movement {
	var out []inventory.Movement
	for _, mv := range m.movements {
		if mv.ConsumableID == consumableID {
			out = append(out, mv)
		}
	}
	return out
}

func (m *memDB) activeComponents(subsystemID int64) []inventory.InstalledComponent {
	var out []inventory.InstalledComponent
	for _, c := range m.components {
		if c.SubsystemInstanceID == subsystemID && c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
