package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/infra/db"
)

type Repo struct {
	db db.DBTX
	sb sq.StatementBuilderType
}

func NewRepo(d db.DBTX) *Repo {
	return &Repo{db: d, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Apply records one ledger movement and shifts the consumable counters by
// (dWarehouse, dAssigned) in the same transaction. The warehouse counter is
// guarded in SQL: an update that would drive it negative touches no row and
// the whole call fails. Callers lock the consumable row first.
func (r *Repo) Apply(ctx context.Context, mv *Movement, dWarehouse, dAssigned float64) (int64, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE consumables
		SET stock_warehouse = stock_warehouse + $2,
		    stock_assigned  = stock_assigned + $3
		WHERE id = $1 AND stock_warehouse + $2 >= 0 AND stock_assigned + $3 >= 0
	`, mv.ConsumableID, dWarehouse, dAssigned)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, fmt.Errorf("consumable %d counters: %w", mv.ConsumableID, errs.ErrInsufficientStock)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO inventory_movements (consumable_id, qty, direction, unit_cost, motive, note, asset_id, order_id, actor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, mv.ConsumableID, mv.Qty, string(mv.Direction), mv.UnitCost, string(mv.Motive), mv.Note, mv.AssetID, mv.OrderID, mv.ActorID)
	var id int64
	return id, row.Scan(&id)
}

/* Serialized units */

const unitCols = `id, consumable_id, serial, state, asset_id, subsystem_instance_id, created_at, updated_at`

func (r *Repo) CreateUnit(ctx context.Context, u *SerializedUnit) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO serialized_units (consumable_id, serial, state, asset_id, subsystem_instance_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, u.ConsumableID, u.Serial, string(u.State), u.AssetID, u.SubsystemInstanceID)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetUnit(ctx context.Context, id int64) (*SerializedUnit, error) {
	row := r.db.QueryRow(ctx, `SELECT `+unitCols+` FROM serialized_units WHERE id = $1 FOR UPDATE`, id)
	return scanUnit(row)
}

// GetUnitBySerial returns nil, nil when the serial is unknown: the install
// engine treats that as an on-the-fly declaration, not an error.
func (r *Repo) GetUnitBySerial(ctx context.Context, consumableID int64, serial string) (*SerializedUnit, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+unitCols+` FROM serialized_units
		WHERE consumable_id = $1 AND serial = $2
		FOR UPDATE
	`, consumableID, serial)
	u, err := scanUnit(row)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// ListUnitsInWarehouse locks and returns up to limit units available for
// reservation, oldest first.
func (r *Repo) ListUnitsInWarehouse(ctx context.Context, consumableID int64, limit int) ([]SerializedUnit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+unitCols+` FROM serialized_units
		WHERE consumable_id = $1 AND state = 'in_warehouse'
		ORDER BY id
		LIMIT $2
		FOR UPDATE
	`, consumableID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SerializedUnit
	for rows.Next() {
		var u SerializedUnit
		if err := rows.Scan(&u.ID, &u.ConsumableID, &u.Serial, &u.State, &u.AssetID, &u.SubsystemInstanceID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateUnit(ctx context.Context, u *SerializedUnit) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE serialized_units
		SET state = $2, asset_id = $3, subsystem_instance_id = $4, updated_at = NOW()
		WHERE id = $1
	`, u.ID, string(u.State), u.AssetID, u.SubsystemInstanceID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("serialized unit %d: %w", u.ID, errs.ErrNotFound)
	}
	return nil
}

func scanUnit(row pgx.Row) (*SerializedUnit, error) {
	var u SerializedUnit
	if err := row.Scan(&u.ID, &u.ConsumableID, &u.Serial, &u.State, &u.AssetID, &u.SubsystemInstanceID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("serialized unit: %w", errs.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

/* Installed components */

const componentCols = `id, asset_id, subsystem_instance_id, consumable_id, unit_id, qty, rule_id, life_estimate, active, installed_at, removed_at, removal_motive, removal_note, actor_id`

func (r *Repo) CreateComponent(ctx context.Context, c *InstalledComponent) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO installed_components (asset_id, subsystem_instance_id, consumable_id, unit_id, qty, rule_id, life_estimate, active, actor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,$8)
		RETURNING id
	`, c.AssetID, c.SubsystemInstanceID, c.ConsumableID, c.UnitID, c.Qty, c.RuleID, c.LifeEstimate, c.ActorID)
	var id int64
	return id, row.Scan(&id)
}

func scanComponent(row pgx.Row) (*InstalledComponent, error) {
	var c InstalledComponent
	var motive *string
	if err := row.Scan(&c.ID, &c.AssetID, &c.SubsystemInstanceID, &c.ConsumableID, &c.UnitID, &c.Qty, &c.RuleID, &c.LifeEstimate, &c.Active, &c.InstalledAt, &c.RemovedAt, &motive, &c.RemovalNote, &c.ActorID); err != nil {
		return nil, err
	}
	if motive != nil {
		m := RemovalMotive(*motive)
		c.RemovalMotive = &m
	}
	return &c, nil
}

func (r *Repo) GetComponent(ctx context.Context, id int64) (*InstalledComponent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+componentCols+` FROM installed_components WHERE id = $1 FOR UPDATE`, id)
	c, err := scanComponent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("installed component %d: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// GetActiveComponentByUnit finds the open component holding a serialized unit,
// or nil, nil when the unit is not held through one.
func (r *Repo) GetActiveComponentByUnit(ctx context.Context, unitID int64) (*InstalledComponent, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+componentCols+` FROM installed_components
		WHERE unit_id = $1 AND active = TRUE
		FOR UPDATE
	`, unitID)
	c, err := scanComponent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// TerminateComponent closes a component, preserving history.
func (r *Repo) TerminateComponent(ctx context.Context, id int64, motive RemovalMotive, note string) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE installed_components
		SET active = FALSE, removed_at = NOW(), removal_motive = $2, removal_note = $3
		WHERE id = $1 AND active = TRUE
	`, id, string(motive), note)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("installed component %d not active: %w", id, errs.ErrValidation)
	}
	return nil
}

/* Movement history */

type MovementFilter struct {
	ConsumableID *int64
	AssetID      *int64
	OrderID      *int64
	From, To     *time.Time
	Limit        uint64
}

// ListMovements reads the ledger with optional filters.
func (r *Repo) ListMovements(ctx context.Context, f MovementFilter) ([]Movement, error) {
	q := r.sb.
		Select("id", "consumable_id", "qty", "direction", "unit_cost", "motive", "note", "asset_id", "order_id", "actor_id", "created_at").
		From("inventory_movements").
		OrderBy("id")

	if f.ConsumableID != nil {
		q = q.Where(sq.Eq{"consumable_id": *f.ConsumableID})
	}
	if f.AssetID != nil {
		q = q.Where(sq.Eq{"asset_id": *f.AssetID})
	}
	if f.OrderID != nil {
		q = q.Where(sq.Eq{"order_id": *f.OrderID})
	}
	if f.From != nil {
		q = q.Where(sq.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(sq.Lt{"created_at": *f.To})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ConsumableID, &m.Qty, &m.Direction, &m.UnitCost, &m.Motive, &m.Note, &m.AssetID, &m.OrderID, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
