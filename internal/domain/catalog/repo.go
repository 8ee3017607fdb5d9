package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/infra/db"
)

type Repo struct{ db db.DBTX }

func NewRepo(d db.DBTX) *Repo { return &Repo{db: d} }

const consumableCols = `id, name, category, type, group_id, tech_spec, stock_warehouse, stock_assigned, avg_unit_cost, min_stock, active, created_at`

func scanConsumable(row pgx.Row) (*Consumable, error) {
	var c Consumable
	if err := row.Scan(
		&c.ID, &c.Name, &c.Category, &c.Type, &c.GroupID, &c.TechSpec,
		&c.StockWarehouse, &c.StockAssigned, &c.AvgUnitCost, &c.MinStock,
		&c.Active, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("consumable: %w", errs.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, c *Consumable) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO consumables (name, category, type, group_id, tech_spec, stock_warehouse, stock_assigned, avg_unit_cost, min_stock, active)
		VALUES ($1,$2,$3,$4,$5,0,0,$6,$7,TRUE)
		RETURNING id
	`, c.Name, c.Category, string(c.Type), c.GroupID, c.TechSpec, c.AvgUnitCost, c.MinStock)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetConsumable(ctx context.Context, id int64) (*Consumable, error) {
	row := r.db.QueryRow(ctx, `SELECT `+consumableCols+` FROM consumables WHERE id = $1`, id)
	return scanConsumable(row)
}

// GetConsumableForUpdate takes the row lock that serializes concurrent installs
// against the same consumable: the sufficiency check and the later counter write
// happen under one lock held until commit.
func (r *Repo) GetConsumableForUpdate(ctx context.Context, id int64) (*Consumable, error) {
	row := r.db.QueryRow(ctx, `SELECT `+consumableCols+` FROM consumables WHERE id = $1 FOR UPDATE`, id)
	return scanConsumable(row)
}

// Resolve returns the candidate consumables satisfying a recommendation
// criterion within a component category, cheapest id first. Read-only.
func (r *Repo) Resolve(ctx context.Context, crit Criterion, category string) ([]Consumable, error) {
	// A malformed criterion must not reach SQL: an empty technical spec would
	// otherwise match every consumable whose tech_spec defaulted to ''.
	if err := Validate(crit); err != nil {
		return nil, err
	}

	base := `SELECT ` + consumableCols + ` FROM consumables WHERE active = TRUE AND category = $1`

	var (
		rows pgx.Rows
		err  error
	)
	switch v := crit.(type) {
	case Group:
		rows, err = r.db.Query(ctx, base+` AND group_id = $2 ORDER BY id`, category, v.GroupID)
	case Technical:
		rows, err = r.db.Query(ctx, base+` AND tech_spec = $2 ORDER BY id`, category, v.Spec)
	case Individual:
		rows, err = r.db.Query(ctx, base+` AND id = $2 ORDER BY id`, category, v.ConsumableID)
	default:
		return nil, fmt.Errorf("unknown criterion: %w", errs.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consumable
	for rows.Next() {
		var c Consumable
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Category, &c.Type, &c.GroupID, &c.TechSpec,
			&c.StockWarehouse, &c.StockAssigned, &c.AvgUnitCost, &c.MinStock,
			&c.Active, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateAvgCost(ctx context.Context, id int64, cost decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `UPDATE consumables SET avg_unit_cost = $2 WHERE id = $1`, id, cost)
	return err
}

// BelowMinimum lists active consumables whose warehouse stock sits under their
// minimum, for manual requisitions.
func (r *Repo) BelowMinimum(ctx context.Context) ([]Consumable, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+consumableCols+`
		FROM consumables
		WHERE active = TRUE AND stock_warehouse < min_stock
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consumable
	for rows.Next() {
		var c Consumable
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Category, &c.Type, &c.GroupID, &c.TechSpec,
			&c.StockWarehouse, &c.StockAssigned, &c.AvgUnitCost, &c.MinStock,
			&c.Active, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) ListAll(ctx context.Context, onlyActive bool) ([]Consumable, error) {
	q := `SELECT ` + consumableCols + ` FROM consumables`
	if onlyActive {
		q += ` WHERE active = TRUE`
	}
	q += ` ORDER BY category, name`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consumable
	for rows.Next() {
		var c Consumable
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Category, &c.Type, &c.GroupID, &c.TechSpec,
			&c.StockWarehouse, &c.StockAssigned, &c.AvgUnitCost, &c.MinStock,
			&c.Active, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetOrCreateGroup returns the equivalence group by code within a category,
// creating it when missing.
func (r *Repo) GetOrCreateGroup(ctx context.Context, category, code string) (*EquivalenceGroup, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("empty equivalence code: %w", errs.ErrValidation)
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, category, code, created_at FROM equivalence_groups
		WHERE category = $1 AND code = $2
	`, category, code)
	var g EquivalenceGroup
	err := row.Scan(&g.ID, &g.Category, &g.Code, &g.CreatedAt)
	if err == nil {
		return &g, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	row = r.db.QueryRow(ctx, `
		INSERT INTO equivalence_groups (category, code)
		VALUES ($1,$2)
		RETURNING id, category, code, created_at
	`, category, code)
	if err := row.Scan(&g.ID, &g.Category, &g.Code, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
