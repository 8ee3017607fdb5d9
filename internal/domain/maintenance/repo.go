package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/infra/db"
)

type Repo struct{ db db.DBTX }

func NewRepo(d db.DBTX) *Repo { return &Repo{db: d} }

/* Orders */

func (r *Repo) CreateOrder(ctx context.Context, o *MaintenanceOrder) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO maintenance_orders (asset_id, state, requisition_id, description, actor_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, o.AssetID, string(o.State), o.RequisitionID, o.Description, o.ActorID)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (*MaintenanceOrder, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, asset_id, state, requisition_id, description, actor_id, created_at, updated_at
		FROM maintenance_orders WHERE id = $1 FOR UPDATE
	`, id)
	var o MaintenanceOrder
	if err := row.Scan(&o.ID, &o.AssetID, &o.State, &o.RequisitionID, &o.Description, &o.ActorID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("maintenance order %d: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repo) SetOrderState(ctx context.Context, id int64, state OrderState) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE maintenance_orders SET state = $2, updated_at = NOW() WHERE id = $1
	`, id, string(state))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("maintenance order %d: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *Repo) SetOrderRequisition(ctx context.Context, orderID, requisitionID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE maintenance_orders SET requisition_id = $2, updated_at = NOW() WHERE id = $1
	`, orderID, requisitionID)
	return err
}

func (r *Repo) AddOrderLine(ctx context.Context, l *OrderLine) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO maintenance_order_lines (order_id, consumable_id, quantity, state)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, l.OrderID, l.ConsumableID, l.Quantity, string(l.State))
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) ListOrderLines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, consumable_id, quantity, state
		FROM maintenance_order_lines
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ConsumableID, &l.Quantity, &l.State); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

/* Requisitions */

func (r *Repo) CreateRequisition(ctx context.Context, req *Requisition) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO requisitions (code, order_id, state, actor_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, req.Code, req.OrderID, string(req.State), req.ActorID)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetRequisition(ctx context.Context, id int64) (*Requisition, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, code, order_id, state, actor_id, created_at
		FROM requisitions WHERE id = $1 FOR UPDATE
	`, id)
	var req Requisition
	if err := row.Scan(&req.ID, &req.Code, &req.OrderID, &req.State, &req.ActorID, &req.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("requisition %d: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &req, nil
}

func (r *Repo) SetRequisitionState(ctx context.Context, id int64, state RequisitionState) error {
	ct, err := r.db.Exec(ctx, `UPDATE requisitions SET state = $2 WHERE id = $1`, id, string(state))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("requisition %d: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *Repo) AddRequisitionLine(ctx context.Context, l *RequisitionLine) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO requisition_lines (requisition_id, consumable_id, quantity)
		VALUES ($1,$2,$3)
		RETURNING id
	`, l.RequisitionID, l.ConsumableID, l.Quantity)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) ListRequisitionLines(ctx context.Context, requisitionID int64) ([]RequisitionLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, requisition_id, consumable_id, quantity
		FROM requisition_lines
		WHERE requisition_id = $1
		ORDER BY id
	`, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RequisitionLine
	for rows.Next() {
		var l RequisitionLine
		if err := rows.Scan(&l.ID, &l.RequisitionID, &l.ConsumableID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

/* Findings */

func (r *Repo) CreateFinding(ctx context.Context, f *Finding) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO findings (asset_id, subsystem_instance_id, description, actor_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, f.AssetID, f.SubsystemInstanceID, f.Description, f.ActorID)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetFinding(ctx context.Context, id int64) (*Finding, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, asset_id, subsystem_instance_id, description, order_id, actor_id, created_at
		FROM findings WHERE id = $1
	`, id)
	var f Finding
	if err := row.Scan(&f.ID, &f.AssetID, &f.SubsystemInstanceID, &f.Description, &f.OrderID, &f.ActorID, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("finding %d: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repo) AttachFindingToOrder(ctx context.Context, findingID, orderID int64) error {
	ct, err := r.db.Exec(ctx, `UPDATE findings SET order_id = $2 WHERE id = $1`, findingID, orderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("finding %d: %w", findingID, errs.ErrNotFound)
	}
	return nil
}
