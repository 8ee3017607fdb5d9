package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
	"github.com/hectormarrufor/WR-sub004/internal/infra/db"
)

type Repo struct{ db db.DBTX }

func NewRepo(d db.DBTX) *Repo { return &Repo{db: d} }

func detailTable(k Kind) (string, error) {
	switch k {
	case KindVehicle:
		return "vehicle_details", nil
	case KindTrailer:
		return "trailer_details", nil
	case KindMachine:
		return "machine_details", nil
	default:
		return "", fmt.Errorf("unknown asset kind %q: %w", k, errs.ErrValidation)
	}
}

/* Models and templates */

func (r *Repo) CreateModel(ctx context.Context, m *AssetModel) (int64, error) {
	attrs, err := json.Marshal(m.Attrs)
	if err != nil {
		return 0, err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO asset_models (kind, brand, model, year, attrs)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, string(m.Kind), m.Brand, m.Model, m.Year, attrs)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetModel(ctx context.Context, id int64) (*AssetModel, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, kind, brand, model, year, attrs, created_at
		FROM asset_models WHERE id = $1
	`, id)
	var m AssetModel
	var attrs []byte
	if err := row.Scan(&m.ID, &m.Kind, &m.Brand, &m.Model, &m.Year, &attrs, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset model %d: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &m.Attrs); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r *Repo) CreateSubsystemTemplate(ctx context.Context, t *SubsystemTemplate) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO subsystem_templates (model_id, name, category, position)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, t.ModelID, t.Name, t.Category, t.Position)
	var id int64
	return id, row.Scan(&id)
}

// UpdateSubsystemTemplateMeta renames a template. Metadata only; never touches
// instances or stock.
func (r *Repo) UpdateSubsystemTemplateMeta(ctx context.Context, id int64, name, category string) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE subsystem_templates SET name = $2, category = $3 WHERE id = $1
	`, id, name, category)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("subsystem template %d: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *Repo) CreateRule(ctx context.Context, rule *RecommendationRule) (int64, error) {
	groupID, spec, consumableID := catalog.Columns(rule.Criterion)
	row := r.db.QueryRow(ctx, `
		INSERT INTO recommendation_rules (template_id, category, quantity, group_id, tech_spec, consumable_id, position)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, rule.TemplateID, rule.Category, rule.Quantity, groupID, spec, consumableID, rule.Position)
	var id int64
	return id, row.Scan(&id)
}

// ListSubsystemTemplates returns a model's templates with their rules, in
// declaration order. Rules with a malformed criterion row fail loading.
func (r *Repo) ListSubsystemTemplates(ctx context.Context, modelID int64) ([]SubsystemTemplate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, model_id, name, category, position
		FROM subsystem_templates
		WHERE model_id = $1
		ORDER BY position, id
	`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []SubsystemTemplate
	for rows.Next() {
		var t SubsystemTemplate
		if err := rows.Scan(&t.ID, &t.ModelID, &t.Name, &t.Category, &t.Position); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range templates {
		rules, err := r.listRules(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
		templates[i].Rules = rules
	}
	return templates, nil
}

func (r *Repo) listRules(ctx context.Context, templateID int64) ([]RecommendationRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, template_id, category, quantity, group_id, tech_spec, consumable_id, position
		FROM recommendation_rules
		WHERE template_id = $1
		ORDER BY position, id
	`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecommendationRule
	for rows.Next() {
		var (
			rule         RecommendationRule
			groupID      *int64
			spec         *string
			consumableID *int64
		)
		if err := rows.Scan(&rule.ID, &rule.TemplateID, &rule.Category, &rule.Quantity, &groupID, &spec, &consumableID, &rule.Position); err != nil {
			return nil, err
		}
		crit, err := catalog.FromColumns(groupID, spec, consumableID)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		rule.Criterion = crit
		out = append(out, rule)
	}
	return out, rows.Err()
}

/* Assets */

// CreateAsset inserts the kind-specific detail record and the asset row
// pointing at it.
func (r *Repo) CreateAsset(ctx context.Context, a *Asset, d *AssetDetail) (int64, error) {
	table, err := detailTable(a.Kind)
	if err != nil {
		return 0, err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO `+table+` (plate, vin, serial_number)
		VALUES ($1,$2,$3)
		RETURNING id
	`, d.Plate, d.VIN, d.SerialNumber)
	if err := row.Scan(&a.DetailID); err != nil {
		return 0, err
	}

	row = r.db.QueryRow(ctx, `
		INSERT INTO assets (model_id, kind, detail_id, status, current_odometer, current_hour_meter, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, a.ModelID, string(a.Kind), a.DetailID, string(AssetActive), a.CurrentOdometer, a.CurrentHourMeter, a.PhotoURL)
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, model_id, kind, detail_id, status, current_odometer, current_hour_meter, photo_url, created_at
		FROM assets WHERE id = $1
	`, id)
	var a Asset
	if err := row.Scan(&a.ID, &a.ModelID, &a.Kind, &a.DetailID, &a.Status, &a.CurrentOdometer, &a.CurrentHourMeter, &a.PhotoURL, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset %d: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) ListAssetsByModel(ctx context.Context, modelID int64) ([]Asset, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, model_id, kind, detail_id, status, current_odometer, current_hour_meter, photo_url, created_at
		FROM assets
		WHERE model_id = $1 AND status = 'active'
		ORDER BY id
	`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.ModelID, &a.Kind, &a.DetailID, &a.Status, &a.CurrentOdometer, &a.CurrentHourMeter, &a.PhotoURL, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) SetAssetStatus(ctx context.Context, id int64, status AssetStatus) error {
	ct, err := r.db.Exec(ctx, `UPDATE assets SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("asset %d: %w", id, errs.ErrNotFound)
	}
	return nil
}

/* Subsystem instances */

func (r *Repo) CreateSubsystemInstance(ctx context.Context, si *SubsystemInstance) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO subsystem_instances (asset_id, template_id, name, category, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, si.AssetID, si.TemplateID, si.Name, si.Category, string(SubsystemOK))
	var id int64
	return id, row.Scan(&id)
}

func (r *Repo) GetSubsystemInstance(ctx context.Context, id int64) (*SubsystemInstance, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, asset_id, template_id, name, category, status, created_at
		FROM subsystem_instances WHERE id = $1
	`, id)
	var si SubsystemInstance
	if err := row.Scan(&si.ID, &si.AssetID, &si.TemplateID, &si.Name, &si.Category, &si.Status, &si.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subsystem instance %d: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &si, nil
}

func (r *Repo) SetSubsystemStatus(ctx context.Context, id int64, status SubsystemStatus) error {
	ct, err := r.db.Exec(ctx, `UPDATE subsystem_instances SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("subsystem instance %d: %w", id, errs.ErrNotFound)
	}
	return nil
}

/* Meter log */

// InsertMeterEntry appends to the milestone log and refreshes the cached
// projection on the asset row in the same statement batch. The caller holds
// the transaction.
func (r *Repo) InsertMeterEntry(ctx context.Context, e *MeterEntry) (int64, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO meter_entries (asset_id, kind, value, actor_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, e.AssetID, string(e.Kind), e.Value, e.ActorID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}

	col := "current_odometer"
	if e.Kind == MeterHourMeter {
		col = "current_hour_meter"
	}
	_, err := r.db.Exec(ctx, `UPDATE assets SET `+col+` = $2 WHERE id = $1`, e.AssetID, e.Value)
	return id, err
}
