package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hectormarrufor/WR-sub004/internal/domain/assets"
	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
	"github.com/hectormarrufor/WR-sub004/internal/domain/maintenance"
	"github.com/hectormarrufor/WR-sub004/internal/engine"
)

// Compile-time checks: the pgx repositories satisfy the engine stores.
var (
	_ engine.CatalogStore     = (*catalog.Repo)(nil)
	_ engine.AssetStore       = (*assets.Repo)(nil)
	_ engine.InventoryStore   = (*inventory.Repo)(nil)
	_ engine.MaintenanceStore = (*maintenance.Repo)(nil)
)

// Store runs engine operations inside one Postgres transaction. Row-level
// locks taken by the repositories (FOR UPDATE) are held until commit, which
// serializes concurrent installs against the same consumable.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, st engine.Stores) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	st := engine.Stores{
		Catalog:     catalog.NewRepo(tx),
		Assets:      assets.NewRepo(tx),
		Inventory:   inventory.NewRepo(tx),
		Maintenance: maintenance.NewRepo(tx),
	}
	if err := fn(ctx, st); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
