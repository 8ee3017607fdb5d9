package report

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xuri/excelize/v2"

	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
	"github.com/hectormarrufor/WR-sub004/internal/domain/inventory"
)

// BuildWorkbook renders the current stock position and the movement ledger
// into a two-sheet spreadsheet.
func BuildWorkbook(consumables []catalog.Consumable, movements []inventory.Movement) (*excelize.File, error) {
	f := excelize.NewFile()

	const stockSheet = "Stock"
	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return nil, err
	}
	headers := []any{"ID", "Name", "Category", "Type", "Warehouse", "Assigned", "Avg unit cost", "Min stock"}
	if err := f.SetSheetRow(stockSheet, "A1", &headers); err != nil {
		return nil, err
	}
	for i, c := range consumables {
		row := []any{
			c.ID, c.Name, c.Category, string(c.Type),
			c.StockWarehouse, c.StockAssigned, c.AvgUnitCost.String(), c.MinStock,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(stockSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	const ledgerSheet = "Movements"
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return nil, err
	}
	mHeaders := []any{"ID", "Consumable", "Qty", "Direction", "Unit cost", "Motive", "Note", "Actor", "Created at"}
	if err := f.SetSheetRow(ledgerSheet, "A1", &mHeaders); err != nil {
		return nil, err
	}
	for i, m := range movements {
		row := []any{
			m.ID, m.ConsumableID, m.Qty, string(m.Direction),
			m.UnitCost.String(), string(m.Motive), m.Note, m.ActorID,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(ledgerSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Handler streams the inventory workbook over HTTP.
func Handler(cat *catalog.Repo, inv *inventory.Repo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		consumables, err := cat.ListAll(ctx, false)
		if err != nil {
			reportError(w, log, "list consumables", err)
			return
		}
		movements, err := inv.ListMovements(ctx, inventory.MovementFilter{})
		if err != nil {
			reportError(w, log, "list movements", err)
			return
		}

		f, err := BuildWorkbook(consumables, movements)
		if err != nil {
			reportError(w, log, "build workbook", err)
			return
		}
		defer func() { _ = f.Close() }()

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="inventory.xlsx"`)
		if err := f.Write(w); err != nil {
			log.Error("write workbook", "err", err)
		}
	}
}

func reportError(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	http.Error(w, "report generation failed", http.StatusInternalServerError)
}
