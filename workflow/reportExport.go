package workflow

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportStockValuationXlsx renders the current stock status report as a
// spreadsheet: one row per stock item with quantity, threshold bucket and
// FIFO valuation.
func ExportStockValuationXlsx(ctx context.Context) (*bytes.Buffer, error) {
	rows, err := models.GetStockStatus(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Stock Valuation"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Item", "Category", "Quantity", "Reorder Level", "Status", "Valuation"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	grandTotal := decimal.Zero
	for i, row := range rows {
		values := []interface{}{
			row.Name,
			row.Category,
			row.CurrentQty.String(),
			row.ReorderLevel.String(),
			string(row.Status),
			row.Valuation.String(),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		grandTotal = grandTotal.Add(row.Valuation)
	}

	totalRow := len(rows) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), grandTotal.String()); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow+2),
		"Generated "+time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf, nil
}
