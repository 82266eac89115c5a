package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchAllocation is one FIFO slice of a stock decrease. BatchId is 0 when the
// slice was filled from unbatched quantity at the item's cost price.
type BatchAllocation struct {
	BatchId     int
	BatchNumber string
	Qty         decimal.Decimal
	UnitCost    decimal.Decimal
}

// allocateFifo walks batches oldest-first and slices the requested quantity
// across them. It never mutates; callers apply the allocations. Returns the
// unfilled remainder when the batches run out.
func allocateFifo(batches []models.StockBatch, qty decimal.Decimal) ([]BatchAllocation, decimal.Decimal) {
	allocations := make([]BatchAllocation, 0, len(batches))
	remaining := qty
	for _, batch := range batches {
		if !remaining.IsPositive() {
			break
		}
		if !batch.Qty.IsPositive() {
			continue
		}
		take := decimal.Min(batch.Qty, remaining)
		allocations = append(allocations, BatchAllocation{
			BatchId:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Qty:         take,
			UnitCost:    batch.UnitCost,
		})
		remaining = remaining.Sub(take)
	}
	return allocations, remaining
}

// CogsOf sums qty * unit cost over the allocations.
func CogsOf(allocations []BatchAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Qty.Mul(a.UnitCost))
	}
	return total
}

// CheckStock verifies availability without reserving anything. The real check
// happens again inside the sale transaction under row locks.
func CheckStock(ctx context.Context, itemId int, qty decimal.Decimal) error {
	item, err := models.GetItem(ctx, itemId)
	if err != nil {
		return err
	}
	if item.IsService() {
		return nil
	}
	if item.CurrentQty.LessThan(qty) {
		return utils.ErrInsufficientStock
	}
	return nil
}

// DecreaseStock consumes qty from the item's batches oldest-first inside the
// caller's transaction, under row locks so concurrent sales cannot double-take
// a layer. Quantity that exists on the item but not in any batch is consumed
// at the item's cost price with a warning.
func DecreaseStock(tx *gorm.DB, ctx context.Context, itemId int, qty decimal.Decimal, docType models.StockDocType, docId int) ([]BatchAllocation, error) {
	logger := config.GetLogger()

	var item models.Item
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, itemId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if item.CurrentQty.LessThan(qty) {
		return nil, utils.ErrInsufficientStock
	}

	var batches []models.StockBatch
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ? AND qty > 0", itemId).
		Order("sequence, id").Find(&batches).Error; err != nil {
		return nil, err
	}

	allocations, remaining := allocateFifo(batches, qty)
	if remaining.IsPositive() {
		config.LogWarn(logger, "inventory.go", "DecreaseStock",
			"batch layers exhausted, falling back to item cost price", map[string]interface{}{
				"item_id":   itemId,
				"remaining": remaining,
				"cost":      item.CostPrice,
			})
		allocations = append(allocations, BatchAllocation{
			Qty:      remaining,
			UnitCost: item.CostPrice,
		})
	}

	for _, a := range allocations {
		if a.BatchId != 0 {
			if err := tx.WithContext(ctx).Model(&models.StockBatch{}).
				Where("id = ?", a.BatchId).
				Update("qty", gorm.Expr("qty - ?", a.Qty)).Error; err != nil {
				return nil, err
			}
		}
		if err := models.RecordStockMovement(tx, ctx, &models.NewStockMovement{
			ItemId:      itemId,
			BatchNumber: a.BatchNumber,
			QtyDelta:    a.Qty.Neg(),
			UnitCost:    a.UnitCost,
			DocType:     docType,
			DocId:       docId,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Model(&item).
		Update("CurrentQty", item.CurrentQty.Sub(qty)).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// IncreaseStockNewBatch appends a fresh FIFO layer (purchases, adjustments).
func IncreaseStockNewBatch(tx *gorm.DB, ctx context.Context, itemId int, qty, unitCost decimal.Decimal, docType models.StockDocType, docId int) (string, error) {
	var item models.Item
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, itemId).Error; err != nil {
		return "", utils.ErrorRecordNotFound
	}

	var maxSequence int
	if err := tx.WithContext(ctx).Model(&models.StockBatch{}).
		Select("COALESCE(MAX(sequence), 0)").
		Where("item_id = ?", itemId).
		Scan(&maxSequence).Error; err != nil {
		return "", err
	}

	batch := models.StockBatch{
		ItemId:      itemId,
		BatchNumber: models.NextBatchNumber(itemId, maxSequence+1),
		Qty:         qty,
		UnitCost:    unitCost,
		Sequence:    maxSequence + 1,
	}
	if err := tx.WithContext(ctx).Create(&batch).Error; err != nil {
		return "", err
	}

	if err := tx.WithContext(ctx).Model(&item).
		Update("CurrentQty", item.CurrentQty.Add(qty)).Error; err != nil {
		return "", err
	}

	if err := models.RecordStockMovement(tx, ctx, &models.NewStockMovement{
		ItemId:      itemId,
		BatchNumber: batch.BatchNumber,
		QtyDelta:    qty,
		UnitCost:    unitCost,
		DocType:     docType,
		DocId:       docId,
	}); err != nil {
		return "", err
	}
	return batch.BatchNumber, nil
}

// IncreaseStockToBatch puts quantity back onto the batch it was sold from
// (cancellations, returns), preserving the original cost layer. When the
// batch no longer exists the quantity lands in a new layer at unitCost.
func IncreaseStockToBatch(tx *gorm.DB, ctx context.Context, itemId int, batchNumber string, qty, unitCost decimal.Decimal, docType models.StockDocType, docId int) error {
	logger := config.GetLogger()

	var item models.Item
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, itemId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}

	restocked := false
	if batchNumber != "" {
		var batch models.StockBatch
		err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ? AND batch_number = ?", itemId, batchNumber).
			First(&batch).Error
		if err == nil {
			if err := tx.WithContext(ctx).Model(&batch).
				Update("qty", gorm.Expr("qty + ?", qty)).Error; err != nil {
				return err
			}
			restocked = true
		}
	}
	if !restocked {
		config.LogWarn(logger, "inventory.go", "IncreaseStockToBatch",
			"original batch not found, restocking to a new layer", map[string]interface{}{
				"item_id":      itemId,
				"batch_number": batchNumber,
			})
		var maxSequence int
		if err := tx.WithContext(ctx).Model(&models.StockBatch{}).
			Select("COALESCE(MAX(sequence), 0)").
			Where("item_id = ?", itemId).
			Scan(&maxSequence).Error; err != nil {
			return err
		}
		batch := models.StockBatch{
			ItemId:      itemId,
			BatchNumber: models.NextBatchNumber(itemId, maxSequence+1),
			Qty:         qty,
			UnitCost:    unitCost,
			Sequence:    maxSequence + 1,
		}
		if err := tx.WithContext(ctx).Create(&batch).Error; err != nil {
			return err
		}
		batchNumber = batch.BatchNumber
	}

	if err := tx.WithContext(ctx).Model(&item).
		Update("CurrentQty", item.CurrentQty.Add(qty)).Error; err != nil {
		return err
	}

	return models.RecordStockMovement(tx, ctx, &models.NewStockMovement{
		ItemId:      itemId,
		BatchNumber: batchNumber,
		QtyDelta:    qty,
		UnitCost:    unitCost,
		DocType:     docType,
		DocId:       docId,
	})
}
