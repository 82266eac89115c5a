package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Name         string          `gorm:"size:255;uniqueIndex;not null" json:"name" binding:"required"`
	Category     string          `gorm:"size:100;index" json:"category"`
	ItemType     ItemType        `gorm:"type:enum('S','M');default:S" json:"item_type"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	CurrentQty   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_qty"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	Supplier     string          `gorm:"size:255" json:"supplier"`
	UpdatedBy    string          `gorm:"size:100" json:"updated_by"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"last_updated"`
}

// StockBatch is one FIFO cost layer. Batches are never deleted, only exhausted
// (qty -> 0), so the cost trail survives returns and audits.
type StockBatch struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ItemId      int             `gorm:"index;not null" json:"item_id"`
	BatchNumber string          `gorm:"size:100;index;not null" json:"batch_number"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	Sequence    int             `gorm:"index;not null" json:"sequence"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name         string          `json:"name" binding:"required"`
	Category     string          `json:"category"`
	ItemType     ItemType        `json:"item_type"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Supplier     string          `json:"supplier"`
	// OpeningQty creates the first batch at CostPrice (stock items only).
	OpeningQty decimal.Decimal `json:"opening_qty"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewItem) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Item](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if input.ItemType != "" && input.ItemType != ItemTypeStock && input.ItemType != ItemTypeService {
		return utils.NewValidationError("item_type", "must be S (stock) or M (service)")
	}
	if input.ItemType == ItemTypeService && input.OpeningQty.IsPositive() {
		return utils.NewValidationError("opening_qty", "service items carry no stock")
	}
	return nil
}

func (item *Item) IsService() bool {
	return item.ItemType == ItemTypeService
}

// StockStatusOf buckets a quantity against the reorder level.
func StockStatusOf(qty, reorderLevel decimal.Decimal) StockStatus {
	switch {
	case qty.LessThanOrEqual(decimal.Zero):
		return StockStatusOut
	case qty.LessThanOrEqual(reorderLevel):
		return StockStatusLow
	case qty.LessThanOrEqual(reorderLevel.Mul(decimal.NewFromInt(2))):
		return StockStatusMedium
	default:
		return StockStatusIn
	}
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	itemType := input.ItemType
	if itemType == "" {
		itemType = ItemTypeStock
	}

	item := Item{
		Name:         input.Name,
		Category:     input.Category,
		ItemType:     itemType,
		CostPrice:    input.CostPrice,
		SellingPrice: input.SellingPrice,
		ReorderLevel: input.ReorderLevel,
		Supplier:     input.Supplier,
		UpdatedBy:    actor,
	}

	db := config.GetDB()
	// db action
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.OpeningQty.IsPositive() {
		batch := StockBatch{
			ItemId:      item.ID,
			BatchNumber: OpeningBatchNumber(item.ID),
			Qty:         input.OpeningQty,
			UnitCost:    input.CostPrice,
			Sequence:    1,
		}
		if err := tx.WithContext(ctx).Create(&batch).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		item.CurrentQty = input.OpeningQty
		if err := tx.WithContext(ctx).Model(&item).
			Update("CurrentQty", item.CurrentQty).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := RecordStockMovement(tx, ctx, &NewStockMovement{
			ItemId:      item.ID,
			BatchNumber: batch.BatchNumber,
			QtyDelta:    input.OpeningQty,
			UnitCost:    input.CostPrice,
			DocType:     StockDocTypeOpening,
			DocId:       item.ID,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateItem(ctx context.Context, id int, input *NewItem) (*Item, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[Item](ctx, id)
	if err != nil {
		return nil, err
	}
	// item_type is decided at creation time; changing it would reclassify batch
	// history under a variant that never had batches.
	if input.ItemType != "" && input.ItemType != item.ItemType {
		return nil, utils.NewValidationError("item_type", "cannot be changed after creation")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"Name":         input.Name,
		"Category":     input.Category,
		"CostPrice":    input.CostPrice,
		"SellingPrice": input.SellingPrice,
		"ReorderLevel": input.ReorderLevel,
		"Supplier":     input.Supplier,
		"UpdatedBy":    actor,
	}).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	return utils.FetchModel[Item](ctx, id)
}

type ItemStockStatus struct {
	ItemId       int             `json:"item_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	CurrentQty   decimal.Decimal `json:"current_qty"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Status       StockStatus     `json:"status"`
	Valuation    decimal.Decimal `json:"valuation"`
}

// GetStockStatus reports per-item quantity, threshold bucket and valuation.
// Valuation is the sum of remaining batch layers at their recorded unit cost;
// quantity without batch backing is valued at the item's cost price.
func GetStockStatus(ctx context.Context) ([]*ItemStockStatus, error) {
	db := config.GetDB()

	var items []Item
	if err := db.WithContext(ctx).Where("item_type = ?", ItemTypeStock).
		Order("name").Find(&items).Error; err != nil {
		return nil, err
	}

	type batchSum struct {
		ItemId int
		Qty    decimal.Decimal
		Value  decimal.Decimal
	}
	var sums []batchSum
	if err := db.WithContext(ctx).Model(&StockBatch{}).
		Select("item_id, SUM(qty) AS qty, SUM(qty * unit_cost) AS value").
		Where("qty > 0").
		Group("item_id").
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	batched := make(map[int]batchSum, len(sums))
	for _, s := range sums {
		batched[s.ItemId] = s
	}

	results := make([]*ItemStockStatus, 0, len(items))
	for _, item := range items {
		valuation := decimal.Zero
		if s, ok := batched[item.ID]; ok {
			valuation = s.Value
			if unbatched := item.CurrentQty.Sub(s.Qty); unbatched.IsPositive() {
				valuation = valuation.Add(unbatched.Mul(item.CostPrice))
			}
		} else {
			valuation = item.CurrentQty.Mul(item.CostPrice)
		}
		results = append(results, &ItemStockStatus{
			ItemId:       item.ID,
			Name:         item.Name,
			Category:     item.Category,
			CurrentQty:   item.CurrentQty,
			ReorderLevel: item.ReorderLevel,
			Status:       StockStatusOf(item.CurrentQty, item.ReorderLevel),
			Valuation:    valuation,
		})
	}
	return results, nil
}

// VerifyItemBatchConsistency returns an error when an item's cached quantity
// disagrees with the sum of its batch layers. Used by tests and reconciliation.
func VerifyItemBatchConsistency(ctx context.Context, itemId int) error {
	db := config.GetDB()
	item, err := utils.FetchModel[Item](ctx, itemId)
	if err != nil {
		return err
	}
	var batchQty decimal.Decimal
	if err := db.WithContext(ctx).Model(&StockBatch{}).
		Select("COALESCE(SUM(qty), 0)").
		Where("item_id = ?", itemId).
		Scan(&batchQty).Error; err != nil {
		return err
	}
	if !item.CurrentQty.Equal(batchQty) {
		return errors.New("item quantity does not match batch total")
	}
	return nil
}
