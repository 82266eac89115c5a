package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is the append-only audit trail behind every batch mutation.
// Rows are never edited; a reversal is a new row with the opposite delta.
type StockMovement struct {
	ID            string          `gorm:"size:36;primary_key" json:"id"` // uuid
	ItemId        int             `gorm:"index;not null" json:"item_id"`
	BatchNumber   string          `gorm:"size:100;index" json:"batch_number"`
	QtyDelta      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty_delta"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	DocType       StockDocType    `gorm:"type:enum('SALE','PUR','RET','CXL','OPN');not null" json:"doc_type"`
	DocId         int             `gorm:"index" json:"doc_id"`
	ActedBy       string          `gorm:"size:100" json:"acted_by"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewStockMovement struct {
	ItemId      int
	BatchNumber string
	QtyDelta    decimal.Decimal
	UnitCost    decimal.Decimal
	DocType     StockDocType
	DocId       int
}

func RecordStockMovement(tx *gorm.DB, ctx context.Context, input *NewStockMovement) error {
	actor, _ := utils.GetActorFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	movement := StockMovement{
		ID:            uuid.NewString(),
		ItemId:        input.ItemId,
		BatchNumber:   input.BatchNumber,
		QtyDelta:      input.QtyDelta,
		UnitCost:      input.UnitCost,
		DocType:       input.DocType,
		DocId:         input.DocId,
		ActedBy:       actor,
		CorrelationId: correlationId,
	}
	return tx.WithContext(ctx).Create(&movement).Error
}

func OpeningBatchNumber(itemId int) string {
	return fmt.Sprintf("OPN-%d", itemId)
}

// NextBatchNumber names a purchase/return batch after its item and sequence.
func NextBatchNumber(itemId int, sequence int) string {
	return fmt.Sprintf("B-%d-%d", itemId, sequence)
}
