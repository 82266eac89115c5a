package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

// SaleReturn records a partial or full return against an active sale. Returned
// goods go back to the batches they were sold from, at their original unit
// cost.
type SaleReturn struct {
	ID           int                `gorm:"primary_key" json:"id"`
	ReturnNo     string             `gorm:"size:100;uniqueIndex;not null" json:"return_no"`
	SaleId       int                `gorm:"index;not null" json:"sale_id"`
	ReceiptNo    string             `gorm:"size:100;index" json:"receipt_no"`
	RefundMode   PaymentMode        `gorm:"type:enum('Cash','MobileMoney','Bank','Credit','Split');not null" json:"refund_mode"`
	RefundAmount decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"refund_amount"`
	CogsReversed decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"cogs_reversed"`
	Reason       string             `gorm:"size:255" json:"reason"`
	ProcessedBy  string             `gorm:"size:100" json:"processed_by"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	Details      []SaleReturnDetail `gorm:"foreignKey:ReturnId" json:"details"`
}

type SaleReturnDetail struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ReturnId     int             `gorm:"index;not null" json:"return_id"`
	SaleDetailId int             `gorm:"index;not null" json:"sale_detail_id"`
	ItemId       int             `gorm:"index;not null" json:"item_id"`
	ItemName     string          `gorm:"size:255" json:"item_name"`
	BatchNumber  string          `gorm:"size:100" json:"batch_number"`
	Qty          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewReturnItem struct {
	SaleDetailId int             `json:"sale_detail_id" binding:"required"`
	Qty          decimal.Decimal `json:"qty" binding:"required"`
}

type NewSaleReturn struct {
	SaleId     int             `json:"sale_id" binding:"required"`
	Items      []NewReturnItem `json:"items" binding:"required"`
	RefundMode PaymentMode     `json:"refund_mode" binding:"required"`
	Reason     string          `json:"reason"`
}

func (input *NewSaleReturn) Validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return utils.NewValidationError("items", "return must contain at least one item")
	}
	for i, line := range input.Items {
		if !line.Qty.IsPositive() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].qty", i), "quantity must be positive")
		}
	}
	switch input.RefundMode {
	case PaymentModeCash, PaymentModeMobileMoney, PaymentModeBank, PaymentModeCredit:
	default:
		return utils.NewValidationError("refund_mode", "refund mode must be Cash, MobileMoney, Bank or Credit")
	}
	return nil
}

func GetSaleReturn(ctx context.Context, id int) (*SaleReturn, error) {
	return utils.FetchModel[SaleReturn](ctx, id, "Details")
}
