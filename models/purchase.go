package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

// Purchase is a goods-received document. Each detail line lands as a new FIFO
// batch at the purchased unit cost.
type Purchase struct {
	ID           int              `gorm:"primary_key" json:"id"`
	PurchaseNo   string           `gorm:"size:100;uniqueIndex;not null" json:"purchase_no"`
	SupplierId   int              `gorm:"index;default:0" json:"supplier_id"`
	SupplierName string           `gorm:"size:255" json:"supplier_name"`
	PaymentMode  PaymentMode      `gorm:"type:enum('Cash','MobileMoney','Bank','Credit','Split');not null" json:"payment_mode"`
	GrandTotal   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	PaidAmount   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	CreditAmount decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"credit_amount"`
	Note         string           `gorm:"size:255" json:"note"`
	ReceivedBy   string           `gorm:"size:100" json:"received_by"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	Details      []PurchaseDetail `gorm:"foreignKey:PurchaseId" json:"details"`
}

type PurchaseDetail struct {
	ID          int             `gorm:"primary_key" json:"id"`
	PurchaseId  int             `gorm:"index;not null" json:"purchase_id"`
	ItemId      int             `gorm:"index;not null" json:"item_id"`
	ItemName    string          `gorm:"size:255" json:"item_name"`
	BatchNumber string          `gorm:"size:100" json:"batch_number"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPurchaseItem struct {
	ItemId   int             `json:"item_id" binding:"required"`
	Qty      decimal.Decimal `json:"qty" binding:"required"`
	UnitCost decimal.Decimal `json:"unit_cost" binding:"required"`
}

type NewPurchase struct {
	SupplierId  int               `json:"supplier_id"`
	PaymentMode PaymentMode       `json:"payment_mode" binding:"required"`
	Items       []NewPurchaseItem `json:"items" binding:"required"`
	PaidAmount  decimal.Decimal   `json:"paid_amount"`
	Note        string            `json:"note"`
}

func (input *NewPurchase) Validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return utils.NewValidationError("items", "purchase must contain at least one item")
	}
	for i, line := range input.Items {
		if !line.Qty.IsPositive() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].qty", i), "quantity must be positive")
		}
		if line.UnitCost.IsNegative() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].unit_cost", i), "unit cost must not be negative")
		}
	}
	switch input.PaymentMode {
	case PaymentModeCash, PaymentModeMobileMoney, PaymentModeBank:
	case PaymentModeCredit:
		if input.SupplierId == 0 {
			return utils.NewValidationError("supplier_id", "credit purchase requires a supplier")
		}
	default:
		return utils.NewValidationError("payment_mode", "unknown payment mode for purchase")
	}
	return nil
}

func (input *NewPurchase) GrandTotalOf() decimal.Decimal {
	total := decimal.Zero
	for _, line := range input.Items {
		total = total.Add(line.Qty.Mul(line.UnitCost))
	}
	return total
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	return utils.FetchModel[Purchase](ctx, id, "Details")
}
