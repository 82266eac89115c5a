package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleTransaction is the receipt header. Money fields are snapshots taken at
// sale time; cancelling never edits them, it posts reversals.
type SaleTransaction struct {
	ID                int                     `gorm:"primary_key" json:"id"`
	ReceiptNo         string                  `gorm:"size:100;uniqueIndex;not null" json:"receipt_no"`
	CustomerId        int                     `gorm:"index;default:0" json:"customer_id"` // 0 = walk-in
	CustomerName      string                  `gorm:"size:255" json:"customer_name"`
	PaymentMode       PaymentMode             `gorm:"type:enum('Cash','MobileMoney','Bank','Credit','Split');not null" json:"payment_mode"`
	Subtotal          decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	DiscountAmount    decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	DeliveryCharge    decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"delivery_charge"`
	GrandTotal        decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	PaidAmount        decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	CreditAmount      decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"credit_amount"`
	CogsTotal         decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"cogs_total"`
	Status            SaleStatus              `gorm:"type:enum('Active','Cancelled');default:Active" json:"status"`
	FulfillmentStatus string                  `gorm:"size:100" json:"fulfillment_status"`
	Note              string                  `gorm:"size:255" json:"note"`
	SoldBy            string                  `gorm:"size:100" json:"sold_by"`
	CancelledBy       string                  `gorm:"size:100" json:"cancelled_by"`
	CancelledAt       *time.Time              `json:"cancelled_at"`
	CreatedAt         time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
	Details           []SaleTransactionDetail `gorm:"foreignKey:SaleId" json:"details"`
}

// SaleTransactionDetail is one batch allocation of one sold line. A sale line
// filled from two batches produces two detail rows with their own unit costs,
// which is what makes partial returns restockable at the right cost.
type SaleTransactionDetail struct {
	ID          int             `gorm:"primary_key" json:"id"`
	SaleId      int             `gorm:"index;not null" json:"sale_id"`
	ItemId      int             `gorm:"index;not null" json:"item_id"`
	ItemName    string          `gorm:"size:255" json:"item_name"`
	BatchNumber string          `gorm:"size:100" json:"batch_number"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	ReturnedQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"returned_qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSaleItem struct {
	ItemId    int             `json:"item_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type SplitPayment struct {
	Mode   PaymentMode     `json:"mode" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type NewSaleTransaction struct {
	CustomerId     int             `json:"customer_id"`
	PaymentMode    PaymentMode     `json:"payment_mode" binding:"required"`
	Items          []NewSaleItem   `json:"items" binding:"required"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	SplitPayments  []SplitPayment  `json:"split_payments"`
	Note           string          `json:"note"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (input *NewSaleTransaction) Validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return utils.NewValidationError("items", "sale must contain at least one item")
	}
	for i, line := range input.Items {
		if !line.Qty.IsPositive() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].qty", i), "quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "unit price must not be negative")
		}
	}
	if input.DiscountAmount.IsNegative() {
		return utils.NewValidationError("discount_amount", "must not be negative")
	}
	if input.DeliveryCharge.IsNegative() {
		return utils.NewValidationError("delivery_charge", "must not be negative")
	}
	if input.PaidAmount.IsNegative() {
		return utils.NewValidationError("paid_amount", "must not be negative")
	}
	switch input.PaymentMode {
	case PaymentModeCash, PaymentModeMobileMoney, PaymentModeBank, PaymentModeCredit:
	case PaymentModeSplit:
		if len(input.SplitPayments) == 0 {
			return utils.NewValidationError("split_payments", "split sale requires at least one split payment")
		}
		for i, part := range input.SplitPayments {
			if part.Mode == PaymentModeSplit {
				return utils.NewValidationError(fmt.Sprintf("split_payments[%d].mode", i), "split parts cannot nest")
			}
			if !part.Amount.IsPositive() {
				return utils.NewValidationError(fmt.Sprintf("split_payments[%d].amount", i), "amount must be positive")
			}
		}
	default:
		return utils.NewValidationError("payment_mode", "unknown payment mode")
	}
	return nil
}

// GrandTotalOf computes subtotal - discount + delivery from the input lines.
func (input *NewSaleTransaction) GrandTotalOf() (subtotal, grandTotal decimal.Decimal) {
	subtotal = decimal.Zero
	for _, line := range input.Items {
		subtotal = subtotal.Add(line.Qty.Mul(line.UnitPrice))
	}
	grandTotal = subtotal.Sub(input.DiscountAmount).Add(input.DeliveryCharge)
	return subtotal, grandTotal
}

// FulfillmentStatusOf derives the pickup state from what has been paid so far.
// Goods are only released once the receipt is fully settled.
func FulfillmentStatusOf(grandTotal, paidTotal decimal.Decimal) string {
	remaining := grandTotal.Sub(paidTotal)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return "ReadyForPickup"
	}
	return fmt.Sprintf("PendingRelease (%s due)", remaining.String())
}

// RecomputeFulfillmentStatus re-reads the sale's settled total from its
// payments and stores the derived status inside the caller's transaction.
func RecomputeFulfillmentStatus(tx *gorm.DB, ctx context.Context, saleId int) error {
	var sale SaleTransaction
	if err := tx.WithContext(ctx).First(&sale, saleId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}

	var paidTotal decimal.Decimal
	if err := tx.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("sale_id = ? AND direction = ?", saleId, PaymentDirectionIn).
		Scan(&paidTotal).Error; err != nil {
		return err
	}

	return tx.WithContext(ctx).Model(&sale).Updates(map[string]interface{}{
		"PaidAmount":        paidTotal,
		"CreditAmount":      decimal.Max(sale.GrandTotal.Sub(paidTotal), decimal.Zero),
		"FulfillmentStatus": FulfillmentStatusOf(sale.GrandTotal, paidTotal),
	}).Error
}

func GetSale(ctx context.Context, id int) (*SaleTransaction, error) {
	return utils.FetchModel[SaleTransaction](ctx, id, "Details")
}

func GetSaleByReceiptNo(ctx context.Context, receiptNo string) (*SaleTransaction, error) {
	db := config.GetDB()
	var sale SaleTransaction
	if err := db.WithContext(ctx).Preload("Details").
		Where("receipt_no = ?", receiptNo).First(&sale).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &sale, nil
}

func GetSales(ctx context.Context, status SaleStatus, fromDate, toDate time.Time) ([]*SaleTransaction, error) {
	db := config.GetDB()
	var sales []*SaleTransaction
	dbCtx := db.WithContext(ctx).Preload("Details")
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	if !fromDate.IsZero() {
		dbCtx = dbCtx.Where("created_at >= ?", fromDate)
	}
	if !toDate.IsZero() {
		dbCtx = dbCtx.Where("created_at <= ?", toDate)
	}
	if err := dbCtx.Order("id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
