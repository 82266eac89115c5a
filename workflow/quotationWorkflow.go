package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type ConvertQuotationInput struct {
	PaymentMode   models.PaymentMode    `json:"payment_mode" binding:"required"`
	PaidAmount    decimal.Decimal       `json:"paid_amount"`
	SplitPayments []models.SplitPayment `json:"split_payments"`
	Note          string                `json:"note"`
}

// ConvertQuotation turns a pending or accepted quotation into a sale at the
// quoted prices. Conversion and sale share one transaction: if the sale fails
// (say, stock ran out since quoting) the quotation stays convertible. A
// converted quotation can never convert again.
func ConvertQuotation(ctx context.Context, quotationId int, input *ConvertQuotationInput) (*models.SaleTransaction, error) {
	db := config.GetDB()
	tx := db.Begin()

	var quotation models.Quotation
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Details").First(&quotation, quotationId).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}

	switch quotation.Status {
	case models.QuotationStatusConverted:
		tx.Rollback()
		return nil, utils.ErrAlreadyConverted
	case models.QuotationStatusRejected:
		tx.Rollback()
		return nil, utils.NewValidationError("status", "rejected quotation cannot be converted")
	case models.QuotationStatusExpired:
		tx.Rollback()
		return nil, utils.ErrQuotationExpired
	}
	if quotation.ValidUntil != nil && time.Now().After(*quotation.ValidUntil) {
		tx.Rollback()
		return nil, utils.ErrQuotationExpired
	}

	saleItems := make([]models.NewSaleItem, 0, len(quotation.Details))
	for _, detail := range quotation.Details {
		saleItems = append(saleItems, models.NewSaleItem{
			ItemId:    detail.ItemId,
			Qty:       detail.Qty,
			UnitPrice: detail.UnitPrice,
		})
	}
	saleInput := models.NewSaleTransaction{
		CustomerId:     quotation.CustomerId,
		PaymentMode:    input.PaymentMode,
		Items:          saleItems,
		DiscountAmount: quotation.DiscountAmount,
		DeliveryCharge: quotation.DeliveryCharge,
		PaidAmount:     input.PaidAmount,
		SplitPayments:  input.SplitPayments,
		Note:           input.Note,
	}
	if err := saleInput.Validate(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}

	sale, err := createSaleInTx(tx, ctx, &saleInput)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&quotation).Updates(map[string]interface{}{
		"Status":            models.QuotationStatusConverted,
		"SaleTransactionId": sale.ID,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	models.WriteAuditLog(ctx, "quotation.converted", "QUO", quotation.QuotationNo,
		"converted to sale "+sale.ReceiptNo)
	return sale, nil
}
