package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is one cash-in or cash-out event. Sale payments link back to their
// receipt; standalone rows settle customer or supplier credit after the fact.
type Payment struct {
	ID         int              `gorm:"primary_key" json:"id"`
	PaymentNo  string           `gorm:"size:100;uniqueIndex;not null" json:"payment_no"`
	Direction  PaymentDirection `gorm:"type:enum('IN','OUT');not null" json:"direction"`
	SaleId     int              `gorm:"index;default:0" json:"sale_id"`
	PurchaseId int              `gorm:"index;default:0" json:"purchase_id"`
	CustomerId int              `gorm:"index;default:0" json:"customer_id"`
	SupplierId int              `gorm:"index;default:0" json:"supplier_id"`
	Mode       PaymentMode      `gorm:"type:enum('Cash','MobileMoney','Bank','Credit','Split');not null" json:"mode"`
	Account    string           `gorm:"size:100;not null" json:"account"`
	Amount     decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"amount"`
	Reference  string           `gorm:"size:100;index" json:"reference"`
	Note       string           `gorm:"size:255" json:"note"`
	ReceivedBy string           `gorm:"size:100" json:"received_by"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	Direction  PaymentDirection
	SaleId     int
	PurchaseId int
	CustomerId int
	SupplierId int
	Mode       PaymentMode
	Amount     decimal.Decimal
	Reference  string
	Note       string
}

// RecordPayment writes the payment row inside the caller's transaction. The
// landing account is derived from the mode, so Split and Credit callers must
// record one row per concrete mode instead.
func RecordPayment(tx *gorm.DB, ctx context.Context, input *NewPayment) (*Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "payment amount must be positive")
	}
	account, err := PaymentAccountForMode(input.Mode)
	if err != nil {
		return nil, utils.NewValidationError("mode", "payment mode has no landing account")
	}

	actor, _ := utils.GetActorFromContext(ctx)
	paymentNo, err := NextDocumentNumber(ctx, SeriesPayment, SeriesPayment)
	if err != nil {
		return nil, err
	}

	payment := Payment{
		PaymentNo:  paymentNo,
		Direction:  input.Direction,
		SaleId:     input.SaleId,
		PurchaseId: input.PurchaseId,
		CustomerId: input.CustomerId,
		SupplierId: input.SupplierId,
		Mode:       input.Mode,
		Account:    account,
		Amount:     input.Amount,
		Reference:  input.Reference,
		Note:       input.Note,
		ReceivedBy: actor,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func GetPaymentsForSale(ctx context.Context, saleId int) ([]*Payment, error) {
	db := config.GetDB()
	var payments []*Payment
	if err := db.WithContext(ctx).
		Where("sale_id = ?", saleId).Order("id").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
