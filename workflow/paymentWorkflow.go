package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

type NewCustomerPayment struct {
	CustomerId int                `json:"customer_id" binding:"required"`
	SaleId     int                `json:"sale_id"`
	Mode       models.PaymentMode `json:"mode" binding:"required"`
	Amount     decimal.Decimal    `json:"amount" binding:"required"`
	Note       string             `json:"note"`
}

// RecordCustomerPayment settles outstanding customer credit. When the payment
// is tied to a sale the receipt's fulfillment status is recomputed, which is
// how a pending-release credit sale becomes ready for pickup.
func RecordCustomerPayment(ctx context.Context, input *NewCustomerPayment) (*models.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "payment amount must be positive")
	}
	customer, err := models.GetCustomer(ctx, input.CustomerId)
	if err != nil {
		return nil, err
	}
	if input.Amount.GreaterThan(customer.Balance) {
		return nil, utils.NewValidationError("amount",
			fmt.Sprintf("payment exceeds outstanding balance %s", customer.Balance.String()))
	}

	account, err := models.PaymentAccountForMode(input.Mode)
	if err != nil {
		return nil, utils.NewValidationError("mode", "payment mode must be Cash, MobileMoney or Bank")
	}
	if input.SaleId != 0 {
		if err := utils.ValidateResourceId[models.SaleTransaction](ctx, input.SaleId); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	tx := db.Begin()

	payment, err := models.RecordPayment(tx, ctx, &models.NewPayment{
		Direction:  models.PaymentDirectionIn,
		SaleId:     input.SaleId,
		CustomerId: input.CustomerId,
		Mode:       input.Mode,
		Amount:     input.Amount,
		Note:       input.Note,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
		EntryType:      "CustomerPayment",
		CounterpartyId: input.CustomerId,
		Account:        account,
		Description:    "Credit settlement from " + customer.Name,
		Debit:          input.Amount,
		PaymentMethod:  string(input.Mode),
		Reference:      payment.PaymentNo,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := models.ApplyCustomerPayment(tx, ctx, input.CustomerId, input.Amount, &models.CustomerBalanceChange{
		EntryType:   "Payment",
		DocType:     "PAY",
		DocNo:       payment.PaymentNo,
		Description: input.Note,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	if input.SaleId != 0 {
		if err := models.RecomputeFulfillmentStatus(tx, ctx, input.SaleId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	models.WriteAuditLog(ctx, "payment.customer", "PAY", payment.PaymentNo,
		fmt.Sprintf("received %s via %s", input.Amount.String(), input.Mode))
	return payment, nil
}

type NewSupplierPayment struct {
	SupplierId int                `json:"supplier_id" binding:"required"`
	PurchaseId int                `json:"purchase_id"`
	Mode       models.PaymentMode `json:"mode" binding:"required"`
	Amount     decimal.Decimal    `json:"amount" binding:"required"`
	Note       string             `json:"note"`
}

// RecordSupplierPayment pays down a supplier payable.
func RecordSupplierPayment(ctx context.Context, input *NewSupplierPayment) (*models.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "payment amount must be positive")
	}
	supplier, err := models.GetSupplier(ctx, input.SupplierId)
	if err != nil {
		return nil, err
	}
	if input.Amount.GreaterThan(supplier.Balance) {
		return nil, utils.NewValidationError("amount",
			fmt.Sprintf("payment exceeds outstanding payable %s", supplier.Balance.String()))
	}

	account, err := models.PaymentAccountForMode(input.Mode)
	if err != nil {
		return nil, utils.NewValidationError("mode", "payment mode must be Cash, MobileMoney or Bank")
	}
	if input.PurchaseId != 0 {
		if err := utils.ValidateResourceId[models.Purchase](ctx, input.PurchaseId); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	tx := db.Begin()

	payment, err := models.RecordPayment(tx, ctx, &models.NewPayment{
		Direction:  models.PaymentDirectionOut,
		PurchaseId: input.PurchaseId,
		SupplierId: input.SupplierId,
		Mode:       input.Mode,
		Amount:     input.Amount,
		Note:       input.Note,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
		EntryType:      "SupplierPayment",
		CounterpartyId: input.SupplierId,
		Account:        models.AccountAccountsPayable,
		Description:    "Payable settlement to " + supplier.Name,
		Debit:          input.Amount,
		Reference:      payment.PaymentNo,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
		EntryType:      "SupplierPayment",
		CounterpartyId: input.SupplierId,
		Account:        account,
		Description:    "Payable settlement to " + supplier.Name,
		Credit:         input.Amount,
		PaymentMethod:  string(input.Mode),
		Reference:      payment.PaymentNo,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := models.ApplySupplierPayment(tx, ctx, input.SupplierId, input.Amount, &models.SupplierBalanceChange{
		EntryType:   "Payment",
		DocType:     "PAY",
		DocNo:       payment.PaymentNo,
		Description: input.Note,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	models.WriteAuditLog(ctx, "payment.supplier", "PAY", payment.PaymentNo,
		fmt.Sprintf("paid %s via %s", input.Amount.String(), input.Mode))
	return payment, nil
}
