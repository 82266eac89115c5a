package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

// CreatePurchase receives goods: every line becomes a new FIFO batch at its
// purchased cost, inventory value goes up and the unpaid remainder lands on
// the supplier's payable balance.
func CreatePurchase(ctx context.Context, input *models.NewPurchase) (*models.Purchase, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.Validate(ctx); err != nil {
		return nil, err
	}

	grandTotal := input.GrandTotalOf()
	paidAmount := grandTotal
	creditAmount := decimal.Zero
	if input.PaymentMode == models.PaymentModeCredit {
		if input.PaidAmount.GreaterThan(grandTotal) {
			return nil, utils.NewValidationError("paid_amount", "down payment exceeds grand total")
		}
		paidAmount = input.PaidAmount
		creditAmount = grandTotal.Sub(paidAmount)
	}

	supplierName := ""
	if input.SupplierId != 0 {
		supplier, err := models.GetSupplier(ctx, input.SupplierId)
		if err != nil {
			return nil, err
		}
		supplierName = supplier.Name
	}

	purchaseNo, err := models.NextDocumentNumber(ctx, models.SeriesPurchase, models.SeriesPurchase)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	purchase := models.Purchase{
		PurchaseNo:   purchaseNo,
		SupplierId:   input.SupplierId,
		SupplierName: supplierName,
		PaymentMode:  input.PaymentMode,
		GrandTotal:   grandTotal,
		PaidAmount:   paidAmount,
		CreditAmount: creditAmount,
		Note:         input.Note,
		ReceivedBy:   actor,
	}
	if err := tx.WithContext(ctx).Create(&purchase).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, line := range input.Items {
		var item models.Item
		if err := tx.WithContext(ctx).First(&item, line.ItemId).Error; err != nil {
			tx.Rollback()
			return nil, utils.ErrorRecordNotFound
		}
		if item.IsService() {
			tx.Rollback()
			return nil, utils.NewValidationError("item_id",
				fmt.Sprintf("%s is a service item and cannot be purchased into stock", item.Name))
		}

		batchNumber, err := IncreaseStockNewBatch(tx, ctx, item.ID, line.Qty, line.UnitCost,
			models.StockDocTypePurchase, purchase.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		detail := models.PurchaseDetail{
			PurchaseId:  purchase.ID,
			ItemId:      item.ID,
			ItemName:    item.Name,
			BatchNumber: batchNumber,
			Qty:         line.Qty,
			UnitCost:    line.UnitCost,
			LineTotal:   line.Qty.Mul(line.UnitCost),
		}
		if err := tx.WithContext(ctx).Create(&detail).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		// Latest purchase cost becomes the item's replacement cost.
		if err := tx.WithContext(ctx).Model(&item).
			Update("CostPrice", line.UnitCost).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if grandTotal.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "Purchase",
			CounterpartyId: input.SupplierId,
			Account:        models.AccountInventoryAsset,
			Description:    "Purchase " + purchaseNo,
			Debit:          grandTotal,
			Reference:      purchaseNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if paidAmount.IsPositive() {
		paidMode := input.PaymentMode
		if paidMode == models.PaymentModeCredit {
			paidMode = models.PaymentModeCash // down payment on a credit purchase
		}
		account, err := models.PaymentAccountForMode(paidMode)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "Purchase",
			CounterpartyId: input.SupplierId,
			Account:        account,
			Description:    "Payment for purchase " + purchaseNo,
			Credit:         paidAmount,
			PaymentMethod:  string(paidMode),
			Reference:      purchaseNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
		if _, err := models.RecordPayment(tx, ctx, &models.NewPayment{
			Direction:  models.PaymentDirectionOut,
			PurchaseId: purchase.ID,
			SupplierId: input.SupplierId,
			Mode:       paidMode,
			Amount:     paidAmount,
			Reference:  purchaseNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if creditAmount.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "Purchase",
			CounterpartyId: input.SupplierId,
			Account:        models.AccountAccountsPayable,
			Description:    "Payable for purchase " + purchaseNo,
			Credit:         creditAmount,
			Reference:      purchaseNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := models.ApplySupplierInvoice(tx, ctx, input.SupplierId, creditAmount, &models.SupplierBalanceChange{
			EntryType:   "Invoice",
			DocType:     "PUR",
			DocNo:       purchaseNo,
			Description: "Credit portion of purchase",
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	models.WriteAuditLog(ctx, "purchase.created", "PUR", purchaseNo,
		fmt.Sprintf("grand total %s, mode %s", grandTotal.String(), input.PaymentMode))
	return models.GetPurchase(ctx, purchase.ID)
}
