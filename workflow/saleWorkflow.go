package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const createSaleHandler = "CreateSale"

// normalizePayments flattens the input's payment shape into direct settlement
// parts plus a credit remainder. All rejections happen here, before any write.
func normalizePayments(input *models.NewSaleTransaction, grandTotal decimal.Decimal) (parts []models.SplitPayment, creditAmount decimal.Decimal, err error) {
	if input.PaidAmount.IsNegative() {
		return nil, decimal.Zero, utils.NewValidationError("paid_amount", "must not be negative")
	}
	switch input.PaymentMode {
	case models.PaymentModeCash, models.PaymentModeMobileMoney, models.PaymentModeBank:
		if input.PaidAmount.GreaterThan(grandTotal) {
			return nil, decimal.Zero, utils.NewValidationError("paid_amount", "paid amount exceeds grand total")
		}
		// An omitted paid amount means settled in full; a smaller one is a
		// partial settlement and the rest goes on the customer's account.
		paid := grandTotal
		if input.PaidAmount.IsPositive() {
			paid = input.PaidAmount
		}
		creditAmount = grandTotal.Sub(paid)
		if paid.IsPositive() {
			parts = append(parts, models.SplitPayment{Mode: input.PaymentMode, Amount: paid})
		}
		return parts, creditAmount, nil
	case models.PaymentModeCredit:
		if input.PaidAmount.GreaterThan(grandTotal) {
			return nil, decimal.Zero, utils.NewValidationError("paid_amount", "down payment exceeds grand total")
		}
		creditAmount = grandTotal.Sub(input.PaidAmount)
		if input.PaidAmount.IsPositive() {
			parts = append(parts, models.SplitPayment{Mode: models.PaymentModeCash, Amount: input.PaidAmount})
		}
		return parts, creditAmount, nil
	case models.PaymentModeSplit:
		sum := decimal.Zero
		for _, part := range input.SplitPayments {
			sum = sum.Add(part.Amount)
			if part.Mode == models.PaymentModeCredit {
				creditAmount = creditAmount.Add(part.Amount)
			} else {
				parts = append(parts, part)
			}
		}
		if !sum.Equal(grandTotal) {
			return nil, decimal.Zero, utils.NewValidationError("split_payments",
				fmt.Sprintf("split parts sum to %s, grand total is %s", sum.String(), grandTotal.String()))
		}
		return parts, creditAmount, nil
	}
	return nil, decimal.Zero, utils.NewValidationError("payment_mode", "unknown payment mode")
}

// CreateSale validates, allocates a receipt number and commits the whole sale
// atomically. A retried request carrying the same idempotency key returns the
// sale the first attempt produced.
func CreateSale(ctx context.Context, input *models.NewSaleTransaction) (*models.SaleTransaction, error) {
	if err := input.Validate(ctx); err != nil {
		return nil, err
	}

	_, grandTotal := input.GrandTotalOf()
	_, creditAmount, err := normalizePayments(input, grandTotal)
	if err != nil {
		return nil, err
	}
	if creditAmount.IsPositive() && input.CustomerId == 0 {
		return nil, utils.ErrCreditNotAllowedForWalkIn
	}

	db := config.GetDB()
	tx := db.Begin()

	if input.IdempotencyKey != "" {
		resultId, done, err := BeginIdempotency(tx, createSaleHandler, input.IdempotencyKey)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if done {
			tx.Rollback()
			return models.GetSale(ctx, resultId)
		}
	}

	sale, err := createSaleInTx(tx, ctx, input)
	if err != nil {
		tx.Rollback()
		if input.IdempotencyKey != "" {
			_ = MarkIdempotencyFailed(db, createSaleHandler, input.IdempotencyKey, err)
		}
		return nil, err
	}

	if input.IdempotencyKey != "" {
		if err := MarkIdempotencySucceeded(tx, createSaleHandler, input.IdempotencyKey, sale.ID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	models.WriteAuditLog(ctx, "sale.created", "SAL", sale.ReceiptNo,
		fmt.Sprintf("grand total %s, mode %s", sale.GrandTotal.String(), sale.PaymentMode))
	return sale, nil
}

// createSaleInTx performs every write of a sale inside the caller's
// transaction. The quotation conversion flow shares it so that conversion and
// sale commit or fail together.
func createSaleInTx(tx *gorm.DB, ctx context.Context, input *models.NewSaleTransaction) (*models.SaleTransaction, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	subtotal, grandTotal := input.GrandTotalOf()
	parts, creditAmount, err := normalizePayments(input, grandTotal)
	if err != nil {
		return nil, err
	}
	if creditAmount.IsPositive() && input.CustomerId == 0 {
		return nil, utils.ErrCreditNotAllowedForWalkIn
	}

	customerName := ""
	if input.CustomerId != 0 {
		customer, err := models.GetCustomer(ctx, input.CustomerId)
		if err != nil {
			return nil, err
		}
		customerName = customer.Name
	}

	receiptNo, err := models.NextDocumentNumber(ctx, models.SeriesSaleReceipt, models.SeriesSaleReceipt)
	if err != nil {
		return nil, err
	}

	paidAmount := grandTotal.Sub(creditAmount)
	sale := models.SaleTransaction{
		ReceiptNo:         receiptNo,
		CustomerId:        input.CustomerId,
		CustomerName:      customerName,
		PaymentMode:       input.PaymentMode,
		Subtotal:          subtotal,
		DiscountAmount:    input.DiscountAmount,
		DeliveryCharge:    input.DeliveryCharge,
		GrandTotal:        grandTotal,
		PaidAmount:        paidAmount,
		CreditAmount:      creditAmount,
		Status:            models.SaleStatusActive,
		FulfillmentStatus: models.FulfillmentStatusOf(grandTotal, paidAmount),
		Note:              input.Note,
		SoldBy:            actor,
	}
	if err := tx.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, err
	}

	// Stock leaves oldest batch first; one detail row per batch slice so
	// returns can restock at the right cost.
	cogsTotal := decimal.Zero
	for _, line := range input.Items {
		var item models.Item
		if err := tx.WithContext(ctx).First(&item, line.ItemId).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		unitPrice := line.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = item.SellingPrice
		}

		if item.IsService() {
			detail := models.SaleTransactionDetail{
				SaleId:    sale.ID,
				ItemId:    item.ID,
				ItemName:  item.Name,
				Qty:       line.Qty,
				UnitPrice: unitPrice,
				LineTotal: line.Qty.Mul(unitPrice),
			}
			if err := tx.WithContext(ctx).Create(&detail).Error; err != nil {
				return nil, err
			}
			continue
		}

		allocations, err := DecreaseStock(tx, ctx, item.ID, line.Qty, models.StockDocTypeSale, sale.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range allocations {
			detail := models.SaleTransactionDetail{
				SaleId:      sale.ID,
				ItemId:      item.ID,
				ItemName:    item.Name,
				BatchNumber: a.BatchNumber,
				Qty:         a.Qty,
				UnitPrice:   unitPrice,
				UnitCost:    a.UnitCost,
				LineTotal:   a.Qty.Mul(unitPrice),
			}
			if err := tx.WithContext(ctx).Create(&detail).Error; err != nil {
				return nil, err
			}
			cogsTotal = cogsTotal.Add(a.Qty.Mul(a.UnitCost))
		}
	}

	if err := tx.WithContext(ctx).Model(&sale).
		Update("CogsTotal", cogsTotal).Error; err != nil {
		return nil, err
	}

	// Money in: one ledger debit and payment row per settled part.
	for _, part := range parts {
		account, err := models.PaymentAccountForMode(part.Mode)
		if err != nil {
			return nil, err
		}
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "Sale",
			CounterpartyId: input.CustomerId,
			Account:        account,
			Description:    "Sale " + receiptNo,
			Debit:          part.Amount,
			PaymentMethod:  string(part.Mode),
			ReceiptNo:      receiptNo,
		}); err != nil {
			return nil, err
		}
		if _, err := models.RecordPayment(tx, ctx, &models.NewPayment{
			Direction:  models.PaymentDirectionIn,
			SaleId:     sale.ID,
			CustomerId: input.CustomerId,
			Mode:       part.Mode,
			Amount:     part.Amount,
			Reference:  receiptNo,
		}); err != nil {
			return nil, err
		}
	}

	// Revenue recognition: goods revenue net of discount, delivery separately.
	goodsRevenue := subtotal.Sub(input.DiscountAmount)
	if goodsRevenue.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "Sale",
			CounterpartyId: input.CustomerId,
			Account:        models.AccountSalesRevenue,
			Description:    "Sale " + receiptNo,
			Credit:         goodsRevenue,
			ReceiptNo:      receiptNo,
		}); err != nil {
			return nil, err
		}
	}
	if input.DeliveryCharge.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "Sale",
			CounterpartyId: input.CustomerId,
			Account:        models.AccountDeliveryIncome,
			Description:    "Delivery for " + receiptNo,
			Credit:         input.DeliveryCharge,
			ReceiptNo:      receiptNo,
		}); err != nil {
			return nil, err
		}
	}

	// Cost side: expense the consumed layers, relieve inventory.
	if cogsTotal.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "COGS",
			Account:     models.AccountCostOfGoodsSold,
			Description: "COGS for " + receiptNo,
			Debit:       cogsTotal,
			ReceiptNo:   receiptNo,
		}); err != nil {
			return nil, err
		}
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "COGS",
			Account:     models.AccountInventoryAsset,
			Description: "COGS for " + receiptNo,
			Credit:      cogsTotal,
			ReceiptNo:   receiptNo,
		}); err != nil {
			return nil, err
		}
	}

	if input.CustomerId != 0 {
		if creditAmount.IsPositive() {
			if err := models.ApplyCustomerInvoice(tx, ctx, input.CustomerId, creditAmount, &models.CustomerBalanceChange{
				EntryType:   "Invoice",
				DocType:     "SAL",
				DocNo:       receiptNo,
				Description: "Credit portion of sale",
			}); err != nil {
				return nil, err
			}
		}
		if err := models.RecordCustomerSale(tx, ctx, input.CustomerId, grandTotal); err != nil {
			return nil, err
		}
		if err := models.AdjustLoyaltyPoints(tx, ctx, input.CustomerId, config.LoyaltyPointsPerSale()); err != nil {
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Preload("Details").
		First(&sale, sale.ID).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// CancelSale reverses everything a sale did that has not already been undone
// by a return: unreturned stock goes back to its batches, settled money is
// refunded, outstanding credit is written off and loyalty points come back.
// The receipt row itself is never edited beyond its status fields.
func CancelSale(ctx context.Context, saleId int) (*models.SaleTransaction, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()

	var sale models.SaleTransaction
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Details").First(&sale, saleId).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if sale.Status == models.SaleStatusCancelled {
		tx.Rollback()
		return nil, utils.ErrAlreadyCancelled
	}

	// Restock what was not already returned, onto the original layers.
	cogsReversal := decimal.Zero
	revenueReversal := decimal.Zero
	for _, detail := range sale.Details {
		remaining := detail.Qty.Sub(detail.ReturnedQty)
		if !remaining.IsPositive() {
			continue
		}
		revenueReversal = revenueReversal.Add(remaining.Mul(detail.UnitPrice))
		if detail.BatchNumber == "" && detail.UnitCost.IsZero() {
			continue // service line
		}
		if err := IncreaseStockToBatch(tx, ctx, detail.ItemId, detail.BatchNumber,
			remaining, detail.UnitCost, models.StockDocTypeCancel, sale.ID); err != nil {
			tx.Rollback()
			return nil, err
		}
		cogsReversal = cogsReversal.Add(remaining.Mul(detail.UnitCost))
	}

	// Refund settled money account by account, net of earlier refunds.
	var payments []models.Payment
	if err := tx.WithContext(ctx).Where("sale_id = ?", saleId).
		Find(&payments).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	netByMode := map[models.PaymentMode]decimal.Decimal{}
	for _, payment := range payments {
		net := netByMode[payment.Mode]
		if payment.Direction == models.PaymentDirectionIn {
			net = net.Add(payment.Amount)
		} else {
			net = net.Sub(payment.Amount)
		}
		netByMode[payment.Mode] = net
	}
	for mode, amount := range netByMode {
		if !amount.IsPositive() {
			continue
		}
		account, err := models.PaymentAccountForMode(mode)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "SaleCancellation",
			CounterpartyId: sale.CustomerId,
			Account:        account,
			Description:    "Refund for cancelled sale " + sale.ReceiptNo,
			Credit:         amount,
			PaymentMethod:  string(mode),
			ReceiptNo:      sale.ReceiptNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
		if _, err := models.RecordPayment(tx, ctx, &models.NewPayment{
			Direction:  models.PaymentDirectionOut,
			SaleId:     sale.ID,
			CustomerId: sale.CustomerId,
			Mode:       mode,
			Amount:     amount,
			Reference:  sale.ReceiptNo,
			Note:       "Refund on cancellation",
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Back out revenue and cost of the unreturned portion.
	deliveryReversal := sale.DeliveryCharge
	goodsReversal := revenueReversal.Sub(sale.DiscountAmount)
	if goodsReversal.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "SaleCancellation",
			Account:     models.AccountSalesRevenue,
			Description: "Reversal of sale " + sale.ReceiptNo,
			Debit:       goodsReversal,
			ReceiptNo:   sale.ReceiptNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if deliveryReversal.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "SaleCancellation",
			Account:     models.AccountDeliveryIncome,
			Description: "Reversal of delivery for " + sale.ReceiptNo,
			Debit:       deliveryReversal,
			ReceiptNo:   sale.ReceiptNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if cogsReversal.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "SaleCancellation",
			Account:     models.AccountInventoryAsset,
			Description: "COGS reversal for " + sale.ReceiptNo,
			Debit:       cogsReversal,
			ReceiptNo:   sale.ReceiptNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "SaleCancellation",
			Account:     models.AccountCostOfGoodsSold,
			Description: "COGS reversal for " + sale.ReceiptNo,
			Credit:      cogsReversal,
			ReceiptNo:   sale.ReceiptNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if sale.CustomerId != 0 {
		if sale.CreditAmount.IsPositive() {
			if err := models.ApplyCustomerCreditNote(tx, ctx, sale.CustomerId, sale.CreditAmount, &models.CustomerBalanceChange{
				EntryType:   "CreditNote",
				DocType:     "SAL",
				DocNo:       sale.ReceiptNo,
				Description: "Sale cancelled",
			}); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		if err := models.ReverseCustomerSale(tx, ctx, sale.CustomerId, sale.GrandTotal); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := models.AdjustLoyaltyPoints(tx, ctx, sale.CustomerId, -config.LoyaltyPointsPerSale()); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := tx.WithContext(ctx).Model(&sale).Updates(map[string]interface{}{
		"Status":            models.SaleStatusCancelled,
		"FulfillmentStatus": "Cancelled",
		"CancelledBy":       actor,
		"CancelledAt":       &now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	models.WriteAuditLog(ctx, "sale.cancelled", "SAL", sale.ReceiptNo, "full reversal")
	return models.GetSale(ctx, saleId)
}

// ProcessReturn takes back part of an active sale: quantity caps are enforced
// per detail row, stock goes to the batch it came from and the refund follows
// the requested mode. Credit refunds reduce the customer's balance, clamped
// at zero.
func ProcessReturn(ctx context.Context, input *models.NewSaleReturn) (*models.SaleReturn, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.Validate(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	var sale models.SaleTransaction
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sale, input.SaleId).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if sale.Status == models.SaleStatusCancelled {
		tx.Rollback()
		return nil, utils.ErrAlreadyCancelled
	}
	if input.RefundMode == models.PaymentModeCredit && sale.CustomerId == 0 {
		tx.Rollback()
		return nil, utils.ErrCreditNotAllowedForWalkIn
	}

	returnNo, err := models.NextDocumentNumber(ctx, models.SeriesReturn, models.SeriesReturn)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	saleReturn := models.SaleReturn{
		ReturnNo:    returnNo,
		SaleId:      sale.ID,
		ReceiptNo:   sale.ReceiptNo,
		RefundMode:  input.RefundMode,
		Reason:      input.Reason,
		ProcessedBy: actor,
	}
	if err := tx.WithContext(ctx).Create(&saleReturn).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	refundAmount := decimal.Zero
	cogsReversed := decimal.Zero
	for _, line := range input.Items {
		var detail models.SaleTransactionDetail
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&detail, line.SaleDetailId).Error; err != nil {
			tx.Rollback()
			return nil, utils.ErrorRecordNotFound
		}
		if detail.SaleId != sale.ID {
			tx.Rollback()
			return nil, utils.NewValidationError("sale_detail_id", "detail does not belong to this sale")
		}
		returnable := detail.Qty.Sub(detail.ReturnedQty)
		if line.Qty.GreaterThan(returnable) {
			tx.Rollback()
			return nil, utils.NewValidationError("qty",
				fmt.Sprintf("only %s of %s can still be returned", returnable.String(), detail.ItemName))
		}

		if detail.BatchNumber != "" || !detail.UnitCost.IsZero() {
			if err := IncreaseStockToBatch(tx, ctx, detail.ItemId, detail.BatchNumber,
				line.Qty, detail.UnitCost, models.StockDocTypeReturn, saleReturn.ID); err != nil {
				tx.Rollback()
				return nil, err
			}
			cogsReversed = cogsReversed.Add(line.Qty.Mul(detail.UnitCost))
		}

		if err := tx.WithContext(ctx).Model(&detail).
			Update("ReturnedQty", detail.ReturnedQty.Add(line.Qty)).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		lineTotal := line.Qty.Mul(detail.UnitPrice)
		refundAmount = refundAmount.Add(lineTotal)
		returnDetail := models.SaleReturnDetail{
			ReturnId:     saleReturn.ID,
			SaleDetailId: detail.ID,
			ItemId:       detail.ItemId,
			ItemName:     detail.ItemName,
			BatchNumber:  detail.BatchNumber,
			Qty:          line.Qty,
			UnitPrice:    detail.UnitPrice,
			UnitCost:     detail.UnitCost,
			LineTotal:    lineTotal,
		}
		if err := tx.WithContext(ctx).Create(&returnDetail).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Revenue comes back out; inventory comes back in.
	if refundAmount.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:      "SaleReturn",
			CounterpartyId: sale.CustomerId,
			Account:        models.AccountSalesRevenue,
			Description:    "Return " + returnNo + " against " + sale.ReceiptNo,
			Debit:          refundAmount,
			ReceiptNo:      sale.ReceiptNo,
			Reference:      returnNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if cogsReversed.IsPositive() {
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "SaleReturn",
			Account:     models.AccountInventoryAsset,
			Description: "Restock for return " + returnNo,
			Debit:       cogsReversed,
			Reference:   returnNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
		if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
			EntryType:   "SaleReturn",
			Account:     models.AccountCostOfGoodsSold,
			Description: "COGS reversal for return " + returnNo,
			Credit:      cogsReversed,
			Reference:   returnNo,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if refundAmount.IsPositive() {
		if input.RefundMode == models.PaymentModeCredit {
			if err := models.ApplyCustomerCreditNote(tx, ctx, sale.CustomerId, refundAmount, &models.CustomerBalanceChange{
				EntryType:   "CreditNote",
				DocType:     "RET",
				DocNo:       returnNo,
				Description: "Return against " + sale.ReceiptNo,
			}); err != nil {
				tx.Rollback()
				return nil, err
			}
		} else {
			account, err := models.PaymentAccountForMode(input.RefundMode)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			if _, err := models.PostLedgerEntry(tx, ctx, &models.NewLedgerEntry{
				EntryType:      "SaleReturn",
				CounterpartyId: sale.CustomerId,
				Account:        account,
				Description:    "Refund for return " + returnNo,
				Credit:         refundAmount,
				PaymentMethod:  string(input.RefundMode),
				Reference:      returnNo,
			}); err != nil {
				tx.Rollback()
				return nil, err
			}
			if _, err := models.RecordPayment(tx, ctx, &models.NewPayment{
				Direction:  models.PaymentDirectionOut,
				SaleId:     sale.ID,
				CustomerId: sale.CustomerId,
				Mode:       input.RefundMode,
				Amount:     refundAmount,
				Reference:  returnNo,
				Note:       "Refund for return",
			}); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.WithContext(ctx).Model(&saleReturn).Updates(map[string]interface{}{
		"RefundAmount": refundAmount,
		"CogsReversed": cogsReversed,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	models.WriteAuditLog(ctx, "sale.returned", "RET", returnNo,
		fmt.Sprintf("refund %s via %s", refundAmount.String(), input.RefundMode))
	return models.GetSaleReturn(ctx, saleReturn.ID)
}
