package models

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

func TestGrandTotalOf(t *testing.T) {
	input := NewSaleTransaction{
		Items: []NewSaleItem{
			{ItemId: 1, Qty: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(150)},
			{ItemId: 2, Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(700)},
		},
		DiscountAmount: decimal.NewFromInt(50),
		DeliveryCharge: decimal.NewFromInt(30),
	}
	subtotal, grandTotal := input.GrandTotalOf()
	if !subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("subtotal = %s, want 1000", subtotal)
	}
	if !grandTotal.Equal(decimal.NewFromInt(980)) {
		t.Errorf("grand total = %s, want 980", grandTotal)
	}
}

func TestFulfillmentStatusOf(t *testing.T) {
	total := decimal.NewFromInt(1000)

	if got := FulfillmentStatusOf(total, total); got != "ReadyForPickup" {
		t.Errorf("fully paid = %q", got)
	}
	if got := FulfillmentStatusOf(total, decimal.NewFromInt(1200)); got != "ReadyForPickup" {
		t.Errorf("overpaid = %q", got)
	}
	if got := FulfillmentStatusOf(total, decimal.NewFromInt(600)); got != "PendingRelease (400 due)" {
		t.Errorf("partially paid = %q", got)
	}
	if got := FulfillmentStatusOf(total, decimal.Zero); got != "PendingRelease (1000 due)" {
		t.Errorf("unpaid = %q", got)
	}
}

func TestNewSaleTransactionValidate(t *testing.T) {
	ctx := context.Background()
	base := func() *NewSaleTransaction {
		return &NewSaleTransaction{
			PaymentMode: PaymentModeCash,
			Items: []NewSaleItem{
				{ItemId: 1, Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
			},
		}
	}

	if err := base().Validate(ctx); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	empty := base()
	empty.Items = nil
	if err := empty.Validate(ctx); err == nil {
		t.Error("empty item list accepted")
	}

	negQty := base()
	negQty.Items[0].Qty = decimal.NewFromInt(-1)
	if err := negQty.Validate(ctx); err == nil {
		t.Error("negative quantity accepted")
	}

	negPaid := base()
	negPaid.PaymentMode = PaymentModeCredit
	negPaid.PaidAmount = decimal.NewFromInt(-100)
	if err := negPaid.Validate(ctx); err == nil {
		t.Error("negative paid amount accepted")
	}

	badMode := base()
	badMode.PaymentMode = "Barter"
	if err := badMode.Validate(ctx); err == nil {
		t.Error("unknown payment mode accepted")
	}

	emptySplit := base()
	emptySplit.PaymentMode = PaymentModeSplit
	if err := emptySplit.Validate(ctx); err == nil {
		t.Error("split sale without parts accepted")
	}

	nestedSplit := base()
	nestedSplit.PaymentMode = PaymentModeSplit
	nestedSplit.SplitPayments = []SplitPayment{{Mode: PaymentModeSplit, Amount: decimal.NewFromInt(100)}}
	err := nestedSplit.Validate(ctx)
	if err == nil {
		t.Error("nested split accepted")
	} else if !utils.IsBusinessError(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}
