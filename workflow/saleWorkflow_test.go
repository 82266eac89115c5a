package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

func TestNormalizePaymentsDirectMode(t *testing.T) {
	input := &models.NewSaleTransaction{PaymentMode: models.PaymentModeCash}
	total := decimal.NewFromInt(500)

	parts, credit, err := normalizePayments(input, total)
	if err != nil {
		t.Fatalf("normalizePayments: %v", err)
	}
	if !credit.IsZero() {
		t.Errorf("credit = %s, want 0", credit)
	}
	if len(parts) != 1 || parts[0].Mode != models.PaymentModeCash || !parts[0].Amount.Equal(total) {
		t.Errorf("parts = %+v, want one cash part of 500", parts)
	}
}

func TestNormalizePaymentsDirectModePartial(t *testing.T) {
	input := &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeCash,
		PaidAmount:  decimal.NewFromInt(50),
	}
	parts, credit, err := normalizePayments(input, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("normalizePayments: %v", err)
	}
	if len(parts) != 1 || !parts[0].Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("parts = %+v, want one cash part of 50", parts)
	}
	if !credit.Equal(decimal.NewFromInt(50)) {
		t.Errorf("credit = %s, want the unpaid 50", credit)
	}
}

func TestNormalizePaymentsDirectModeOverpaid(t *testing.T) {
	input := &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeCash,
		PaidAmount:  decimal.NewFromInt(150),
	}
	if _, _, err := normalizePayments(input, decimal.NewFromInt(100)); err == nil {
		t.Error("paid amount above grand total accepted")
	}
}

func TestNormalizePaymentsNegativePaidAmount(t *testing.T) {
	input := &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeCredit,
		PaidAmount:  decimal.NewFromInt(-100),
	}
	_, credit, err := normalizePayments(input, decimal.NewFromInt(500))
	if err == nil {
		t.Fatalf("negative paid amount accepted, credit = %s", credit)
	}
	if !utils.IsBusinessError(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestNormalizePaymentsCreditWithDownPayment(t *testing.T) {
	input := &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeCredit,
		PaidAmount:  decimal.NewFromInt(100),
	}
	parts, credit, err := normalizePayments(input, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("normalizePayments: %v", err)
	}
	if !credit.Equal(decimal.NewFromInt(400)) {
		t.Errorf("credit = %s, want 400", credit)
	}
	if len(parts) != 1 || !parts[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("parts = %+v, want one down payment of 100", parts)
	}
}

func TestNormalizePaymentsFullCredit(t *testing.T) {
	input := &models.NewSaleTransaction{PaymentMode: models.PaymentModeCredit}
	parts, credit, err := normalizePayments(input, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("normalizePayments: %v", err)
	}
	if len(parts) != 0 {
		t.Errorf("parts = %+v, want none", parts)
	}
	if !credit.Equal(decimal.NewFromInt(500)) {
		t.Errorf("credit = %s, want 500", credit)
	}
}

func TestNormalizePaymentsDownPaymentExceedsTotal(t *testing.T) {
	input := &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeCredit,
		PaidAmount:  decimal.NewFromInt(600),
	}
	if _, _, err := normalizePayments(input, decimal.NewFromInt(500)); err == nil {
		t.Error("down payment above grand total accepted")
	}
}

func TestNormalizePaymentsSplit(t *testing.T) {
	input := &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeSplit,
		SplitPayments: []models.SplitPayment{
			{Mode: models.PaymentModeCash, Amount: decimal.NewFromInt(200)},
			{Mode: models.PaymentModeMobileMoney, Amount: decimal.NewFromInt(100)},
			{Mode: models.PaymentModeCredit, Amount: decimal.NewFromInt(200)},
		},
	}
	parts, credit, err := normalizePayments(input, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("normalizePayments: %v", err)
	}
	if !credit.Equal(decimal.NewFromInt(200)) {
		t.Errorf("credit = %s, want 200", credit)
	}
	if len(parts) != 2 {
		t.Errorf("parts = %+v, want cash and mobile money only", parts)
	}
}

func TestNormalizePaymentsSplitSumMismatch(t *testing.T) {
	input := &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeSplit,
		SplitPayments: []models.SplitPayment{
			{Mode: models.PaymentModeCash, Amount: decimal.NewFromInt(200)},
		},
	}
	_, _, err := normalizePayments(input, decimal.NewFromInt(500))
	if err == nil {
		t.Fatal("split parts not summing to grand total accepted")
	}
	if !utils.IsBusinessError(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}
