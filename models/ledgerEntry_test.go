package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignedBalanceConventions(t *testing.T) {
	debit := decimal.NewFromInt(300)
	credit := decimal.NewFromInt(100)

	// Asset and expense accounts grow with debits.
	for _, at := range []AccountType{AccountTypeAsset, AccountTypeExpense} {
		got := SignedBalance(at, debit, credit)
		if !got.Equal(decimal.NewFromInt(200)) {
			t.Errorf("%s balance = %s, want 200", at, got)
		}
	}
	// Liability and revenue accounts grow with credits.
	for _, at := range []AccountType{AccountTypeLiability, AccountTypeRevenue} {
		got := SignedBalance(at, debit, credit)
		if !got.Equal(decimal.NewFromInt(-200)) {
			t.Errorf("%s balance = %s, want -200", at, got)
		}
	}
}
