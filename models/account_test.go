package models

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/retailops_backend/utils"
)

func TestCanonicalAccountNameResolvesAliases(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"cash", AccountCash},
		{"  Petty Cash ", AccountCash},
		{"MPESA", AccountMobileMoney},
		{"m-pesa", AccountMobileMoney},
		{"momo", AccountMobileMoney},
		{"Bank Transfer", AccountBank},
		{"payables", AccountAccountsPayable},
		{"stock", AccountInventoryAsset},
		{"COGS", AccountCostOfGoodsSold},
		{"Sales Revenue", AccountSalesRevenue},
		{"delivery", AccountDeliveryIncome},
	}
	for _, tc := range cases {
		got, err := CanonicalAccountName(tc.in)
		if err != nil {
			t.Errorf("CanonicalAccountName(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("CanonicalAccountName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalAccountNameRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "   ", "slush fund", "cash2"} {
		if _, err := CanonicalAccountName(in); !errors.Is(err, utils.ErrUnknownAccount) {
			t.Errorf("CanonicalAccountName(%q) = %v, want ErrUnknownAccount", in, err)
		}
	}
}

func TestAccountTypeOf(t *testing.T) {
	cases := map[string]AccountType{
		AccountCash:            AccountTypeAsset,
		AccountAccountsPayable: AccountTypeLiability,
		AccountSalesRevenue:    AccountTypeRevenue,
		AccountCostOfGoodsSold: AccountTypeExpense,
	}
	for name, want := range cases {
		got, err := AccountTypeOf(name)
		if err != nil {
			t.Errorf("AccountTypeOf(%q) error: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("AccountTypeOf(%q) = %q, want %q", name, got, want)
		}
	}
	if _, err := AccountTypeOf("cash"); !errors.Is(err, utils.ErrUnknownAccount) {
		t.Error("AccountTypeOf must require a canonical name, not an alias")
	}
}

func TestPaymentAccountForMode(t *testing.T) {
	if got, _ := PaymentAccountForMode(PaymentModeCash); got != AccountCash {
		t.Errorf("cash mode landed in %q", got)
	}
	if got, _ := PaymentAccountForMode(PaymentModeMobileMoney); got != AccountMobileMoney {
		t.Errorf("mobile money mode landed in %q", got)
	}
	if got, _ := PaymentAccountForMode(PaymentModeBank); got != AccountBank {
		t.Errorf("bank mode landed in %q", got)
	}
	for _, mode := range []PaymentMode{PaymentModeCredit, PaymentModeSplit} {
		if _, err := PaymentAccountForMode(mode); err == nil {
			t.Errorf("mode %s must not map to a single account", mode)
		}
	}
}
