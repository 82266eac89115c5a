package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/utils"
)

type Account struct {
	ID          int         `gorm:"primary_key" json:"id"`
	Name        string      `gorm:"size:100;uniqueIndex;not null" json:"name"`
	AccountType AccountType `gorm:"type:enum('Asset','Liability','Revenue','Expense');not null" json:"account_type"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	AccountCash            = "Cash"
	AccountMobileMoney     = "Mobile Money"
	AccountBank            = "Bank"
	AccountAccountsPayable = "Accounts Payable"
	AccountInventoryAsset  = "Inventory Asset"
	AccountSalesRevenue    = "Sales Revenue"
	AccountCostOfGoodsSold = "Cost of Goods Sold"
	AccountDeliveryIncome  = "Delivery Income"
)

// systemAccounts is the seeded chart. Ledger entries only ever reference these
// canonical names.
var systemAccounts = map[string]AccountType{
	AccountCash:            AccountTypeAsset,
	AccountMobileMoney:     AccountTypeAsset,
	AccountBank:            AccountTypeAsset,
	AccountAccountsPayable: AccountTypeLiability,
	AccountInventoryAsset:  AccountTypeAsset,
	AccountSalesRevenue:    AccountTypeRevenue,
	AccountCostOfGoodsSold: AccountTypeExpense,
	AccountDeliveryIncome:  AccountTypeRevenue,
}

// accountAliases maps the spellings that show up at the edges (UI dropdowns,
// imported sheets, older receipts) onto canonical names. Keys are lowercased.
var accountAliases = map[string]string{
	"cash":               AccountCash,
	"cash in hand":       AccountCash,
	"petty cash":         AccountCash,
	"mobile money":       AccountMobileMoney,
	"mobile-money":       AccountMobileMoney,
	"mobilemoney":        AccountMobileMoney,
	"mpesa":              AccountMobileMoney,
	"m-pesa":             AccountMobileMoney,
	"momo":               AccountMobileMoney,
	"bank":               AccountBank,
	"bank account":       AccountBank,
	"bank transfer":      AccountBank,
	"accounts payable":   AccountAccountsPayable,
	"payables":           AccountAccountsPayable,
	"ap":                 AccountAccountsPayable,
	"inventory":          AccountInventoryAsset,
	"inventory asset":    AccountInventoryAsset,
	"stock":              AccountInventoryAsset,
	"sales":              AccountSalesRevenue,
	"sales revenue":      AccountSalesRevenue,
	"revenue":            AccountSalesRevenue,
	"cogs":               AccountCostOfGoodsSold,
	"cost of goods sold": AccountCostOfGoodsSold,
	"delivery":           AccountDeliveryIncome,
	"delivery income":    AccountDeliveryIncome,
}

// CanonicalAccountName resolves an alias to the canonical ledger account name.
// Every ledger-facing boundary must go through here before posting or querying.
func CanonicalAccountName(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", utils.ErrUnknownAccount
	}
	if canonical, ok := accountAliases[key]; ok {
		return canonical, nil
	}
	return "", utils.ErrUnknownAccount
}

// AccountTypeOf returns the type of a canonical account name.
func AccountTypeOf(canonicalName string) (AccountType, error) {
	t, ok := systemAccounts[canonicalName]
	if !ok {
		return "", utils.ErrUnknownAccount
	}
	return t, nil
}

// PaymentAccountForMode maps a direct payment mode onto the asset account the
// money lands in. Split and Credit have no single account.
func PaymentAccountForMode(mode PaymentMode) (string, error) {
	switch mode {
	case PaymentModeCash:
		return AccountCash, nil
	case PaymentModeMobileMoney:
		return AccountMobileMoney, nil
	case PaymentModeBank:
		return AccountBank, nil
	}
	return "", utils.ErrUnknownAccount
}

func GetAccounts(ctx context.Context) ([]*Account, error) {
	return utils.FetchAllModels[Account](ctx)
}
