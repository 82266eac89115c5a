package models

import (
	"context"
	"log"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Account{}, &LedgerEntry{},
		&Item{}, &StockBatch{}, &StockMovement{},
		&Customer{}, &CustomerCreditEntry{},
		&Supplier{}, &SupplierCreditEntry{},
		&SaleTransaction{}, &SaleTransactionDetail{},
		&SaleReturn{}, &SaleReturnDetail{},
		&Purchase{}, &PurchaseDetail{},
		&Quotation{}, &QuotationDetail{},
		&Payment{},
		&NumberSeries{},
		&IdempotencyKey{},
		&AuditLog{},
	)
	if err != nil {
		log.Fatal(err)
	}

	if err := seedAccounts(); err != nil {
		log.Fatal(err)
	}
}

// seedAccounts inserts the canonical chart once; reruns are no-ops.
func seedAccounts() error {
	db := config.GetDB()
	ctx := context.Background()

	for name, accountType := range systemAccounts {
		var count int64
		if err := db.WithContext(ctx).Model(&Account{}).
			Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		account := Account{Name: name, AccountType: accountType}
		if err := db.WithContext(ctx).Create(&account).Error; err != nil {
			return err
		}
	}
	return nil
}
