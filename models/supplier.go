package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Supplier struct {
	ID        int                `gorm:"primary_key" json:"id"`
	Name      string             `gorm:"size:255;index;not null" json:"name" binding:"required"`
	Phone     string             `gorm:"size:50;index" json:"phone"`
	Address   string             `gorm:"size:255" json:"address"`
	Balance   decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"balance"`
	Status    CounterpartyStatus `gorm:"type:enum('Active','Inactive');default:Active" json:"status"`
	UpdatedBy string             `gorm:"size:100" json:"updated_by"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// SupplierCreditEntry mirrors CustomerCreditEntry for money we owe suppliers.
type SupplierCreditEntry struct {
	ID           int             `gorm:"primary_key" json:"id"`
	SupplierId   int             `gorm:"index;not null" json:"supplier_id"`
	EntryType    string          `gorm:"size:50;not null" json:"entry_type"`
	DocType      string          `gorm:"size:20" json:"doc_type"`
	DocNo        string          `gorm:"size:100;index" json:"doc_no"`
	Delta        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"delta"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	Description  string          `gorm:"size:255" json:"description"`
	EntryBy      string          `gorm:"size:100" json:"entry_by"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSupplier struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (input *NewSupplier) validate(ctx context.Context, id int) error {
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("phone", "invalid phone number")
		}
		if err := utils.ValidateUnique[Supplier](ctx, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	supplier := Supplier{
		Name:      input.Name,
		Phone:     input.Phone,
		Address:   input.Address,
		Status:    CounterpartyStatusActive,
		UpdatedBy: actor,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&supplier).Updates(map[string]interface{}{
		"Name":      input.Name,
		"Phone":     input.Phone,
		"Address":   input.Address,
		"UpdatedBy": actor,
	}).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	return utils.FetchModel[Supplier](ctx, id)
}

func DeleteSupplier(ctx context.Context, id int) error {
	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return err
	}
	if !supplier.Balance.IsZero() {
		return utils.NewValidationError("balance", "supplier still has outstanding payable")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&supplier).
		Update("Status", CounterpartyStatusInactive).Error
}

type SupplierBalanceChange struct {
	EntryType   string
	DocType     string
	DocNo       string
	Description string
}

func applySupplierBalanceDelta(tx *gorm.DB, ctx context.Context, supplierId int, delta decimal.Decimal, change *SupplierBalanceChange) error {
	logger := config.GetLogger()
	actor, _ := utils.GetActorFromContext(ctx)

	var supplier Supplier
	if err := tx.WithContext(ctx).First(&supplier, supplierId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}

	newBalance := supplier.Balance.Add(delta)
	if newBalance.IsNegative() {
		config.LogWarn(logger, "supplier.go", "applySupplierBalanceDelta",
			"balance clamped at zero", map[string]interface{}{
				"supplier_id": supplierId,
				"balance":     supplier.Balance,
				"delta":       delta,
				"doc_no":      change.DocNo,
			})
		delta = supplier.Balance.Neg()
		newBalance = decimal.Zero
	}

	if err := tx.WithContext(ctx).Model(&supplier).
		Update("Balance", newBalance).Error; err != nil {
		return err
	}

	entry := SupplierCreditEntry{
		SupplierId:   supplierId,
		EntryType:    change.EntryType,
		DocType:      change.DocType,
		DocNo:        change.DocNo,
		Delta:        delta,
		BalanceAfter: newBalance,
		Description:  change.Description,
		EntryBy:      actor,
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

// ApplySupplierInvoice raises the payable on a credit purchase.
func ApplySupplierInvoice(tx *gorm.DB, ctx context.Context, supplierId int, amount decimal.Decimal, change *SupplierBalanceChange) error {
	if !amount.IsPositive() {
		return utils.NewValidationError("amount", "invoice amount must be positive")
	}
	return applySupplierBalanceDelta(tx, ctx, supplierId, amount, change)
}

// ApplySupplierPayment lowers the payable when the supplier is paid.
func ApplySupplierPayment(tx *gorm.DB, ctx context.Context, supplierId int, amount decimal.Decimal, change *SupplierBalanceChange) error {
	if !amount.IsPositive() {
		return utils.NewValidationError("amount", "payment amount must be positive")
	}
	return applySupplierBalanceDelta(tx, ctx, supplierId, amount.Neg(), change)
}

// ApplySupplierCreditNote lowers the payable for a purchase reversal or a
// supplier-issued credit.
func ApplySupplierCreditNote(tx *gorm.DB, ctx context.Context, supplierId int, amount decimal.Decimal, change *SupplierBalanceChange) error {
	if !amount.IsPositive() {
		return utils.NewValidationError("amount", "credit note amount must be positive")
	}
	return applySupplierBalanceDelta(tx, ctx, supplierId, amount.Neg(), change)
}

type SupplierStatement struct {
	SupplierId int                   `json:"supplier_id"`
	Name       string                `json:"name"`
	Balance    decimal.Decimal       `json:"balance"`
	Entries    []SupplierCreditEntry `json:"entries"`
}

func GetSupplierStatement(ctx context.Context, supplierId int, fromDate, toDate time.Time) (*SupplierStatement, error) {
	supplier, err := utils.FetchModel[Supplier](ctx, supplierId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var entries []SupplierCreditEntry
	dbCtx := db.WithContext(ctx).Where("supplier_id = ?", supplierId)
	if !fromDate.IsZero() {
		dbCtx = dbCtx.Where("created_at >= ?", fromDate)
	}
	if !toDate.IsZero() {
		dbCtx = dbCtx.Where("created_at <= ?", toDate)
	}
	if err := dbCtx.Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}

	return &SupplierStatement{
		SupplierId: supplier.ID,
		Name:       supplier.Name,
		Balance:    supplier.Balance,
		Entries:    entries,
	}, nil
}
