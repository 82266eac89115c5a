package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Customer struct {
	ID            int                `gorm:"primary_key" json:"id"`
	Name          string             `gorm:"size:255;index;not null" json:"name" binding:"required"`
	Phone         string             `gorm:"size:50;index" json:"phone"`
	Address       string             `gorm:"size:255" json:"address"`
	Balance       decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"balance"`
	LoyaltyPoints int64              `gorm:"default:0" json:"loyalty_points"`
	TotalSales    int                `gorm:"default:0" json:"total_sales"`
	TotalSpent    decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_spent"`
	Status        CounterpartyStatus `gorm:"type:enum('Active','Inactive');default:Active" json:"status"`
	UpdatedBy     string             `gorm:"size:100" json:"updated_by"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// CustomerCreditEntry is the append-only trail behind Customer.Balance. The
// cached balance is always the BalanceAfter of the latest entry.
type CustomerCreditEntry struct {
	ID           int             `gorm:"primary_key" json:"id"`
	CustomerId   int             `gorm:"index;not null" json:"customer_id"`
	EntryType    string          `gorm:"size:50;not null" json:"entry_type"`
	DocType      string          `gorm:"size:20" json:"doc_type"`
	DocNo        string          `gorm:"size:100;index" json:"doc_no"`
	Delta        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"delta"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	Description  string          `gorm:"size:255" json:"description"`
	EntryBy      string          `gorm:"size:100" json:"entry_by"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, id int) error {
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("phone", "invalid phone number")
		}
		if err := utils.ValidateUnique[Customer](ctx, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		Name:      input.Name,
		Phone:     input.Phone,
		Address:   input.Address,
		Status:    CounterpartyStatusActive,
		UpdatedBy: actor,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":      input.Name,
		"Phone":     input.Phone,
		"Address":   input.Address,
		"UpdatedBy": actor,
	}).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return utils.FetchModel[Customer](ctx, id)
}

// DeleteCustomer deactivates a customer. Refused while credit is outstanding,
// otherwise the receivable would be orphaned.
func DeleteCustomer(ctx context.Context, id int) error {
	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return err
	}
	if !customer.Balance.IsZero() {
		return utils.NewValidationError("balance", "customer still has outstanding credit")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&customer).
		Update("Status", CounterpartyStatusInactive).Error
}

type CustomerBalanceChange struct {
	EntryType   string
	DocType     string
	DocNo       string
	Description string
}

// applyCustomerBalanceDelta moves the cached balance and appends the credit
// entry inside the caller's transaction. Negative deltas clamp at zero with a
// warning rather than leaving a negative receivable.
func applyCustomerBalanceDelta(tx *gorm.DB, ctx context.Context, customerId int, delta decimal.Decimal, change *CustomerBalanceChange) error {
	logger := config.GetLogger()
	actor, _ := utils.GetActorFromContext(ctx)

	var customer Customer
	if err := tx.WithContext(ctx).First(&customer, customerId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}

	newBalance := customer.Balance.Add(delta)
	if newBalance.IsNegative() {
		config.LogWarn(logger, "customer.go", "applyCustomerBalanceDelta",
			"balance clamped at zero", map[string]interface{}{
				"customer_id": customerId,
				"balance":     customer.Balance,
				"delta":       delta,
				"doc_no":      change.DocNo,
			})
		delta = customer.Balance.Neg()
		newBalance = decimal.Zero
	}

	if err := tx.WithContext(ctx).Model(&customer).
		Update("Balance", newBalance).Error; err != nil {
		return err
	}

	entry := CustomerCreditEntry{
		CustomerId:   customerId,
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

// ApplyCustomerInvoice raises the customer's outstanding credit by amount.
func ApplyCustomerInvoice(tx *gorm.DB, ctx context.Context, customerId int, amount decimal.Decimal, change *CustomerBalanceChange) error {
	if !amount.IsPositive() {
		return utils.NewValidationError("amount", "invoice amount must be positive")
	}
	return applyCustomerBalanceDelta(tx, ctx, customerId, amount, change)
}

// ApplyCustomerPayment lowers the customer's outstanding credit by amount.
func ApplyCustomerPayment(tx *gorm.DB, ctx context.Context, customerId int, amount decimal.Decimal, change *CustomerBalanceChange) error {
	if !amount.IsPositive() {
		return utils.NewValidationError("amount", "payment amount must be positive")
	}
	return applyCustomerBalanceDelta(tx, ctx, customerId, amount.Neg(), change)
}

// ApplyCustomerCreditNote lowers outstanding credit for a return or reversal.
func ApplyCustomerCreditNote(tx *gorm.DB, ctx context.Context, customerId int, amount decimal.Decimal, change *CustomerBalanceChange) error {
	if !amount.IsPositive() {
		return utils.NewValidationError("amount", "credit note amount must be positive")
	}
	return applyCustomerBalanceDelta(tx, ctx, customerId, amount.Neg(), change)
}

// AdjustLoyaltyPoints moves the customer's loyalty balance by delta, floored
// at zero when a reversal would overdraw it.
func AdjustLoyaltyPoints(tx *gorm.DB, ctx context.Context, customerId int, delta int64) error {
	var customer Customer
	if err := tx.WithContext(ctx).First(&customer, customerId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	points := customer.LoyaltyPoints + delta
	if points < 0 {
		config.LogWarn(config.GetLogger(), "customer.go", "AdjustLoyaltyPoints",
			"loyalty points clamped at zero", map[string]interface{}{
				"customer_id": customerId,
				"points":      customer.LoyaltyPoints,
				"delta":       delta,
			})
		points = 0
	}
	return tx.WithContext(ctx).Model(&customer).
		Update("LoyaltyPoints", points).Error
}

// RecordCustomerSale bumps the lifetime purchase counters on a completed sale.
func RecordCustomerSale(tx *gorm.DB, ctx context.Context, customerId int, amount decimal.Decimal) error {
	var customer Customer
	if err := tx.WithContext(ctx).First(&customer, customerId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	return tx.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"TotalSales": customer.TotalSales + 1,
		"TotalSpent": customer.TotalSpent.Add(amount),
	}).Error
}

// ReverseCustomerSale unwinds RecordCustomerSale when a sale is cancelled.
func ReverseCustomerSale(tx *gorm.DB, ctx context.Context, customerId int, amount decimal.Decimal) error {
	var customer Customer
	if err := tx.WithContext(ctx).First(&customer, customerId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	totalSales := customer.TotalSales - 1
	if totalSales < 0 {
		totalSales = 0
	}
	totalSpent := customer.TotalSpent.Sub(amount)
	if totalSpent.IsNegative() {
		totalSpent = decimal.Zero
	}
	return tx.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"TotalSales": totalSales,
		"TotalSpent": totalSpent,
	}).Error
}

type CustomerStatement struct {
	CustomerId    int                   `json:"customer_id"`
	Name          string                `json:"name"`
	Balance       decimal.Decimal       `json:"balance"`
	LoyaltyPoints int64                 `json:"loyalty_points"`
	TotalSales    int                   `json:"total_sales"`
	TotalSpent    decimal.Decimal       `json:"total_spent"`
	Entries       []CustomerCreditEntry `json:"entries"`
}

// GetCustomerStatement returns the customer's credit trail with running
// balances, newest last.
func GetCustomerStatement(ctx context.Context, customerId int, fromDate, toDate time.Time) (*CustomerStatement, error) {
	customer, err := utils.FetchModel[Customer](ctx, customerId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var entries []CustomerCreditEntry
	dbCtx := db.WithContext(ctx).Where("customer_id = ?", customerId)
	if !fromDate.IsZero() {
		dbCtx = dbCtx.Where("created_at >= ?", fromDate)
	}
	if !toDate.IsZero() {
		dbCtx = dbCtx.Where("created_at <= ?", toDate)
	}
	if err := dbCtx.Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}

	return &CustomerStatement{
		CustomerId:    customer.ID,
		Name:          customer.Name,
		Balance:       customer.Balance,
		LoyaltyPoints: customer.LoyaltyPoints,
		TotalSales:    customer.TotalSales,
		TotalSpent:    customer.TotalSpent,
		Entries:       entries,
	}, nil
}
