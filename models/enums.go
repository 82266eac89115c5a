package models

type ItemType string

const (
	ItemTypeStock   ItemType = "S"
	ItemTypeService ItemType = "M" // manual/service item, never touches batches
)

type PaymentMode string

const (
	PaymentModeCash        PaymentMode = "Cash"
	PaymentModeMobileMoney PaymentMode = "MobileMoney"
	PaymentModeBank        PaymentMode = "Bank"
	PaymentModeCredit      PaymentMode = "Credit"
	PaymentModeSplit       PaymentMode = "Split"
)

type SaleStatus string

const (
	SaleStatusActive    SaleStatus = "Active"
	SaleStatusCancelled SaleStatus = "Cancelled"
)

type QuotationStatus string

const (
	QuotationStatusPending   QuotationStatus = "Pending"
	QuotationStatusAccepted  QuotationStatus = "Accepted"
	QuotationStatusRejected  QuotationStatus = "Rejected"
	QuotationStatusConverted QuotationStatus = "Converted"
	QuotationStatusExpired   QuotationStatus = "Expired"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
	AccountTypeRevenue   AccountType = "Revenue"
	AccountTypeExpense   AccountType = "Expense"
)

type PaymentDirection string

const (
	PaymentDirectionIn  PaymentDirection = "IN"
	PaymentDirectionOut PaymentDirection = "OUT"
)

// StockDocType classifies stock movements by originating document.
type StockDocType string

const (
	StockDocTypeSale     StockDocType = "SALE"
	StockDocTypePurchase StockDocType = "PUR"
	StockDocTypeReturn   StockDocType = "RET"
	StockDocTypeCancel   StockDocType = "CXL"
	StockDocTypeOpening  StockDocType = "OPN"
)

type StockStatus string

const (
	StockStatusOut    StockStatus = "Out of Stock"
	StockStatusLow    StockStatus = "Low Stock"
	StockStatusMedium StockStatus = "Medium Stock"
	StockStatusIn     StockStatus = "In Stock"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

type CounterpartyStatus string

const (
	CounterpartyStatusActive   CounterpartyStatus = "Active"
	CounterpartyStatusInactive CounterpartyStatus = "Inactive"
)
