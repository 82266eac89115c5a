package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is an immutable posting against one canonical account. Exactly
// one of Debit/Credit is non-zero. Corrections are new offsetting entries,
// never edits.
type LedgerEntry struct {
	ID             int             `gorm:"primary_key" json:"id"`
	EntryDate      time.Time       `gorm:"index;not null" json:"entry_date"`
	EntryType      string          `gorm:"size:50;index" json:"entry_type"`
	CounterpartyId int             `gorm:"index" json:"counterparty_id"`
	Category       string          `gorm:"size:100" json:"category"`
	Account        string          `gorm:"size:100;index;not null" json:"account"`
	Description    string          `gorm:"size:255" json:"description"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Debit          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	PaymentMethod  string          `gorm:"size:50" json:"payment_method"`
	Payee          string          `gorm:"size:255" json:"payee"`
	ReceiptNo      string          `gorm:"size:100;index" json:"receipt_no"`
	Reference      string          `gorm:"size:100;index" json:"reference"`
	Status         string          `gorm:"size:50;default:Posted" json:"status"`
	ApprovedBy     string          `gorm:"size:100" json:"approved_by"`
	EntryBy        string          `gorm:"size:100" json:"entry_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewLedgerEntry struct {
	EntryDate      time.Time
	EntryType      string
	CounterpartyId int
	Category       string
	Account        string // alias accepted, canonicalized before posting
	Description    string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	PaymentMethod  string
	Payee          string
	ReceiptNo      string
	Reference      string
}

// PostLedgerEntry appends one entry inside the caller's transaction.
func PostLedgerEntry(tx *gorm.DB, ctx context.Context, input *NewLedgerEntry) (*LedgerEntry, error) {
	account, err := CanonicalAccountName(input.Account)
	if err != nil {
		return nil, err
	}
	if input.Debit.IsZero() == input.Credit.IsZero() {
		return nil, utils.NewValidationError("amount", "exactly one of debit or credit must have value")
	}
	if input.Debit.IsNegative() || input.Credit.IsNegative() {
		return nil, utils.NewValidationError("amount", "debit and credit must not be negative")
	}

	actor, _ := utils.GetActorFromContext(ctx)
	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now().UTC()
	}
	amount := input.Debit
	if amount.IsZero() {
		amount = input.Credit
	}

	entry := LedgerEntry{
		EntryDate:      entryDate,
		EntryType:      input.EntryType,
		CounterpartyId: input.CounterpartyId,
		Category:       input.Category,
		Account:        account,
		Description:    input.Description,
		Amount:         amount,
		Debit:          input.Debit,
		Credit:         input.Credit,
		PaymentMethod:  input.PaymentMethod,
		Payee:          input.Payee,
		ReceiptNo:      input.ReceiptNo,
		Reference:      input.Reference,
		EntryBy:        actor,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// SignedBalance applies the account-type sign convention to replayed sums:
// Asset/Expense grow with debits, Liability/Revenue grow with credits.
func SignedBalance(accountType AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	switch accountType {
	case AccountTypeLiability, AccountTypeRevenue:
		return credit.Sub(debit)
	default:
		return debit.Sub(credit)
	}
}

// AccountBalance replays all entries for the account up to asOf (zero time =
// now) and returns the signed balance.
func AccountBalance(ctx context.Context, accountName string, asOf time.Time) (decimal.Decimal, error) {
	account, err := CanonicalAccountName(accountName)
	if err != nil {
		return decimal.Zero, err
	}
	accountType, err := AccountTypeOf(account)
	if err != nil {
		return decimal.Zero, err
	}

	db := config.GetDB()
	type sums struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	var s sums
	dbCtx := db.WithContext(ctx).Model(&LedgerEntry{}).
		Select("COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit").
		Where("account = ?", account)
	if !asOf.IsZero() {
		dbCtx = dbCtx.Where("entry_date <= ?", asOf)
	}
	if err := dbCtx.Scan(&s).Error; err != nil {
		return decimal.Zero, err
	}
	return SignedBalance(accountType, s.Debit, s.Credit), nil
}

// TransferBetweenAccounts posts the outbound and inbound legs under a shared
// reference id. Both legs commit or neither does.
func TransferBetweenAccounts(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal, description string) (string, error) {
	from, err := CanonicalAccountName(fromAccount)
	if err != nil {
		return "", err
	}
	to, err := CanonicalAccountName(toAccount)
	if err != nil {
		return "", err
	}
	if from == to {
		return "", utils.NewValidationError("account", "cannot transfer an account to itself")
	}
	if !amount.IsPositive() {
		return "", utils.NewValidationError("amount", "transfer amount must be positive")
	}

	reference := uuid.NewString()
	entryDate := time.Now().UTC()

	db := config.GetDB()
	tx := db.Begin()
	if _, err := PostLedgerEntry(tx, ctx, &NewLedgerEntry{
		EntryDate:   entryDate,
		EntryType:   "Transfer",
		Account:     from,
		Description: description,
		Credit:      amount,
		Reference:   reference,
	}); err != nil {
		tx.Rollback()
		return "", err
	}
	if _, err := PostLedgerEntry(tx, ctx, &NewLedgerEntry{
		EntryDate:   entryDate,
		EntryType:   "Transfer",
		Account:     to,
		Description: description,
		Debit:       amount,
		Reference:   reference,
	}); err != nil {
		tx.Rollback()
		return "", err
	}
	if err := tx.Commit().Error; err != nil {
		return "", err
	}
	return reference, nil
}

type StatementLine struct {
	EntryDate   time.Time       `json:"entry_date"`
	EntryType   string          `json:"entry_type"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

type AccountStatement struct {
	Account        string          `json:"account"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []StatementLine `json:"lines"`
}

// GetAccountStatement replays entries in [fromDate, toDate] with a running
// balance seeded from the balance just before fromDate.
func GetAccountStatement(ctx context.Context, accountName string, fromDate, toDate time.Time) (*AccountStatement, error) {
	account, err := CanonicalAccountName(accountName)
	if err != nil {
		return nil, err
	}
	accountType, err := AccountTypeOf(account)
	if err != nil {
		return nil, err
	}

	opening := decimal.Zero
	if !fromDate.IsZero() {
		opening, err = AccountBalance(ctx, account, fromDate.Add(-time.Nanosecond))
		if err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	var entries []LedgerEntry
	dbCtx := db.WithContext(ctx).Where("account = ?", account)
	if !fromDate.IsZero() {
		dbCtx = dbCtx.Where("entry_date >= ?", fromDate)
	}
	if !toDate.IsZero() {
		dbCtx = dbCtx.Where("entry_date <= ?", toDate)
	}
	if err := dbCtx.Order("entry_date, id").Find(&entries).Error; err != nil {
		return nil, err
	}

	statement := AccountStatement{
		Account:        account,
		OpeningBalance: opening,
		ClosingBalance: opening,
		Lines:          make([]StatementLine, 0, len(entries)),
	}
	running := opening
	for _, entry := range entries {
		running = running.Add(SignedBalance(accountType, entry.Debit, entry.Credit))
		statement.Lines = append(statement.Lines, StatementLine{
			EntryDate:   entry.EntryDate,
			EntryType:   entry.EntryType,
			Description: entry.Description,
			Reference:   entry.Reference,
			Debit:       entry.Debit,
			Credit:      entry.Credit,
			Balance:     running,
		})
	}
	statement.ClosingBalance = running
	return &statement, nil
}
