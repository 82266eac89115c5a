package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"github.com/shopspring/decimal"
)

// Quotation is a priced offer that reserves no stock. Converting it creates a
// sale at the quoted prices and stamps the backref, after which the quotation
// can never convert again.
type Quotation struct {
	ID                int               `gorm:"primary_key" json:"id"`
	QuotationNo       string            `gorm:"size:100;uniqueIndex;not null" json:"quotation_no"`
	CustomerId        int               `gorm:"index;default:0" json:"customer_id"`
	CustomerName      string            `gorm:"size:255" json:"customer_name"`
	Subtotal          decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	DiscountAmount    decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	DeliveryCharge    decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"delivery_charge"`
	GrandTotal        decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	Status            QuotationStatus   `gorm:"type:enum('Pending','Accepted','Rejected','Converted','Expired');default:Pending" json:"status"`
	ValidUntil        *time.Time        `json:"valid_until"`
	SaleTransactionId int               `gorm:"index;default:0" json:"sale_transaction_id"`
	Note              string            `gorm:"size:255" json:"note"`
	QuotedBy          string            `gorm:"size:100" json:"quoted_by"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	Details           []QuotationDetail `gorm:"foreignKey:QuotationId" json:"details"`
}

type QuotationDetail struct {
	ID          int             `gorm:"primary_key" json:"id"`
	QuotationId int             `gorm:"index;not null" json:"quotation_id"`
	ItemId      int             `gorm:"index;not null" json:"item_id"`
	ItemName    string          `gorm:"size:255" json:"item_name"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewQuotationItem struct {
	ItemId    int             `json:"item_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type NewQuotation struct {
	CustomerId     int                `json:"customer_id"`
	Items          []NewQuotationItem `json:"items" binding:"required"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	DeliveryCharge decimal.Decimal    `json:"delivery_charge"`
	ValidUntil     *time.Time         `json:"valid_until"`
	Note           string             `json:"note"`
}

func (input *NewQuotation) validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return utils.NewValidationError("items", "quotation must contain at least one item")
	}
	for i, line := range input.Items {
		if !line.Qty.IsPositive() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].qty", i), "quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "unit price must not be negative")
		}
	}
	if input.DiscountAmount.IsNegative() {
		return utils.NewValidationError("discount_amount", "must not be negative")
	}
	if input.DeliveryCharge.IsNegative() {
		return utils.NewValidationError("delivery_charge", "must not be negative")
	}
	return nil
}

func CreateQuotation(ctx context.Context, input *NewQuotation) (*Quotation, error) {
	actor, _ := utils.GetActorFromContext(ctx)

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	customerName := ""
	if input.CustomerId != 0 {
		customer, err := utils.FetchModel[Customer](ctx, input.CustomerId)
		if err != nil {
			return nil, err
		}
		customerName = customer.Name
	}

	quotationNo, err := NextDocumentNumber(ctx, SeriesQuotation, SeriesQuotation)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	details := make([]QuotationDetail, 0, len(input.Items))
	for _, line := range input.Items {
		item, err := utils.FetchModel[Item](ctx, line.ItemId)
		if err != nil {
			return nil, err
		}
		unitPrice := line.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = item.SellingPrice
		}
		lineTotal := line.Qty.Mul(unitPrice)
		subtotal = subtotal.Add(lineTotal)
		details = append(details, QuotationDetail{
			ItemId:    item.ID,
			ItemName:  item.Name,
			Qty:       line.Qty,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
	}

	quotation := Quotation{
		QuotationNo:    quotationNo,
		CustomerId:     input.CustomerId,
		CustomerName:   customerName,
		Subtotal:       subtotal,
		DiscountAmount: input.DiscountAmount,
		DeliveryCharge: input.DeliveryCharge,
		GrandTotal:     subtotal.Sub(input.DiscountAmount).Add(input.DeliveryCharge),
		Status:         QuotationStatusPending,
		ValidUntil:     input.ValidUntil,
		Note:           input.Note,
		QuotedBy:       actor,
		Details:        details,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&quotation).Error; err != nil {
		return nil, err
	}
	return &quotation, nil
}

func GetQuotation(ctx context.Context, id int) (*Quotation, error) {
	return utils.FetchModel[Quotation](ctx, id, "Details")
}

// UpdateQuotationStatus moves a pending quotation to Accepted, Rejected or
// Expired. Converted is set only by the conversion flow.
func UpdateQuotationStatus(ctx context.Context, id int, status QuotationStatus) (*Quotation, error) {
	quotation, err := utils.FetchModel[Quotation](ctx, id)
	if err != nil {
		return nil, err
	}
	if quotation.Status == QuotationStatusConverted {
		return nil, utils.ErrAlreadyConverted
	}
	switch status {
	case QuotationStatusAccepted, QuotationStatusRejected, QuotationStatusExpired:
	default:
		return nil, utils.NewValidationError("status", "status must be Accepted, Rejected or Expired")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&quotation).
		Update("Status", status).Error; err != nil {
		return nil, err
	}
	return quotation, nil
}
