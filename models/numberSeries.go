package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"gorm.io/gorm"
)

// NumberSeries persists the high-water mark of one document sequence.
// Allocation is gap-tolerant: a number burned by a failed transaction is never
// reissued, duplicates are never allowed.
type NumberSeries struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Name         string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Prefix       string    `gorm:"size:10" json:"prefix"`
	CurrentValue int64     `gorm:"not null;default:0" json:"current_value"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SeriesPolicy controls how a sequence renders. Padded sequences format as
// PREFIX-001; flat sequences continue a bare counter from Baseline to match
// the shop's pre-existing paper numbering.
type SeriesPolicy struct {
	Baseline int64
	Padded   bool
	PadWidth int
}

const (
	SeriesSaleReceipt = "SAL"
	SeriesQuotation   = "QUO"
	SeriesPurchase    = "PUR"
	SeriesReturn      = "RET"
	SeriesTransfer    = "TRF"
	SeriesPayment     = "PAY"
)

// seriesPolicies is keyed by prefix and must stay a table, not per-call logic:
// the receipt and quotation baselines mirror the numbering of the paper books
// the shop used before this system.
var seriesPolicies = map[string]SeriesPolicy{
	SeriesSaleReceipt: {Baseline: 110000},
	SeriesQuotation:   {Baseline: 300000},
	SeriesPurchase:    {Padded: true, PadWidth: 3},
	SeriesReturn:      {Padded: true, PadWidth: 3},
	SeriesTransfer:    {Padded: true, PadWidth: 3},
	SeriesPayment:     {Padded: true, PadWidth: 3},
}

func policyForPrefix(prefix string) SeriesPolicy {
	if p, ok := seriesPolicies[prefix]; ok {
		return p
	}
	return SeriesPolicy{Padded: true, PadWidth: 3}
}

// FormatDocumentNumber renders sequence value n under the prefix policy.
func FormatDocumentNumber(prefix string, n int64) string {
	policy := policyForPrefix(prefix)
	if policy.Padded {
		return fmt.Sprintf("%s-%0*d", prefix, policy.PadWidth, n)
	}
	return fmt.Sprint(n)
}

// NextDocumentNumber allocates the next number of a sequence under an
// exclusive redis lock (30s, ErrBusy on timeout). The lock is scoped per
// sequence so unrelated document types never serialize each other.
func NextDocumentNumber(ctx context.Context, sequenceName string, prefix string) (string, error) {
	lock, err := utils.AcquireLock(ctx, "number_series:"+sequenceName, "numberSeries.go", "NextDocumentNumber")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	db := config.GetDB()
	policy := policyForPrefix(prefix)

	var series NumberSeries
	err = db.WithContext(ctx).Where("name = ?", sequenceName).First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		series = NumberSeries{
			Name:         sequenceName,
			Prefix:       prefix,
			CurrentValue: policy.Baseline,
		}
		if err := db.WithContext(ctx).Create(&series).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	next := series.CurrentValue + 1
	if err := db.WithContext(ctx).Model(&series).
		Update("CurrentValue", next).Error; err != nil {
		return "", err
	}
	return FormatDocumentNumber(prefix, next), nil
}
