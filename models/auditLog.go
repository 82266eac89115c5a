package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
)

// AuditLog is the append-only who-did-what trail. Writes are best effort and
// never fail the calling operation.
type AuditLog struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Action        string    `gorm:"size:100;index;not null" json:"action"`
	DocType       string    `gorm:"size:20;index" json:"doc_type"`
	DocNo         string    `gorm:"size:100;index" json:"doc_no"`
	Detail        string    `gorm:"size:500" json:"detail"`
	ActedBy       string    `gorm:"size:100;index" json:"acted_by"`
	Location      string    `gorm:"size:100;index" json:"location"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// WriteAuditLog records an action outside any transaction. Failures are logged
// and swallowed so audit trouble never rolls back business writes.
func WriteAuditLog(ctx context.Context, action, docType, docNo, detail string) {
	logger := config.GetLogger()
	actor, _ := utils.GetActorFromContext(ctx)
	location, _ := utils.GetLocationFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	entry := AuditLog{
		Action:        action,
		DocType:       docType,
		DocNo:         docNo,
		Detail:        detail,
		ActedBy:       actor,
		Location:      location,
		CorrelationId: correlationId,
	}

	db := config.GetDB()
	if db == nil {
		return
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		config.LogError(logger, "auditLog.go", "WriteAuditLog", "Error writing audit log", entry, err)
	}
}
