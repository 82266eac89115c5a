package models

import (
	"time"
)

// IdempotencyKey deduplicates retried requests. One row per (handler, key);
// a SUCCEEDED row carries the id of the document the first attempt produced.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	HandlerName string            `gorm:"size:100;not null;uniqueIndex:idx_handler_request" json:"handler_name"`
	RequestKey  string            `gorm:"size:100;not null;uniqueIndex:idx_handler_request" json:"request_key"`
	Status      IdempotencyStatus `gorm:"type:enum('STARTED','SUCCEEDED','FAILED');default:STARTED" json:"status"`
	ResultId    int               `gorm:"default:0" json:"result_id"`
	LastError   *string           `gorm:"size:500" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
