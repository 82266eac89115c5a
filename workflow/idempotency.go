package workflow

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("request is already being processed")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// BeginIdempotency inserts STARTED for (handler, key). If a SUCCEEDED row
// already exists it returns its result id so the caller can replay the first
// outcome instead of re-running the operation.
func BeginIdempotency(tx *gorm.DB, handlerName, requestKey string) (resultId int, done bool, err error) {
	record := models.IdempotencyKey{
		HandlerName: handlerName,
		RequestKey:  requestKey,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&record).Error; err == nil {
		return 0, false, nil
	} else if !isDuplicateKeyErr(err) {
		return 0, false, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("handler_name = ? AND request_key = ?", handlerName, requestKey).
		First(&existing).Error; err != nil {
		return 0, false, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return existing.ResultId, true, nil
	case models.IdempotencyStatusStarted:
		// Another request may still be in flight. A stale row means its
		// transaction died, so reuse it.
		if time.Since(existing.UpdatedAt) < 5*time.Minute {
			return 0, false, ErrIdempotencyInProgress
		}
		fallthrough
	default:
		return 0, false, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
	}
}

func MarkIdempotencySucceeded(tx *gorm.DB, handlerName, requestKey string, resultId int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("handler_name = ? AND request_key = ?", handlerName, requestKey).
		Updates(map[string]interface{}{
			"status":     models.IdempotencyStatusSucceeded,
			"result_id":  resultId,
			"last_error": nil,
		}).Error
}

func MarkIdempotencyFailed(db *gorm.DB, handlerName, requestKey string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return db.Model(&models.IdempotencyKey{}).
		Where("handler_name = ? AND request_key = ?", handlerName, requestKey).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
