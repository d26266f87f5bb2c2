package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// isRetryableTxError reports whether the transaction failed due to InnoDB
// lock contention (deadlock victim or lock wait timeout). go-sql-driver
// surfaces these as error 1213 / 1205; matching on the message keeps gorm's
// wrapped errors covered too.
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 1213") ||
		strings.Contains(msg, "Error 1205") ||
		strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout")
}

// isDuplicateEntryError reports whether an insert was rejected by a unique
// index. go-sql-driver surfaces these as error 1062.
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 1062") ||
		strings.Contains(msg, "Duplicate entry")
}

// runInTransactionWithRetry wraps fn in a DB transaction and retries it once
// with fresh reads when the first attempt is aborted by lock contention.
// A second abort surfaces as a TransactionConflict to the caller.
func runInTransactionWithRetry(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		lastErr = db.WithContext(ctx).Transaction(fn)
		if lastErr == nil {
			return nil
		}
		if !isRetryableTxError(lastErr) {
			return lastErr
		}
	}
	return NewTransactionConflictError()
}

// obtainPostingLock takes a best-effort per-business redis lock around
// multi-document postings. Correctness never depends on it: row locks inside
// the DB transaction already serialize conflicting writers. The returned
// release func is always safe to call.
func obtainPostingLock(ctx context.Context, businessId string) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, "posting:"+businessId, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		// lost the race or redis unavailable; fall through to DB row locks
		return func() {}
	}
	return func() { _ = lock.Release(context.Background()) }
}

// DocumentNumberSeries assigns per-module document numbers (e.g. "NC-00012").
// The row is locked while the sequence advances so numbers are gapless per
// committed transaction path.
type DocumentNumberSeries struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"index:idx_series_module,unique;not null" json:"business_id"`
	ModuleName   string    `gorm:"index:idx_series_module,unique;size:100;not null" json:"module_name"`
	Prefix       string    `gorm:"size:20;not null" json:"prefix"`
	NextSequence int       `gorm:"not null;default:1" json:"next_sequence"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var defaultDocumentPrefixes = map[string]string{
	ModuleStockAdjustment:  "AJ",
	ModuleStockTransfer:    "TR",
	ModulePurchaseOrder:    "OC",
	ModulePurchaseInvoice:  "FC",
	ModuleCreditNote:       "NC",
	ModuleDebitNote:        "ND",
	ModuleServiceReception: "SRV",
	ModuleServiceItem:      "EQ",
	ModuleServiceQuote:     "PRE",
}

// getDocumentPrefix for module, redis or db
func getDocumentPrefix(ctx context.Context, businessId string, moduleName string) (string, error) {
	documentPrefixes := make(map[string]string, 0) // moduleName => prefix
	redisKey := "docPrefixMap:" + businessId
	exists, err := config.GetRedisObject(redisKey, &documentPrefixes)
	if err != nil {
		return "", err
	}
	if !exists {
		db := config.GetDB()
		var series []*DocumentNumberSeries
		if err := db.WithContext(ctx).Model(&DocumentNumberSeries{}).
			Where("business_id = ?", businessId).Find(&series).Error; err != nil {
			return "", err
		}
		for _, s := range series {
			documentPrefixes[s.ModuleName] = s.Prefix
		}
		if err := config.SetRedisObject(redisKey, &documentPrefixes, 0); err != nil {
			return "", err
		}
	}

	prefix, ok := documentPrefixes[moduleName]
	if !ok || prefix == "" {
		return defaultDocumentPrefixes[moduleName], nil
	}
	return prefix, nil
}

// nextDocumentNumber reserves the next number of the module's series inside
// the caller's transaction. The series row is created on first use.
func nextDocumentNumber(tx *gorm.DB, ctx context.Context, businessId string, moduleName string) (string, error) {
	prefix, err := getDocumentPrefix(ctx, businessId, moduleName)
	if err != nil {
		return "", err
	}

	series := DocumentNumberSeries{
		BusinessId: businessId,
		ModuleName: moduleName,
		Prefix:     prefix,
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND module_name = ?", businessId, moduleName).
		FirstOrCreate(&series).Error; err != nil {
		return "", err
	}

	number := fmt.Sprintf("%s-%05d", series.Prefix, series.NextSequence)
	if err := tx.Exec("UPDATE document_number_series SET next_sequence = next_sequence + 1 WHERE id = ?", series.ID).Error; err != nil {
		return "", err
	}
	return number, nil
}

func validateWarehouseExists(ctx context.Context, businessId string, warehouseId int) error {
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, warehouseId); err != nil {
		return NewNotFoundError("warehouse")
	}
	return nil
}

func validateProductExists(ctx context.Context, businessId string, productId int) error {
	if err := utils.ValidateResourceId[Product](ctx, businessId, productId); err != nil {
		return NewNotFoundError("product")
	}
	return nil
}

func validateSupplierExists(ctx context.Context, businessId string, supplierId int) error {
	if err := utils.ValidateResourceId[Supplier](ctx, businessId, supplierId); err != nil {
		return NewNotFoundError("supplier")
	}
	return nil
}

func validateClientExists(ctx context.Context, businessId string, clientId int) error {
	if err := utils.ValidateResourceId[Client](ctx, businessId, clientId); err != nil {
		return NewNotFoundError("client")
	}
	return nil
}

func validateTechnicianExists(ctx context.Context, businessId string, technicianId int) error {
	if err := utils.ValidateResourceId[Technician](ctx, businessId, technicianId); err != nil {
		return NewNotFoundError("technician")
	}
	return nil
}

// actorFromContext returns the display name recorded on audit rows. Every
// mutating operation requires a caller identity.
func actorFromContext(ctx context.Context) (string, error) {
	if name, ok := utils.GetUserNameFromContext(ctx); ok && name != "" {
		return name, nil
	}
	if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
		return username, nil
	}
	return "", NewValidationError("actor is required")
}

func businessIdFromContext(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", NewValidationError("business id is required")
	}
	return businessId, nil
}
