package models

import (
	"context"

	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRecord is the per-product, per-warehouse quantity ledger. Every write
// goes through AdjustStock so the non-negativity invariant is enforced in
// exactly one place.
type StockRecord struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"uniqueIndex:idx_stock_record;not null" json:"business_id"`
	WarehouseId int             `gorm:"uniqueIndex:idx_stock_record;not null" json:"warehouse_id"`
	ProductId   int             `gorm:"uniqueIndex:idx_stock_record;not null" json:"product_id"`
	CurrentQty  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// lockStockRecord fetches the record FOR UPDATE, creating it when createIfMissing.
func lockStockRecord(tx *gorm.DB, businessId string, warehouseId int, productId int, createIfMissing bool) (*StockRecord, error) {
	record := StockRecord{
		BusinessId:  businessId,
		WarehouseId: warehouseId,
		ProductId:   productId,
	}
	dbCtx := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND warehouse_id = ? AND product_id = ?", businessId, warehouseId, productId)
	if createIfMissing {
		if err := dbCtx.FirstOrCreate(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	}
	if err := dbCtx.First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// AdjustStock applies delta to the (product, warehouse) stock record inside
// the caller's transaction. A negative delta requires an existing record with
// sufficient quantity; violations fail the enclosing transaction without
// mutating anything. A positive delta creates the record on first stocking.
func AdjustStock(tx *gorm.DB, businessId string, warehouseId int, productId int, delta decimal.Decimal) (*StockRecord, error) {
	if delta.IsZero() {
		return nil, NewValidationError("stock delta cannot be zero")
	}

	if delta.IsNegative() {
		record, err := lockStockRecord(tx, businessId, warehouseId, productId, false)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, NewInsufficientStockError(delta.Neg(), decimal.Zero)
		}
		if record.CurrentQty.LessThan(delta.Neg()) {
			return nil, NewInsufficientStockError(delta.Neg(), record.CurrentQty)
		}
		if err := tx.Exec("UPDATE stock_records SET current_qty = current_qty + ?, updated_at = NOW() WHERE id = ?", delta, record.ID).Error; err != nil {
			return nil, err
		}
		record.CurrentQty = record.CurrentQty.Add(delta)
		return record, nil
	}

	record, err := lockStockRecord(tx, businessId, warehouseId, productId, true)
	if err != nil {
		return nil, err
	}
	if err := tx.Exec("UPDATE stock_records SET current_qty = current_qty + ?, updated_at = NOW() WHERE id = ?", delta, record.ID).Error; err != nil {
		return nil, err
	}
	record.CurrentQty = record.CurrentQty.Add(delta)
	return record, nil
}

// GetStockOnHand returns the current quantity (zero when the record is absent).
func GetStockOnHand(ctx context.Context, warehouseId int, productId int) (decimal.Decimal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var currentQty decimal.Decimal
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&StockRecord{}).
		Select("COALESCE(SUM(current_qty), 0)").
		Where("business_id = ? AND warehouse_id = ? AND product_id = ?", businessId, warehouseId, productId).
		Scan(&currentQty).Error; err != nil {
		return decimal.Zero, err
	}

	if currentQty.IsNegative() {
		return currentQty, NewValidationError("product stock cannot be negative")
	}
	return currentQty, nil
}

// GetAvailableStocks lists the non-zero records of a warehouse.
func GetAvailableStocks(ctx context.Context, warehouseId int) ([]*StockRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateWarehouseExists(ctx, businessId, warehouseId); err != nil {
		return nil, err
	}

	var records []*StockRecord
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("warehouse_id = ?", warehouseId).
		Not("current_qty = 0").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
