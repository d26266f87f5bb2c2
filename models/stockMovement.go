package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"github.com/shopspring/decimal"
)

// StockMovement is the append-only audit trail behind adjustments and
// transfers. Rows are immutable once created; there is no update or delete
// path anywhere in the codebase.
type StockMovement struct {
	ID                     int                 `gorm:"primary_key" json:"id"`
	BusinessId             string              `gorm:"index;not null" json:"business_id"`
	MovementNumber         string              `gorm:"size:255;not null" json:"movement_number"`
	Kind                   StockMovementKind   `gorm:"type:enum('Adjustment','Transfer');not null" json:"kind"`
	Direction              AdjustmentDirection `gorm:"type:enum('In','Out');default:null" json:"direction"`
	ProductId              int                 `gorm:"index;not null" json:"product_id"`
	WarehouseId            int                 `gorm:"default:null" json:"warehouse_id"`
	SourceWarehouseId      int                 `gorm:"default:null" json:"source_warehouse_id"`
	DestinationWarehouseId int                 `gorm:"default:null" json:"destination_warehouse_id"`
	Qty                    decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"qty"`
	Reason                 string              `gorm:"size:255;not null" json:"reason"`
	Actor                  string              `gorm:"size:255;not null" json:"actor"`
	MovementDate           time.Time           `gorm:"not null" json:"movement_date"`
	CreatedAt              time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// GetStockMovements lists the audit trail for a product, newest first.
func GetStockMovements(ctx context.Context, productId int, limit int) ([]*StockMovement, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var movements []*StockMovement
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if productId > 0 {
		dbCtx = dbCtx.Where("product_id = ?", productId)
	}
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(limit).Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
