package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewStockAdjustment is the manual inventory correction command
// (entrada/salida). Shape validation happens at the binding layer; business
// invariants are re-checked here regardless.
type NewStockAdjustment struct {
	WarehouseId int                 `json:"warehouse_id" binding:"required"`
	ProductId   int                 `json:"product_id" binding:"required"`
	Direction   AdjustmentDirection `json:"direction" binding:"required"`
	Qty         decimal.Decimal     `json:"qty" binding:"required"`
	Reason      string              `json:"reason" binding:"required"`
}

func (input NewStockAdjustment) validate(ctx context.Context, businessId string) error {
	if input.Direction != AdjustmentDirectionIn && input.Direction != AdjustmentDirectionOut {
		return NewValidationError("adjustment direction must be In or Out")
	}
	if !input.Qty.IsPositive() {
		return NewValidationError("adjustment quantity must be greater than zero")
	}
	if input.Reason == "" {
		return NewValidationError("adjustment reason is required")
	}
	if err := validateWarehouseExists(ctx, businessId, input.WarehouseId); err != nil {
		return err
	}
	if err := validateProductExists(ctx, businessId, input.ProductId); err != nil {
		return err
	}
	return nil
}

// CreateStockAdjustment mutates the stock record and appends the immutable
// movement row in one transaction. An Out adjustment larger than the current
// quantity is rejected outright, never clamped.
func CreateStockAdjustment(ctx context.Context, input *NewStockAdjustment) (*StockMovement, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	delta := input.Qty
	if input.Direction == AdjustmentDirectionOut {
		delta = input.Qty.Neg()
	}

	var movement StockMovement
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		if _, err := AdjustStock(tx, businessId, input.WarehouseId, input.ProductId, delta); err != nil {
			return err
		}

		number, err := nextDocumentNumber(tx, ctx, businessId, ModuleStockAdjustment)
		if err != nil {
			return err
		}

		movement = StockMovement{
			BusinessId:     businessId,
			MovementNumber: number,
			Kind:           StockMovementKindAdjustment,
			Direction:      input.Direction,
			ProductId:      input.ProductId,
			WarehouseId:    input.WarehouseId,
			Qty:            input.Qty,
			Reason:         input.Reason,
			Actor:          actor,
			MovementDate:   time.Now().UTC(),
		}
		return tx.Create(&movement).Error
	})
	if err != nil {
		return nil, err
	}

	return &movement, nil
}
