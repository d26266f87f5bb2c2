package models

import (
	"context"
	"os"
	"strings"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type NewStockTransfer struct {
	SourceWarehouseId      int             `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseId int             `json:"destination_warehouse_id" binding:"required"`
	ProductId              int             `json:"product_id" binding:"required"`
	Qty                    decimal.Decimal `json:"qty" binding:"required"`
	Reason                 string          `json:"reason" binding:"required"`
}

func (input NewStockTransfer) validate(ctx context.Context, businessId string) error {
	if input.SourceWarehouseId == input.DestinationWarehouseId {
		return NewValidationError("transfers cannot be made within the same warehouse. please choose a different one and proceed")
	}
	if !input.Qty.IsPositive() {
		return NewValidationError("transfer quantity must be greater than zero")
	}
	if input.Reason == "" {
		return NewValidationError("transfer reason is required")
	}
	if err := validateWarehouseExists(ctx, businessId, input.SourceWarehouseId); err != nil {
		return NewNotFoundError("source warehouse")
	}
	if err := validateWarehouseExists(ctx, businessId, input.DestinationWarehouseId); err != nil {
		return NewNotFoundError("destination warehouse")
	}
	if err := validateProductExists(ctx, businessId, input.ProductId); err != nil {
		return err
	}
	return nil
}

// CreateStockTransfer moves quantity between two warehouse stock records as a
// single atomic unit: source decrement, destination create-or-increment, and
// the movement row commit together or not at all. A transfer observed
// half-applied is a correctness violation, so this path uses one DB
// transaction rather than a best-effort batch.
func CreateStockTransfer(ctx context.Context, input *NewStockTransfer) (*StockMovement, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger()
	debug := strings.EqualFold(strings.TrimSpace(os.Getenv("DEBUG_STOCK_TRANSFER")), "true")

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	if debug {
		logger.WithFields(logrus.Fields{
			"field":                    "CreateStockTransfer",
			"business_id":              businessId,
			"product_id":               input.ProductId,
			"source_warehouse_id":      input.SourceWarehouseId,
			"destination_warehouse_id": input.DestinationWarehouseId,
			"qty":                      input.Qty.String(),
		}).Info("begin stock transfer")
	}

	var movement StockMovement
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		// Source leg first: the availability check and decrement share one
		// row lock, so a concurrent transfer of the same record serializes.
		if _, err := AdjustStock(tx, businessId, input.SourceWarehouseId, input.ProductId, input.Qty.Neg()); err != nil {
			if debug {
				logger.WithFields(logrus.Fields{
					"field":       "CreateStockTransfer",
					"business_id": businessId,
					"stage":       "source_decrement",
					"error":       err.Error(),
				}).Error("stock transfer source leg failed; rollback")
			}
			return err
		}

		if _, err := AdjustStock(tx, businessId, input.DestinationWarehouseId, input.ProductId, input.Qty); err != nil {
			if debug {
				logger.WithFields(logrus.Fields{
					"field":       "CreateStockTransfer",
					"business_id": businessId,
					"stage":       "destination_increment",
					"error":       err.Error(),
				}).Error("stock transfer destination leg failed; rollback")
			}
			return err
		}

		number, err := nextDocumentNumber(tx, ctx, businessId, ModuleStockTransfer)
		if err != nil {
			return err
		}

		movement = StockMovement{
			BusinessId:             businessId,
			MovementNumber:         number,
			Kind:                   StockMovementKindTransfer,
			ProductId:              input.ProductId,
			SourceWarehouseId:      input.SourceWarehouseId,
			DestinationWarehouseId: input.DestinationWarehouseId,
			Qty:                    input.Qty,
			Reason:                 input.Reason,
			Actor:                  actor,
			MovementDate:           time.Now().UTC(),
		}
		return tx.Create(&movement).Error
	})
	if err != nil {
		return nil, err
	}

	if debug {
		logger.WithFields(logrus.Fields{
			"field":           "CreateStockTransfer",
			"business_id":     businessId,
			"movement_number": movement.MovementNumber,
		}).Info("stock transfer committed")
	}

	return &movement, nil
}
