package models_test

import (
	"errors"
	"reflect"
	"testing"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Covers the core stock ledger guarantees: an Out adjustment larger than
// the on-hand quantity is rejected without touching the record, an In
// adjustment lands with its audit movement, and a transfer either moves
// both legs or neither.
func TestStockAdjustmentAndTransferLedger(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Central"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	destination, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Sucursal"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Compresor", Sku: "COMP-1"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	// Seed 20 units via an In adjustment.
	if _, err := models.CreateStockAdjustment(ctx, &models.NewStockAdjustment{
		WarehouseId: warehouse.ID,
		ProductId:   product.ID,
		Direction:   models.AdjustmentDirectionIn,
		Qty:         decimal.NewFromInt(20),
		Reason:      "opening stock",
	}); err != nil {
		t.Fatalf("seed adjustment: %v", err)
	}

	// Out 25 against 20 must fail with InsufficientStock and leave 20.
	_, err = models.CreateStockAdjustment(ctx, &models.NewStockAdjustment{
		WarehouseId: warehouse.ID,
		ProductId:   product.ID,
		Direction:   models.AdjustmentDirectionOut,
		Qty:         decimal.NewFromInt(25),
		Reason:      "shrinkage",
	})
	if !models.IsKind(err, models.ErrorKindInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
	onHand, err := models.GetStockOnHand(ctx, warehouse.ID, product.ID)
	if err != nil {
		t.Fatalf("GetStockOnHand: %v", err)
	}
	if onHand.Cmp(decimal.NewFromInt(20)) != 0 {
		t.Fatalf("stock changed after failed adjustment: %s", onHand)
	}

	// In 5 lands at 25 and appends a movement.
	movement, err := models.CreateStockAdjustment(ctx, &models.NewStockAdjustment{
		WarehouseId: warehouse.ID,
		ProductId:   product.ID,
		Direction:   models.AdjustmentDirectionIn,
		Qty:         decimal.NewFromInt(5),
		Reason:      "found in count",
	})
	if err != nil {
		t.Fatalf("CreateStockAdjustment: %v", err)
	}
	if movement.Kind != models.StockMovementKindAdjustment {
		t.Fatalf("expected Adjustment movement, got %s", movement.Kind)
	}
	if movement.MovementNumber == "" {
		t.Fatalf("movement number was not assigned")
	}
	onHand, _ = models.GetStockOnHand(ctx, warehouse.ID, product.ID)
	if onHand.Cmp(decimal.NewFromInt(25)) != 0 {
		t.Fatalf("expected 25 on hand, got %s", onHand)
	}

	movements, err := models.GetStockMovements(ctx, product.ID, 10)
	if err != nil {
		t.Fatalf("GetStockMovements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}

	// Transfer of 30 against 25 must fail atomically.
	_, err = models.CreateStockTransfer(ctx, &models.NewStockTransfer{
		SourceWarehouseId:      warehouse.ID,
		DestinationWarehouseId: destination.ID,
		ProductId:              product.ID,
		Qty:                    decimal.NewFromInt(30),
		Reason:                 "rebalance",
	})
	if !models.IsKind(err, models.ErrorKindInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
	sourceQty, _ := models.GetStockOnHand(ctx, warehouse.ID, product.ID)
	destQty, _ := models.GetStockOnHand(ctx, destination.ID, product.ID)
	if sourceQty.Cmp(decimal.NewFromInt(25)) != 0 || !destQty.IsZero() {
		t.Fatalf("failed transfer mutated stock: source=%s dest=%s", sourceQty, destQty)
	}

	// Same-warehouse transfer is rejected up front.
	_, err = models.CreateStockTransfer(ctx, &models.NewStockTransfer{
		SourceWarehouseId:      warehouse.ID,
		DestinationWarehouseId: warehouse.ID,
		ProductId:              product.ID,
		Qty:                    decimal.NewFromInt(1),
		Reason:                 "noop",
	})
	if !models.IsKind(err, models.ErrorKindValidation) {
		t.Fatalf("expected ValidationError for same-warehouse transfer, got %v", err)
	}

	// A legal transfer moves both legs and appends one movement.
	transfer, err := models.CreateStockTransfer(ctx, &models.NewStockTransfer{
		SourceWarehouseId:      warehouse.ID,
		DestinationWarehouseId: destination.ID,
		ProductId:              product.ID,
		Qty:                    decimal.NewFromInt(10),
		Reason:                 "rebalance",
	})
	if err != nil {
		t.Fatalf("CreateStockTransfer: %v", err)
	}
	if transfer.Kind != models.StockMovementKindTransfer {
		t.Fatalf("expected Transfer movement, got %s", transfer.Kind)
	}
	sourceQty, _ = models.GetStockOnHand(ctx, warehouse.ID, product.ID)
	destQty, _ = models.GetStockOnHand(ctx, destination.ID, product.ID)
	if sourceQty.Cmp(decimal.NewFromInt(15)) != 0 || destQty.Cmp(decimal.NewFromInt(10)) != 0 {
		t.Fatalf("transfer legs wrong: source=%s dest=%s", sourceQty, destQty)
	}

	movements, _ = models.GetStockMovements(ctx, product.ID, 10)
	if len(movements) != 3 {
		t.Fatalf("expected 3 movements, got %d", len(movements))
	}
}

// A transfer whose movement insert fails after both stock legs have been
// applied must roll back completely. The failure is injected with a create
// callback so the source decrement has already happened inside the
// transaction when the write blows up.
func TestStockTransferRollsBackWhenMovementWriteFails(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	source, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Central"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	destination, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Sucursal"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Alternador", Sku: "ALT-1"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	if _, err := models.CreateStockAdjustment(ctx, &models.NewStockAdjustment{
		WarehouseId: source.ID,
		ProductId:   product.ID,
		Direction:   models.AdjustmentDirectionIn,
		Qty:         decimal.NewFromInt(10),
		Reason:      "opening stock",
	}); err != nil {
		t.Fatalf("seed adjustment: %v", err)
	}
	if _, err := models.CreateStockAdjustment(ctx, &models.NewStockAdjustment{
		WarehouseId: destination.ID,
		ProductId:   product.ID,
		Direction:   models.AdjustmentDirectionIn,
		Qty:         decimal.NewFromInt(5),
		Reason:      "opening stock",
	}); err != nil {
		t.Fatalf("seed adjustment: %v", err)
	}

	db := config.GetDB()
	const hookName = "fail_movement_insert"
	movementType := reflect.TypeOf(models.StockMovement{})
	err = db.Callback().Create().Before("gorm:create").Register(hookName, func(d *gorm.DB) {
		if d.Statement != nil && d.Statement.Schema != nil && d.Statement.Schema.ModelType == movementType {
			d.AddError(errors.New("movement insert refused"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer func() {
		if err := db.Callback().Create().Remove(hookName); err != nil {
			t.Fatalf("remove callback: %v", err)
		}
	}()

	_, err = models.CreateStockTransfer(ctx, &models.NewStockTransfer{
		SourceWarehouseId:      source.ID,
		DestinationWarehouseId: destination.ID,
		ProductId:              product.ID,
		Qty:                    decimal.NewFromInt(4),
		Reason:                 "rebalance",
	})
	if err == nil {
		t.Fatalf("expected transfer to fail")
	}

	sourceQty, err := models.GetStockOnHand(ctx, source.ID, product.ID)
	if err != nil {
		t.Fatalf("GetStockOnHand source: %v", err)
	}
	destQty, err := models.GetStockOnHand(ctx, destination.ID, product.ID)
	if err != nil {
		t.Fatalf("GetStockOnHand destination: %v", err)
	}
	if sourceQty.Cmp(decimal.NewFromInt(10)) != 0 || destQty.Cmp(decimal.NewFromInt(5)) != 0 {
		t.Fatalf("aborted transfer leaked a leg: source=%s dest=%s", sourceQty, destQty)
	}

	movements, err := models.GetStockMovements(ctx, product.ID, 10)
	if err != nil {
		t.Fatalf("GetStockMovements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected only the 2 seed movements, got %d", len(movements))
	}
}
