package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseOrder struct {
	ID            int                   `gorm:"primary_key" json:"id"`
	BusinessId    string                `gorm:"index;not null" json:"business_id" binding:"required"`
	OrderNumber   string                `gorm:"size:255;not null" json:"order_number"`
	SupplierId    int                   `gorm:"index;not null" json:"supplier_id" binding:"required"`
	WarehouseId   int                   `gorm:"not null" json:"warehouse_id"`
	OrderDate     time.Time             `gorm:"not null" json:"order_date" binding:"required"`
	CurrentStatus PurchaseOrderStatus   `gorm:"type:enum('Draft','Confirmed','Received','Closed');not null" json:"current_status"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Notes         string                `gorm:"type:text;default:null" json:"notes"`
	Details       []PurchaseOrderDetail `gorm:"foreignKey:PurchaseOrderId" json:"details"`
	CreatedAt     time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	Name            string          `gorm:"size:100" json:"name"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	VatRate         VatRate         `gorm:"type:enum('Rate10','Rate5','Exempt');default:'Rate10'" json:"vat_rate"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseOrder struct {
	SupplierId    int                      `json:"supplier_id" binding:"required"`
	WarehouseId   int                      `json:"warehouse_id" binding:"required"`
	OrderDate     time.Time                `json:"order_date" binding:"required"`
	CurrentStatus PurchaseOrderStatus      `json:"current_status"`
	Notes         string                   `json:"notes"`
	Details       []NewPurchaseOrderDetail `json:"details" binding:"required"`
}

type NewPurchaseOrderDetail struct {
	ProductId int             `json:"product_id" binding:"required"`
	Name      string          `json:"name"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
	VatRate   VatRate         `json:"vat_rate"`
}

func (input NewPurchaseOrder) validate(ctx context.Context, businessId string) error {
	if err := validateSupplierExists(ctx, businessId, input.SupplierId); err != nil {
		return err
	}
	if err := validateWarehouseExists(ctx, businessId, input.WarehouseId); err != nil {
		return err
	}
	if len(input.Details) == 0 {
		return NewValidationError("purchase order requires at least one line item")
	}
	for _, detail := range input.Details {
		if !detail.Qty.IsPositive() {
			return NewValidationError("line quantity must be greater than zero")
		}
		if detail.UnitPrice.IsNegative() {
			return NewValidationError("line unit price cannot be negative")
		}
		if err := validateProductExists(ctx, businessId, detail.ProductId); err != nil {
			return err
		}
	}
	return nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	var orderItems []PurchaseOrderDetail
	var totalAmount decimal.Decimal
	for _, item := range input.Details {
		vatRate := item.VatRate
		if vatRate == "" {
			vatRate = VatRate10
		}
		orderItems = append(orderItems, PurchaseOrderDetail{
			ProductId: item.ProductId,
			Name:      item.Name,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			VatRate:   vatRate,
		})
		totalAmount = totalAmount.Add(item.Qty.Mul(item.UnitPrice))
	}

	status := input.CurrentStatus
	if status == "" {
		status = PurchaseOrderStatusDraft
	}
	if status != PurchaseOrderStatusDraft && status != PurchaseOrderStatusConfirmed {
		return nil, NewValidationError("a new purchase order must be Draft or Confirmed")
	}

	var order PurchaseOrder
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		number, err := nextDocumentNumber(tx, ctx, businessId, ModulePurchaseOrder)
		if err != nil {
			return err
		}
		order = PurchaseOrder{
			BusinessId:    businessId,
			OrderNumber:   number,
			SupplierId:    input.SupplierId,
			WarehouseId:   input.WarehouseId,
			OrderDate:     input.OrderDate,
			CurrentStatus: status,
			TotalAmount:   totalAmount,
			Notes:         input.Notes,
			Details:       orderItems,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmPurchaseOrder moves a draft order into Confirmed so it becomes
// receivable.
func ConfirmPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Details")
	if err != nil {
		return nil, NewNotFoundError("purchase order")
	}
	if order.CurrentStatus != PurchaseOrderStatusDraft {
		return nil, NewInvalidStateTransitionError("purchase order %s is %s, only Draft orders can be confirmed", order.OrderNumber, order.CurrentStatus)
	}

	if err := db.WithContext(ctx).Model(order).Update("CurrentStatus", PurchaseOrderStatusConfirmed).Error; err != nil {
		return nil, err
	}
	order.CurrentStatus = PurchaseOrderStatusConfirmed
	return order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Details")
}

func GetPurchaseOrders(ctx context.Context) ([]*PurchaseOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[PurchaseOrder](ctx, businessId, "Details")
}
