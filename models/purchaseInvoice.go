package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseInvoice struct {
	ID              int                     `gorm:"primary_key" json:"id"`
	BusinessId      string                  `gorm:"uniqueIndex:ux_purchase_invoice_supplier_number;not null" json:"business_id" binding:"required"`
	DocumentNumber  string                  `gorm:"size:255;not null" json:"document_number"`
	InvoiceNumber   string                  `gorm:"size:255;uniqueIndex:ux_purchase_invoice_supplier_number;not null" json:"invoice_number"`
	SupplierId      int                     `gorm:"index;uniqueIndex:ux_purchase_invoice_supplier_number;not null" json:"supplier_id" binding:"required"`
	PurchaseOrderId int                     `gorm:"index;default:null" json:"purchase_order_id"`
	WarehouseId     int                     `gorm:"not null" json:"warehouse_id"`
	InvoiceDate     time.Time               `gorm:"not null" json:"invoice_date" binding:"required"`
	DueDate         *time.Time              `gorm:"default:null" json:"due_date"`
	Gravada10       decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"gravada10"`
	Iva10           decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"iva10"`
	Gravada5        decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"gravada5"`
	Iva5            decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"iva5"`
	Exenta          decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"exenta"`
	TotalAmount     decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Details         []PurchaseInvoiceDetail `gorm:"foreignKey:PurchaseInvoiceId" json:"details"`
	CreatedAt       time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseInvoiceDetail struct {
	ID                int             `gorm:"primary_key" json:"id"`
	PurchaseInvoiceId int             `gorm:"index;not null" json:"purchase_invoice_id"`
	ProductId         int             `gorm:"index;not null" json:"product_id"`
	Name              string          `gorm:"size:100" json:"name"`
	Qty               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	VatRate           VatRate         `gorm:"type:enum('Rate10','Rate5','Exempt');default:'Rate10'" json:"vat_rate"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseInvoice struct {
	PurchaseOrderId int        `json:"purchase_order_id" binding:"required"`
	InvoiceNumber   string     `json:"invoice_number" binding:"required"`
	InvoiceDate     time.Time  `json:"invoice_date" binding:"required"`
	DueDate         *time.Time `json:"due_date"`
}

// CreatePurchaseInvoiceFromReceiving posts the supplier invoice for a
// confirmed purchase order. Receiving is a single atomic posting: stock
// comes in at the order's warehouse, the payable opens for the invoice
// total, the invoice lands in the purchase VAT book and the order moves
// to Received.
func CreatePurchaseInvoiceFromReceiving(ctx context.Context, input *NewPurchaseInvoice) (*PurchaseInvoice, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[PurchaseOrder](ctx, businessId, input.PurchaseOrderId, "Details")
	if err != nil {
		return nil, NewNotFoundError("purchase order")
	}
	if order.CurrentStatus != PurchaseOrderStatusConfirmed {
		return nil, NewInvalidStateTransitionError("purchase order %s is %s, only Confirmed orders can be received", order.OrderNumber, order.CurrentStatus)
	}

	var duplicates int64
	err = db.WithContext(ctx).Model(&PurchaseInvoice{}).
		Where("business_id = ? AND supplier_id = ? AND invoice_number = ?", businessId, order.SupplierId, input.InvoiceNumber).
		Count(&duplicates).Error
	if err != nil {
		return nil, err
	}
	if duplicates > 0 {
		return nil, NewValidationError("invoice %s already exists for this supplier", input.InvoiceNumber)
	}

	release := obtainPostingLock(ctx, businessId)
	defer release()

	var invoice PurchaseInvoice
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		var breakdown VatBreakdown
		var invoiceItems []PurchaseInvoiceDetail
		for _, line := range order.Details {
			if _, err := AdjustStock(tx, businessId, order.WarehouseId, line.ProductId, line.Qty); err != nil {
				return err
			}
			breakdown.AddAmount(line.VatRate, line.Qty.Mul(line.UnitPrice))
			invoiceItems = append(invoiceItems, PurchaseInvoiceDetail{
				ProductId: line.ProductId,
				Name:      line.Name,
				Qty:       line.Qty,
				UnitPrice: line.UnitPrice,
				VatRate:   line.VatRate,
			})
		}

		number, err := nextDocumentNumber(tx, ctx, businessId, ModulePurchaseInvoice)
		if err != nil {
			return err
		}

		invoice = PurchaseInvoice{
			BusinessId:      businessId,
			DocumentNumber:  number,
			InvoiceNumber:   input.InvoiceNumber,
			SupplierId:      order.SupplierId,
			PurchaseOrderId: order.ID,
			WarehouseId:     order.WarehouseId,
			InvoiceDate:     input.InvoiceDate,
			DueDate:         input.DueDate,
			Gravada10:       breakdown.Gravada10,
			Iva10:           breakdown.Iva10,
			Gravada5:        breakdown.Gravada5,
			Iva5:            breakdown.Iva5,
			Exenta:          breakdown.Exenta,
			TotalAmount:     breakdown.Total(),
			Details:         invoiceItems,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		payable := Payable{
			BusinessId:         businessId,
			PurchaseInvoiceId:  invoice.ID,
			SupplierId:         invoice.SupplierId,
			TotalAmount:        invoice.TotalAmount,
			OutstandingBalance: invoice.TotalAmount,
			DueDate:            input.DueDate,
			Status:             PayableStatusPending,
		}
		payable.refreshStatus()
		if err := tx.Create(&payable).Error; err != nil {
			return err
		}

		bookEntry := VatBookEntry{
			BusinessId:        businessId,
			DocumentType:      VatBookDocumentTypePurchaseInvoice,
			DocumentId:        invoice.ID,
			DocumentNumber:    invoice.InvoiceNumber,
			PurchaseInvoiceId: invoice.ID,
			SupplierId:        invoice.SupplierId,
			DocumentDate:      invoice.InvoiceDate,
			Gravada10:         breakdown.Gravada10,
			Iva10:             breakdown.Iva10,
			Gravada5:          breakdown.Gravada5,
			Iva5:              breakdown.Iva5,
			Exenta:            breakdown.Exenta,
			TotalAmount:       invoice.TotalAmount,
		}
		if err := tx.Create(&bookEntry).Error; err != nil {
			return err
		}

		return tx.Model(&PurchaseOrder{}).Where("id = ?", order.ID).
			Update("CurrentStatus", PurchaseOrderStatusReceived).Error
	})
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil, NewValidationError("invoice %s already exists for this supplier", input.InvoiceNumber)
		}
		return nil, err
	}
	return &invoice, nil
}

func GetPurchaseInvoice(ctx context.Context, id int) (*PurchaseInvoice, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PurchaseInvoice](ctx, businessId, id, "Details")
}

func GetPurchaseInvoices(ctx context.Context) ([]*PurchaseInvoice, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[PurchaseInvoice](ctx, businessId, "Details")
}
