package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreditNote struct {
	ID                int                `gorm:"primary_key" json:"id"`
	BusinessId        string             `gorm:"index;not null" json:"business_id" binding:"required"`
	DocumentNumber    string             `gorm:"size:255;not null" json:"document_number"`
	NoteNumber        string             `gorm:"size:255;not null" json:"note_number"`
	PurchaseInvoiceId int                `gorm:"index;not null" json:"purchase_invoice_id" binding:"required"`
	SupplierId        int                `gorm:"index;not null" json:"supplier_id"`
	NoteDate          time.Time          `gorm:"not null" json:"note_date" binding:"required"`
	Reason            string             `gorm:"type:text;not null" json:"reason"`
	TotalAmount       decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Details           []CreditNoteDetail `gorm:"foreignKey:CreditNoteId" json:"details"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type CreditNoteDetail struct {
	ID           int             `gorm:"primary_key" json:"id"`
	CreditNoteId int             `gorm:"index;not null" json:"credit_note_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	QtyAdjusted  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty_adjusted"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCreditNote struct {
	PurchaseInvoiceId int                   `json:"purchase_invoice_id" binding:"required"`
	NoteNumber        string                `json:"note_number" binding:"required"`
	NoteDate          time.Time             `json:"note_date" binding:"required"`
	Reason            string                `json:"reason" binding:"required"`
	Details           []NewCreditNoteDetail `json:"details" binding:"required"`
}

type NewCreditNoteDetail struct {
	ProductId   int             `json:"product_id" binding:"required"`
	QtyAdjusted decimal.Decimal `json:"qty_adjusted" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// validateAgainstInvoice checks the note against what the invoice actually
// purchased. Both sides are aggregated per product, so an over-return split
// across several note lines is rejected the same as a single oversized line.
func (input NewCreditNote) validateAgainstInvoice(invoice *PurchaseInvoice) error {
	if len(input.Details) == 0 {
		return NewValidationError("credit note requires at least one line item")
	}

	purchasedQty := make(map[int]decimal.Decimal)
	for _, line := range invoice.Details {
		purchasedQty[line.ProductId] = purchasedQty[line.ProductId].Add(line.Qty)
	}

	returnedQty := make(map[int]decimal.Decimal)
	for _, line := range input.Details {
		if !line.QtyAdjusted.IsPositive() {
			return NewValidationError("adjusted quantity must be greater than zero")
		}
		if _, ok := purchasedQty[line.ProductId]; !ok {
			return NewValidationError("product %d is not on invoice %s", line.ProductId, invoice.InvoiceNumber)
		}
		returnedQty[line.ProductId] = returnedQty[line.ProductId].Add(line.QtyAdjusted)
	}

	for productId, returned := range returnedQty {
		original := purchasedQty[productId]
		if returned.GreaterThan(original) {
			return NewValidationError("cannot return %s of product %d, invoice %s only purchased %s",
				returned, productId, invoice.InvoiceNumber, original)
		}
	}
	return nil
}

// ApplyCreditNote posts a supplier credit note for returned goods against
// a purchase invoice. The note, the payable decrement and the per-line
// stock decrements at the invoice's warehouse commit together or not at
// all.
func ApplyCreditNote(ctx context.Context, input *NewCreditNote) (*CreditNote, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[PurchaseInvoice](ctx, businessId, input.PurchaseInvoiceId, "Details")
	if err != nil {
		return nil, NewNotFoundError("purchase invoice")
	}
	if err := input.validateAgainstInvoice(invoice); err != nil {
		return nil, err
	}

	release := obtainPostingLock(ctx, businessId)
	defer release()

	var note CreditNote
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		var totalAmount decimal.Decimal
		var noteItems []CreditNoteDetail
		for _, line := range input.Details {
			if _, err := AdjustStock(tx, businessId, invoice.WarehouseId, line.ProductId, line.QtyAdjusted.Neg()); err != nil {
				return err
			}
			totalAmount = totalAmount.Add(line.QtyAdjusted.Mul(line.UnitPrice))
			noteItems = append(noteItems, CreditNoteDetail{
				ProductId:   line.ProductId,
				QtyAdjusted: line.QtyAdjusted,
				UnitPrice:   line.UnitPrice,
			})
		}

		payable, err := GetPayableByInvoice(ctx, tx, businessId, invoice.ID)
		if err != nil {
			return err
		}
		if _, err := AdjustPayable(tx, businessId, payable.ID, totalAmount.Neg(), decimal.Zero); err != nil {
			return err
		}

		number, err := nextDocumentNumber(tx, ctx, businessId, ModuleCreditNote)
		if err != nil {
			return err
		}
		note = CreditNote{
			BusinessId:        businessId,
			DocumentNumber:    number,
			NoteNumber:        input.NoteNumber,
			PurchaseInvoiceId: invoice.ID,
			SupplierId:        invoice.SupplierId,
			NoteDate:          input.NoteDate,
			Reason:            input.Reason,
			TotalAmount:       totalAmount,
			Details:           noteItems,
		}
		return tx.Create(&note).Error
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func GetCreditNote(ctx context.Context, id int) (*CreditNote, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[CreditNote](ctx, businessId, id, "Details")
}

func GetCreditNotesByInvoice(ctx context.Context, purchaseInvoiceId int) ([]*CreditNote, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var notes []*CreditNote
	err = db.WithContext(ctx).Preload("Details").
		Where("business_id = ? AND purchase_invoice_id = ?", businessId, purchaseInvoiceId).
		Order("id").Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
