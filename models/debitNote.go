package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DebitNote struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"uniqueIndex:ux_debit_note_supplier_number;not null" json:"business_id" binding:"required"`
	DocumentNumber    string          `gorm:"size:255;not null" json:"document_number"`
	NoteNumber        string          `gorm:"size:255;uniqueIndex:ux_debit_note_supplier_number;not null" json:"note_number"`
	PurchaseInvoiceId int             `gorm:"index;not null" json:"purchase_invoice_id" binding:"required"`
	SupplierId        int             `gorm:"index;uniqueIndex:ux_debit_note_supplier_number;not null" json:"supplier_id"`
	NoteDate          time.Time       `gorm:"not null" json:"note_date" binding:"required"`
	Reason            string          `gorm:"type:text;not null" json:"reason"`
	Gravada10         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gravada10"`
	Iva10             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"iva10"`
	Gravada5          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gravada5"`
	Iva5              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"iva5"`
	Exenta            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"exenta"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDebitNote struct {
	PurchaseInvoiceId int             `json:"purchase_invoice_id" binding:"required"`
	NoteNumber        string          `json:"note_number" binding:"required"`
	NoteDate          time.Time       `json:"note_date" binding:"required"`
	Reason            string          `json:"reason" binding:"required"`
	Gravada10         decimal.Decimal `json:"gravada10"`
	Gravada5          decimal.Decimal `json:"gravada5"`
	Exenta            decimal.Decimal `json:"exenta"`
}

// breakdown grosses up the note's VAT-inclusive amounts into the filing
// breakdown.
func (input NewDebitNote) breakdown() VatBreakdown {
	return VatBreakdown{
		Gravada10: input.Gravada10,
		Iva10:     ComputeIva10(input.Gravada10),
		Gravada5:  input.Gravada5,
		Iva5:      ComputeIva5(input.Gravada5),
		Exenta:    input.Exenta,
	}
}

func (input NewDebitNote) validate() error {
	if input.Gravada10.IsNegative() || input.Gravada5.IsNegative() || input.Exenta.IsNegative() {
		return NewValidationError("debit note amounts cannot be negative")
	}
	total := input.Gravada10.Add(input.Gravada5).Add(input.Exenta)
	if !total.IsPositive() {
		return NewValidationError("debit note total must be greater than zero")
	}
	return nil
}

// ApplyDebitNote posts a supplier debit note for extra charges against a
// purchase invoice. The note, the payable increment and the VAT book
// entry commit together. No stock effect.
func ApplyDebitNote(ctx context.Context, input *NewDebitNote) (*DebitNote, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[PurchaseInvoice](ctx, businessId, input.PurchaseInvoiceId)
	if err != nil {
		return nil, NewNotFoundError("purchase invoice")
	}

	var duplicates int64
	err = db.WithContext(ctx).Model(&DebitNote{}).
		Where("business_id = ? AND supplier_id = ? AND note_number = ?", businessId, invoice.SupplierId, input.NoteNumber).
		Count(&duplicates).Error
	if err != nil {
		return nil, err
	}
	if duplicates > 0 {
		return nil, NewValidationError("debit note %s already exists for this supplier", input.NoteNumber)
	}

	release := obtainPostingLock(ctx, businessId)
	defer release()

	breakdown := input.breakdown()
	totalAmount := breakdown.Total()

	var note DebitNote
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		payable, err := GetPayableByInvoice(ctx, tx, businessId, invoice.ID)
		if err != nil {
			return err
		}
		if _, err := AdjustPayable(tx, businessId, payable.ID, totalAmount, totalAmount); err != nil {
			return err
		}

		number, err := nextDocumentNumber(tx, ctx, businessId, ModuleDebitNote)
		if err != nil {
			return err
		}
		note = DebitNote{
			BusinessId:        businessId,
			DocumentNumber:    number,
			NoteNumber:        input.NoteNumber,
			PurchaseInvoiceId: invoice.ID,
			SupplierId:        invoice.SupplierId,
			NoteDate:          input.NoteDate,
			Reason:            input.Reason,
			Gravada10:         breakdown.Gravada10,
			Iva10:             breakdown.Iva10,
			Gravada5:          breakdown.Gravada5,
			Iva5:              breakdown.Iva5,
			Exenta:            breakdown.Exenta,
			TotalAmount:       totalAmount,
		}
		if err := tx.Create(&note).Error; err != nil {
			return err
		}

		bookEntry := VatBookEntry{
			BusinessId:        businessId,
			DocumentType:      VatBookDocumentTypeDebitNote,
			DocumentId:        note.ID,
			DocumentNumber:    note.NoteNumber,
			PurchaseInvoiceId: invoice.ID,
			SupplierId:        note.SupplierId,
			DocumentDate:      note.NoteDate,
			Gravada10:         breakdown.Gravada10,
			Iva10:             breakdown.Iva10,
			Gravada5:          breakdown.Gravada5,
			Iva5:              breakdown.Iva5,
			Exenta:            breakdown.Exenta,
			TotalAmount:       totalAmount,
		}
		return tx.Create(&bookEntry).Error
	})
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil, NewValidationError("debit note %s already exists for this supplier", input.NoteNumber)
		}
		return nil, err
	}
	return &note, nil
}

func GetDebitNote(ctx context.Context, id int) (*DebitNote, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[DebitNote](ctx, businessId, id)
}

func GetDebitNotesByInvoice(ctx context.Context, purchaseInvoiceId int) ([]*DebitNote, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var notes []*DebitNote
	err = db.WithContext(ctx).
		Where("business_id = ? AND purchase_invoice_id = ?", businessId, purchaseInvoiceId).
		Order("id").Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
