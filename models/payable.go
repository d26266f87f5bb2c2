package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Payable tracks what is owed to the supplier for one purchase invoice.
// Invariant: OutstandingBalance = TotalAmount at creation, then
// outstanding = total - sum(credit notes) + sum(debit notes) - payments.
type Payable struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	BusinessId         string          `gorm:"index;not null" json:"business_id"`
	PurchaseInvoiceId  int             `gorm:"uniqueIndex;not null" json:"purchase_invoice_id"`
	SupplierId         int             `gorm:"index;not null" json:"supplier_id"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"outstanding_balance"`
	DueDate            *time.Time      `gorm:"default:null" json:"due_date"`
	Status             PayableStatus   `gorm:"type:enum('Pending','PartiallyPaid','Paid');default:'Pending'" json:"status"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payable) refreshStatus() {
	switch {
	case p.OutstandingBalance.IsZero():
		p.Status = PayableStatusPaid
	case p.OutstandingBalance.LessThan(p.TotalAmount):
		p.Status = PayableStatusPartiallyPaid
	default:
		p.Status = PayableStatusPending
	}
}

// AdjustPayable applies deltaOutstanding (and deltaTotal, for debit notes) to
// the payable inside the caller's transaction. The row is locked first; the
// outstanding balance is never allowed below zero.
func AdjustPayable(tx *gorm.DB, businessId string, payableId int, deltaOutstanding decimal.Decimal, deltaTotal decimal.Decimal) (*Payable, error) {
	var payable Payable
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		First(&payable, payableId).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("payable")
		}
		return nil, err
	}

	newOutstanding := payable.OutstandingBalance.Add(deltaOutstanding)
	if newOutstanding.IsNegative() {
		return nil, NewValidationError("amount exceeds the payable's outstanding balance of %s", payable.OutstandingBalance.String())
	}

	payable.OutstandingBalance = newOutstanding
	payable.TotalAmount = payable.TotalAmount.Add(deltaTotal)
	payable.refreshStatus()

	if err := tx.Model(&Payable{}).Where("id = ?", payable.ID).
		Updates(map[string]interface{}{
			"outstanding_balance": payable.OutstandingBalance,
			"total_amount":        payable.TotalAmount,
			"status":              payable.Status,
		}).Error; err != nil {
		return nil, err
	}
	return &payable, nil
}

func GetPayable(ctx context.Context, id int) (*Payable, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Payable](ctx, businessId, id)
}

func GetPayableByInvoice(ctx context.Context, tx *gorm.DB, businessId string, purchaseInvoiceId int) (*Payable, error) {
	var payable Payable
	err := tx.WithContext(ctx).
		Where("business_id = ? AND purchase_invoice_id = ?", businessId, purchaseInvoiceId).
		First(&payable).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("payable")
		}
		return nil, err
	}
	return &payable, nil
}

func GetPayables(ctx context.Context) ([]*Payable, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Payable](ctx, businessId)
}
