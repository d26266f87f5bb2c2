package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceQuote struct {
	ID            int                  `gorm:"primary_key" json:"id"`
	BusinessId    string               `gorm:"index;not null" json:"business_id" binding:"required"`
	QuoteNumber   string               `gorm:"size:255;not null" json:"quote_number"`
	ServiceItemId int                  `gorm:"index;not null" json:"service_item_id" binding:"required"`
	Status        ServiceQuoteStatus   `gorm:"type:enum('PendingApproval','Approved','Rejected');default:'PendingApproval'" json:"status"`
	TotalAmount   decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Details       []ServiceQuoteDetail `gorm:"foreignKey:ServiceQuoteId" json:"details"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type ServiceQuoteDetail struct {
	ID             int                  `gorm:"primary_key" json:"id"`
	ServiceQuoteId int                  `gorm:"index;not null" json:"service_quote_id"`
	RefId          int                  `gorm:"default:null" json:"ref_id"`
	Kind           ServiceQuoteItemKind `gorm:"type:enum('Part','Labor');not null" json:"kind"`
	Description    string               `gorm:"size:255;not null" json:"description"`
	Qty            decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice      decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CreatedAt      time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewServiceQuote struct {
	ServiceItemId int                     `json:"service_item_id" binding:"required"`
	Details       []NewServiceQuoteDetail `json:"details" binding:"required"`
}

type NewServiceQuoteDetail struct {
	RefId       int                  `json:"ref_id"`
	Kind        ServiceQuoteItemKind `json:"kind" binding:"required"`
	Description string               `json:"description" binding:"required"`
	Qty         decimal.Decimal      `json:"qty" binding:"required"`
	UnitPrice   decimal.Decimal      `json:"unit_price" binding:"required"`
}

func (input NewServiceQuote) validate(ctx context.Context, businessId string) error {
	if len(input.Details) == 0 {
		return NewValidationError("quote requires at least one line item")
	}
	for _, line := range input.Details {
		if line.Kind != ServiceQuoteItemKindPart && line.Kind != ServiceQuoteItemKindLabor {
			return NewValidationError("line kind must be Part or Labor")
		}
		if line.Description == "" {
			return NewValidationError("line description is required")
		}
		if !line.Qty.IsPositive() {
			return NewValidationError("line quantity must be greater than zero")
		}
		if line.UnitPrice.IsNegative() {
			return NewValidationError("line unit price cannot be negative")
		}
		if line.Kind == ServiceQuoteItemKindPart {
			if line.RefId == 0 {
				return NewValidationError("part lines must reference a product")
			}
			if err := validateProductExists(ctx, businessId, line.RefId); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateServiceQuote prices the recommended work for a diagnosed item.
// Only one open quote may exist per item at a time, and issuing it moves
// the item to Quoted.
func CreateServiceQuote(ctx context.Context, input *NewServiceQuote) (*ServiceQuote, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	if err := utils.ValidateResourceId[ServiceItem](ctx, businessId, input.ServiceItemId); err != nil {
		return nil, NewNotFoundError("service item")
	}

	var totalAmount decimal.Decimal
	var quoteItems []ServiceQuoteDetail
	for _, line := range input.Details {
		totalAmount = totalAmount.Add(line.Qty.Mul(line.UnitPrice))
		quoteItems = append(quoteItems, ServiceQuoteDetail{
			RefId:       line.RefId,
			Kind:        line.Kind,
			Description: line.Description,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
		})
	}

	var quote ServiceQuote
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		// Lock the item row so two concurrent quotes for the same item
		// serialize on it. The open-quote count is only reliable once the
		// row is held.
		var item ServiceItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("business_id = ?", businessId).
			First(&item, input.ServiceItemId).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return NewNotFoundError("service item")
			}
			return err
		}
		if !item.CurrentState.CanTransitionTo(ServiceItemStateQuoted) {
			return NewInvalidStateTransitionError("service item %s is %s, only Diagnosed items can be quoted", item.ItemNumber, item.CurrentState)
		}

		var openQuotes int64
		err = tx.Model(&ServiceQuote{}).
			Where("business_id = ? AND service_item_id = ? AND status = ?", businessId, item.ID, ServiceQuoteStatusPendingApproval).
			Count(&openQuotes).Error
		if err != nil {
			return err
		}
		if openQuotes > 0 {
			return NewValidationError("service item %s already has an open quote", item.ItemNumber)
		}

		number, err := nextDocumentNumber(tx, ctx, businessId, ModuleServiceQuote)
		if err != nil {
			return err
		}
		quote = ServiceQuote{
			BusinessId:    businessId,
			QuoteNumber:   number,
			ServiceItemId: item.ID,
			Status:        ServiceQuoteStatusPendingApproval,
			TotalAmount:   totalAmount,
			Details:       quoteItems,
		}
		if err := tx.Create(&quote).Error; err != nil {
			return err
		}
		return tx.Model(&ServiceItem{}).Where("id = ?", item.ID).
			Update("CurrentState", ServiceItemStateQuoted).Error
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

type QuoteDecision struct {
	Decision ServiceQuoteStatus `json:"decision" binding:"required"`
}

// ResolveServiceQuote records the client's answer. Approval starts the
// repair. Rejection closes the quote and leaves the item where it is, so
// it can go straight to pickup with no repair performed.
func ResolveServiceQuote(ctx context.Context, quoteId int, input *QuoteDecision) (*ServiceQuote, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.Decision != ServiceQuoteStatusApproved && input.Decision != ServiceQuoteStatusRejected {
		return nil, NewValidationError("decision must be Approved or Rejected")
	}

	quote, err := utils.FetchModel[ServiceQuote](ctx, businessId, quoteId, "Details")
	if err != nil {
		return nil, NewNotFoundError("service quote")
	}
	if quote.Status != ServiceQuoteStatusPendingApproval {
		return nil, NewInvalidStateTransitionError("quote %s has already been %s", quote.QuoteNumber, quote.Status)
	}

	item, err := utils.FetchModel[ServiceItem](ctx, businessId, quote.ServiceItemId)
	if err != nil {
		return nil, NewNotFoundError("service item")
	}

	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		if err := tx.Model(&ServiceQuote{}).Where("id = ?", quote.ID).
			Update("Status", input.Decision).Error; err != nil {
			return err
		}
		if input.Decision == ServiceQuoteStatusApproved {
			if !item.CurrentState.CanTransitionTo(ServiceItemStateInRepair) {
				return NewInvalidStateTransitionError("service item %s is %s, it cannot enter repair", item.ItemNumber, item.CurrentState)
			}
			return tx.Model(&ServiceItem{}).Where("id = ?", item.ID).
				Update("CurrentState", ServiceItemStateInRepair).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	quote.Status = input.Decision
	return quote, nil
}

func GetServiceQuote(ctx context.Context, id int) (*ServiceQuote, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[ServiceQuote](ctx, businessId, id, "Details")
}

func GetServiceQuotesByItem(ctx context.Context, serviceItemId int) ([]*ServiceQuote, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var quotes []*ServiceQuote
	err = db.WithContext(ctx).Preload("Details").
		Where("business_id = ? AND service_item_id = ?", businessId, serviceItemId).
		Order("id desc").Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}
