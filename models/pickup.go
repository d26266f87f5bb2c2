package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PickupRecord struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id" binding:"required"`
	ServiceItemId   int             `gorm:"uniqueIndex;not null" json:"service_item_id" binding:"required"`
	RecipientName   string          `gorm:"size:255;not null" json:"recipient_name"`
	RecipientIdNo   string          `gorm:"size:100;not null" json:"recipient_id_no"`
	AmountCharged   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_charged"`
	PaymentRef      string          `gorm:"size:255;default:null" json:"payment_ref"`
	RepairPerformed bool            `gorm:"default:false" json:"repair_performed"`
	WarrantyId      *int            `gorm:"default:null" json:"warranty_id"`
	PickupDate      time.Time       `gorm:"not null" json:"pickup_date"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPickup struct {
	ServiceItemId int                   `json:"service_item_id" binding:"required"`
	RecipientName string                `json:"recipient_name" binding:"required"`
	RecipientIdNo string                `json:"recipient_id_no" binding:"required"`
	AmountCharged decimal.Decimal       `json:"amount_charged"`
	PaymentRef    string                `json:"payment_ref"`
	ValidityDays  int                   `json:"validity_days"`
	CoveredItems  []NewWarrantyCoverage `json:"covered_items"`
}

func (input NewPickup) validate() error {
	if input.RecipientName == "" {
		return NewValidationError("recipient name is required")
	}
	if input.RecipientIdNo == "" {
		return NewValidationError("recipient identity number is required")
	}
	if input.AmountCharged.IsNegative() {
		return NewValidationError("amount charged cannot be negative")
	}
	if input.AmountCharged.IsPositive() && input.PaymentRef == "" {
		return NewValidationError("payment reference is required when an amount is charged")
	}
	return nil
}

// hasRejectedQuotePath reports whether a Quoted item can leave through
// pickup because its quote was turned down. An open or approved quote
// keeps the item in the repair flow.
func hasRejectedQuotePath(ctx context.Context, db *gorm.DB, businessId string, serviceItemId int) (bool, error) {
	var rejected, blocking int64
	err := db.WithContext(ctx).Model(&ServiceQuote{}).
		Where("business_id = ? AND service_item_id = ? AND status = ?", businessId, serviceItemId, ServiceQuoteStatusRejected).
		Count(&rejected).Error
	if err != nil {
		return false, err
	}
	err = db.WithContext(ctx).Model(&ServiceQuote{}).
		Where("business_id = ? AND service_item_id = ? AND status IN ?", businessId, serviceItemId,
			[]ServiceQuoteStatus{ServiceQuoteStatusPendingApproval, ServiceQuoteStatusApproved}).
		Count(&blocking).Error
	if err != nil {
		return false, err
	}
	return rejected > 0 && blocking == 0, nil
}

// RegisterPickup hands the equipment back to the client. A repaired item
// leaves with a warranty; an item whose quote was rejected leaves as-is
// with no warranty created.
func RegisterPickup(ctx context.Context, input *NewPickup) (*PickupRecord, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[ServiceItem](ctx, businessId, input.ServiceItemId)
	if err != nil {
		return nil, NewNotFoundError("service item")
	}
	if !item.CurrentState.CanTransitionTo(ServiceItemStatePickedUp) {
		return nil, NewInvalidStateTransitionError("service item %s is %s, it cannot be picked up", item.ItemNumber, item.CurrentState)
	}

	repairPerformed := item.CurrentState == ServiceItemStateRepaired
	if item.CurrentState == ServiceItemStateQuoted {
		eligible, err := hasRejectedQuotePath(ctx, db, businessId, item.ID)
		if err != nil {
			return nil, err
		}
		if !eligible {
			return nil, NewInvalidStateTransitionError("service item %s still has an active quote, resolve it before pickup", item.ItemNumber)
		}
	}

	var pickup PickupRecord
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		pickup = PickupRecord{
			BusinessId:      businessId,
			ServiceItemId:   item.ID,
			RecipientName:   input.RecipientName,
			RecipientIdNo:   input.RecipientIdNo,
			AmountCharged:   input.AmountCharged,
			PaymentRef:      input.PaymentRef,
			RepairPerformed: repairPerformed,
			PickupDate:      time.Now(),
		}
		if err := tx.Create(&pickup).Error; err != nil {
			return err
		}

		if repairPerformed {
			warranty, err := createWarranty(tx, businessId, item.ID, pickup.PickupDate, input.ValidityDays, input.CoveredItems)
			if err != nil {
				return err
			}
			pickup.WarrantyId = &warranty.ID
			if err := tx.Model(&PickupRecord{}).Where("id = ?", pickup.ID).
				Update("WarrantyId", warranty.ID).Error; err != nil {
				return err
			}
		}

		return tx.Model(&ServiceItem{}).Where("id = ?", item.ID).
			Update("CurrentState", ServiceItemStatePickedUp).Error
	})
	if err != nil {
		return nil, err
	}
	return &pickup, nil
}

func GetPickupRecord(ctx context.Context, id int) (*PickupRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PickupRecord](ctx, businessId, id)
}
