package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"gorm.io/gorm"
)

const defaultWarrantyValidityDays = 90

type Warranty struct {
	ID            int                    `gorm:"primary_key" json:"id"`
	BusinessId    string                 `gorm:"index;not null" json:"business_id" binding:"required"`
	ServiceItemId int                    `gorm:"index;not null" json:"service_item_id" binding:"required"`
	StartDate     time.Time              `gorm:"not null" json:"start_date"`
	EndDate       time.Time              `gorm:"not null" json:"end_date"`
	Status        WarrantyStatus         `gorm:"type:enum('Active','Claimed');default:'Active'" json:"status"`
	CoveredItems  []WarrantyCoveredItem  `gorm:"foreignKey:WarrantyId" json:"covered_items"`
	CreatedAt     time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

type WarrantyCoveredItem struct {
	ID          int       `gorm:"primary_key" json:"id"`
	WarrantyId  int       `gorm:"index;not null" json:"warranty_id"`
	RefId       int       `gorm:"default:null" json:"ref_id"`
	Description string    `gorm:"size:255;not null" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewWarrantyCoverage struct {
	RefId       int    `json:"ref_id"`
	Description string `json:"description" binding:"required"`
}

func createWarranty(tx *gorm.DB, businessId string, serviceItemId int, startDate time.Time, validityDays int, coverage []NewWarrantyCoverage) (*Warranty, error) {
	if validityDays <= 0 {
		validityDays = defaultWarrantyValidityDays
	}

	var coveredItems []WarrantyCoveredItem
	for _, item := range coverage {
		if item.Description == "" {
			return nil, NewValidationError("covered item description is required")
		}
		coveredItems = append(coveredItems, WarrantyCoveredItem{
			RefId:       item.RefId,
			Description: item.Description,
		})
	}

	warranty := Warranty{
		BusinessId:    businessId,
		ServiceItemId: serviceItemId,
		StartDate:     startDate,
		EndDate:       startDate.AddDate(0, 0, validityDays),
		Status:        WarrantyStatusActive,
		CoveredItems:  coveredItems,
	}
	if err := tx.Create(&warranty).Error; err != nil {
		return nil, err
	}
	return &warranty, nil
}

type NewWarrantyClaim struct {
	WarrantyId         int    `json:"warranty_id" binding:"required"`
	ProblemDescription string `json:"problem_description" binding:"required"`
	Accessories        string `json:"accessories"`
}

// FileWarrantyClaim brings a repaired piece of equipment back under its
// warranty. The warranty flips to Claimed and a fresh ServiceItem opens in
// Received, carrying over only the equipment identity. Diagnosis,
// technician and repair history stay with the original item.
func FileWarrantyClaim(ctx context.Context, input *NewWarrantyClaim) (*ServiceItem, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.ProblemDescription == "" {
		return nil, NewValidationError("problem description is required")
	}

	warranty, err := utils.FetchModel[Warranty](ctx, businessId, input.WarrantyId, "CoveredItems")
	if err != nil {
		return nil, NewNotFoundError("warranty")
	}
	if warranty.Status != WarrantyStatusActive {
		return nil, NewInvalidStateTransitionError("warranty has already been claimed")
	}
	if time.Now().After(warranty.EndDate) {
		return nil, NewValidationError("warranty expired on %s", warranty.EndDate.Format("2006-01-02"))
	}

	origin, err := utils.FetchModel[ServiceItem](ctx, businessId, warranty.ServiceItemId)
	if err != nil {
		return nil, NewNotFoundError("service item")
	}

	var claimItem ServiceItem
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		if err := tx.Model(&Warranty{}).Where("id = ?", warranty.ID).
			Update("Status", WarrantyStatusClaimed).Error; err != nil {
			return err
		}

		itemNumber, err := nextDocumentNumber(tx, ctx, businessId, ModuleServiceItem)
		if err != nil {
			return err
		}
		claimItem = ServiceItem{
			BusinessId:           businessId,
			ItemNumber:           itemNumber,
			ReceptionId:          origin.ReceptionId,
			ClientId:             origin.ClientId,
			WarehouseId:          origin.WarehouseId,
			EquipmentDescription: origin.EquipmentDescription,
			SerialNumber:         origin.SerialNumber,
			Accessories:          input.Accessories,
			ReportedProblem:      input.ProblemDescription,
			CurrentState:         ServiceItemStateReceived,
			WarrantyOriginId:     &origin.ID,
		}
		return tx.Create(&claimItem).Error
	})
	if err != nil {
		return nil, err
	}
	return &claimItem, nil
}

func GetWarranty(ctx context.Context, id int) (*Warranty, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Warranty](ctx, businessId, id, "CoveredItems")
}

func GetWarrantyByServiceItem(ctx context.Context, serviceItemId int) (*Warranty, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var warranty Warranty
	err = db.WithContext(ctx).Preload("CoveredItems").
		Where("business_id = ? AND service_item_id = ?", businessId, serviceItemId).
		First(&warranty).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &warranty, nil
}
