package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
)

type Supplier struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	TaxId      string    `gorm:"size:50" json:"tax_id"`
	Email      string    `gorm:"size:255" json:"email"`
	Phone      string    `gorm:"size:50" json:"phone"`
	Address    string    `gorm:"size:255" json:"address"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name    string `json:"name" binding:"required"`
	TaxId   string `json:"tax_id"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (input NewSupplier) validate() error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return NewValidationError("invalid supplier email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return NewValidationError("invalid supplier phone number")
		}
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	supplier := Supplier{
		BusinessId: businessId,
		Name:       input.Name,
		TaxId:      input.TaxId,
		Email:      input.Email,
		Phone:      input.Phone,
		Address:    input.Address,
	}
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Supplier](ctx, businessId, id)
}

func GetSuppliers(ctx context.Context) ([]*Supplier, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Supplier](ctx, businessId)
}
