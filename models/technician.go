package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
)

type Technician struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone      string    `gorm:"size:50" json:"phone"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTechnician struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

func CreateTechnician(ctx context.Context, input *NewTechnician) (*Technician, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, NewValidationError("invalid technician phone number")
		}
	}

	technician := Technician{
		BusinessId: businessId,
		Name:       input.Name,
		Phone:      input.Phone,
		IsActive:   utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&technician).Error; err != nil {
		return nil, err
	}
	return &technician, nil
}

func GetTechnicians(ctx context.Context) ([]*Technician, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Technician](ctx, businessId)
}
