package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
)

type Warehouse struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Address    string    `gorm:"size:255" json:"address"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWarehouse struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	warehouse := Warehouse{
		BusinessId: businessId,
		Name:       input.Name,
		Address:    input.Address,
	}
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Warehouse](ctx, businessId, id)
}

func GetWarehouses(ctx context.Context) ([]*Warehouse, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Warehouse](ctx, businessId)
}
