package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
)

// Client is the walk-in customer bringing equipment in for repair.
type Client struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	IdNumber   string    `gorm:"size:50" json:"id_number"`
	Email      string    `gorm:"size:255" json:"email"`
	Phone      string    `gorm:"size:50" json:"phone"`
	Address    string    `gorm:"size:255" json:"address"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name     string `json:"name" binding:"required"`
	IdNumber string `json:"id_number"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (input NewClient) validate() error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return NewValidationError("invalid client email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return NewValidationError("invalid client phone number")
		}
	}
	return nil
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	client := Client{
		BusinessId: businessId,
		Name:       input.Name,
		IdNumber:   input.IdNumber,
		Email:      input.Email,
		Phone:      input.Phone,
		Address:    input.Address,
	}
	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func GetClient(ctx context.Context, id int) (*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Client](ctx, businessId, id)
}

func GetClients(ctx context.Context) ([]*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Client](ctx, businessId)
}
