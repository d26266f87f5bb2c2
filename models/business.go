package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/google/uuid"
)

type Business struct {
	ID        uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Timezone  string    `gorm:"size:100;default:'America/Asuncion'" json:"timezone"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// User is the demo operator identity. There is no authentication layer;
// the server attaches a fixed user to every request context.
type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Username   string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	db := config.GetDB()

	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, NewValidationError("invalid business phone number")
		}
	}

	business := Business{
		ID:    uuid.New(),
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
	}
	if err := db.WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func GetBusinessById(ctx context.Context, businessId string) (*Business, error) {
	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error; err != nil {
		return nil, NewNotFoundError("business")
	}
	return &business, nil
}
