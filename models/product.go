package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Name          string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Sku           string          `gorm:"size:100" json:"sku"`
	Barcode       string          `gorm:"size:100" json:"barcode"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	VatRate       VatRate         `gorm:"type:enum('Rate10','Rate5','Exempt');default:'Rate10'" json:"vat_rate"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name          string          `json:"name" binding:"required"`
	Sku           string          `json:"sku"`
	Barcode       string          `json:"barcode"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	VatRate       VatRate         `json:"vat_rate"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if input.VatRate == "" {
		input.VatRate = VatRate10
	}

	product := Product{
		BusinessId:    businessId,
		Name:          input.Name,
		Sku:           input.Sku,
		Barcode:       input.Barcode,
		PurchasePrice: input.PurchasePrice,
		SalePrice:     input.SalePrice,
		VatRate:       input.VatRate,
		IsActive:      utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Product](ctx, businessId, id)
}

func GetProducts(ctx context.Context) ([]*Product, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Product](ctx, businessId)
}
