package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"github.com/shopspring/decimal"
)

var (
	vatDivisor10 = decimal.NewFromInt(11)
	vatDivisor5  = decimal.NewFromInt(21)
)

// VatBookEntry is one row of the purchases VAT book. Amounts are
// VAT-inclusive per taxed base, with the IVA portions broken out the way
// the monthly filing wants them.
type VatBookEntry struct {
	ID                int                 `gorm:"primary_key" json:"id"`
	BusinessId        string              `gorm:"index;not null" json:"business_id"`
	DocumentType      VatBookDocumentType `gorm:"type:enum('PurchaseInvoice','DebitNote');not null" json:"document_type"`
	DocumentId        int                 `gorm:"not null" json:"document_id"`
	DocumentNumber    string              `gorm:"size:255;not null" json:"document_number"`
	PurchaseInvoiceId int                 `gorm:"index;not null" json:"purchase_invoice_id"`
	SupplierId        int                 `gorm:"index;not null" json:"supplier_id"`
	DocumentDate      time.Time           `gorm:"index;not null" json:"document_date"`
	Gravada10         decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"gravada10"`
	Iva10             decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"iva10"`
	Gravada5          decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"gravada5"`
	Iva5              decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"iva5"`
	Exenta            decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"exenta"`
	TotalAmount       decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CreatedAt         time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// VatBreakdown carries VAT-inclusive taxed bases and the IVA inside them.
type VatBreakdown struct {
	Gravada10 decimal.Decimal
	Iva10     decimal.Decimal
	Gravada5  decimal.Decimal
	Iva5      decimal.Decimal
	Exenta    decimal.Decimal
}

// ComputeIva10 extracts the 10% IVA portion contained in a VAT-inclusive
// amount. gravada / 11 for the 10% rate.
func ComputeIva10(gravada decimal.Decimal) decimal.Decimal {
	return gravada.Div(vatDivisor10).Round(4)
}

// ComputeIva5 extracts the 5% IVA portion contained in a VAT-inclusive
// amount. gravada / 21 for the 5% rate.
func ComputeIva5(gravada decimal.Decimal) decimal.Decimal {
	return gravada.Div(vatDivisor5).Round(4)
}

func (b VatBreakdown) Total() decimal.Decimal {
	return b.Gravada10.Add(b.Gravada5).Add(b.Exenta)
}

// AddAmount accumulates a VAT-inclusive line amount under the given rate.
func (b *VatBreakdown) AddAmount(rate VatRate, amount decimal.Decimal) {
	switch rate {
	case VatRate5:
		b.Gravada5 = b.Gravada5.Add(amount)
		b.Iva5 = ComputeIva5(b.Gravada5)
	case VatRateExempt:
		b.Exenta = b.Exenta.Add(amount)
	default:
		b.Gravada10 = b.Gravada10.Add(amount)
		b.Iva10 = ComputeIva10(b.Gravada10)
	}
}

func GetVatBookEntries(ctx context.Context, year int, month time.Month) ([]*VatBookEntry, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(business.Timezone)
	if err != nil {
		location = time.UTC
	}
	periodStart := time.Date(year, month, 1, 0, 0, 0, 0, location)
	periodEnd := periodStart.AddDate(0, 1, 0)

	var entries []*VatBookEntry
	err = db.WithContext(ctx).
		Where("business_id = ? AND document_date >= ? AND document_date < ?", businessId, periodStart, periodEnd).
		Order("document_date, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
