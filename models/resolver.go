package models

import (
	"context"
	"errors"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
)

// ServiceItemChain is the full read model around one piece of equipment,
// assembled for detail views and for precondition checks before a
// mutation.
type ServiceItemChain struct {
	Item           *ServiceItem    `json:"item"`
	Reception      *Reception      `json:"reception"`
	Quotes         []*ServiceQuote `json:"quotes"`
	WorkRecord     *WorkRecord     `json:"work_record"`
	Pickup         *PickupRecord   `json:"pickup"`
	Warranty       *Warranty       `json:"warranty"`
	WarrantyOrigin *ServiceItem    `json:"warranty_origin"`
	WarrantyClaims []*ServiceItem  `json:"warranty_claims"`
}

// GetServiceItemChain resolves a service item and every document hanging
// off it. Read only.
func GetServiceItemChain(ctx context.Context, serviceItemId int) (*ServiceItemChain, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[ServiceItem](ctx, businessId, serviceItemId)
	if err != nil {
		return nil, NewNotFoundError("service item")
	}

	chain := &ServiceItemChain{Item: item}

	chain.Reception, err = utils.FetchModel[Reception](ctx, businessId, item.ReceptionId)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}

	chain.Quotes, err = GetServiceQuotesByItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	for _, quote := range chain.Quotes {
		if quote.Status != ServiceQuoteStatusApproved {
			continue
		}
		record, err := GetWorkRecordByQuote(ctx, quote.ID)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				continue
			}
			return nil, err
		}
		chain.WorkRecord = record
	}

	var pickup PickupRecord
	err = db.WithContext(ctx).
		Where("business_id = ? AND service_item_id = ?", businessId, item.ID).
		First(&pickup).Error
	if err == nil {
		chain.Pickup = &pickup
	}

	warranty, err := GetWarrantyByServiceItem(ctx, item.ID)
	if err == nil {
		chain.Warranty = warranty
	} else if !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}

	if item.WarrantyOriginId != nil {
		origin, err := utils.FetchModel[ServiceItem](ctx, businessId, *item.WarrantyOriginId)
		if err == nil {
			chain.WarrantyOrigin = origin
		}
	}

	err = db.WithContext(ctx).
		Where("business_id = ? AND warranty_origin_id = ?", businessId, item.ID).
		Order("id").Find(&chain.WarrantyClaims).Error
	if err != nil {
		return nil, err
	}

	return chain, nil
}

// PurchaseChain ties a purchase invoice back to its order and forward to
// the payable and every note applied against it.
type PurchaseChain struct {
	Order       *PurchaseOrder   `json:"order"`
	Invoice     *PurchaseInvoice `json:"invoice"`
	Payable     *Payable         `json:"payable"`
	CreditNotes []*CreditNote    `json:"credit_notes"`
	DebitNotes  []*DebitNote     `json:"debit_notes"`
}

// GetPurchaseChain resolves a purchase invoice and its related documents.
// Read only.
func GetPurchaseChain(ctx context.Context, purchaseInvoiceId int) (*PurchaseChain, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[PurchaseInvoice](ctx, businessId, purchaseInvoiceId, "Details")
	if err != nil {
		return nil, NewNotFoundError("purchase invoice")
	}

	chain := &PurchaseChain{Invoice: invoice}

	if invoice.PurchaseOrderId != 0 {
		order, err := utils.FetchModel[PurchaseOrder](ctx, businessId, invoice.PurchaseOrderId, "Details")
		if err == nil {
			chain.Order = order
		}
	}

	chain.Payable, err = GetPayableByInvoice(ctx, db.WithContext(ctx), businessId, invoice.ID)
	if err != nil {
		return nil, err
	}

	chain.CreditNotes, err = GetCreditNotesByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	chain.DebitNotes, err = GetDebitNotesByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	return chain, nil
}
