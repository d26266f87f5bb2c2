package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WorkRecord struct {
	ID             int              `gorm:"primary_key" json:"id"`
	BusinessId     string           `gorm:"index;not null" json:"business_id" binding:"required"`
	ServiceQuoteId int              `gorm:"uniqueIndex;not null" json:"service_quote_id" binding:"required"`
	ServiceItemId  int              `gorm:"index;not null" json:"service_item_id"`
	TechnicianId   int              `gorm:"index;not null" json:"technician_id"`
	Hours          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"hours"`
	ComputedCost   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"computed_cost"`
	Notes          string           `gorm:"type:text;default:null" json:"notes"`
	Details        []WorkItemDetail `gorm:"foreignKey:WorkRecordId" json:"details"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type WorkItemDetail struct {
	ID              int                  `gorm:"primary_key" json:"id"`
	WorkRecordId    int                  `gorm:"index;not null" json:"work_record_id"`
	RefId           int                  `gorm:"default:null" json:"ref_id"`
	Kind            ServiceQuoteItemKind `gorm:"type:enum('Part','Labor');not null" json:"kind"`
	Source          WorkItemSource       `gorm:"type:enum('Used','Added');not null" json:"source"`
	Description     string               `gorm:"size:255;not null" json:"description"`
	Qty             decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice       decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	WarrantyCovered bool                 `gorm:"default:false" json:"warranty_covered"`
	CreatedAt       time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

type NewWorkItem struct {
	RefId       int                  `json:"ref_id"`
	Kind        ServiceQuoteItemKind `json:"kind" binding:"required"`
	Description string               `json:"description" binding:"required"`
	Qty         decimal.Decimal      `json:"qty" binding:"required"`
	UnitPrice   decimal.Decimal      `json:"unit_price" binding:"required"`
}

type NewWorkRecord struct {
	ServiceQuoteId        int             `json:"service_quote_id" binding:"required"`
	TechnicianId          int             `json:"technician_id" binding:"required"`
	Hours                 decimal.Decimal `json:"hours"`
	ItemsUsed             []NewWorkItem   `json:"items_used"`
	ItemsAdded            []NewWorkItem   `json:"items_added"`
	WarrantyCoveredRefIds []int           `json:"warranty_covered_ref_ids"`
	Notes                 string          `json:"notes"`
}

func validateWorkItems(ctx context.Context, businessId string, lines []NewWorkItem) error {
	for _, line := range lines {
		if line.Kind != ServiceQuoteItemKindPart && line.Kind != ServiceQuoteItemKindLabor {
			return NewValidationError("work item kind must be Part or Labor")
		}
		if line.Description == "" {
			return NewValidationError("work item description is required")
		}
		if !line.Qty.IsPositive() {
			return NewValidationError("work item quantity must be greater than zero")
		}
		if line.UnitPrice.IsNegative() {
			return NewValidationError("work item unit price cannot be negative")
		}
		if line.Kind == ServiceQuoteItemKindPart {
			if line.RefId == 0 {
				return NewValidationError("part lines must reference a product")
			}
			if err := validateProductExists(ctx, businessId, line.RefId); err != nil {
				return err
			}
		}
	}
	return nil
}

// ComputeWorkCost sums quantity times unit price over the used and added
// lines, skipping lines whose RefId appears in coveredRefIds. Warranty
// coverage waives the charge, not the stock consumption.
func ComputeWorkCost(used, added []NewWorkItem, coveredRefIds []int) decimal.Decimal {
	covered := make(map[int]bool, len(coveredRefIds))
	for _, refId := range coveredRefIds {
		covered[refId] = true
	}

	var cost decimal.Decimal
	for _, line := range append(append([]NewWorkItem{}, used...), added...) {
		if line.RefId != 0 && covered[line.RefId] {
			continue
		}
		cost = cost.Add(line.Qty.Mul(line.UnitPrice))
	}
	return cost
}

// CompleteWork closes the repair for an approved quote. Every Part line,
// used or added, draws down stock at the service item's warehouse in the
// same transaction that writes the work record and moves the item to
// Repaired.
func CompleteWork(ctx context.Context, input *NewWorkRecord) (*WorkRecord, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(input.ItemsUsed) == 0 && len(input.ItemsAdded) == 0 {
		return nil, NewValidationError("work record requires at least one used or added item")
	}
	if input.Hours.IsNegative() {
		return nil, NewValidationError("hours cannot be negative")
	}
	if err := validateTechnicianExists(ctx, businessId, input.TechnicianId); err != nil {
		return nil, err
	}
	if err := validateWorkItems(ctx, businessId, input.ItemsUsed); err != nil {
		return nil, err
	}
	if err := validateWorkItems(ctx, businessId, input.ItemsAdded); err != nil {
		return nil, err
	}

	quote, err := utils.FetchModel[ServiceQuote](ctx, businessId, input.ServiceQuoteId)
	if err != nil {
		return nil, NewNotFoundError("service quote")
	}
	if quote.Status != ServiceQuoteStatusApproved {
		return nil, NewInvalidStateTransitionError("quote %s is %s, work can only be completed against an Approved quote", quote.QuoteNumber, quote.Status)
	}

	var existing int64
	err = db.WithContext(ctx).Model(&WorkRecord{}).
		Where("business_id = ? AND service_quote_id = ?", businessId, quote.ID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, NewValidationError("quote %s already has a work record", quote.QuoteNumber)
	}

	item, err := utils.FetchModel[ServiceItem](ctx, businessId, quote.ServiceItemId)
	if err != nil {
		return nil, NewNotFoundError("service item")
	}
	if !item.CurrentState.CanTransitionTo(ServiceItemStateRepaired) {
		return nil, NewInvalidStateTransitionError("service item %s is %s, it is not under repair", item.ItemNumber, item.CurrentState)
	}

	coveredRefIds := utils.UniqueSlice(input.WarrantyCoveredRefIds)
	covered := make(map[int]bool, len(coveredRefIds))
	for _, refId := range coveredRefIds {
		covered[refId] = true
	}

	buildDetails := func(lines []NewWorkItem, source WorkItemSource) []WorkItemDetail {
		var details []WorkItemDetail
		for _, line := range lines {
			details = append(details, WorkItemDetail{
				RefId:           line.RefId,
				Kind:            line.Kind,
				Source:          source,
				Description:     line.Description,
				Qty:             line.Qty,
				UnitPrice:       line.UnitPrice,
				WarrantyCovered: line.RefId != 0 && covered[line.RefId],
			})
		}
		return details
	}
	workItems := append(buildDetails(input.ItemsUsed, WorkItemSourceUsed), buildDetails(input.ItemsAdded, WorkItemSourceAdded)...)
	computedCost := ComputeWorkCost(input.ItemsUsed, input.ItemsAdded, coveredRefIds)

	var record WorkRecord
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		for _, line := range workItems {
			if line.Kind != ServiceQuoteItemKindPart {
				continue
			}
			if _, err := AdjustStock(tx, businessId, item.WarehouseId, line.RefId, line.Qty.Neg()); err != nil {
				return err
			}
		}

		record = WorkRecord{
			BusinessId:     businessId,
			ServiceQuoteId: quote.ID,
			ServiceItemId:  item.ID,
			TechnicianId:   input.TechnicianId,
			Hours:          input.Hours,
			ComputedCost:   computedCost,
			Notes:          input.Notes,
			Details:        workItems,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&ServiceItem{}).Where("id = ?", item.ID).
			Update("CurrentState", ServiceItemStateRepaired).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func GetWorkRecord(ctx context.Context, id int) (*WorkRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[WorkRecord](ctx, businessId, id, "Details")
}

func GetWorkRecordByQuote(ctx context.Context, serviceQuoteId int) (*WorkRecord, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var record WorkRecord
	err = db.WithContext(ctx).Preload("Details").
		Where("business_id = ? AND service_quote_id = ?", businessId, serviceQuoteId).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}
