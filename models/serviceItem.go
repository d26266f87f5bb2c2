package models

import (
	"context"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"gorm.io/gorm"
)

// Reception is the front-desk intake document. A client drops off one or
// more pieces of equipment in a single visit and every piece becomes a
// ServiceItem starting its life in Received.
type Reception struct {
	ID              int           `gorm:"primary_key" json:"id"`
	BusinessId      string        `gorm:"index;not null" json:"business_id" binding:"required"`
	ReceptionNumber string        `gorm:"size:255;not null" json:"reception_number"`
	ClientId        int           `gorm:"index;not null" json:"client_id" binding:"required"`
	WarehouseId     int           `gorm:"not null" json:"warehouse_id"`
	ReceptionDate   time.Time     `gorm:"not null" json:"reception_date"`
	Notes           string        `gorm:"type:text;default:null" json:"notes"`
	Items           []ServiceItem `gorm:"foreignKey:ReceptionId" json:"items"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type ServiceItem struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	BusinessId           string           `gorm:"index;not null" json:"business_id" binding:"required"`
	ItemNumber           string           `gorm:"size:255;not null" json:"item_number"`
	ReceptionId          int              `gorm:"index;not null" json:"reception_id"`
	ClientId             int              `gorm:"index;not null" json:"client_id"`
	WarehouseId          int              `gorm:"not null" json:"warehouse_id"`
	EquipmentDescription string           `gorm:"type:text;not null" json:"equipment_description"`
	SerialNumber         string           `gorm:"size:255;default:null" json:"serial_number"`
	Accessories          string           `gorm:"type:text;default:null" json:"accessories"`
	ReportedProblem      string           `gorm:"type:text;not null" json:"reported_problem"`
	CurrentState         ServiceItemState `gorm:"type:enum('Received','Diagnosed','Quoted','InRepair','Repaired','PickedUp');default:'Received'" json:"current_state"`
	Diagnosis            string           `gorm:"type:text;default:null" json:"diagnosis"`
	RecommendedWork      string           `gorm:"type:text;default:null" json:"recommended_work"`
	TechnicianId         *int             `gorm:"index;default:null" json:"technician_id"`
	WarrantyOriginId     *int             `gorm:"index;default:null" json:"warranty_origin_id"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReception struct {
	ClientId      int                `json:"client_id" binding:"required"`
	WarehouseId   int                `json:"warehouse_id" binding:"required"`
	ReceptionDate time.Time          `json:"reception_date" binding:"required"`
	Notes         string             `json:"notes"`
	Items         []NewReceptionItem `json:"items" binding:"required"`
}

type NewReceptionItem struct {
	EquipmentDescription string `json:"equipment_description" binding:"required"`
	SerialNumber         string `json:"serial_number"`
	Accessories          string `json:"accessories"`
	ReportedProblem      string `json:"reported_problem" binding:"required"`
}

func (input NewReception) validate(ctx context.Context, businessId string) error {
	if err := validateClientExists(ctx, businessId, input.ClientId); err != nil {
		return err
	}
	if err := validateWarehouseExists(ctx, businessId, input.WarehouseId); err != nil {
		return err
	}
	if len(input.Items) == 0 {
		return NewValidationError("a reception requires at least one equipment item")
	}
	for _, item := range input.Items {
		if item.EquipmentDescription == "" {
			return NewValidationError("equipment description is required")
		}
		if item.ReportedProblem == "" {
			return NewValidationError("reported problem is required")
		}
	}
	return nil
}

// CreateReception registers a client visit and opens one ServiceItem per
// dropped-off equipment, all in Received.
func CreateReception(ctx context.Context, input *NewReception) (*Reception, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	var reception Reception
	err = runInTransactionWithRetry(ctx, db, func(tx *gorm.DB) error {
		receptionNumber, err := nextDocumentNumber(tx, ctx, businessId, ModuleServiceReception)
		if err != nil {
			return err
		}
		reception = Reception{
			BusinessId:      businessId,
			ReceptionNumber: receptionNumber,
			ClientId:        input.ClientId,
			WarehouseId:     input.WarehouseId,
			ReceptionDate:   input.ReceptionDate,
			Notes:           input.Notes,
		}
		if err := tx.Create(&reception).Error; err != nil {
			return err
		}

		for _, item := range input.Items {
			itemNumber, err := nextDocumentNumber(tx, ctx, businessId, ModuleServiceItem)
			if err != nil {
				return err
			}
			serviceItem := ServiceItem{
				BusinessId:           businessId,
				ItemNumber:           itemNumber,
				ReceptionId:          reception.ID,
				ClientId:             input.ClientId,
				WarehouseId:          input.WarehouseId,
				EquipmentDescription: item.EquipmentDescription,
				SerialNumber:         item.SerialNumber,
				Accessories:          item.Accessories,
				ReportedProblem:      item.ReportedProblem,
				CurrentState:         ServiceItemStateReceived,
			}
			if err := tx.Create(&serviceItem).Error; err != nil {
				return err
			}
			reception.Items = append(reception.Items, serviceItem)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reception, nil
}

type NewDiagnosis struct {
	ServiceItemId   int    `json:"service_item_id" binding:"required"`
	TechnicianId    int    `json:"technician_id" binding:"required"`
	Diagnosis       string `json:"diagnosis" binding:"required"`
	RecommendedWork string `json:"recommended_work" binding:"required"`
}

// DiagnoseServiceItem records the technician's findings. Legal from
// Received, and re-entrant from Diagnosed so the write-up can be edited
// before quoting.
func DiagnoseServiceItem(ctx context.Context, input *NewDiagnosis) (*ServiceItem, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.Diagnosis == "" {
		return nil, NewValidationError("diagnosis is required")
	}
	if input.RecommendedWork == "" {
		return nil, NewValidationError("recommended work is required")
	}
	if err := validateTechnicianExists(ctx, businessId, input.TechnicianId); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[ServiceItem](ctx, businessId, input.ServiceItemId)
	if err != nil {
		return nil, NewNotFoundError("service item")
	}
	if !item.CurrentState.CanTransitionTo(ServiceItemStateDiagnosed) {
		return nil, NewInvalidStateTransitionError("service item %s is %s, it cannot be diagnosed", item.ItemNumber, item.CurrentState)
	}

	err = db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"current_state":    ServiceItemStateDiagnosed,
		"diagnosis":        input.Diagnosis,
		"recommended_work": input.RecommendedWork,
		"technician_id":    input.TechnicianId,
	}).Error
	if err != nil {
		return nil, err
	}

	item.CurrentState = ServiceItemStateDiagnosed
	item.Diagnosis = input.Diagnosis
	item.RecommendedWork = input.RecommendedWork
	item.TechnicianId = &input.TechnicianId
	return item, nil
}

func GetReception(ctx context.Context, id int) (*Reception, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Reception](ctx, businessId, id, "Items")
}

func GetServiceItem(ctx context.Context, id int) (*ServiceItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[ServiceItem](ctx, businessId, id)
}

func GetServiceItems(ctx context.Context, state ServiceItemState) ([]*ServiceItem, error) {
	db := config.GetDB()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Where("business_id = ?", businessId)
	if state != "" {
		query = query.Where("current_state = ?", state)
	}

	var items []*ServiceItem
	if err := query.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
