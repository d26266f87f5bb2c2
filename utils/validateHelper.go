package utils

import (
	"context"

	"bitbucket.org/sistematicapy/taller_backend/config"
)

// check if id exists, using ctx's business_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, businessId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, businessId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// count rows of T scoped to business_id plus an extra condition
func ResourceCountWhere[T any](ctx context.Context, businessId string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("business_id = ?", businessId).
		Where(cond, values...).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
