package utils

import (
	"context"

	"bitbucket.org/stitchfocus/garment_backend/config"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch all models from db
func FetchAllModels[T any](ctx context.Context, associations ...string) ([]*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// check if id exists, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	db := config.GetDB()
	var model T
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// check that no other row holds the same value in column (exceptId = 0 for create)
func ValidateUnique[T any](ctx context.Context, column string, value interface{}, exceptId interface{}) error {
	db := config.GetDB()
	var model T
	var count int64
	dbCtx := db.WithContext(ctx).Model(&model).Where(column+" = ?", value)
	if exceptId != nil && exceptId != 0 {
		dbCtx = dbCtx.Where("id != ?", exceptId)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrorDuplicateValue
	}
	return nil
}
