package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/utils"
)

// Style is a customer garment style (the thing that gets sampled, costed
// and ordered).
type Style struct {
	ID          int       `gorm:"primary_key" json:"id"`
	StyleNo     string    `gorm:"size:100;not null" json:"style_no" binding:"required"`
	CustomerId  int       `gorm:"index;not null" json:"customer_id" binding:"required"`
	Season      string    `gorm:"size:50;default:null" json:"season"`
	GarmentType string    `gorm:"size:100;default:null" json:"garment_type"`
	Description string    `gorm:"type:text;default:null" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStyle struct {
	StyleNo     string `json:"style_no" binding:"required"`
	CustomerId  int    `json:"customer_id" binding:"required"`
	Season      string `json:"season"`
	GarmentType string `json:"garment_type"`
	Description string `json:"description"`
}

func (input *NewStyle) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Style](ctx, "style_no", input.StyleNo, id); err != nil {
		return errors.New("style no already exists")
	}
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	return nil
}

func CreateStyle(ctx context.Context, input *NewStyle) (*Style, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	style := Style{
		StyleNo:     input.StyleNo,
		CustomerId:  input.CustomerId,
		Season:      input.Season,
		GarmentType: input.GarmentType,
		Description: input.Description,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&style).Error; err != nil {
		return nil, err
	}
	return &style, nil
}

func UpdateStyle(ctx context.Context, id int, input *NewStyle) (*Style, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	style, err := utils.FetchModel[Style](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(style).Updates(map[string]interface{}{
		"StyleNo":     input.StyleNo,
		"CustomerId":  input.CustomerId,
		"Season":      input.Season,
		"GarmentType": input.GarmentType,
		"Description": input.Description,
	}).Error; err != nil {
		return nil, err
	}
	return style, nil
}

func DeleteStyle(ctx context.Context, id int) (*Style, error) {
	style, err := utils.FetchModel[Style](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&DevelopmentRequest{}).Where("style_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by development request")
	}
	if err := db.WithContext(ctx).Model(&PurchaseOrder{}).Where("style_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by purchase order")
	}

	if err := db.WithContext(ctx).Delete(style).Error; err != nil {
		return nil, err
	}
	return style, nil
}

func GetStyle(ctx context.Context, id int) (*Style, error) {
	return utils.FetchModel[Style](ctx, id)
}

func GetStyles(ctx context.Context, customerId *int, styleNo *string) ([]*Style, error) {
	db := config.GetDB()
	var results []*Style

	dbCtx := db.WithContext(ctx)
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if styleNo != nil && len(*styleNo) > 0 {
		dbCtx = dbCtx.Where("style_no LIKE ?", "%"+*styleNo+"%")
	}
	if err := dbCtx.Order("style_no").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
