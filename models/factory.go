package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/utils"
)

// Factory is a production facility orders are placed with.
type Factory struct {
	ID              int       `gorm:"primary_key" json:"id"`
	Name            string    `gorm:"size:255;not null" json:"name" binding:"required"`
	ContactPerson   string    `gorm:"size:100;default:null" json:"contact_person"`
	Phone           string    `gorm:"size:100;default:null" json:"phone"`
	Country         string    `gorm:"size:100;default:null" json:"country"`
	Address         string    `gorm:"type:text;default:null" json:"address"`
	MonthlyCapacity int       `gorm:"default:0" json:"monthly_capacity"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFactory struct {
	Name            string `json:"name" binding:"required"`
	ContactPerson   string `json:"contact_person"`
	Phone           string `json:"phone"`
	Country         string `json:"country"`
	Address         string `json:"address"`
	MonthlyCapacity int    `json:"monthly_capacity"`
}

func (input *NewFactory) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Factory](ctx, "name", input.Name, id); err != nil {
		return errors.New("factory name already exists")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateFactory(ctx context.Context, input *NewFactory) (*Factory, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	factory := Factory{
		Name:            input.Name,
		ContactPerson:   input.ContactPerson,
		Phone:           input.Phone,
		Country:         input.Country,
		Address:         input.Address,
		MonthlyCapacity: input.MonthlyCapacity,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&factory).Error; err != nil {
		return nil, err
	}
	return &factory, nil
}

func UpdateFactory(ctx context.Context, id int, input *NewFactory) (*Factory, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	factory, err := utils.FetchModel[Factory](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(factory).Updates(map[string]interface{}{
		"Name":            input.Name,
		"ContactPerson":   input.ContactPerson,
		"Phone":           input.Phone,
		"Country":         input.Country,
		"Address":         input.Address,
		"MonthlyCapacity": input.MonthlyCapacity,
	}).Error; err != nil {
		return nil, err
	}
	return factory, nil
}

func DeleteFactory(ctx context.Context, id int) (*Factory, error) {
	factory, err := utils.FetchModel[Factory](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&PurchaseOrder{}).Where("factory_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by purchase order")
	}

	if err := db.WithContext(ctx).Delete(factory).Error; err != nil {
		return nil, err
	}
	return factory, nil
}

func GetFactory(ctx context.Context, id int) (*Factory, error) {
	return utils.FetchModel[Factory](ctx, id)
}

func GetFactories(ctx context.Context, name *string) ([]*Factory, error) {
	db := config.GetDB()
	var results []*Factory

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
