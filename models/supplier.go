package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/utils"
)

type Supplier struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name" binding:"required"`
	ContactPerson string    `gorm:"size:100;default:null" json:"contact_person"`
	Email         string    `gorm:"size:100;default:null" json:"email"`
	Phone         string    `gorm:"size:100;default:null" json:"phone"`
	Country       string    `gorm:"size:100;default:null" json:"country"`
	Address       string    `gorm:"type:text;default:null" json:"address"`
	// fabric mill, trim supplier, freight forwarder etc.
	SupplierType string    `gorm:"size:50;default:null" json:"supplier_type"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Country       string `json:"country"`
	Address       string `json:"address"`
	SupplierType  string `json:"supplier_type"`
}

func (input *NewSupplier) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Supplier](ctx, "name", input.Name, id); err != nil {
		return errors.New("supplier name already exists")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	supplier := Supplier{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Country:       input.Country,
		Address:       input.Address,
		SupplierType:  input.SupplierType,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(supplier).Updates(map[string]interface{}{
		"Name":          input.Name,
		"ContactPerson": input.ContactPerson,
		"Email":         input.Email,
		"Phone":         input.Phone,
		"Country":       input.Country,
		"Address":       input.Address,
		"SupplierType":  input.SupplierType,
	}).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {
	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Material{}).Where("supplier_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by material")
	}

	if err := db.WithContext(ctx).Delete(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	return utils.FetchModel[Supplier](ctx, id)
}

func GetSuppliers(ctx context.Context, name *string) ([]*Supplier, error) {
	db := config.GetDB()
	var results []*Supplier

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
