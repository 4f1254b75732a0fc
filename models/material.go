package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/utils"
	"github.com/shopspring/decimal"
)

type MaterialCategory string

const (
	MaterialCategoryFabric MaterialCategory = "fabric"
	MaterialCategoryTrim   MaterialCategory = "trim"
)

func (c MaterialCategory) IsValid() bool {
	return c == MaterialCategoryFabric || c == MaterialCategoryTrim
}

// Material is a catalog entry costing sheet lines can reference. The
// defaults here pre-fill new cost lines; the sheet keeps its own copy so a
// later catalog change never rewrites a quoted sheet.
type Material struct {
	ID         int              `gorm:"primary_key" json:"id"`
	Code       string           `gorm:"size:50;not null" json:"code" binding:"required"`
	Name       string           `gorm:"size:255;not null" json:"name" binding:"required"`
	Category   MaterialCategory `gorm:"type:enum('fabric','trim');not null" json:"category" binding:"required"`
	SupplierId int              `gorm:"index;default:null" json:"supplier_id"`
	Unit       string           `gorm:"size:20;default:'m'" json:"unit"`
	UnitPrice  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	VatRefund  *bool            `gorm:"not null;default:false" json:"vat_refund"`
	VatPercent decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"vat_percent"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMaterial struct {
	Code       string           `json:"code" binding:"required"`
	Name       string           `json:"name" binding:"required"`
	Category   MaterialCategory `json:"category" binding:"required"`
	SupplierId int              `json:"supplier_id"`
	Unit       string           `json:"unit"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	VatRefund  *bool            `json:"vat_refund"`
	VatPercent decimal.Decimal  `json:"vat_percent"`
}

func (input *NewMaterial) validate(ctx context.Context, id int) error {
	if !input.Category.IsValid() {
		return errors.New("invalid material category")
	}
	if err := utils.ValidateUnique[Material](ctx, "code", input.Code, id); err != nil {
		return errors.New("material code already exists")
	}
	if input.SupplierId > 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, input.SupplierId); err != nil {
			return errors.New("supplier not found")
		}
	}
	return nil
}

func (input *NewMaterial) model() Material {
	unit := input.Unit
	if unit == "" {
		unit = "m"
	}
	vatRefund := input.VatRefund
	if vatRefund == nil {
		vatRefund = utils.NewFalse()
	}
	return Material{
		Code:       input.Code,
		Name:       input.Name,
		Category:   input.Category,
		SupplierId: input.SupplierId,
		Unit:       unit,
		UnitPrice:  input.UnitPrice,
		VatRefund:  vatRefund,
		VatPercent: input.VatPercent,
	}
}

func CreateMaterial(ctx context.Context, input *NewMaterial) (*Material, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	material := input.model()

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func UpdateMaterial(ctx context.Context, id int, input *NewMaterial) (*Material, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	material, err := utils.FetchModel[Material](ctx, id)
	if err != nil {
		return nil, err
	}

	updated := input.model()

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(material).Updates(map[string]interface{}{
		"Code":       updated.Code,
		"Name":       updated.Name,
		"Category":   updated.Category,
		"SupplierId": updated.SupplierId,
		"Unit":       updated.Unit,
		"UnitPrice":  updated.UnitPrice,
		"VatRefund":  updated.VatRefund,
		"VatPercent": updated.VatPercent,
	}).Error; err != nil {
		return nil, err
	}
	return material, nil
}

func DeleteMaterial(ctx context.Context, id int) (*Material, error) {
	material, err := utils.FetchModel[Material](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(material).Error; err != nil {
		return nil, err
	}
	return material, nil
}

func GetMaterial(ctx context.Context, id int) (*Material, error) {
	return utils.FetchModel[Material](ctx, id)
}

func GetMaterials(ctx context.Context, category *MaterialCategory, name *string) ([]*Material, error) {
	db := config.GetDB()
	var results []*Material

	dbCtx := db.WithContext(ctx)
	if category != nil {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ? OR code LIKE ?", "%"+*name+"%", "%"+*name+"%")
	}
	if err := dbCtx.Order("code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
