package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/utils"
)

type Customer struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name" binding:"required"`
	ContactPerson string    `gorm:"size:100;default:null" json:"contact_person"`
	Email         string    `gorm:"size:100;default:null" json:"email"`
	Phone         string    `gorm:"size:100;default:null" json:"phone"`
	Country       string    `gorm:"size:100;default:null" json:"country"`
	Address       string    `gorm:"type:text;default:null" json:"address"`
	QuoteCurrency string    `gorm:"size:10;default:'USD'" json:"quote_currency"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Country       string `json:"country"`
	Address       string `json:"address"`
	QuoteCurrency string `json:"quote_currency"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Customer](ctx, "name", input.Name, id); err != nil {
		return errors.New("customer name already exists")
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

func (input *NewCustomer) model() Customer {
	quoteCurrency := input.QuoteCurrency
	if quoteCurrency == "" {
		quoteCurrency = "USD"
	}
	return Customer{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Country:       input.Country,
		Address:       input.Address,
		QuoteCurrency: quoteCurrency,
	}
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	customer := input.model()

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	updated := input.model()

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(customer).Updates(map[string]interface{}{
		"Name":          updated.Name,
		"ContactPerson": updated.ContactPerson,
		"Email":         updated.Email,
		"Phone":         updated.Phone,
		"Country":       updated.Country,
		"Address":       updated.Address,
		"QuoteCurrency": updated.QuoteCurrency,
	}).Error; err != nil {
		return nil, err
	}
	utils.ClearRedisModel[Customer](id)
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// Do not delete customers that own styles or orders.
	var count int64
	if err := db.WithContext(ctx).Model(&Style{}).Where("customer_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by style")
	}
	if err := db.WithContext(ctx).Model(&PurchaseOrder{}).Where("customer_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by purchase order")
	}

	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		return nil, err
	}
	utils.ClearRedisModel[Customer](id)
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	var cached Customer
	if ok, _ := utils.RetrieveRedis[Customer](id, &cached); ok {
		return &cached, nil
	}
	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}
	utils.StoreRedis[Customer](customer, id)
	return customer, nil
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {
	db := config.GetDB()
	var results []*Customer

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
