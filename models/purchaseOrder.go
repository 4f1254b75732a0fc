package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseOrder is a confirmed customer order for a style, broken down by
// color. TotalQty and TotalAmount are always recomputed from the detail
// lines on save.
type PurchaseOrder struct {
	ID                   int                   `gorm:"primary_key" json:"id"`
	OrderNumber          string                `gorm:"size:100;not null;unique" json:"order_number" binding:"required"`
	CustomerId           int                   `gorm:"index;not null" json:"customer_id" binding:"required"`
	StyleId              int                   `gorm:"index;not null" json:"style_id" binding:"required"`
	FactoryId            *int                  `gorm:"index;default:null" json:"factory_id"`
	DevelopmentRequestId *int                  `gorm:"index;default:null" json:"development_request_id"`
	OrderDate            time.Time             `gorm:"not null" json:"order_date"`
	ShipDate             *time.Time            `gorm:"default:null" json:"ship_date"`
	Currency             string                `gorm:"size:10;default:'USD'" json:"currency"`
	ExchangeRate         decimal.Decimal       `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	CurrentStatus        costing.OrderStatus   `gorm:"type:enum('Draft','Confirmed','In Production','Shipped','Closed','Cancelled');default:'Draft'" json:"current_status"`
	TotalQty             int                   `gorm:"default:0" json:"total_qty"`
	TotalAmount          decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Remark               string                `gorm:"type:text;default:null" json:"remark"`
	Details              []PurchaseOrderDetail `gorm:"foreignKey:PurchaseOrderId" json:"details"`
	CreatedAt            time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// PurchaseOrderDetail is one color line of an order. Amount is derived from
// Qty and UnitPrice, never accepted from input.
type PurchaseOrderDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	Color           string          `gorm:"size:100;not null" json:"color"`
	Qty             int             `gorm:"not null;default:0" json:"qty"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseOrder struct {
	OrderNumber          string                   `json:"order_number" binding:"required"`
	CustomerId           int                      `json:"customer_id" binding:"required"`
	StyleId              int                      `json:"style_id" binding:"required"`
	FactoryId            *int                     `json:"factory_id"`
	DevelopmentRequestId *int                     `json:"development_request_id"`
	OrderDate            time.Time                `json:"order_date" binding:"required"`
	ShipDate             *time.Time               `json:"ship_date"`
	Currency             string                   `json:"currency"`
	ExchangeRate         decimal.Decimal          `json:"exchange_rate"`
	Remark               string                   `json:"remark"`
	Details              []NewPurchaseOrderDetail `json:"details" binding:"required,dive"`
}

type NewPurchaseOrderDetail struct {
	Color     string          `json:"color" binding:"required"`
	Qty       int             `json:"qty" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (input *NewPurchaseOrder) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[PurchaseOrder](ctx, "order_number", input.OrderNumber, id); err != nil {
		return errors.New("order number already exists")
	}
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	style, err := utils.FetchModel[Style](ctx, input.StyleId)
	if err != nil {
		return errors.New("style not found")
	}
	if style.CustomerId != input.CustomerId {
		return errors.New("style belongs to another customer")
	}
	if input.FactoryId != nil {
		if err := utils.ValidateResourceId[Factory](ctx, *input.FactoryId); err != nil {
			return errors.New("factory not found")
		}
	}
	if input.DevelopmentRequestId != nil {
		if err := utils.ValidateResourceId[DevelopmentRequest](ctx, *input.DevelopmentRequestId); err != nil {
			return errors.New("development request not found")
		}
	}
	if len(input.Details) == 0 {
		return errors.New("order needs at least one color line")
	}
	for _, d := range input.Details {
		if d.Qty <= 0 {
			return errors.New("qty must be positive")
		}
	}
	return nil
}

func (input *NewPurchaseOrder) buildDetails(orderId int) ([]PurchaseOrderDetail, int, decimal.Decimal) {
	details := make([]PurchaseOrderDetail, 0, len(input.Details))
	totalQty := 0
	totalAmount := decimal.Zero
	for _, d := range input.Details {
		amount := d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Qty)))
		details = append(details, PurchaseOrderDetail{
			PurchaseOrderId: orderId,
			Color:           d.Color,
			Qty:             d.Qty,
			UnitPrice:       d.UnitPrice,
			Amount:          amount,
		})
		totalQty += d.Qty
		totalAmount = totalAmount.Add(amount)
	}
	return details, totalQty, totalAmount
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	order := PurchaseOrder{
		OrderNumber:          input.OrderNumber,
		CustomerId:           input.CustomerId,
		StyleId:              input.StyleId,
		FactoryId:            input.FactoryId,
		DevelopmentRequestId: input.DevelopmentRequestId,
		OrderDate:            input.OrderDate,
		ShipDate:             input.ShipDate,
		Currency:             currency,
		ExchangeRate:         input.ExchangeRate,
		CurrentStatus:        costing.OrderStatusDraft,
		Remark:               input.Remark,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		details, totalQty, totalAmount := input.buildDetails(order.ID)
		if err := tx.Create(&details).Error; err != nil {
			return err
		}
		order.TotalQty = totalQty
		order.TotalAmount = totalAmount
		order.Details = details
		return tx.Model(&order).Updates(map[string]interface{}{
			"TotalQty":    totalQty,
			"TotalAmount": totalAmount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePurchaseOrder rewrites the order header and replaces the color lines
// wholesale. Shipped, closed and cancelled orders are frozen.
func UpdatePurchaseOrder(ctx context.Context, id int, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	order, err := utils.FetchModel[PurchaseOrder](ctx, id)
	if err != nil {
		return nil, err
	}
	switch order.CurrentStatus {
	case costing.OrderStatusShipped, costing.OrderStatusClosed, costing.OrderStatusCancelled:
		return nil, errors.New("order can no longer be edited")
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", order.ID).Delete(&PurchaseOrderDetail{}).Error; err != nil {
			return err
		}
		details, totalQty, totalAmount := input.buildDetails(order.ID)
		if err := tx.Create(&details).Error; err != nil {
			return err
		}
		order.Details = details
		return tx.Model(order).Updates(map[string]interface{}{
			"OrderNumber":          input.OrderNumber,
			"CustomerId":           input.CustomerId,
			"StyleId":              input.StyleId,
			"FactoryId":            input.FactoryId,
			"DevelopmentRequestId": input.DevelopmentRequestId,
			"OrderDate":            input.OrderDate,
			"ShipDate":             input.ShipDate,
			"Currency":             currency,
			"ExchangeRate":         input.ExchangeRate,
			"Remark":               input.Remark,
			"TotalQty":             totalQty,
			"TotalAmount":          totalAmount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus moves an order along its lifecycle. Moving to Shipped
// stamps the ship date if it was never set.
func UpdateOrderStatus(ctx context.Context, id int, status costing.OrderStatus) (*PurchaseOrder, error) {
	if !status.IsValid() {
		return nil, errors.New("invalid order status")
	}

	order, err := utils.FetchModel[PurchaseOrder](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"CurrentStatus": status}
	if status == costing.OrderStatusShipped && order.ShipDate == nil {
		now := time.Now()
		updates["ShipDate"] = &now
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(order).Updates(updates).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func DeletePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	order, err := utils.FetchModel[PurchaseOrder](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&OrderCost{}).Where("purchase_order_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by order cost")
	}
	if err := db.WithContext(ctx).Model(&Invoice{}).Where("purchase_order_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by invoice")
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", order.ID).Delete(&PurchaseOrderDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	db := config.GetDB()
	var order PurchaseOrder
	if err := db.WithContext(ctx).Preload("Details").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

func GetPurchaseOrders(ctx context.Context, customerId *int, status *costing.OrderStatus, fromDate, toDate *time.Time) ([]*PurchaseOrder, error) {
	db := config.GetDB()
	var results []*PurchaseOrder

	dbCtx := db.WithContext(ctx)
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	if fromDate != nil {
		dbCtx = dbCtx.Where("order_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("order_date < ?", *toDate)
	}
	if err := dbCtx.Order("order_date desc, id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
