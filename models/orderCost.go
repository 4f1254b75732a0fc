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

// OrderCost is one booked cost against a purchase order: a fabric purchase,
// a CMT bill, a freight invoice. LineItemId optionally pins the cost to one
// color line of the order; a nil LineItemId is an order-level cost and is
// reported as unallocated in the color breakdown.
type OrderCost struct {
	ID              int              `gorm:"primary_key" json:"id"`
	PurchaseOrderId int              `gorm:"index;not null" json:"purchase_order_id" binding:"required"`
	LineItemId      *int             `gorm:"index;default:null" json:"line_item_id"`
	Category        costing.Category `gorm:"type:enum('fabric','trim','labor','packing','misc','freight','duty');not null" json:"category"`
	Description     string           `gorm:"size:255;default:null" json:"description"`
	SupplierId      *int             `gorm:"index;default:null" json:"supplier_id"`
	CostDate        *time.Time       `gorm:"default:null" json:"cost_date"`
	Currency        string           `gorm:"size:10;default:'CNY'" json:"currency"`
	TotalCost       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	ExchangeRate    decimal.Decimal  `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	TotalCostBase   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_cost_base"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ComputeBaseCost converts a booked cost into the base reporting currency.
// The rate multiplies the cost; anything not strictly positive falls back the
// same way the costing engine does.
func ComputeBaseCost(totalCost, exchangeRate decimal.Decimal) decimal.Decimal {
	rate := exchangeRate
	if rate.Sign() <= 0 {
		rate = costing.FallbackExchangeRate
	}
	return totalCost.Mul(rate)
}

// BeforeSave keeps TotalCostBase derived; it is never trusted from input.
func (c *OrderCost) BeforeSave(tx *gorm.DB) error {
	c.TotalCostBase = ComputeBaseCost(c.TotalCost, c.ExchangeRate)
	return nil
}

type NewOrderCost struct {
	PurchaseOrderId int              `json:"purchase_order_id" binding:"required"`
	LineItemId      *int             `json:"line_item_id"`
	Category        costing.Category `json:"category" binding:"required"`
	Description     string           `json:"description"`
	SupplierId      *int             `json:"supplier_id"`
	CostDate        *time.Time       `json:"cost_date"`
	Currency        string           `json:"currency"`
	TotalCost       decimal.Decimal  `json:"total_cost"`
	ExchangeRate    decimal.Decimal  `json:"exchange_rate"`
}

func (input *NewOrderCost) validate(ctx context.Context) error {
	if !input.Category.IsValid() {
		return errors.New("invalid cost category")
	}
	if err := utils.ValidateResourceId[PurchaseOrder](ctx, input.PurchaseOrderId); err != nil {
		return errors.New("purchase order not found")
	}
	if input.LineItemId != nil {
		detail, err := utils.FetchModel[PurchaseOrderDetail](ctx, *input.LineItemId)
		if err != nil {
			return errors.New("order line item not found")
		}
		if detail.PurchaseOrderId != input.PurchaseOrderId {
			return errors.New("line item belongs to another order")
		}
	}
	if input.SupplierId != nil {
		if err := utils.ValidateResourceId[Supplier](ctx, *input.SupplierId); err != nil {
			return errors.New("supplier not found")
		}
	}
	return nil
}

func (input *NewOrderCost) model() OrderCost {
	currency := input.Currency
	if currency == "" {
		currency = "CNY"
	}
	return OrderCost{
		PurchaseOrderId: input.PurchaseOrderId,
		LineItemId:      input.LineItemId,
		Category:        input.Category,
		Description:     input.Description,
		SupplierId:      input.SupplierId,
		CostDate:        input.CostDate,
		Currency:        currency,
		TotalCost:       input.TotalCost,
		ExchangeRate:    input.ExchangeRate,
	}
}

func CreateOrderCost(ctx context.Context, input *NewOrderCost) (*OrderCost, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	cost := input.model()

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&cost).Error; err != nil {
		return nil, err
	}
	return &cost, nil
}

func UpdateOrderCost(ctx context.Context, id int, input *NewOrderCost) (*OrderCost, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	cost, err := utils.FetchModel[OrderCost](ctx, id)
	if err != nil {
		return nil, err
	}

	updated := input.model()
	updated.ID = cost.ID
	updated.CreatedAt = cost.CreatedAt

	// Save (not Updates) so the BeforeSave hook rederives TotalCostBase.
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

func DeleteOrderCost(ctx context.Context, id int) (*OrderCost, error) {
	cost, err := utils.FetchModel[OrderCost](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(cost).Error; err != nil {
		return nil, err
	}
	return cost, nil
}

func GetOrderCost(ctx context.Context, id int) (*OrderCost, error) {
	return utils.FetchModel[OrderCost](ctx, id)
}

func GetOrderCosts(ctx context.Context, purchaseOrderId int, category *costing.Category) ([]*OrderCost, error) {
	db := config.GetDB()
	var results []*OrderCost

	dbCtx := db.WithContext(ctx).Where("purchase_order_id = ?", purchaseOrderId)
	if category != nil {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	if err := dbCtx.Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetOrderCostsForOrders fetches the costs of many orders in one query, for
// report assembly without per-order round trips.
func GetOrderCostsForOrders(ctx context.Context, orderIds []int) (map[int][]OrderCost, error) {
	grouped := make(map[int][]OrderCost, len(orderIds))
	if len(orderIds) == 0 {
		return grouped, nil
	}

	db := config.GetDB()
	var rows []OrderCost
	if err := db.WithContext(ctx).Where("purchase_order_id IN ?", orderIds).
		Order("purchase_order_id, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		grouped[row.PurchaseOrderId] = append(grouped[row.PurchaseOrderId], row)
	}
	return grouped, nil
}
