// Package reports assembles read-only report responses on top of the models
// package and the costing engine. Reports batch their fetches per report,
// never per row.
package reports

import (
	"context"
	"errors"

	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/models"
	"github.com/shopspring/decimal"
)

type OrderPnLResponse struct {
	OrderId     int                     `json:"order_id"`
	OrderNumber string                  `json:"order_number"`
	Status      costing.OrderStatus     `json:"status"`
	Currency    string                  `json:"currency"`
	PnL         costing.OrderPnL        `json:"pnl"`
	Colors      *costing.ColorBreakdown `json:"colors,omitempty"`
}

// orderCostRows maps persisted costs into engine cost rows; TotalCostBase is
// already derived by the model layer.
func orderCostRows(costs []models.OrderCost) []costing.CostRow {
	rows := make([]costing.CostRow, 0, len(costs))
	for _, c := range costs {
		rows = append(rows, costing.CostRow{
			LineItemId:    c.LineItemId,
			TotalCostBase: c.TotalCostBase,
		})
	}
	return rows
}

func invoiceRows(invoices []models.Invoice) []costing.InvoiceRow {
	rows := make([]costing.InvoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, costing.InvoiceRow{
			Status:      inv.CurrentStatus,
			TotalAmount: inv.TotalAmount,
		})
	}
	return rows
}

func orderSummary(order *models.PurchaseOrder) costing.OrderSummary {
	return costing.OrderSummary{
		TotalAmount:  order.TotalAmount,
		ExchangeRate: order.ExchangeRate,
		TotalQty:     decimal.NewFromInt(int64(order.TotalQty)),
		Status:       order.CurrentStatus,
	}
}

// GetOrderPnLReport derives the P&L of one order; withColors adds the
// per-color breakdown.
func GetOrderPnLReport(ctx context.Context, orderId int, withColors bool) (*OrderPnLResponse, error) {
	order, err := models.GetPurchaseOrder(ctx, orderId)
	if err != nil {
		return nil, errors.New("purchase order not found")
	}

	costs, err := models.GetOrderCosts(ctx, orderId, nil)
	if err != nil {
		return nil, err
	}
	costRows := make([]costing.CostRow, 0, len(costs))
	for _, c := range costs {
		costRows = append(costRows, costing.CostRow{
			LineItemId:    c.LineItemId,
			TotalCostBase: c.TotalCostBase,
		})
	}

	invoices, err := models.GetInvoicesForOrders(ctx, []int{orderId})
	if err != nil {
		return nil, err
	}

	summary := orderSummary(order)
	response := OrderPnLResponse{
		OrderId:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.CurrentStatus,
		Currency:    order.Currency,
		PnL:         costing.ComputeOrderPnL(summary, costRows, invoiceRows(invoices[orderId])),
	}

	if withColors {
		lines := make([]costing.OrderLine, 0, len(order.Details))
		for _, d := range order.Details {
			lines = append(lines, costing.OrderLine{
				ID:     d.ID,
				Color:  d.Color,
				Qty:    decimal.NewFromInt(int64(d.Qty)),
				Amount: d.Amount,
			})
		}
		breakdown := costing.ComputeColorPnL(summary, lines, costRows)
		response.Colors = &breakdown
	}
	return &response, nil
}
