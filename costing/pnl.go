package costing

import (
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of a customer invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "Draft"
	InvoiceStatusSent          InvoiceStatus = "Sent"
	InvoiceStatusAcknowledged  InvoiceStatus = "Acknowledged"
	InvoiceStatusPartiallyPaid InvoiceStatus = "Partial Paid"
	InvoiceStatusPaid          InvoiceStatus = "Paid"
	InvoiceStatusOverdue       InvoiceStatus = "Overdue"
	InvoiceStatusCancelled     InvoiceStatus = "Cancelled"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusAcknowledged,
		InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue,
		InvoiceStatusCancelled:
		return true
	}
	return false
}

// CountsAsActual reports whether an invoice in this status is recognized as
// actual revenue. Recognition is deliberately conservative: a draft, a
// cancelled invoice, or an overdue invoice with no payment contributes
// nothing. An overdue invoice that has received a partial payment stays in
// Partial Paid and therefore still counts.
func (s InvoiceStatus) CountsAsActual() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusAcknowledged,
		InvoiceStatusPartiallyPaid, InvoiceStatusPaid:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of a customer purchase order.
type OrderStatus string

const (
	OrderStatusDraft        OrderStatus = "Draft"
	OrderStatusConfirmed    OrderStatus = "Confirmed"
	OrderStatusInProduction OrderStatus = "In Production"
	OrderStatusShipped      OrderStatus = "Shipped"
	OrderStatusClosed       OrderStatus = "Closed"
	OrderStatusCancelled    OrderStatus = "Cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusInProduction,
		OrderStatusShipped, OrderStatusClosed, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderSummary is the order-level input to the P&L assembler.
type OrderSummary struct {
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	TotalQty     decimal.Decimal `json:"total_qty"`
	Status       OrderStatus     `json:"status"`
}

// CostRow is one booked cost against the order, already converted to the
// base reporting currency by the caller.
type CostRow struct {
	LineItemId    *int            `json:"line_item_id"`
	TotalCostBase decimal.Decimal `json:"total_cost_base"`
}

// InvoiceRow is one invoice raised against the order.
type InvoiceRow struct {
	Status      InvoiceStatus   `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderPnL is the derived profit-and-loss for one order. Actual figures are
// nil until at least one qualifying invoice exists.
type OrderPnL struct {
	EstRevenue decimal.Decimal `json:"est_revenue"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	EstProfit  decimal.Decimal `json:"est_profit"`
	EstMargin  decimal.Decimal `json:"est_margin"`

	IsActual        bool             `json:"is_actual"`
	ActRevenue      *decimal.Decimal `json:"act_revenue"`
	ActProfit       *decimal.Decimal `json:"act_profit"`
	ActMargin       *decimal.Decimal `json:"act_margin"`
	RevenueVariance *decimal.Decimal `json:"revenue_variance"`
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// marginPercent = profit / revenue * 100, rounded to 2 decimals, with a
// revenue > 0 guard.
func marginPercent(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.Sign() <= 0 {
		return decimal.Zero
	}
	return round2(profit.Div(revenue).Mul(oneHundred))
}

// ComputeOrderPnL derives estimated and (when invoiced) actual revenue,
// profit, margin and revenue variance for one order. Cost rows are summed
// as-is; they are already in the base reporting currency. Intermediate math
// keeps full precision; currency-scale outputs are rounded to 2 decimals at
// the edge.
func ComputeOrderPnL(order OrderSummary, costs []CostRow, invoices []InvoiceRow) OrderPnL {
	rate := order.ExchangeRate
	if rate.Sign() <= 0 {
		rate = FallbackExchangeRate
	}

	var pnl OrderPnL
	pnl.EstRevenue = round2(order.TotalAmount.Mul(rate))

	totalCost := decimal.Zero
	for _, c := range costs {
		totalCost = totalCost.Add(c.TotalCostBase)
	}
	pnl.TotalCost = round2(totalCost)

	pnl.EstProfit = pnl.EstRevenue.Sub(pnl.TotalCost)
	pnl.EstMargin = marginPercent(pnl.EstProfit, pnl.EstRevenue)

	actTotal := decimal.Zero
	for _, inv := range invoices {
		if inv.Status.CountsAsActual() {
			pnl.IsActual = true
			actTotal = actTotal.Add(inv.TotalAmount)
		}
	}
	if !pnl.IsActual {
		return pnl
	}

	actRevenue := round2(actTotal.Mul(rate))
	actProfit := actRevenue.Sub(pnl.TotalCost)
	variance := actRevenue.Sub(pnl.EstRevenue)

	pnl.ActRevenue = &actRevenue
	pnl.ActProfit = &actProfit
	pnl.RevenueVariance = &variance
	if actRevenue.Sign() > 0 {
		m := marginPercent(actProfit, actRevenue)
		pnl.ActMargin = &m
	}
	return pnl
}

// OrderLine is one PO line item (one color) for the color-level breakdown.
type OrderLine struct {
	ID     int             `json:"id"`
	Color  string          `json:"color"`
	Qty    decimal.Decimal `json:"qty"`
	Amount decimal.Decimal `json:"amount"`
}

// ColorPnL is the P&L scoped to one PO line item.
type ColorPnL struct {
	LineItemId int             `json:"line_item_id"`
	Color      string          `json:"color"`
	Revenue    decimal.Decimal `json:"revenue"`
	Cost       decimal.Decimal `json:"cost"`
	Profit     decimal.Decimal `json:"profit"`
	Margin     decimal.Decimal `json:"margin"`
}

// ColorBreakdown is the per-color P&L plus the costs that were booked
// without a line-item tag. Untagged costs are not reallocated across colors;
// they stay visible here and in the order-level total only.
type ColorBreakdown struct {
	Colors          []ColorPnL      `json:"colors"`
	UnallocatedCost decimal.Decimal `json:"unallocated_cost"`
}

// ComputeColorPnL scopes the order P&L formulas to each PO line item. A
// cost row counts toward a color only when its LineItemId matches one of the
// given lines; everything else lands in UnallocatedCost.
func ComputeColorPnL(order OrderSummary, lines []OrderLine, costs []CostRow) ColorBreakdown {
	rate := order.ExchangeRate
	if rate.Sign() <= 0 {
		rate = FallbackExchangeRate
	}

	costByLine := make(map[int]decimal.Decimal, len(lines))
	known := make(map[int]bool, len(lines))
	for _, line := range lines {
		known[line.ID] = true
		costByLine[line.ID] = decimal.Zero
	}

	unallocated := decimal.Zero
	for _, c := range costs {
		if c.LineItemId == nil || !known[*c.LineItemId] {
			unallocated = unallocated.Add(c.TotalCostBase)
			continue
		}
		costByLine[*c.LineItemId] = costByLine[*c.LineItemId].Add(c.TotalCostBase)
	}

	breakdown := ColorBreakdown{
		Colors:          make([]ColorPnL, 0, len(lines)),
		UnallocatedCost: round2(unallocated),
	}
	for _, line := range lines {
		revenue := round2(line.Amount.Mul(rate))
		cost := round2(costByLine[line.ID])
		profit := revenue.Sub(cost)
		breakdown.Colors = append(breakdown.Colors, ColorPnL{
			LineItemId: line.ID,
			Color:      line.Color,
			Revenue:    revenue,
			Cost:       cost,
			Profit:     profit,
			Margin:     marginPercent(profit, revenue),
		})
	}
	return breakdown
}
