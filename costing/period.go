package costing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the rollup window for a period P&L.
type Period string

const (
	PeriodMonthly   Period = "MONTHLY"
	PeriodQuarterly Period = "QUARTERLY"
	PeriodAnnual    Period = "ANNUAL"
)

func (p Period) IsValid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodAnnual:
		return true
	}
	return false
}

// ResolvePeriodWindow computes the [start, end) window for a period around
// the reference time, in the reference's location. An explicit start or end
// overrides the computed boundary on that side.
func ResolvePeriodWindow(p Period, ref time.Time, start, end *time.Time) (time.Time, time.Time) {
	loc := ref.Location()
	year, month, _ := ref.Date()

	var from, to time.Time
	switch p {
	case PeriodQuarterly:
		qStart := time.Month(((int(month)-1)/3)*3 + 1)
		from = time.Date(year, qStart, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 3, 0)
	case PeriodAnnual:
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(1, 0, 0)
	default: // monthly
		from = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0)
	}

	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	return from, to
}

// OrderRollup is one order's contribution to a period P&L.
type OrderRollup struct {
	OrderId     int         `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	OrderDate   time.Time   `json:"order_date"`
	Status      OrderStatus `json:"status"`
	PnL         OrderPnL    `json:"pnl"`
}

// PeriodPnL aggregates order-level P&L across a period. Actual totals sum
// only orders with qualifying invoices; estimated totals cover every
// included order.
type PeriodPnL struct {
	Orders []OrderRollup `json:"orders"`

	TotalEstRevenue decimal.Decimal `json:"total_est_revenue"`
	TotalActRevenue decimal.Decimal `json:"total_act_revenue"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalEstProfit  decimal.Decimal `json:"total_est_profit"`
	TotalActProfit  decimal.Decimal `json:"total_act_profit"`
	EstMargin       decimal.Decimal `json:"est_margin"`
	ActMargin       decimal.Decimal `json:"act_margin"`
}

// ComputePeriodPnL rolls order-level P&L up into period totals. Cancelled
// orders are excluded. Totals sum the already-rounded order figures, so the
// rollup stays additive against the per-order output.
func ComputePeriodPnL(rows []OrderRollup) PeriodPnL {
	summary := PeriodPnL{Orders: make([]OrderRollup, 0, len(rows))}

	for _, row := range rows {
		if row.Status == OrderStatusCancelled {
			continue
		}
		summary.Orders = append(summary.Orders, row)

		summary.TotalEstRevenue = summary.TotalEstRevenue.Add(row.PnL.EstRevenue)
		summary.TotalCost = summary.TotalCost.Add(row.PnL.TotalCost)
		summary.TotalEstProfit = summary.TotalEstProfit.Add(row.PnL.EstProfit)
		if row.PnL.IsActual && row.PnL.ActRevenue != nil {
			summary.TotalActRevenue = summary.TotalActRevenue.Add(*row.PnL.ActRevenue)
			if row.PnL.ActProfit != nil {
				summary.TotalActProfit = summary.TotalActProfit.Add(*row.PnL.ActProfit)
			}
		}
	}

	summary.EstMargin = marginPercent(summary.TotalEstProfit, summary.TotalEstRevenue)
	summary.ActMargin = marginPercent(summary.TotalActProfit, summary.TotalActRevenue)
	return summary
}
